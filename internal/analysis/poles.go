package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/motorlab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Poles returns the eigenvalues of a, sorted by real part.
func Poles(a mat.Matrix) ([]complex128, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: poles need a square matrix, got %dx%d", dynamo.ErrDimensionMismatch, r, c)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenNone); !ok {
		return nil, fmt.Errorf("eigen decomposition did not converge")
	}
	poles := eig.Values(nil)
	sort.Slice(poles, func(i, j int) bool {
		if real(poles[i]) != real(poles[j]) {
			return real(poles[i]) < real(poles[j])
		}
		return imag(poles[i]) < imag(poles[j])
	})
	return poles, nil
}

// ClosedLoopPoles returns the poles of A - B·K.
func ClosedLoopPoles(a, b, k mat.Matrix) ([]complex128, error) {
	n, _ := a.Dims()
	br, bc := b.Dims()
	kr, kc := k.Dims()
	if br != n || kr != bc || kc != n {
		return nil, fmt.Errorf("%w: closed loop needs A nxn, B nxm, K mxn", dynamo.ErrDimensionMismatch)
	}

	var bk, closed mat.Dense
	bk.Mul(b, k)
	closed.Sub(a, &bk)
	return Poles(&closed)
}

// SpectralAbscissa is the largest real part among poles.
func SpectralAbscissa(poles []complex128) float64 {
	m := math.Inf(-1)
	for _, p := range poles {
		m = math.Max(m, real(p))
	}
	return m
}

// TimeConstant is 1/|Re p| of the slowest stable pole, or +Inf when any
// pole is on or right of the imaginary axis.
func TimeConstant(poles []complex128) float64 {
	s := SpectralAbscissa(poles)
	if s >= 0 {
		return math.Inf(1)
	}
	return -1 / s
}
