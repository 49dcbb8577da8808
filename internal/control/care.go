package control

import (
	"errors"
	"fmt"
	"math"

	"github.com/milosgajdos/matrix"
	"github.com/san-kum/motorlab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	signTol     = 1e-12
	signStall   = 1e-8
	signMaxIter = 100
)

// ErrNoConvergence is returned when the matrix sign iteration stalls.
var ErrNoConvergence = errors.New("control: riccati iteration did not converge")

// SolveCARE solves the continuous algebraic Riccati equation
//
//	AᵀP + PA - PBR⁻¹BᵀP + Q = 0
//
// for the stabilising P using the matrix sign function of the Hamiltonian
//
//	H = | A   -BR⁻¹Bᵀ |
//	    | -Q  -Aᵀ     |
//
// (A, B) must be stabilisable and (A, Q) detectable so that H has no
// eigenvalues on the imaginary axis.
func SolveCARE(a, b, q, r mat.Matrix) (*mat.Dense, error) {
	n, na := a.Dims()
	br, m := b.Dims()
	qr, qc := q.Dims()
	rr, rc := r.Dims()
	if n != na || br != n || qr != n || qc != n || rr != m || rc != m {
		return nil, fmt.Errorf("%w: care needs A nxn, B nxm, Q nxn, R mxm", dynamo.ErrDimensionMismatch)
	}

	var rinv mat.Dense
	if err := rinv.Inverse(r); err != nil {
		return nil, fmt.Errorf("%w: R: %v", dynamo.ErrSingularMatrix, err)
	}

	var g mat.Dense
	g.Product(b, &rinv, b.T())

	h := mat.NewDense(2*n, 2*n, nil)
	h.Slice(0, n, 0, n).(*mat.Dense).Copy(a)
	h.Slice(0, n, n, 2*n).(*mat.Dense).Scale(-1, &g)
	h.Slice(n, 2*n, 0, n).(*mat.Dense).Scale(-1, q)
	h.Slice(n, 2*n, n, 2*n).(*mat.Dense).Scale(-1, a.T())

	w, err := matrixSign(h)
	if err != nil {
		return nil, err
	}

	eye, err := matrix.NewDenseValIdentity(n, 1.0)
	if err != nil {
		return nil, err
	}

	// [W12; W22 + I]·P = -[W11 + I; W21]
	lhs := mat.NewDense(2*n, n, nil)
	lhs.Slice(0, n, 0, n).(*mat.Dense).Copy(w.Slice(0, n, n, 2*n))
	lhs.Slice(n, 2*n, 0, n).(*mat.Dense).Add(w.Slice(n, 2*n, n, 2*n), eye)

	rhs := mat.NewDense(2*n, n, nil)
	rhs.Slice(0, n, 0, n).(*mat.Dense).Add(w.Slice(0, n, 0, n), eye)
	rhs.Slice(n, 2*n, 0, n).(*mat.Dense).Copy(w.Slice(n, 2*n, 0, n))
	rhs.Scale(-1, rhs)

	var p mat.Dense
	if err := p.Solve(lhs, rhs); err != nil {
		return nil, fmt.Errorf("%w: riccati solution: %v", dynamo.ErrSingularMatrix, err)
	}

	sym := mat.NewDense(n, n, nil)
	sym.Add(&p, p.T())
	sym.Scale(0.5, sym)
	return sym, nil
}

// LQR returns the optimal state-feedback gain K = R⁻¹BᵀP minimising
// ∫ xᵀQx + uᵀRu dt.
func LQR(a, b, q, r mat.Matrix) (*mat.Dense, error) {
	p, err := SolveCARE(a, b, q, r)
	if err != nil {
		return nil, err
	}

	var rinv mat.Dense
	if err := rinv.Inverse(r); err != nil {
		return nil, fmt.Errorf("%w: R: %v", dynamo.ErrSingularMatrix, err)
	}

	var k mat.Dense
	k.Product(&rinv, b.T(), p)
	return &k, nil
}

// matrixSign runs the determinant-scaled Newton iteration
// Z <- (μZ + (μZ)⁻¹)/2 with μ = |det Z|^(-1/n).
func matrixSign(h *mat.Dense) (*mat.Dense, error) {
	n, _ := h.Dims()
	z := mat.DenseCopyOf(h)

	var inv, next, diff mat.Dense
	prev := math.Inf(1)
	for i := 0; i < signMaxIter; i++ {
		if err := inv.Inverse(z); err != nil {
			return nil, fmt.Errorf("%w: hamiltonian has eigenvalues on the imaginary axis: %v", dynamo.ErrSingularMatrix, err)
		}

		logDet, _ := mat.LogDet(z)
		mu := math.Exp(-logDet / float64(n))
		if math.IsNaN(mu) || math.IsInf(mu, 0) || mu == 0 {
			mu = 1
		}

		next.Scale(mu, z)
		inv.Scale(1/mu, &inv)
		next.Add(&next, &inv)
		next.Scale(0.5, &next)

		diff.Sub(&next, z)
		delta := mat.Norm(&diff, 2) / math.Max(mat.Norm(&next, 2), 1)
		z.Copy(&next)
		// Rounding keeps delta from reaching signTol on badly scaled
		// Hamiltonians; stop once it has stagnated at a small value.
		if delta < signTol || (delta < signStall && delta >= prev) {
			return z, nil
		}
		prev = delta
	}
	return nil, ErrNoConvergence
}
