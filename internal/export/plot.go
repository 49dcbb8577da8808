package export

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/san-kum/motorlab/internal/analysis"
	"github.com/san-kum/motorlab/internal/dynamo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default image size.
const (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
}

// Series is one named line of a plot.
type Series struct {
	Name string
	X, Y []float64
}

// NewTimePlot draws every series as a line against time.
func NewTimePlot(title, ylabel string, series ...Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t [s]"
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range series {
		line, err := plotter.NewLine(makePoints(s.X, s.Y))
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1.5)

		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return p, nil
}

// OutputPlot plots the first output component of a trace with its control
// signal on a separate plot.
func OutputPlot(tr *dynamo.Trace, name string) (output, ctrl *plot.Plot, err error) {
	if tr.Len() == 0 {
		return nil, nil, fmt.Errorf("empty trace")
	}

	output, err = NewTimePlot(name, "y", Series{Name: "output", X: tr.Times, Y: tr.OutputSeries(0)})
	if err != nil {
		return nil, nil, err
	}
	ctrl, err = NewTimePlot(name+" control", "u [V]", Series{Name: "u", X: tr.Times, Y: tr.ControlSeries()})
	if err != nil {
		return nil, nil, err
	}
	return output, ctrl, nil
}

// StatePlot plots every state component of a trace.
func StatePlot(tr *dynamo.Trace, title string, names []string) (*plot.Plot, error) {
	if tr.Len() == 0 {
		return nil, fmt.Errorf("empty trace")
	}

	series := make([]Series, len(tr.States[0]))
	for i := range series {
		name := fmt.Sprintf("x%d", i)
		if i < len(names) {
			name = names[i]
		}
		series[i] = Series{Name: name, X: tr.Times, Y: tr.StateSeries(i)}
	}
	return NewTimePlot(title, "state", series...)
}

// ComparePlot overlays output component 0 of several traces.
func ComparePlot(title string, names []string, traces []*dynamo.Trace) (*plot.Plot, error) {
	if len(names) != len(traces) {
		return nil, fmt.Errorf("%w: %d names for %d traces", dynamo.ErrDimensionMismatch, len(names), len(traces))
	}
	series := make([]Series, len(traces))
	for i, tr := range traces {
		series[i] = Series{Name: names[i], X: tr.Times, Y: tr.OutputSeries(0)}
	}
	return NewTimePlot(title, "y", series...)
}

// PhasePlot draws a phase portrait as a scatter.
func PhasePlot(portrait *analysis.PhasePortrait2D, xlabel, ylabel string) (*plot.Plot, error) {
	if portrait == nil || len(portrait.Points) == 0 {
		return nil, fmt.Errorf("empty phase portrait")
	}

	pts := make(plotter.XYs, len(portrait.Points))
	for i, pt := range portrait.Points {
		pts[i].X = pt.X
		pts[i].Y = pt.Y
	}

	p := plot.New()
	p.Title.Text = "Phase portrait"
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = palette[0]
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(1)
	p.Add(scatter)
	return p, nil
}

// Render writes p in format (png, svg, pdf, eps, jpg, tiff).
func Render(w io.Writer, p *plot.Plot, format string, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, strings.ToLower(format))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save writes p to path, choosing the format from the file extension.
func Save(path string, p *plot.Plot) error {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return fmt.Errorf("cannot infer image format from %s", path)
	}
	return p.Save(Width, Height, path)
}

func makePoints(x, y []float64) plotter.XYs {
	n := min(len(x), len(y))
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}
