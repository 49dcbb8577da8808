package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/motorlab/internal/analysis"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrace() *dynamo.Trace {
	tr := &dynamo.Trace{Metrics: map[string]float64{}}
	for i := 0; i < 50; i++ {
		t := float64(i) * 0.1
		tr.Times = append(tr.Times, t)
		tr.States = append(tr.States, dynamo.State{1 / (1 + t), t, 1 - 1/(1+t)})
		tr.Outputs = append(tr.Outputs, dynamo.State{1 - 1/(1+t)})
		tr.Controls = append(tr.Controls, 100/(1+t))
	}
	return tr
}

func TestRenderSVG(t *testing.T) {
	out, ctrl, err := OutputPlot(testTrace(), "speed")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, out, "svg", Width, Height))
	assert.Contains(t, buf.String(), "<svg")
	assert.Contains(t, buf.String(), "speed")

	buf.Reset()
	require.NoError(t, Render(&buf, ctrl, "PNG", Width, Height))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.Error(t, Render(&buf, out, "bmp", Width, Height))
}

func TestStateAndComparePlots(t *testing.T) {
	tr := testTrace()

	p, err := StatePlot(tr, "states", []string{"current", "angle"})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, p, "svg", Width, Height))
	assert.Contains(t, buf.String(), "current")
	assert.Contains(t, buf.String(), "x2")

	_, err = ComparePlot("cmp", []string{"a"}, []*dynamo.Trace{tr, tr})
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)

	p, err = ComparePlot("cmp", []string{"a", "b"}, []*dynamo.Trace{tr, tr})
	require.NoError(t, err)
	assert.Equal(t, "cmp", p.Title.Text)

	_, err = StatePlot(&dynamo.Trace{}, "empty", nil)
	assert.Error(t, err)
}

func TestPhasePlotSave(t *testing.T) {
	portrait, err := analysis.PhasePortrait(testTrace(), 1, 2)
	require.NoError(t, err)

	p, err := PhasePlot(portrait, "angle", "speed")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "phase.svg")
	require.NoError(t, Save(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<svg"))

	assert.Error(t, Save(filepath.Join(t.TempDir(), "phase"), p))
}
