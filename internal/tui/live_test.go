package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/motorlab/internal/config"
	"github.com/san-kum/motorlab/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, tf float64) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Sim.Tf = tf
	exp, err := experiment.New("live", cfg, experiment.NewRegistry(), nil)
	require.NoError(t, err)
	m, err := NewModel(exp)
	require.NoError(t, err)
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelTunables(t *testing.T) {
	m := newTestModel(t, 0.1)
	assert.Equal(t, []string{"kd", "ki", "kp"}, m.params)
}

func TestModelTick(t *testing.T) {
	assert := assert.New(t)
	m := newTestModel(t, 0.1)

	m = update(m, tickMsg(time.Now()))
	assert.Len(m.outputs, 1)
	assert.InDelta(float64(defaultSteps-1)*0.001, m.last.Time, 1e-12)

	m = update(m, runes(" "))
	assert.False(m.running)
	m = update(m, tickMsg(time.Now()))
	assert.Len(m.outputs, 1, "paused view must not advance")

	m = update(m, runes(" "))
	for i := 0; i < 10; i++ {
		m = update(m, tickMsg(time.Now()))
	}
	assert.True(m.stepper.Done())
	assert.InDelta(0.099, m.last.Time, 1e-12)
	assert.Contains(m.View(), "done")
}

func TestModelTune(t *testing.T) {
	assert := assert.New(t)
	m := newTestModel(t, 0.1)
	params := m.exp.Controller().(interface{ GetParams() map[string]float64 })

	// kd, ki, kp: move to kp
	m = update(m, runes("j"))
	m = update(m, runes("j"))
	m = update(m, runes("j"))
	assert.Equal(2, m.selected)

	m = update(m, runes("+"))
	assert.InDelta(100*tuneFactor, params.GetParams()["kp"], 1e-9)

	m = update(m, runes("z"))
	assert.Equal(0.0, params.GetParams()["kp"])

	m = update(m, runes("+"))
	assert.Equal(1.0, params.GetParams()["kp"])

	m = update(m, runes("k"))
	m = update(m, runes("+"))
	assert.Equal(1.0, params.GetParams()["ki"])
}

func TestModelRestartAndSpeed(t *testing.T) {
	assert := assert.New(t)
	m := newTestModel(t, 0.1)

	m = update(m, runes("]"))
	assert.Equal(2*defaultSteps, m.stepsPerTick)
	for i := 0; i < 20; i++ {
		m = update(m, runes("["))
	}
	assert.Equal(1, m.stepsPerTick)

	m = update(m, tickMsg(time.Now()))
	m = update(m, runes("r"))
	assert.Empty(m.outputs)
	assert.Equal(0, m.stepper.Step())
	assert.True(m.running)
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t, 0.1)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelView(t *testing.T) {
	m := newTestModel(t, 1)
	m = update(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = update(m, tickMsg(time.Now()))
	m = update(m, tickMsg(time.Now()))

	view := m.View()
	assert.Contains(t, view, "live")
	assert.Contains(t, view, "speed vs reference")
	assert.Contains(t, view, "kp")
}
