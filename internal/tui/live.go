// Package tui is a live terminal view of a running motor experiment with
// on-the-fly controller tuning.
package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/motorlab/internal/control"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/experiment"
	"github.com/san-kum/motorlab/internal/physics"
)

const (
	historyCapacity = 600
	defaultSteps    = 20
	maxSteps        = 1024
	tuneFactor      = 1.1
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model steps an experiment a few grid points per frame and plots the
// output against the reference.
type Model struct {
	exp     *experiment.Experiment
	stepper *dynamo.Stepper
	ref     control.Signal

	tunable  dynamo.Configurable
	params   []string
	selected int

	running      bool
	stepsPerTick int
	last         dynamo.Sample
	outputs      []float64
	refs         []float64
	controls     []float64
	err          error

	width  int
	height int
}

func NewModel(exp *experiment.Experiment) (Model, error) {
	ref, err := exp.Config().Controller.Reference.Build()
	if err != nil {
		return Model{}, err
	}
	st, err := exp.Stepper()
	if err != nil {
		return Model{}, err
	}

	m := Model{
		exp:          exp,
		stepper:      st,
		ref:          ref,
		running:      true,
		stepsPerTick: defaultSteps,
		width:        80,
		height:       24,
	}
	if c, ok := exp.Controller().(dynamo.Configurable); ok {
		m.tunable = c
		for name := range c.GetParams() {
			// the sample period is tied to the simulation grid
			if name != "dt" {
				m.params = append(m.params, name)
			}
		}
		sort.Strings(m.params)
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.key(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if m.running && m.err == nil && !m.stepper.Done() {
			m.advance(m.stepsPerTick)
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case " ", "p":
		m.running = !m.running
	case "r":
		m.restart()
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.params)-1 {
			m.selected++
		}
	case "right", "l", "+", "=":
		m.tune(func(v float64) float64 {
			if v == 0 {
				return 1
			}
			return v * tuneFactor
		})
	case "left", "h", "-":
		m.tune(func(v float64) float64 { return v / tuneFactor })
	case "z":
		m.tune(func(float64) float64 { return 0 })
	case "]":
		m.stepsPerTick = min(m.stepsPerTick*2, maxSteps)
	case "[":
		m.stepsPerTick = max(m.stepsPerTick/2, 1)
	}
	return m, nil
}

func (m *Model) tune(f func(float64) float64) {
	if m.tunable == nil || len(m.params) == 0 {
		return
	}
	name := m.params[m.selected]
	if err := m.tunable.SetParam(name, f(m.tunable.GetParams()[name])); err != nil {
		m.err = err
	}
}

func (m *Model) advance(n int) {
	for k := 0; k < n && !m.stepper.Done(); k++ {
		smp, err := m.stepper.Next()
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		m.last = smp
	}
	m.outputs = push(m.outputs, physics.Tracked(m.last.Output))
	m.refs = push(m.refs, m.ref(m.last.Time))
	m.controls = push(m.controls, m.last.Control)
}

func (m *Model) restart() {
	st, err := m.exp.Stepper()
	if err != nil {
		m.err = err
		return
	}
	m.stepper = st
	m.last = dynamo.Sample{}
	m.outputs, m.refs, m.controls = nil, nil, nil
	m.err = nil
	m.running = true
}

func (m Model) View() string {
	var b strings.Builder
	cfg := m.exp.Config()

	status := green.Render("● running")
	switch {
	case m.err != nil:
		status = red.Render("✕ aborted")
	case m.stepper.Done():
		status = cyan.Render("■ done")
	case !m.running:
		status = yellow.Render("○ paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s  %s  %s\n",
		cyan.Render(m.exp.Name), dim.Render(cfg.Controller.Kind+" / "+cfg.Integrator+" / "+cfg.Output), status))

	span := cfg.Sim.Tf - cfg.Sim.T0
	progress := math.Min(math.Max((m.last.Time-cfg.Sim.T0)/span, 0), 1)
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar,
		dim.Render(fmt.Sprintf("%.2fs/%.0fs", m.last.Time, cfg.Sim.Tf)),
		dim.Render(fmt.Sprintf("x%d", m.stepsPerTick))))

	if len(m.outputs) > 1 {
		w := max(m.width-16, 40)
		h := max(m.height-18, 8)
		chart := asciigraph.PlotMany([][]float64{m.outputs, m.refs},
			asciigraph.Height(h),
			asciigraph.Width(w),
			asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
			asciigraph.Caption(cfg.Output+" vs reference"),
		)
		b.WriteString(indent(panel.Render(chart)) + "\n")
	}

	var line strings.Builder
	line.WriteString("   ")
	for i, label := range stateLabels {
		if i < len(m.last.State) {
			line.WriteString(dim.Render(label + "="))
			line.WriteString(white.Render(fmt.Sprintf("%.4f", m.last.State[i])))
			line.WriteString("  ")
		}
	}
	line.WriteString(dim.Render("u="))
	line.WriteString(magenta.Render(fmt.Sprintf("%.3f", m.last.Control)))
	b.WriteString(line.String() + "\n\n")

	if m.tunable != nil {
		values := m.tunable.GetParams()
		for i, name := range m.params {
			val := fmt.Sprintf("%10.4f", values[name])
			if i == m.selected {
				b.WriteString("   " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-6s", name)) + magenta.Render(val) + "\n")
			} else {
				b.WriteString("     " + dim.Render(fmt.Sprintf("%-6s", name)) + dim.Render(val) + "\n")
			}
		}
	}

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   space pause  ↑↓ param  ←→ tune  z zero  [] speed  r restart  q quit") + "\n")
	return b.String()
}

// Run blocks until the user quits the live view.
func Run(exp *experiment.Experiment) error {
	m, err := NewModel(exp)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func push(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "   " + l
	}
	return strings.Join(lines, "\n")
}
