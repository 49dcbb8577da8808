package config

import (
	"sort"

	"github.com/san-kum/motorlab/internal/control"
)

var presets = map[string]func() *Config{
	// Proportional speed loop from rest current; settles at the closed-loop
	// dc gain, not at the reference.
	"pid-speed": func() *Config {
		return DefaultConfig()
	},
	"pid-angle": func() *Config {
		cfg := DefaultConfig()
		cfg.Controller = ControllerConfig{
			Kind: KindPID, Kp: 2000, Ki: 50, Kd: 500,
			Reference: control.SignalSpec{Kind: "step", Value: 1, At: 0},
		}
		cfg.Output = "angle"
		cfg.Sim.X0 = []float64{0, 0, 0}
		return cfg
	},
	"lqr-angle": func() *Config {
		cfg := DefaultConfig()
		cfg.Controller = ControllerConfig{
			Kind:      KindLQR,
			Q:         []float64{1, 1e6, 1},
			R:         1,
			Reference: control.SignalSpec{Kind: "constant", Value: 1},
		}
		cfg.Output = "angle"
		cfg.Sim.X0 = []float64{0, 0, 0}
		return cfg
	},
	"open-loop": func() *Config {
		cfg := DefaultConfig()
		cfg.Controller = ControllerConfig{Kind: KindDummy, Value: 12}
		cfg.Sim.X0 = []float64{0, 0, 0}
		return cfg
	},
	"speed-sine": func() *Config {
		cfg := DefaultConfig()
		cfg.Controller.Kp = 500
		cfg.Controller.Ki = 200
		cfg.Controller.Reference = control.SignalSpec{Kind: "sine", Value: 0.2, Amplitude: 0.1, Frequency: 0.2}
		cfg.Sim.X0 = []float64{0, 0, 0}
		cfg.Sim.Tf = 20
		return cfg
	},
}

// GetPreset returns a fresh copy of a named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
