package dynamo_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/motorlab/internal/control"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/integrators"
	"github.com/san-kum/motorlab/internal/physics"
)

// failingController errors once it has been called failAt times.
type failingController struct {
	calls  int
	failAt int
}

func (f *failingController) Compute(obs dynamo.State, t float64) (float64, error) {
	if f.calls == f.failAt {
		return 0, dynamo.ErrDivisionByZero
	}
	f.calls++
	return 0, nil
}

func (f *failingController) Observes() dynamo.Observation { return dynamo.ObserveOutput }

type countMetric struct{ n float64 }

func (c *countMetric) Name() string          { return "count" }
func (c *countMetric) Observe(dynamo.Sample) { c.n++ }
func (c *countMetric) Value() float64        { return c.n }
func (c *countMetric) Reset()                { c.n = 0 }

type recorder struct{ steps []int }

func (r *recorder) OnStep(s dynamo.Sample) { r.steps = append(r.steps, s.Step) }

func newMotorPID(ref float64) *dynamo.Simulator {
	motor, err := physics.NewDCMotor(physics.DefaultMotorParams())
	Expect(err).NotTo(HaveOccurred())
	pid, err := control.NewPID(control.PIDConfig{Kp: 100, Dt: 0.001, Reference: control.Constant(ref)})
	Expect(err).NotTo(HaveOccurred())
	return dynamo.New(motor, integrators.NewRK2(), pid)
}

func speedConfig() dynamo.Config {
	c, err := physics.OutputMatrix("speed")
	Expect(err).NotTo(HaveOccurred())
	cfg := dynamo.DefaultConfig()
	cfg.C = c
	return cfg
}

var _ = Describe("TimeGrid", func() {
	It("excludes the end time", func() {
		Expect(dynamo.TimeGrid(0, 1, 0.25)).To(Equal([]float64{0, 0.25, 0.5, 0.75}))
	})

	It("has ceil((tf-t0)/dt) points", func() {
		Expect(dynamo.TimeGrid(0, 10, 0.001)).To(HaveLen(10000))
		Expect(dynamo.TimeGrid(0, 1, 0.3)).To(HaveLen(4))
	})

	It("is empty for a bad step or range", func() {
		Expect(dynamo.TimeGrid(0, 1, 0)).To(BeEmpty())
		Expect(dynamo.TimeGrid(1, 1, 0.1)).To(BeEmpty())
	})
})

var _ = Describe("Simulator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("DC motor under proportional speed control", func() {
		It("settles monotonically at the closed-loop dc gain", func() {
			sim := newMotorPID(1)
			Expect(sim.Phase()).To(Equal(dynamo.NotStarted))

			trace, err := sim.Run(ctx, dynamo.State{1, 0, 0}, speedConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(sim.Phase()).To(Equal(dynamo.Completed))
			Expect(trace.Len()).To(Equal(10000))

			speed := trace.OutputSeries(0)
			Expect(speed[0]).To(Equal(0.0))
			for i := 1; i < len(speed); i++ {
				Expect(speed[i]).To(BeNumerically(">=", speed[i-1]), "step %d", i)
			}

			p := physics.DefaultMotorParams()
			want := 100 / (p.R*p.B/p.Kt + p.Kv + 100)
			Expect(speed[len(speed)-1]).To(BeNumerically("~", want, 1e-3))
		})

		It("decays to rest with a zero reference", func() {
			trace, err := newMotorPID(0).Run(ctx, dynamo.State{0, 0, 1}, speedConfig())
			Expect(err).NotTo(HaveOccurred())

			speed := trace.OutputSeries(0)
			Expect(speed[0]).To(Equal(1.0))
			for i := 1; i < len(speed); i++ {
				Expect(speed[i]).To(BeNumerically("<=", speed[i-1]), "step %d", i)
			}
			Expect(speed[len(speed)-1]).To(BeNumerically("~", 0, 1e-3))
		})

		It("records the control computed at each grid point", func() {
			trace, err := newMotorPID(1).Run(ctx, dynamo.State{1, 0, 0}, speedConfig())
			Expect(err).NotTo(HaveOccurred())

			Expect(trace.Controls).To(HaveLen(trace.Len()))
			Expect(trace.Controls[0]).To(Equal(100.0))
			final := trace.Final()
			Expect(final.Time).To(BeNumerically("~", 9.999, 1e-9))
			Expect(final.Control).To(BeNumerically("~", 100*(1-final.Output[0]), 1e-12))
		})

		It("is reproducible", func() {
			first, err := newMotorPID(1).Run(ctx, dynamo.State{1, 0, 0}, speedConfig())
			Expect(err).NotTo(HaveOccurred())
			second, err := newMotorPID(1).Run(ctx, dynamo.State{1, 0, 0}, speedConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))

			sim := newMotorPID(1)
			a, err := sim.Run(ctx, dynamo.State{1, 0, 0}, speedConfig())
			Expect(err).NotTo(HaveOccurred())
			b, err := sim.Run(ctx, dynamo.State{1, 0, 0}, speedConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(Equal(a))
		})

		It("does not touch the initial state", func() {
			x0 := dynamo.State{1, 0, 0}
			_, err := newMotorPID(1).Run(ctx, x0, speedConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(x0).To(Equal(dynamo.State{1, 0, 0}))
		})
	})

	Describe("state feedback tracking", func() {
		It("reaches the reference with the feedforward gain", func() {
			a := mat.NewDense(1, 1, []float64{-1})
			b := mat.NewDense(1, 1, []float64{1})
			plant, err := physics.NewStateSpace(a, b)
			Expect(err).NotTo(HaveOccurred())

			k := mat.NewDense(1, 1, []float64{1})
			n, err := control.FeedforwardGain(a, b, mat.NewDense(1, 1, []float64{1}), k)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically("~", 2, 1e-12))

			sf, err := control.NewStateFeedback(control.StateFeedbackConfig{K: []float64{1}, N: n, Reference: control.Constant(1)})
			Expect(err).NotTo(HaveOccurred())

			trace, err := dynamo.New(plant, integrators.NewRK2(), sf).Run(ctx, dynamo.State{0}, dynamo.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Final().State[0]).To(BeNumerically("~", 1, 1e-6))
		})
	})

	Describe("failures", func() {
		It("rejects a bad configuration before starting", func() {
			sim := newMotorPID(1)

			cfg := speedConfig()
			cfg.Dt = 0
			_, err := sim.Run(ctx, dynamo.State{0, 0, 0}, cfg)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))

			_, err = sim.Run(ctx, dynamo.State{0, 0}, speedConfig())
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(sim.Phase()).To(Equal(dynamo.NotStarted))
		})

		It("aborts with the failing step and no trace", func() {
			motor, err := physics.NewDCMotor(physics.DefaultMotorParams())
			Expect(err).NotTo(HaveOccurred())
			sim := dynamo.New(motor, integrators.NewRK2(), &failingController{failAt: 3})

			trace, err := sim.Run(ctx, dynamo.State{0, 0, 0}, speedConfig())
			Expect(trace).To(BeNil())
			Expect(sim.Phase()).To(Equal(dynamo.Aborted))
			Expect(errors.Is(err, dynamo.ErrDivisionByZero)).To(BeTrue())

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(Equal(3))
			Expect(simErr.Time).To(BeNumerically("~", 0.003, 1e-12))
		})

		It("rejects a vector observation for a scalar controller", func() {
			cfg := speedConfig()
			cfg.C = nil
			_, err := newMotorPID(1).Run(ctx, dynamo.State{0, 0, 0}, cfg)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("stops on a non-finite state", func() {
			plant, err := physics.NewStateSpace(mat.NewDense(1, 1, []float64{1e308}), mat.NewDense(1, 1, []float64{0}))
			Expect(err).NotTo(HaveOccurred())

			cfg := dynamo.Config{T0: 0, Tf: 10, Dt: 1, ValidateState: true}
			_, err = dynamo.New(plant, integrators.NewRK2(), control.NewDummy(0)).Run(ctx, dynamo.State{1}, cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
		})

		It("honours cancellation", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := newMotorPID(1).Run(cancelled, dynamo.State{0, 0, 0}, speedConfig())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})

	Describe("metrics and observers", func() {
		It("sees every recorded sample", func() {
			sim := newMotorPID(1)
			rec := &recorder{}
			sim.AddMetric(&countMetric{})
			sim.AddObserver(rec)

			cfg := speedConfig()
			cfg.Tf = 0.01
			trace, err := sim.Run(ctx, dynamo.State{0, 0, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Metrics).To(HaveKeyWithValue("count", 10.0))
			Expect(rec.steps).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
		})
	})

	Describe("RunWithCallback", func() {
		It("stops early when the callback declines", func() {
			var seen []float64
			sim := newMotorPID(1)
			err := sim.RunWithCallback(ctx, dynamo.State{0, 0, 0}, speedConfig(), func(s dynamo.Sample) bool {
				seen = append(seen, s.Time)
				return len(seen) < 5
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(HaveLen(5))
			Expect(sim.Phase()).To(Equal(dynamo.Stopped))
		})

		It("completes when the callback accepts every sample", func() {
			cfg := speedConfig()
			sim := newMotorPID(1)
			var n int
			err := sim.RunWithCallback(ctx, dynamo.State{0, 0, 0}, cfg, func(dynamo.Sample) bool {
				n++
				return true
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(len(dynamo.TimeGrid(cfg.T0, cfg.Tf, cfg.Dt))))
			Expect(sim.Phase()).To(Equal(dynamo.Completed))
		})
	})

	Describe("Stepper", func() {
		It("emits the same samples as Run", func() {
			cfg := speedConfig()
			cfg.Tf = 0.05

			trace, err := newMotorPID(1).Run(ctx, dynamo.State{1, 0, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())

			sim := newMotorPID(1)
			st, err := sim.NewStepper(dynamo.State{1, 0, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())

			var n int
			for !st.Done() {
				smp, err := st.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(smp.Time).To(Equal(trace.Times[n]))
				Expect(smp.State).To(Equal(trace.States[n]))
				Expect(smp.Control).To(Equal(trace.Controls[n]))
				n++
			}
			Expect(n).To(Equal(trace.Len()))
			Expect(sim.Phase()).To(Equal(dynamo.Completed))
			Expect(st.State()).To(Equal(trace.Final().State))
		})

		It("picks up gain changes between steps", func() {
			motor, err := physics.NewDCMotor(physics.DefaultMotorParams())
			Expect(err).NotTo(HaveOccurred())
			pid, err := control.NewPID(control.PIDConfig{Kp: 100, Dt: 0.001, Reference: control.Constant(1)})
			Expect(err).NotTo(HaveOccurred())

			st, err := dynamo.New(motor, integrators.NewRK2(), pid).NewStepper(dynamo.State{0, 0, 0}, speedConfig())
			Expect(err).NotTo(HaveOccurred())

			smp, err := st.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(smp.Control).To(Equal(100.0))

			Expect(pid.SetParam("kp", 0)).To(Succeed())
			smp, err = st.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(smp.Control).To(Equal(0.0))
		})

		It("refuses to step past the end of the grid", func() {
			cfg := speedConfig()
			cfg.Tf = 2 * cfg.Dt
			sim := newMotorPID(1)
			st, err := sim.NewStepper(dynamo.State{0, 0, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())

			for !st.Done() {
				_, err := st.Next()
				Expect(err).NotTo(HaveOccurred())
			}
			final := st.State()

			_, err = st.Next()
			Expect(err).To(MatchError(dynamo.ErrCompleted))
			Expect(st.Step()).To(Equal(2))
			Expect(st.State()).To(Equal(final))
			Expect(sim.Phase()).To(Equal(dynamo.Completed))
		})

		It("validates like Run", func() {
			cfg := speedConfig()
			cfg.Tf = 0
			_, err := newMotorPID(1).NewStepper(dynamo.State{0, 0, 0}, cfg)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	Describe("RunAll", func() {
		It("returns traces in job order", func() {
			jobs := []dynamo.Job{
				{Name: "one", Sim: newMotorPID(1), X0: dynamo.State{0, 0, 0}, Cfg: speedConfig()},
				{Name: "zero", Sim: newMotorPID(0), X0: dynamo.State{0, 0, 0}, Cfg: speedConfig()},
			}
			traces, err := dynamo.RunAll(ctx, jobs)
			Expect(err).NotTo(HaveOccurred())
			Expect(traces).To(HaveLen(2))
			Expect(traces[0].Final().Output[0]).To(BeNumerically(">", 0.2))
			Expect(traces[1].Final().Output[0]).To(Equal(0.0))
		})

		It("fails when any job fails", func() {
			cfg := speedConfig()
			cfg.Dt = -1
			jobs := []dynamo.Job{
				{Name: "ok", Sim: newMotorPID(1), X0: dynamo.State{0, 0, 0}, Cfg: speedConfig()},
				{Name: "bad", Sim: newMotorPID(1), X0: dynamo.State{0, 0, 0}, Cfg: cfg},
			}
			_, err := dynamo.RunAll(ctx, jobs)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})
	})
})
