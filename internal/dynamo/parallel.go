package dynamo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one independent run. Each job must own its simulator: controllers
// and integrators carry per-run state.
type Job struct {
	Name string
	Sim  *Simulator
	X0   State
	Cfg  Config
}

// RunAll executes jobs concurrently and returns their traces in job order.
// The first failure cancels the remaining runs.
func RunAll(ctx context.Context, jobs []Job) ([]*Trace, error) {
	traces := make([]*Trace, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		g.Go(func() error {
			tr, err := job.Sim.Run(ctx, job.X0, job.Cfg)
			if err != nil {
				return err
			}
			traces[i] = tr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return traces, nil
}
