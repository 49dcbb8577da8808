package optim

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/san-kum/motorlab/internal/config"
	"github.com/san-kum/motorlab/internal/experiment"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BuildFunc turns one grid point into a runnable experiment.
type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// Workers bounds concurrent evaluations; 0 uses GOMAXPROCS.
	Workers int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Points enumerates the cartesian product of the ranges, last parameter
// varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	var points []map[string]float64
	g.collect(0, make(map[string]float64), &points)
	return points
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*out = append(*out, p)
		return
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		g.collect(depth+1, current, out)
	}
	delete(current, name)
}

// Search evaluates every grid point and returns the one with the smallest
// metric value. Points that fail to build or abort are skipped; Search
// fails only when none succeeds or ctx ends.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%d parameter names for %d ranges", len(g.paramNames), len(g.ranges))
	}

	points := g.Points()
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu        sync.Mutex
		best      = math.Inf(1)
		bestIdx   = -1
		lastErr   error
		evaluated int
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, p := range points {
		eg.Go(func() error {
			val, err := evaluate(ctx, build, p, metricName)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				lastErr = err
				return nil
			}
			evaluated++
			// ties go to the earlier grid point
			if val < best || (val == best && i < bestIdx) {
				best, bestIdx = val, i
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}

	if bestIdx < 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("empty grid")
		}
		return nil, 0, fmt.Errorf("no grid point evaluated: %w", lastErr)
	}
	return points[bestIdx], best, nil
}

func evaluate(ctx context.Context, build BuildFunc, params map[string]float64, metricName string) (float64, error) {
	exp, err := build(params)
	if err != nil {
		return 0, err
	}
	tr, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	val, ok := tr.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("unknown metric: %s", metricName)
	}
	if math.IsNaN(val) {
		return 0, fmt.Errorf("metric %s is NaN", metricName)
	}
	return val, nil
}

// ConfigBuilder returns a BuildFunc that applies each grid point to a
// copy of base through config.Set, so names are dotted config parameters
// such as controller.kp.
func ConfigBuilder(base *config.Config, reg *experiment.Registry, logger *zap.Logger) BuildFunc {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for name, v := range params {
			if err := cfg.Set(name, v); err != nil {
				return nil, err
			}
		}
		return experiment.New(fmt.Sprintf("grid%v", params), cfg, reg, logger)
	}
}
