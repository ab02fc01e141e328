package main

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/rpsarena/components"
	"github.com/pthm-cable/rpsarena/config"
	"github.com/pthm-cable/rpsarena/game"
	"github.com/pthm-cable/rpsarena/telemetry"
)

// Sweep runs one headless simulation per seed and collects the outcomes.
type Sweep struct {
	cfg        *config.Config
	counts     components.Counts
	speedScale float64
	maxTicks   int32
	workers    int

	// Progress reporting; guarded by mu
	mu       sync.Mutex
	done     int
	progress func(done int, r telemetry.RunResult)
	output   *telemetry.OutputManager
}

// NewSweep creates a sweep over cfg's starting population.
func NewSweep(cfg *config.Config, maxTicks int32, workers int) *Sweep {
	if workers < 1 {
		workers = 1
	}
	return &Sweep{
		cfg:        cfg,
		counts:     components.NewCounts(cfg.Population.Rock, cfg.Population.Paper, cfg.Population.Scissors),
		speedScale: cfg.Motion.SpeedScale,
		maxTicks:   maxTicks,
		workers:    workers,
	}
}

// OnProgress registers fn to be called after each run completes.
func (s *Sweep) OnProgress(fn func(done int, r telemetry.RunResult)) {
	s.progress = fn
}

// SetOutput streams each finished run to om's runs.csv as it completes,
// so an interrupted sweep keeps the runs already done.
func (s *Sweep) SetOutput(om *telemetry.OutputManager) {
	s.output = om
}

// Seeds returns n seeds spaced from base. n < 1 gives no seeds.
func Seeds(base int64, n int) []int64 {
	if n < 1 {
		return nil
	}
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = base + int64(i)*1000
	}
	return seeds
}

// Run evaluates every seed, at most workers at a time. Results are in
// seed order. The first failing run cancels the rest.
func (s *Sweep) Run(ctx context.Context, seeds []int64) ([]telemetry.RunResult, error) {
	results := make([]telemetry.RunResult, len(seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, seed := range seeds {
		g.Go(func() error {
			r, err := s.runOne(ctx, seed)
			if err != nil {
				return err
			}
			results[i] = r
			return s.report(r)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Sweep) runOne(ctx context.Context, seed int64) (telemetry.RunResult, error) {
	runner, err := game.NewRunner(s.cfg, game.Options{
		Seed:       seed,
		Counts:     s.counts,
		SpeedScale: s.speedScale,
		MaxTicks:   s.maxTicks,
	})
	if err != nil {
		return telemetry.RunResult{}, err
	}
	defer runner.Close()

	return runner.Run(ctx)
}

func (s *Sweep) report(r telemetry.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	if s.progress != nil {
		s.progress(s.done, r)
	}
	return s.output.WriteRun(r)
}
