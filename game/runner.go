package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/rpsarena/components"
	"github.com/pthm-cable/rpsarena/config"
	"github.com/pthm-cable/rpsarena/systems"
	"github.com/pthm-cable/rpsarena/telemetry"
)

// Options configures a headless run.
type Options struct {
	Seed       int64
	Counts     components.Counts
	SpeedScale float64
	MaxTicks   int32  // 0 = run until a winner
	LogStats   bool   // log window stats and bookmarks via slog
	OutputDir  string // CSV and config snapshot directory (empty = disabled)

	SnapshotDir string              // save arena state on each bookmark (empty = disabled)
	Restore     *telemetry.Snapshot // resume from this state instead of a fresh spawn
}

// OptionsFromConfig fills starting counts and speed scale from cfg.
func OptionsFromConfig(cfg *config.Config, seed int64) Options {
	return Options{
		Seed:       seed,
		Counts:     components.NewCounts(cfg.Population.Rock, cfg.Population.Paper, cfg.Population.Scissors),
		SpeedScale: cfg.Motion.SpeedScale,
	}
}

// Runner drives an Engine tick by tick and feeds telemetry.
type Runner struct {
	engine *Engine
	opts   Options

	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager

	statsCallback func(telemetry.WindowStats)

	// Run totals
	contacts    int
	conversions int

	particles []Particle // reused for speed sampling
	speeds    []float64
}

// NewRunner builds an engine seeded from opts and initializes it.
func NewRunner(cfg *config.Config, opts Options) (*Runner, error) {
	engine := NewEngine(cfg, systems.NewRand(opts.Seed))
	if opts.Restore != nil {
		if err := engine.Restore(opts.Restore); err != nil {
			return nil, err
		}
	} else if err := engine.Initialize(opts.Counts, opts.SpeedScale); err != nil {
		return nil, err
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, err
	}

	r := &Runner{
		engine:           engine,
		opts:             opts,
		collector:        telemetry.NewCollector(int32(cfg.Telemetry.StatsWindow)),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, cfg.Bookmarks),
		outputManager:    om,
	}
	r.collector.Reset(engine.Tick())
	return r, nil
}

// Engine returns the driven engine.
func (r *Runner) Engine() *Engine {
	return r.engine
}

// SetStatsCallback registers fn to receive every flushed window.
func (r *Runner) SetStatsCallback(fn func(telemetry.WindowStats)) {
	r.statsCallback = fn
}

// Run steps the engine until a winner emerges, MaxTicks is reached, the
// engine is paused, or ctx is cancelled. The returned result reflects the
// last completed tick; on cancellation the context error is returned too.
func (r *Runner) Run(ctx context.Context) (telemetry.RunResult, error) {
	r.engine.Start()

	slog.Info("starting run",
		"seed", r.opts.Seed,
		"counts", r.engine.Counts().String(),
		"tick", r.engine.Tick(),
		"speed_scale", r.engine.SpeedScale(),
		"max_ticks", r.opts.MaxTicks,
	)

	var err error
	for r.engine.Running() {
		if err = ctx.Err(); err != nil {
			r.engine.Pause()
			break
		}

		r.perfCollector.StartTick()
		res := r.engine.stepWith(r.perfCollector)
		r.perfCollector.StartPhase(telemetry.PhaseTelemetry)
		r.contacts += res.Contacts
		r.conversions += res.Conversions
		r.collector.RecordTick(res.Contacts, res.Conversions, res.Gained)
		if res.Ended || r.collector.ShouldFlush(res.Tick) {
			r.flushTelemetry(res)
		}
		r.perfCollector.EndTick()

		if r.opts.MaxTicks > 0 && res.Tick >= r.opts.MaxTicks && !res.Ended {
			slog.Info("max ticks reached", "tick", res.Tick)
			r.engine.Pause()
		}
	}

	result := r.Result()
	if err != nil {
		return result, fmt.Errorf("run interrupted at tick %d: %w", result.Ticks, err)
	}
	return result, nil
}

// Result summarizes the engine's current state.
func (r *Runner) Result() telemetry.RunResult {
	counts := r.engine.Counts()
	result := telemetry.RunResult{
		Seed:        r.opts.Seed,
		Ticks:       r.engine.Tick(),
		Rock:        counts[components.KindRock],
		Paper:       counts[components.KindPaper],
		Scissors:    counts[components.KindScissors],
		Contacts:    r.contacts,
		Conversions: r.conversions,
	}
	if k, ok := r.engine.Winner(); ok {
		result.Ended = true
		result.Winner = k.String()
	}
	return result
}

// Close flushes and closes telemetry output.
func (r *Runner) Close() error {
	return r.outputManager.Close()
}

// flushTelemetry closes the current stats window and handles bookmarks.
func (r *Runner) flushTelemetry(res StepResult) {
	r.particles = r.engine.Particles(r.particles[:0])
	r.speeds = r.speeds[:0]
	for _, p := range r.particles {
		r.speeds = append(r.speeds, p.Speed())
	}

	var winner string
	if res.Ended {
		winner = res.Winner.String()
	}

	stats := r.collector.Flush(res.Tick, res.Counts, r.speeds, winner)
	perfStats := r.perfCollector.Stats()

	if r.statsCallback != nil {
		r.statsCallback(stats)
	}

	if r.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if r.outputManager != nil {
		if err := r.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := r.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range r.bookmarkDetector.Check(stats) {
		if r.opts.LogStats {
			bm.LogBookmark()
		}
		if r.outputManager != nil {
			if err := r.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
		// Save snapshot on bookmark
		if r.opts.SnapshotDir != "" {
			r.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot writes the current arena state to the snapshot directory.
func (r *Runner) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := telemetry.SaveSnapshot(r.engine.Snapshot(r.opts.Seed, bookmark), r.opts.SnapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", r.engine.Tick())
}
