// Package main runs many seeds of the arena to completion and summarizes
// who wins and how long it takes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/pthm-cable/rpsarena/config"
	"github.com/pthm-cable/rpsarena/telemetry"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 200000, "Tick cap per run")
	runs := flag.Int("runs", 32, "Number of seeds to run")
	baseSeed := flag.Int64("seed", 42, "First seed; later seeds are spaced by 1000")
	workers := flag.Int("workers", runtime.NumCPU(), "Runs evaluated in parallel")
	speed := flag.Float64("speed", 0, "Speed scale (0 = use config)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		slog.Error("--output is required")
		os.Exit(1)
	}
	if *runs < 1 {
		slog.Error("--runs must be at least 1", "runs", *runs)
		os.Exit(1)
	}
	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer om.Close()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *speed > 0 {
		cfg.Motion.SpeedScale = *speed
	}
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sweep := NewSweep(cfg, int32(*maxTicks), *workers)
	sweep.SetOutput(om)
	startTime := time.Now()
	sweep.OnProgress(func(done int, r telemetry.RunResult) {
		elapsed := time.Since(startTime)
		remaining := elapsed / time.Duration(done) * time.Duration(*runs-done)
		slog.Info("run complete",
			"done", done,
			"runs", *runs,
			"seed", r.Seed,
			"ticks", r.Ticks,
			"winner", r.Winner,
			"elapsed", formatDuration(elapsed),
			"eta", formatDuration(remaining),
		)
	})

	slog.Info("starting sweep", "runs", *runs, "workers", *workers, "max_ticks", *maxTicks)
	results, err := sweep.Run(ctx, Seeds(*baseSeed, *runs))
	if err != nil {
		// Runs finished before the failure are already in runs.csv
		slog.Error("sweep failed", "error", err, "runs_csv", om.Path(telemetry.RunsFile))
		om.Close()
		os.Exit(1)
	}

	slog.Info("sweep complete",
		"duration", formatDuration(time.Since(startTime)),
		"runs_csv", om.Path(telemetry.RunsFile),
		"summary", telemetry.Summarize(results),
	)
}
