package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/rpsarena/components"
	"github.com/pthm-cable/rpsarena/config"
	"github.com/pthm-cable/rpsarena/game"
	"github.com/pthm-cable/rpsarena/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output window stats and bookmarks via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files saved on bookmarks")
	restorePath := flag.String("restore", "", "Resume from a snapshot file instead of spawning")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = run until a winner)")
	rock := flag.Int("rock", 0, "Starting rock count (0 = use config)")
	paper := flag.Int("paper", 0, "Starting paper count (0 = use config)")
	scissors := flag.Int("scissors", 0, "Starting scissors count (0 = use config)")
	speed := flag.Float64("speed", 0, "Speed scale (0 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := game.OptionsFromConfig(cfg, rngSeed)
	opts.LogStats = *logStats
	opts.OutputDir = *outputDir
	opts.MaxTicks = int32(*maxTicks)
	opts.SnapshotDir = *snapshotDir
	if *restorePath != "" {
		snap, err := telemetry.LoadSnapshot(*restorePath)
		if err != nil {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		opts.Restore = snap
		slog.Info("restoring snapshot", "path", *restorePath, "tick", snap.Tick, "counts", snap.Counts().String())
	}
	if *speed > 0 {
		opts.SpeedScale = *speed
	}
	requested := components.NewCounts(*rock, *paper, *scissors)
	for _, k := range components.Kinds {
		n := requested[k]
		if n == 0 {
			continue
		}
		clamped := game.ClampCount(n, cfg.Population.MaxCount)
		if clamped != n {
			slog.Warn("count clamped", "kind", k.String(), "requested", n, "count", clamped)
		}
		opts.Counts[k] = clamped
	}

	runner, err := game.NewRunner(cfg, opts)
	if err != nil {
		slog.Error("failed to start run", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := runner.Run(ctx)
	if closeErr := runner.Close(); closeErr != nil {
		slog.Error("failed to close output", "error", closeErr)
	}
	if err != nil {
		slog.Warn("run stopped", "error", err)
	}

	slog.Info("run finished",
		"seed", result.Seed,
		"ticks", result.Ticks,
		"ended", result.Ended,
		"winner", result.Winner,
		"rock", result.Rock,
		"paper", result.Paper,
		"scissors", result.Scissors,
		"conversions", result.Conversions,
	)
}
