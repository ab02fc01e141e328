package telemetry

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/rpsarena/components"
)

// RunResult records the outcome of one complete run.
type RunResult struct {
	Seed        int64  `csv:"seed"`
	Ticks       int32  `csv:"ticks"`
	Ended       bool   `csv:"ended"`
	Winner      string `csv:"winner"` // empty if the run hit its tick cap
	Rock        int    `csv:"rock"`
	Paper       int    `csv:"paper"`
	Scissors    int    `csv:"scissors"`
	Contacts    int    `csv:"contacts"`
	Conversions int    `csv:"conversions"`
}

// SweepSummary aggregates many runs.
type SweepSummary struct {
	Runs      int
	Ended     int
	TicksMean float64
	TicksStd  float64
	TicksP10  float64
	TicksP50  float64
	TicksP90  float64
	Wins      components.Counts
}

// WinShare returns the fraction of ended runs won by k.
func (s SweepSummary) WinShare(k components.Kind) float64 {
	if s.Ended == 0 {
		return 0
	}
	return float64(s.Wins[k]) / float64(s.Ended)
}

// Summarize computes tick statistics over ended runs and win counts per kind.
func Summarize(runs []RunResult) SweepSummary {
	summary := SweepSummary{Runs: len(runs)}

	var ticks []float64
	for _, r := range runs {
		if !r.Ended {
			continue
		}
		summary.Ended++
		ticks = append(ticks, float64(r.Ticks))
		if k, err := components.ParseKind(r.Winner); err == nil {
			summary.Wins[k]++
		}
	}

	summary.TicksMean, summary.TicksStd = MeanStd(ticks)
	summary.TicksP10 = Quantile(ticks, 0.10)
	summary.TicksP50 = Quantile(ticks, 0.50)
	summary.TicksP90 = Quantile(ticks, 0.90)
	return summary
}

// LogValue implements slog.LogValuer for structured logging.
func (s SweepSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("runs", s.Runs),
		slog.Int("ended", s.Ended),
		slog.Float64("ticks_mean", s.TicksMean),
		slog.Float64("ticks_std", s.TicksStd),
		slog.Float64("ticks_p10", s.TicksP10),
		slog.Float64("ticks_p50", s.TicksP50),
		slog.Float64("ticks_p90", s.TicksP90),
		slog.Float64("rock_share", s.WinShare(components.KindRock)),
		slog.Float64("paper_share", s.WinShare(components.KindPaper)),
		slog.Float64("scissors_share", s.WinShare(components.KindScissors)),
	)
}

// ReadRuns loads a runs.csv written through OutputManager.WriteRun.
func ReadRuns(path string) ([]RunResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var runs []RunResult
	if err := gocsv.UnmarshalFile(f, &runs); err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	return runs, nil
}
