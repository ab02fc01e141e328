package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/rpsarena/components"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int32 `csv:"-"`
	WindowEndTick   int32 `csv:"window_end"`

	// Population counts at window end
	Rock     int `csv:"rock"`
	Paper    int `csv:"paper"`
	Scissors int `csv:"scissors"`

	// Contacts during window
	Contacts       int     `csv:"contacts"`
	Conversions    int     `csv:"conversions"`
	RockGained     int     `csv:"rock_gained"`
	PaperGained    int     `csv:"paper_gained"`
	ScissorsGained int     `csv:"scissors_gained"`
	ConversionRate float64 `csv:"conversion_rate"` // conversions per contact

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Set on the window that ends the run
	Winner string `csv:"winner"`
}

// Counts returns the window-end population as Counts.
func (s WindowStats) Counts() components.Counts {
	return components.NewCounts(s.Rock, s.Paper, s.Scissors)
}

// Total returns the window-end population.
func (s WindowStats) Total() int {
	return s.Rock + s.Paper + s.Scissors
}

// Quantile returns the p-th empirical quantile of values. values need
// not be sorted. Returns 0 for an empty slice.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(min(max(p, 0), 1), stat.Empirical, sorted, nil)
}

// MeanStd returns the mean and sample standard deviation of values.
// The deviation is 0 for fewer than two values.
func MeanStd(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// ComputeSpeedStats calculates mean, std and percentiles from speed values.
func ComputeSpeedStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = MeanStd(values)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("rock", s.Rock),
		slog.Int("paper", s.Paper),
		slog.Int("scissors", s.Scissors),
		slog.Int("contacts", s.Contacts),
		slog.Int("conversions", s.Conversions),
		slog.Int("rock_gained", s.RockGained),
		slog.Int("paper_gained", s.PaperGained),
		slog.Int("scissors_gained", s.ScissorsGained),
		slog.Float64("conversion_rate", s.ConversionRate),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.String("winner", s.Winner),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"rock", s.Rock,
		"paper", s.Paper,
		"scissors", s.Scissors,
		"contacts", s.Contacts,
		"conversions", s.Conversions,
		"conversion_rate", s.ConversionRate,
		"speed_mean", s.SpeedMean,
		"speed_p50", s.SpeedP50,
	)
}
