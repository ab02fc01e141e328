// Package telemetry provides population tracking, bookmarking, and CSV output.
package telemetry

import "github.com/pthm-cable/rpsarena/components"

// Collector accumulates contact events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks int32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	contacts    int
	conversions int
	gained      components.Counts
}

// NewCollector creates a new stats collector flushing every windowTicks ticks.
func NewCollector(windowTicks int32) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// RecordTick adds one tick's contact totals to the current window.
func (c *Collector) RecordTick(contacts, conversions int, gained components.Counts) {
	c.contacts += contacts
	c.conversions += conversions
	for _, k := range components.Kinds {
		c.gained[k] += gained[k]
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Reset discards the current window and restarts counting at tick.
func (c *Collector) Reset(tick int32) {
	c.windowStartTick = tick
	c.contacts = 0
	c.conversions = 0
	c.gained = components.Counts{}
}

// Flush produces a WindowStats and resets counters for the next window.
// speeds are the particle speeds sampled at currentTick; winner is empty
// while the run is still undecided.
func (c *Collector) Flush(currentTick int32, counts components.Counts, speeds []float64, winner string) WindowStats {
	var rate float64
	if c.contacts > 0 {
		rate = float64(c.conversions) / float64(c.contacts)
	}

	mean, std, p10, p50, p90 := ComputeSpeedStats(speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		Rock:            counts[components.KindRock],
		Paper:           counts[components.KindPaper],
		Scissors:        counts[components.KindScissors],
		Contacts:        c.contacts,
		Conversions:     c.conversions,
		RockGained:      c.gained[components.KindRock],
		PaperGained:     c.gained[components.KindPaper],
		ScissorsGained:  c.gained[components.KindScissors],
		ConversionRate:  rate,
		SpeedMean:       mean,
		SpeedStd:        std,
		SpeedP10:        p10,
		SpeedP50:        p50,
		SpeedP90:        p90,
		Winner:          winner,
	}

	c.Reset(currentTick)
	return stats
}
