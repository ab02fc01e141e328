package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rpsarena/components"
)

// Census tallies live particles per kind.
type Census struct {
	filter ecs.Filter1[components.Faction]
}

// NewCensus creates a census over the world's particles.
func NewCensus(w *ecs.World) *Census {
	return &Census{
		filter: *ecs.NewFilter1[components.Faction](w),
	}
}

// Count returns the current population per kind.
func (c *Census) Count() components.Counts {
	var counts components.Counts
	query := c.filter.Query()
	for query.Next() {
		fac := query.Get()
		counts[fac.Kind]++
	}
	return counts
}
