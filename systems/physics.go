// Package systems contains ECS systems for the simulation.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rpsarena/components"
)

// Bounds represents the arena walls.
type Bounds struct {
	Width, Height float64
}

// Contain clamps a center coordinate pair so a body of the given radius
// stays inside the walls. hitX/hitY report contact with a vertical or
// horizontal wall (touching counts).
func (b Bounds) Contain(x, y, radius float64) (cx, cy float64, hitX, hitY bool) {
	cx, cy = x, y
	if x <= radius || x >= b.Width-radius {
		hitX = true
		cx = min(max(x, radius), b.Width-radius)
	}
	if y <= radius || y >= b.Height-radius {
		hitY = true
		cy = min(max(y, radius), b.Height-radius)
	}
	return cx, cy, hitX, hitY
}

// PhysicsSystem integrates particle motion and reflects particles off walls.
type PhysicsSystem struct {
	filter ecs.Filter3[components.Position, components.Velocity, components.Body]
	bounds Bounds
	jitter float64
}

// NewPhysicsSystem creates a new physics system.
// jitter is the per-axis amplitude of the velocity noise added every tick.
func NewPhysicsSystem(w *ecs.World, bounds Bounds, jitter float64) *PhysicsSystem {
	return &PhysicsSystem{
		filter: *ecs.NewFilter3[components.Position, components.Velocity, components.Body](w),
		bounds: bounds,
		jitter: jitter,
	}
}

// Update moves every particle by one tick.
func (s *PhysicsSystem) Update(rng Rand) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, body := query.Get()
		s.move(pos, vel, body, rng)
	}
}

func (s *PhysicsSystem) move(pos *components.Position, vel *components.Velocity, body *components.Body, rng Rand) {
	pos.X += vel.X
	pos.Y += vel.Y

	// Noise breaks up periodic orbits between walls
	vel.X += Symmetric(rng, s.jitter)
	vel.Y += Symmetric(rng, s.jitter)

	x, y, hitX, hitY := s.bounds.Contain(pos.X, pos.Y, body.Radius())
	if hitX {
		vel.X = -vel.X
		pos.X = x
	}
	if hitY {
		vel.Y = -vel.Y
		pos.Y = y
	}
}
