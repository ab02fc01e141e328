package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rpsarena/components"
)

// CollisionStats summarizes one collide pass.
type CollisionStats struct {
	Contacts    int               // pairs that overlapped and were resolved
	Conversions int               // contacts that changed a particle's kind
	Gained      components.Counts // conversions won by each kind
}

// contactBody gathers the component pointers of one particle for the pass.
type contactBody struct {
	pos  *components.Position
	vel  *components.Velocity
	body *components.Body
	fac  *components.Faction
}

// CollisionSystem resolves pairwise contacts: kind conversion followed by
// an equal-mass elastic response along the contact normal.
type CollisionSystem struct {
	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	bodyMap *ecs.Map1[components.Body]
	facMap  *ecs.Map1[components.Faction]
	bounds  Bounds
	kick    float64

	bodies []contactBody // reused across ticks
}

// NewCollisionSystem creates a new collision system.
// kick is the per-axis amplitude of the velocity noise applied after an impulse.
func NewCollisionSystem(w *ecs.World, bounds Bounds, kick float64) *CollisionSystem {
	return &CollisionSystem{
		posMap:  ecs.NewMap1[components.Position](w),
		velMap:  ecs.NewMap1[components.Velocity](w),
		bodyMap: ecs.NewMap1[components.Body](w),
		facMap:  ecs.NewMap1[components.Faction](w),
		bounds:  bounds,
		kick:    kick,
	}
}

// Update visits every unordered pair (i, j), i < j, in the order given by
// entities. Each pair is resolved at most once; later pairs see the
// positions and kinds written by earlier ones.
func (s *CollisionSystem) Update(entities []ecs.Entity, rng Rand) CollisionStats {
	s.bodies = s.bodies[:0]
	for _, e := range entities {
		s.bodies = append(s.bodies, contactBody{
			pos:  s.posMap.Get(e),
			vel:  s.velMap.Get(e),
			body: s.bodyMap.Get(e),
			fac:  s.facMap.Get(e),
		})
	}

	var stats CollisionStats
	for i := 0; i < len(s.bodies); i++ {
		for j := i + 1; j < len(s.bodies); j++ {
			a, b := &s.bodies[i], &s.bodies[j]
			if !Overlapping(a.pos, b.pos, a.body, b.body) {
				continue
			}
			stats.Contacts++

			if winner, ok := Convert(a.fac, b.fac); ok {
				stats.Conversions++
				stats.Gained[winner]++
			}

			s.respond(a, b, rng)
		}
	}

	// Separation can push a body past a wall; pull it back without reflecting
	for i := range s.bodies {
		b := &s.bodies[i]
		b.pos.X, b.pos.Y, _, _ = s.bounds.Contain(b.pos.X, b.pos.Y, b.body.Radius())
	}

	return stats
}

// Overlapping reports whether two bodies' centers are closer than the sum of their radii.
func Overlapping(pa, pb *components.Position, ba, bb *components.Body) bool {
	dx := pa.X - pb.X
	dy := pa.Y - pb.Y
	return math.Sqrt(dx*dx+dy*dy) < (ba.Size+bb.Size)/2
}

// Convert applies the dominance rule to a contact. The loser takes the
// winner's kind; the winner is unchanged. ok is false for same-kind contacts.
func Convert(a, b *components.Faction) (winner components.Kind, ok bool) {
	winner, ok = components.Resolve(a.Kind, b.Kind)
	if !ok {
		return winner, false
	}
	a.Kind = winner
	b.Kind = winner
	return winner, true
}

// respond separates the pair and exchanges momentum along the normal.
// Coincident centers have no normal, so the response is skipped.
func (s *CollisionSystem) respond(a, b *contactBody, rng Rand) {
	dx := b.pos.X - a.pos.X
	dy := b.pos.Y - a.pos.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist == 0 {
		return
	}
	nx := dx / dist
	ny := dy / dist

	overlap := (a.body.Size+b.body.Size)/2 - dist
	if overlap > 0 {
		half := overlap * 0.5
		a.pos.X -= nx * half
		a.pos.Y -= ny * half
		b.pos.X += nx * half
		b.pos.Y += ny * half
	}

	// Closing speed along the normal; non-positive means already separating
	speed := (a.vel.X-b.vel.X)*nx + (a.vel.Y-b.vel.Y)*ny
	if speed <= 0 {
		return
	}

	// Equal masses: the impulse equals the closing speed
	a.vel.X -= speed * nx
	a.vel.Y -= speed * ny
	b.vel.X += speed * nx
	b.vel.Y += speed * ny

	a.vel.X += Symmetric(rng, s.kick)
	a.vel.Y += Symmetric(rng, s.kick)
	b.vel.X += Symmetric(rng, s.kick)
	b.vel.Y += Symmetric(rng, s.kick)
}
