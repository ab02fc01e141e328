// Package game owns the simulation engine and the headless driver around it.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rpsarena/components"
	"github.com/pthm-cable/rpsarena/config"
	"github.com/pthm-cable/rpsarena/systems"
	"github.com/pthm-cable/rpsarena/telemetry"
)

// ErrInvalidConfig is returned when counts or speed scale are out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Particle is a read-only view of one particle.
type Particle struct {
	ID   uint32
	Kind components.Kind
	X, Y float64
	VX   float64
	VY   float64
	Size float64
}

// Speed returns the magnitude of the particle's velocity.
func (p Particle) Speed() float64 {
	return math.Hypot(p.VX, p.VY)
}

// StepResult reports the state after a tick.
type StepResult struct {
	Tick        int32
	Counts      components.Counts
	Contacts    int
	Conversions int
	Gained      components.Counts
	Winner      components.Kind
	Ended       bool
}

// Engine holds the complete simulation state.
type Engine struct {
	cfg *config.Config
	rng systems.Rand

	world  *ecs.World
	mapper *ecs.Map5[
		components.Identity,
		components.Position,
		components.Velocity,
		components.Body,
		components.Faction,
	]
	velMap *ecs.Map1[components.Velocity]
	// Creation order; defines pair enumeration order
	entities []ecs.Entity

	physics   *systems.PhysicsSystem
	collision *systems.CollisionSystem
	census    *systems.Census

	// State
	tick       int32
	nextID     uint32
	speedScale float64
	counts     components.Counts
	running    bool
	ended      bool
	winner     components.Kind
	last       StepResult
}

// NewEngine creates an engine with no particles. Call Initialize or
// LoadParticles before stepping.
func NewEngine(cfg *config.Config, rng systems.Rand) *Engine {
	e := &Engine{
		cfg:        cfg,
		rng:        rng,
		speedScale: cfg.Motion.SpeedScale,
	}
	e.resetWorld()
	return e
}

// resetWorld discards all particles and rebuilds the systems over a fresh world.
func (e *Engine) resetWorld() {
	bounds := systems.Bounds{Width: e.cfg.Arena.Width, Height: e.cfg.Arena.Height}

	e.world = ecs.NewWorld()
	e.mapper = ecs.NewMap5[
		components.Identity,
		components.Position,
		components.Velocity,
		components.Body,
		components.Faction,
	](e.world)
	e.velMap = ecs.NewMap1[components.Velocity](e.world)
	e.entities = e.entities[:0]

	e.physics = systems.NewPhysicsSystem(e.world, bounds, e.cfg.Motion.Jitter)
	e.collision = systems.NewCollisionSystem(e.world, bounds, e.cfg.Motion.CollisionKick)
	e.census = systems.NewCensus(e.world)

	e.tick = 0
	e.nextID = 0
	e.counts = components.Counts{}
	e.running = false
	e.ended = false
	e.winner = 0
	e.last = StepResult{}
}

// ValidateCounts checks starting counts against the configured range.
func (e *Engine) ValidateCounts(counts components.Counts) error {
	maxCount := e.cfg.Population.MaxCount
	for _, k := range components.Kinds {
		if n := counts[k]; n < 1 || n > maxCount {
			return fmt.Errorf("%w: %s count %d outside [1, %d]", ErrInvalidConfig, k, n, maxCount)
		}
	}
	return nil
}

func validateScale(scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 1) {
		return fmt.Errorf("%w: speed scale %g must be positive", ErrInvalidConfig, scale)
	}
	return nil
}

// Initialize replaces all particles with a fresh population spawned in
// each kind's seed region. On error the engine is left untouched.
func (e *Engine) Initialize(counts components.Counts, speedScale float64) error {
	if err := e.ValidateCounts(counts); err != nil {
		return err
	}
	if err := validateScale(speedScale); err != nil {
		return err
	}

	e.resetWorld()
	e.speedScale = speedScale
	speed := e.cfg.Motion.BaseSpeed * speedScale

	// Regions may touch a wall; centers stay where a wall test would not fire
	d := e.cfg.Derived
	for _, k := range components.Kinds {
		region := e.spawnRegion(k)
		for i := 0; i < counts[k]; i++ {
			x := systems.Uniform(e.rng, region.X, region.W)
			y := systems.Uniform(e.rng, region.Y, region.H)
			e.spawn(Particle{
				ID:   e.nextID,
				Kind: k,
				X:    min(max(x, d.MinX), d.MaxX),
				Y:    min(max(y, d.MinY), d.MaxY),
				VX:   systems.Symmetric(e.rng, speed),
				VY:   systems.Symmetric(e.rng, speed),
				Size: e.cfg.Particle.Size,
			})
			e.nextID++
		}
	}

	e.recount()
	slog.Debug("initialized", "counts", e.counts.String(), "speed_scale", speedScale)
	return nil
}

// LoadParticles replaces all particles with the given set, keeping their
// IDs, positions, velocities and sizes. The set must be non-empty with
// unique IDs and valid kinds. Sizes must be positive, velocities finite,
// and every body inside the walls. A set that already has a single kind
// is reported as ended on the first Step.
func (e *Engine) LoadParticles(particles []Particle) error {
	if len(particles) == 0 {
		return fmt.Errorf("%w: no particles", ErrInvalidConfig)
	}
	if limit := components.NumKinds * e.cfg.Population.MaxCount; len(particles) > limit {
		return fmt.Errorf("%w: %d particles exceeds limit %d", ErrInvalidConfig, len(particles), limit)
	}
	seen := make(map[uint32]struct{}, len(particles))
	for _, p := range particles {
		if !p.Kind.Valid() {
			return fmt.Errorf("%w: particle %d has invalid kind %d", ErrInvalidConfig, p.ID, uint8(p.Kind))
		}
		if !(p.Size > 0) {
			return fmt.Errorf("%w: particle %d has size %g", ErrInvalidConfig, p.ID, p.Size)
		}
		// Negated so NaN coordinates fail
		if r := p.Size / 2; !(p.X >= r && p.X <= e.cfg.Arena.Width-r && p.Y >= r && p.Y <= e.cfg.Arena.Height-r) {
			return fmt.Errorf("%w: particle %d at (%g, %g) outside arena", ErrInvalidConfig, p.ID, p.X, p.Y)
		}
		if !finite(p.VX) || !finite(p.VY) {
			return fmt.Errorf("%w: particle %d has velocity (%g, %g)", ErrInvalidConfig, p.ID, p.VX, p.VY)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate particle id %d", ErrInvalidConfig, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	e.resetWorld()
	for _, p := range particles {
		e.spawn(p)
		if p.ID >= e.nextID {
			e.nextID = p.ID + 1
		}
	}
	e.recount()
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (e *Engine) spawn(p Particle) {
	id := components.Identity{ID: p.ID}
	pos := components.Position{X: p.X, Y: p.Y}
	vel := components.Velocity{X: p.VX, Y: p.VY}
	body := components.Body{Size: p.Size}
	fac := components.Faction{Kind: p.Kind}

	entity := e.mapper.NewEntity(&id, &pos, &vel, &body, &fac)
	e.entities = append(e.entities, entity)
}

func (e *Engine) spawnRegion(k components.Kind) config.Region {
	switch k {
	case components.KindPaper:
		return e.cfg.Spawn.Paper
	case components.KindScissors:
		return e.cfg.Spawn.Scissors
	default:
		return e.cfg.Spawn.Rock
	}
}

func (e *Engine) recount() {
	e.counts = e.census.Count()
	e.last = StepResult{Tick: e.tick, Counts: e.counts}
}

// Step advances the simulation by one tick: move all, collide all,
// recount, check for a winner. Once a winner exists Step returns the
// final result and changes nothing.
func (e *Engine) Step() StepResult {
	return e.stepWith(nil)
}

// phaseTimer receives phase boundaries from a tick. Nil disables timing.
type phaseTimer interface {
	StartPhase(phase telemetry.Phase)
}

func (e *Engine) stepWith(timer phaseTimer) StepResult {
	if e.ended {
		return e.last
	}

	if timer != nil {
		timer.StartPhase(telemetry.PhaseMove)
	}
	e.physics.Update(e.rng)

	if timer != nil {
		timer.StartPhase(telemetry.PhaseCollide)
	}
	stats := e.collision.Update(e.entities, e.rng)

	if timer != nil {
		timer.StartPhase(telemetry.PhaseCensus)
	}
	e.tick++
	e.counts = e.census.Count()

	e.last = StepResult{
		Tick:        e.tick,
		Counts:      e.counts,
		Contacts:    stats.Contacts,
		Conversions: stats.Conversions,
		Gained:      stats.Gained,
	}

	if k, ok := e.counts.Sole(); ok {
		e.ended = true
		e.running = false
		e.winner = k
		e.last.Winner = k
		e.last.Ended = true
		slog.Info("winner", "kind", k.String(), "tick", e.tick, "population", e.counts.Total())
	}
	return e.last
}

// RescaleSpeed sets every moving particle's speed to BaseSpeed*scale,
// keeping its direction. Stationary particles are left alone.
func (e *Engine) RescaleSpeed(scale float64) error {
	if err := validateScale(scale); err != nil {
		return err
	}
	e.speedScale = scale
	target := e.cfg.Motion.BaseSpeed * scale

	for _, entity := range e.entities {
		vel := e.velMap.Get(entity)
		speed := math.Hypot(vel.X, vel.Y)
		if speed == 0 {
			continue
		}
		ratio := target / speed
		vel.X *= ratio
		vel.Y *= ratio
	}
	return nil
}

// Start sets the running flag. It has no effect once a winner exists.
func (e *Engine) Start() bool {
	if e.ended {
		return false
	}
	e.running = true
	return true
}

// Pause clears the running flag.
func (e *Engine) Pause() {
	e.running = false
}

// Running reports whether the driver should keep calling Step.
func (e *Engine) Running() bool {
	return e.running
}

// Winner returns the surviving kind once the run has ended.
func (e *Engine) Winner() (components.Kind, bool) {
	return e.winner, e.ended
}

// Counts returns the population per kind as of the last tick.
func (e *Engine) Counts() components.Counts {
	return e.counts
}

// Tick returns the number of ticks advanced since the last reset.
func (e *Engine) Tick() int32 {
	return e.tick
}

// SpeedScale returns the current speed multiplier.
func (e *Engine) SpeedScale() float64 {
	return e.speedScale
}

// Len returns the number of particles.
func (e *Engine) Len() int {
	return len(e.entities)
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Particles appends a snapshot of every particle, in index order, to dst.
func (e *Engine) Particles(dst []Particle) []Particle {
	for _, entity := range e.entities {
		id, pos, vel, body, fac := e.mapper.Get(entity)
		dst = append(dst, Particle{
			ID:   id.ID,
			Kind: fac.Kind,
			X:    pos.X,
			Y:    pos.Y,
			VX:   vel.X,
			VY:   vel.Y,
			Size: body.Size,
		})
	}
	return dst
}

// Snapshot captures the current arena state. seed and bookmark are
// recorded as given.
func (e *Engine) Snapshot(seed int64, bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	s := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		RNGSeed:     seed,
		ArenaWidth:  e.cfg.Arena.Width,
		ArenaHeight: e.cfg.Arena.Height,
		SpeedScale:  e.speedScale,
		Tick:        e.tick,
		Particles:   make([]telemetry.ParticleState, 0, len(e.entities)),
		Bookmark:    bookmark,
	}
	for _, p := range e.Particles(nil) {
		s.Particles = append(s.Particles, telemetry.ParticleState{
			ID:   p.ID,
			Kind: p.Kind,
			X:    p.X,
			Y:    p.Y,
			VelX: p.VX,
			VelY: p.VY,
			Size: p.Size,
		})
	}
	return s
}

// Restore replaces all particles with a snapshot's and resumes its tick
// count and speed scale. The RNG stream is not restored, so later ticks
// differ from the run that produced the snapshot.
func (e *Engine) Restore(s *telemetry.Snapshot) error {
	if s.ArenaWidth != e.cfg.Arena.Width || s.ArenaHeight != e.cfg.Arena.Height {
		return fmt.Errorf("%w: snapshot arena %gx%g, engine arena %gx%g",
			ErrInvalidConfig, s.ArenaWidth, s.ArenaHeight, e.cfg.Arena.Width, e.cfg.Arena.Height)
	}
	if err := validateScale(s.SpeedScale); err != nil {
		return err
	}

	particles := make([]Particle, 0, len(s.Particles))
	for _, p := range s.Particles {
		particles = append(particles, Particle{
			ID:   p.ID,
			Kind: p.Kind,
			X:    p.X,
			Y:    p.Y,
			VX:   p.VelX,
			VY:   p.VelY,
			Size: p.Size,
		})
	}
	if err := e.LoadParticles(particles); err != nil {
		return err
	}

	e.speedScale = s.SpeedScale
	e.tick = s.Tick
	e.last.Tick = s.Tick
	return nil
}

// ClampCount limits a requested starting count to [1, maxCount], for
// controls that accept free-form input before calling Initialize.
func ClampCount(n, maxCount int) int {
	return min(max(n, 1), maxCount)
}
