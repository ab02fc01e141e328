package game

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/rpsarena/components"
	"github.com/pthm-cable/rpsarena/config"
	"github.com/pthm-cable/rpsarena/systems"
)

func newTestEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	return NewEngine(config.Default(), systems.NewRand(seed))
}

func mustInitialize(t *testing.T, e *Engine, rock, paper, scissors int, scale float64) {
	t.Helper()
	if err := e.Initialize(components.NewCounts(rock, paper, scissors), scale); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestInitializeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		counts components.Counts
		scale  float64
	}{
		{"zero rock", components.NewCounts(0, 10, 10), 1},
		{"negative paper", components.NewCounts(10, -1, 10), 1},
		{"too many scissors", components.NewCounts(10, 10, 101), 1},
		{"zero scale", components.NewCounts(10, 10, 10), 0},
		{"negative scale", components.NewCounts(10, 10, 10), -1},
		{"NaN scale", components.NewCounts(10, 10, 10), math.NaN()},
		{"infinite scale", components.NewCounts(10, 10, 10), math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 1)
			mustInitialize(t, e, 5, 5, 5, 1)
			e.Step()
			before := e.Particles(nil)

			err := e.Initialize(tt.counts, tt.scale)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Initialize error = %v, want ErrInvalidConfig", err)
			}

			if e.Tick() != 1 || e.Len() != 15 || e.SpeedScale() != 1 {
				t.Errorf("state changed: tick=%d len=%d scale=%v", e.Tick(), e.Len(), e.SpeedScale())
			}
			after := e.Particles(nil)
			for i := range before {
				if before[i] != after[i] {
					t.Fatalf("particle %d changed: %+v -> %+v", i, before[i], after[i])
				}
			}
		})
	}
}

func TestInitializeSpawnsInRegions(t *testing.T) {
	e := newTestEngine(t, 3)
	mustInitialize(t, e, 10, 20, 30, 1.5)

	if e.Len() != 60 {
		t.Fatalf("Len = %d, want 60", e.Len())
	}
	if e.Counts() != components.NewCounts(10, 20, 30) {
		t.Errorf("Counts = %v", e.Counts())
	}
	if e.Tick() != 0 {
		t.Errorf("Tick = %d, want 0", e.Tick())
	}
	if _, ended := e.Winner(); ended {
		t.Error("fresh population should not have a winner")
	}

	cfg := e.Config()
	regions := map[components.Kind]config.Region{
		components.KindRock:     cfg.Spawn.Rock,
		components.KindPaper:    cfg.Spawn.Paper,
		components.KindScissors: cfg.Spawn.Scissors,
	}
	maxComponent := cfg.Motion.BaseSpeed * 1.5

	for i, p := range e.Particles(nil) {
		if p.ID != uint32(i) {
			t.Errorf("particle %d has id %d", i, p.ID)
		}
		// Kinds are spawned in order: rock, then paper, then scissors
		wantKind := components.KindScissors
		if i < 10 {
			wantKind = components.KindRock
		} else if i < 30 {
			wantKind = components.KindPaper
		}
		if p.Kind != wantKind {
			t.Errorf("particle %d kind = %v, want %v", i, p.Kind, wantKind)
		}

		r := regions[p.Kind]
		if p.X < r.X || p.X >= r.X+r.W || p.Y < r.Y || p.Y >= r.Y+r.H {
			t.Errorf("particle %d at (%v, %v) outside %s region %+v", i, p.X, p.Y, p.Kind, r)
		}
		if math.Abs(p.VX) > maxComponent || math.Abs(p.VY) > maxComponent {
			t.Errorf("particle %d velocity (%v, %v) exceeds %v", i, p.VX, p.VY, maxComponent)
		}
		if p.Size != cfg.Particle.Size {
			t.Errorf("particle %d size = %v", i, p.Size)
		}
	}
}

func TestStepIsDeterministic(t *testing.T) {
	run := func(seed int64) []Particle {
		e := newTestEngine(t, seed)
		mustInitialize(t, e, 20, 20, 20, 1)
		for i := 0; i < 200; i++ {
			e.Step()
		}
		return e.Particles(nil)
	}

	a, b := run(42), run(42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("particle %d differs between identical seeds: %+v vs %+v", i, a[i], b[i])
		}
	}

	c := run(43)
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical runs")
	}
}

func TestStepConservesPopulationAndStaysInArena(t *testing.T) {
	e := newTestEngine(t, 7)
	mustInitialize(t, e, 40, 40, 40, 1)

	cfg := e.Config()
	r := cfg.Particle.Size / 2
	var buf []Particle

	for tick := 1; tick <= 300; tick++ {
		res := e.Step()
		if res.Counts.Total() != 120 {
			t.Fatalf("tick %d: total = %d, want 120", tick, res.Counts.Total())
		}
		if res.Conversions > res.Contacts {
			t.Fatalf("tick %d: %d conversions from %d contacts", tick, res.Conversions, res.Contacts)
		}
		if res.Gained.Total() != res.Conversions {
			t.Fatalf("tick %d: gained %v does not sum to %d", tick, res.Gained, res.Conversions)
		}

		buf = e.Particles(buf[:0])
		var counted components.Counts
		for _, p := range buf {
			counted[p.Kind]++
			if p.X < r || p.X > cfg.Arena.Width-r || p.Y < r || p.Y > cfg.Arena.Height-r {
				t.Fatalf("tick %d: particle %d at (%v, %v) outside arena", tick, p.ID, p.X, p.Y)
			}
		}
		if counted != res.Counts {
			t.Fatalf("tick %d: reported %v, counted %v", tick, res.Counts, counted)
		}
		if res.Ended {
			break
		}
	}
}

func TestCoincidentPairConverts(t *testing.T) {
	e := newTestEngine(t, 1)
	err := e.LoadParticles([]Particle{
		{ID: 0, Kind: components.KindRock, X: 400, Y: 300, Size: 20},
		{ID: 1, Kind: components.KindPaper, X: 400, Y: 300, Size: 20},
	})
	if err != nil {
		t.Fatalf("LoadParticles: %v", err)
	}

	res := e.Step()
	if res.Counts != components.NewCounts(0, 2, 0) {
		t.Errorf("counts = %v, want paper=2", res.Counts)
	}
	if res.Contacts != 1 || res.Conversions != 1 || res.Gained[components.KindPaper] != 1 {
		t.Errorf("contacts=%d conversions=%d gained=%v", res.Contacts, res.Conversions, res.Gained)
	}
	if !res.Ended || res.Winner != components.KindPaper {
		t.Errorf("ended=%v winner=%v, want paper", res.Ended, res.Winner)
	}
	if k, ok := e.Winner(); !ok || k != components.KindPaper {
		t.Errorf("Winner() = %v, %v", k, ok)
	}
}

func TestStepAfterWinChangesNothing(t *testing.T) {
	e := newTestEngine(t, 1)
	err := e.LoadParticles([]Particle{
		{ID: 0, Kind: components.KindScissors, X: 400, Y: 300, VX: 1, VY: 1, Size: 20},
		{ID: 1, Kind: components.KindPaper, X: 405, Y: 300, VX: -1, VY: 0, Size: 20},
	})
	if err != nil {
		t.Fatalf("LoadParticles: %v", err)
	}

	first := e.Step()
	if !first.Ended || first.Winner != components.KindScissors {
		t.Fatalf("expected scissors to win on the first tick, got %+v", first)
	}
	snapshot := e.Particles(nil)

	for i := 0; i < 5; i++ {
		res := e.Step()
		if res != first {
			t.Fatalf("step after win returned %+v, want %+v", res, first)
		}
	}
	for i, p := range e.Particles(nil) {
		if p != snapshot[i] {
			t.Errorf("particle %d moved after win", i)
		}
	}
	if e.Tick() != 1 {
		t.Errorf("Tick = %d, want 1", e.Tick())
	}
	if e.Start() || e.Running() {
		t.Error("Start should refuse an ended run")
	}
}

func TestRescaleSpeed(t *testing.T) {
	e := newTestEngine(t, 9)
	mustInitialize(t, e, 15, 15, 15, 1)
	for i := 0; i < 10; i++ {
		e.Step()
	}
	before := e.Particles(nil)

	if err := e.RescaleSpeed(2.5); err != nil {
		t.Fatalf("RescaleSpeed: %v", err)
	}
	if e.SpeedScale() != 2.5 {
		t.Errorf("SpeedScale = %v", e.SpeedScale())
	}

	want := e.Config().Motion.BaseSpeed * 2.5
	for i, p := range e.Particles(nil) {
		if math.Abs(p.Speed()-want) > 1e-9 {
			t.Errorf("particle %d speed = %v, want %v", i, p.Speed(), want)
		}
		angleBefore := math.Atan2(before[i].VY, before[i].VX)
		angleAfter := math.Atan2(p.VY, p.VX)
		if math.Abs(angleBefore-angleAfter) > 1e-9 {
			t.Errorf("particle %d direction changed: %v -> %v", i, angleBefore, angleAfter)
		}
		if p.X != before[i].X || p.Y != before[i].Y || p.Kind != before[i].Kind {
			t.Errorf("particle %d changed more than velocity", i)
		}
	}
}

func TestRescaleSpeedSkipsStationary(t *testing.T) {
	e := newTestEngine(t, 1)
	err := e.LoadParticles([]Particle{
		{ID: 0, Kind: components.KindRock, X: 100, Y: 100, Size: 20},
		{ID: 1, Kind: components.KindPaper, X: 500, Y: 300, VX: 3, VY: 4, Size: 20},
	})
	if err != nil {
		t.Fatalf("LoadParticles: %v", err)
	}

	if err := e.RescaleSpeed(0.5); err != nil {
		t.Fatalf("RescaleSpeed: %v", err)
	}
	ps := e.Particles(nil)
	if ps[0].VX != 0 || ps[0].VY != 0 {
		t.Errorf("stationary particle got velocity (%v, %v)", ps[0].VX, ps[0].VY)
	}
	if math.Abs(ps[1].VX-0.6) > 1e-12 || math.Abs(ps[1].VY-0.8) > 1e-12 {
		t.Errorf("moving particle velocity = (%v, %v), want (0.6, 0.8)", ps[1].VX, ps[1].VY)
	}

	if err := e.RescaleSpeed(0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("RescaleSpeed(0) error = %v, want ErrInvalidConfig", err)
	}
	if e.SpeedScale() != 0.5 {
		t.Errorf("rejected rescale changed scale to %v", e.SpeedScale())
	}
}

func TestLoadParticlesValidation(t *testing.T) {
	valid := Particle{ID: 0, Kind: components.KindRock, X: 100, Y: 100, Size: 20}

	tooMany := make([]Particle, 301)
	for i := range tooMany {
		tooMany[i] = valid
		tooMany[i].ID = uint32(i)
	}

	tests := []struct {
		name      string
		particles []Particle
	}{
		{"empty", nil},
		{"invalid kind", []Particle{{ID: 0, Kind: components.Kind(3), Size: 20}}},
		{"zero size", []Particle{{ID: 0, Kind: components.KindRock}}},
		{"duplicate id", []Particle{valid, valid}},
		{"outside arena", []Particle{{ID: 0, Kind: components.KindRock, X: 5, Y: 100, Size: 20}}},
		{"NaN x", []Particle{{ID: 0, Kind: components.KindRock, X: math.NaN(), Y: 100, Size: 20}}},
		{"NaN y", []Particle{{ID: 0, Kind: components.KindRock, X: 100, Y: math.NaN(), Size: 20}}},
		{"infinite x", []Particle{{ID: 0, Kind: components.KindRock, X: math.Inf(1), Y: 100, Size: 20}}},
		{"infinite size", []Particle{{ID: 0, Kind: components.KindRock, X: 100, Y: 100, Size: math.Inf(1)}}},
		{"infinite vx", []Particle{valid, {ID: 1, Kind: components.KindPaper, X: 200, Y: 200, VX: math.Inf(1), Size: 20}}},
		{"negative infinite vy", []Particle{{ID: 0, Kind: components.KindRock, X: 100, Y: 100, VY: math.Inf(-1), Size: 20}}},
		{"NaN vx", []Particle{{ID: 0, Kind: components.KindRock, X: 100, Y: 100, VX: math.NaN(), Size: 20}}},
		{"too many", tooMany},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 1)
			mustInitialize(t, e, 3, 3, 3, 1)

			if err := e.LoadParticles(tt.particles); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("LoadParticles error = %v, want ErrInvalidConfig", err)
			}
			if e.Len() != 9 {
				t.Errorf("Len = %d after rejected load, want 9", e.Len())
			}
		})
	}
}

func TestStartPause(t *testing.T) {
	e := newTestEngine(t, 1)
	mustInitialize(t, e, 5, 5, 5, 1)

	if e.Running() {
		t.Fatal("engine should start paused")
	}
	if !e.Start() || !e.Running() {
		t.Fatal("Start should set running")
	}
	e.Pause()
	if e.Running() {
		t.Fatal("Pause should clear running")
	}

	// Step is independent of the running flag
	e.Step()
	if e.Tick() != 1 {
		t.Errorf("Tick = %d, want 1", e.Tick())
	}

	e.Start()
	mustInitialize(t, e, 5, 5, 5, 1)
	if e.Running() || e.Tick() != 0 {
		t.Errorf("Initialize should reset: running=%v tick=%d", e.Running(), e.Tick())
	}
}

func TestClampCount(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{50, 50},
		{100, 100},
		{250, 100},
	}
	for _, tt := range tests {
		if got := ClampCount(tt.n, 100); got != tt.want {
			t.Errorf("ClampCount(%d, 100) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestLongRunConservesPopulation(t *testing.T) {
	if testing.Short() {
		t.Skip("long run")
	}

	e := newTestEngine(t, 1)
	mustInitialize(t, e, 40, 40, 40, 1)

	var res StepResult
	for i := 0; i < 20000 && !res.Ended; i++ {
		res = e.Step()
		if res.Counts.Total() != 120 {
			t.Fatalf("tick %d: total = %d", res.Tick, res.Counts.Total())
		}
	}

	if res.Ended {
		if res.Counts[res.Winner] != 120 {
			t.Errorf("winner %v holds %d of 120", res.Winner, res.Counts[res.Winner])
		}
		t.Logf("%v won after %d ticks", res.Winner, res.Tick)
	} else {
		t.Logf("no winner after %d ticks: %v", res.Tick, res.Counts)
	}
}

func TestSnapshotRestore(t *testing.T) {
	src := newTestEngine(t, 4)
	mustInitialize(t, src, 8, 8, 8, 1.5)
	for i := 0; i < 25; i++ {
		src.Step()
	}
	snap := src.Snapshot(4, nil)
	if len(snap.Particles) != 24 || snap.Counts() != src.Counts() {
		t.Fatalf("snapshot has %d particles, counts %v", len(snap.Particles), snap.Counts())
	}

	dst := newTestEngine(t, 99)
	if err := dst.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if dst.Tick() != 25 || dst.SpeedScale() != 1.5 || dst.Counts() != src.Counts() {
		t.Errorf("restored tick=%d scale=%v counts=%v", dst.Tick(), dst.SpeedScale(), dst.Counts())
	}
	want := src.Particles(nil)
	for i, p := range dst.Particles(nil) {
		if p != want[i] {
			t.Errorf("particle %d = %+v, want %+v", i, p, want[i])
		}
	}

	if res := dst.Step(); res.Tick != 26 {
		t.Errorf("step after restore reached tick %d, want 26", res.Tick)
	}
}

func TestRestoreRejectsMismatchedArena(t *testing.T) {
	src := newTestEngine(t, 1)
	mustInitialize(t, src, 2, 2, 2, 1)
	snap := src.Snapshot(1, nil)
	snap.ArenaWidth = 1024

	dst := newTestEngine(t, 1)
	mustInitialize(t, dst, 3, 3, 3, 1)
	if err := dst.Restore(snap); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Restore error = %v, want ErrInvalidConfig", err)
	}
	if dst.Len() != 9 {
		t.Errorf("Len = %d after rejected restore, want 9", dst.Len())
	}
}
