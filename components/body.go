package components

// Identity holds a particle's run-unique ID.
type Identity struct {
	ID uint32
}

// Position represents a particle's center in arena coordinates.
type Position struct {
	X, Y float64
}

// Velocity represents a particle's displacement per tick.
type Velocity struct {
	X, Y float64
}

// Body holds physical properties of a particle.
type Body struct {
	Size float64 // diameter
}

// Radius returns half the diameter.
func (b Body) Radius() float64 {
	return b.Size / 2
}

// Faction holds the particle's current kind.
type Faction struct {
	Kind Kind
}
