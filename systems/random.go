package systems

import "math/rand/v2"

// Rand is the randomness source the simulation draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand creates a deterministic generator for the given seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// Symmetric returns a uniform sample in [-amplitude, +amplitude).
func Symmetric(r Rand, amplitude float64) float64 {
	return (r.Float64()*2 - 1) * amplitude
}

// Uniform returns a uniform sample in [lo, lo+span).
func Uniform(r Rand, lo, span float64) float64 {
	return lo + r.Float64()*span
}
