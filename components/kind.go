// Package components defines ECS components for the simulation.
package components

import "fmt"

// Kind is one of the three cyclic particle types.
type Kind uint8

const (
	KindRock Kind = iota
	KindPaper
	KindScissors

	NumKinds = 3
)

// Kinds lists every kind in index order.
var Kinds = [NumKinds]Kind{KindRock, KindPaper, KindScissors}

var kindNames = [NumKinds]string{"rock", "paper", "scissors"}

// prey[k] is the kind that k converts on contact.
var prey = [NumKinds]Kind{
	KindRock:     KindScissors,
	KindPaper:    KindRock,
	KindScissors: KindPaper,
}

// Valid reports whether k is one of the three kinds.
func (k Kind) Valid() bool {
	return k < NumKinds
}

// Prey returns the kind that k beats.
func (k Kind) Prey() Kind {
	return prey[k]
}

// Beats reports whether k converts other on contact.
func (k Kind) Beats(other Kind) bool {
	return k.Valid() && other.Valid() && prey[k] == other
}

// Resolve returns the kind both particles share after a contact between a and b.
// ok is false when neither converts the other (same kind).
func Resolve(a, b Kind) (winner Kind, ok bool) {
	switch {
	case a.Beats(b):
		return a, true
	case b.Beats(a):
		return b, true
	}
	return a, false
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind parses a lowercase kind name.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Counts holds a live population count per kind.
type Counts [NumKinds]int

// NewCounts builds Counts from per-kind values.
func NewCounts(rock, paper, scissors int) Counts {
	return Counts{KindRock: rock, KindPaper: paper, KindScissors: scissors}
}

// Get returns the count for k.
func (c Counts) Get(k Kind) int {
	return c[k]
}

// Total returns the sum over all kinds.
func (c Counts) Total() int {
	return c[KindRock] + c[KindPaper] + c[KindScissors]
}

// Sole returns the only kind with a positive count.
// ok is false unless exactly one kind is present.
func (c Counts) Sole() (k Kind, ok bool) {
	present := 0
	for _, kind := range Kinds {
		if c[kind] > 0 {
			present++
			k = kind
		}
	}
	return k, present == 1
}

func (c Counts) String() string {
	return fmt.Sprintf("rock=%d paper=%d scissors=%d", c[KindRock], c[KindPaper], c[KindScissors])
}
