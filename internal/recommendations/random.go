package recommendations

import "math/rand/v2"

// RandomSource supplies the two draws used by GetRandom. Implementations must be safe for concurrent use.
type RandomSource interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// IntN returns a uniform index in [0, n).
	IntN(n int) int
}

type globalRandomSource struct{}

// NewRandomSource returns a RandomSource backed by the math/rand/v2 global generator.
func NewRandomSource() RandomSource {
	return globalRandomSource{}
}

func (globalRandomSource) Float64() float64 {
	return rand.Float64()
}

func (globalRandomSource) IntN(n int) int {
	return rand.IntN(n)
}
