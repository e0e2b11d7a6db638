package game

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
)

// Rand is the random source used by the price process, the pattern
// generator and the indicator perturbation. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewSeededRNG derives a deterministic generator from an arbitrary seed string.
func NewSeededRNG(seed string) *rand.Rand {
	hash := sha256.Sum256([]byte(seed))
	seedInt := int64(binary.BigEndian.Uint64(hash[:8]))
	return rand.New(rand.NewSource(seedInt))
}

// Uniform returns a value in [lo, hi).
func Uniform(rng Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Chance reports whether a trial with probability p succeeded.
func Chance(rng Rand, p float64) bool {
	return rng.Float64() < p
}

// RoundToDecimal rounds a float to the given number of decimal places.
func RoundToDecimal(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
