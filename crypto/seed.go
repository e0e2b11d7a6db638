package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateServerSeed returns a fresh random seed and its sha256 commitment.
func GenerateServerSeed() (seed string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	seed = hex.EncodeToString(bytes)
	return seed, HashSeed(seed), nil
}

// RunSeed returns configured when set, otherwise a generated seed. The hash
// is published so the seed can be checked once revealed.
func RunSeed(configured string) (seed string, hash string, err error) {
	if configured != "" {
		return configured, HashSeed(configured), nil
	}
	return GenerateServerSeed()
}

func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

func VerifySeed(seed, hash string) bool {
	return HashSeed(seed) == hash
}
