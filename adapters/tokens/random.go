package tokens

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/ports"
)

// DefaultTokenBytes is the amount of entropy in a generated session token
const DefaultTokenBytes = 32

// RandomGenerator implements the TokenGenerator interface with crypto/rand
// tokens encoded as base58 and UUIDv7 record identifiers
type RandomGenerator struct {
	size int
}

// NewRandomGenerator creates a new token generator
func NewRandomGenerator() ports.TokenGenerator {
	return &RandomGenerator{size: DefaultTokenBytes}
}

// NewToken returns a fresh opaque token
func (g *RandomGenerator) NewToken() (string, error) {
	buf := make([]byte, g.size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrTokenGeneration, err)
	}

	return base58.Encode(buf), nil
}

// NewID returns a time ordered record identifier
func (g *RandomGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
