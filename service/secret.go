package service

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"

	"github.com/layer-3/turnstile/core"
)

// Secret holds the shared password inside an encrypted memguard enclave.
// It is only decrypted for the duration of a comparison.
type Secret struct {
	enclave *memguard.Enclave
}

// NewSecret seals a copy of value. The caller keeps ownership of value.
func NewSecret(value []byte) (*Secret, error) {
	if len(value) == 0 {
		return nil, core.ErrEmptySecret
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	// NewEnclave wipes buf once it has been sealed
	return &Secret{enclave: memguard.NewEnclave(buf)}, nil
}

// Matches reports whether candidate equals the secret, in constant time
func (s *Secret) Matches(candidate []byte) bool {
	if s == nil || s.enclave == nil {
		return false
	}

	locked, err := s.enclave.Open()
	if err != nil {
		return false
	}
	defer locked.Destroy()

	return subtle.ConstantTimeCompare(locked.Bytes(), candidate) == 1
}
