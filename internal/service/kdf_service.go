package service

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"wallet-custody/internal/core/domain"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultPBKDF2Iterations is the round count used for new wallets.
	DefaultPBKDF2Iterations = 250_000
	minPBKDF2Iterations     = 100_000

	derivedKeyLen = 32
)

// Argon2id parameters.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64MB
	argon2Threads = 4
)

var (
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrInvalidSaltSize = errors.New("invalid salt size")
)

// PBKDF2KeyDeriver implements ports.KeyDeriver using PBKDF2-HMAC-SHA256.
type PBKDF2KeyDeriver struct {
	iterations int
}

// NewPBKDF2KeyDeriver creates a PBKDF2 deriver. The round count is fixed for
// the life of the store: changing it makes existing wallets undecryptable.
func NewPBKDF2KeyDeriver(iterations int) (*PBKDF2KeyDeriver, error) {
	if iterations < minPBKDF2Iterations {
		return nil, fmt.Errorf("pbkdf2 iterations must be at least %d, got %d", minPBKDF2Iterations, iterations)
	}
	return &PBKDF2KeyDeriver{iterations: iterations}, nil
}

// DeriveKey returns a 32-byte key. Deterministic for a given (password, salt).
func (d *PBKDF2KeyDeriver) DeriveKey(password, salt []byte) ([]byte, error) {
	if err := checkKDFInput(password, salt); err != nil {
		return nil, err
	}
	return pbkdf2.Key(password, salt, d.iterations, derivedKeyLen, sha256.New), nil
}

// Argon2KeyDeriver implements ports.KeyDeriver using Argon2id.
type Argon2KeyDeriver struct{}

// NewArgon2KeyDeriver creates a new Argon2id key deriver.
func NewArgon2KeyDeriver() *Argon2KeyDeriver {
	return &Argon2KeyDeriver{}
}

// DeriveKey returns a 32-byte key.
func (d *Argon2KeyDeriver) DeriveKey(password, salt []byte) ([]byte, error) {
	if err := checkKDFInput(password, salt); err != nil {
		return nil, err
	}
	return argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, derivedKeyLen), nil
}

func checkKDFInput(password, salt []byte) error {
	if len(password) == 0 {
		return ErrEmptyPassword
	}
	if len(salt) != domain.SaltSize {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidSaltSize, domain.SaltSize, len(salt))
	}
	return nil
}
