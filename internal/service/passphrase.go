package service

import (
	"errors"
	"fmt"

	"receiving-service/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// PassphraseGuard checks the single shared secret that gates the full wipe
type PassphraseGuard struct {
	hash []byte
}

// NewPassphraseGuard builds a guard from a bcrypt hash, or hashes the plain
// passphrase when no hash is configured. The hash wins when both are set.
func NewPassphraseGuard(plain, hash string) (*PassphraseGuard, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid wipe passphrase hash: %w", err)
		}
		return &PassphraseGuard{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return nil, errors.New("wipe passphrase is not configured")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash wipe passphrase: %w", err)
	}
	return &PassphraseGuard{hash: hashed}, nil
}

// Check returns models.ErrUnauthorized unless passphrase matches
func (g *PassphraseGuard) Check(passphrase string) error {
	if g == nil {
		return models.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(passphrase)); err != nil {
		return models.ErrUnauthorized
	}
	return nil
}
