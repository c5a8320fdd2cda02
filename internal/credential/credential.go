// Package credential hashes and verifies account passwords. Hashes are
// stored as base64 encoded bcrypt output.
package credential

import (
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"uk.co.dudmesh.pinboard/internal/model"
)

const DefaultCost = 10

func Hash(password string, cost int) (string, error) {
	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("generating encoded password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(passwordBytes), nil
}

// Verify returns model.ErrorInvalidCredential when password does not match
// the encoded hash. Any other error means the stored hash is unusable.
func Verify(encoded, password string) error {
	hash, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decoding password hash: %w", err)
	}
	err = bcrypt.CompareHashAndPassword(hash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return model.ErrorInvalidCredential
	}
	if err != nil {
		return fmt.Errorf("comparing password hash: %w", err)
	}
	return nil
}
