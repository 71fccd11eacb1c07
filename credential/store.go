package credential

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goTrust/hashing"
)

var (
	// ErrNotFound is returned when no credential exists for a user.
	ErrNotFound = errors.New("credential not found")
	// ErrConflict is returned by Replace when the stored hash changed underneath.
	ErrConflict = errors.New("credential changed concurrently")
	// ErrUnavailable wraps backend transport failures.
	ErrUnavailable = errors.New("credential store unavailable")
	// ErrInvalidUserID is returned for an empty user ID.
	ErrInvalidUserID = errors.New("credential user id cannot be empty")
)

// Store persists one encoded hash string per user.
type Store interface {
	Get(ctx context.Context, userID string) (hashing.HashString, error)
	Put(ctx context.Context, userID string, hash hashing.HashString) error
	// Replace swaps old for next only if old is still the stored value.
	Replace(ctx context.Context, userID string, old, next hashing.HashString) error
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	return nil
}

func decode(encoded string) (hashing.HashString, error) {
	hs, err := hashing.ParseHashString(encoded)
	if err != nil {
		return hashing.HashString{}, err
	}
	return hs, nil
}
