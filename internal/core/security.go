// AngelaMos | 2026
// security.go

package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 10
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf(
			"bcrypt cost %d out of range [%d, %d]: %w",
			cost, bcrypt.MinCost, bcrypt.MaxCost, ErrInvalidInput,
		)
	}

	dummy, err := bcrypt.GenerateFromPassword(
		[]byte("dummy_password_for_timing_attack_prevention"),
		cost,
	)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &PasswordHasher{cost: cost, dummyHash: dummy}, nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("hash password: %s: %w", passwordTooLong("password"), ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("hash password: %w", ErrInvalidInput)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

func (h *PasswordHasher) Verify(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}

// VerifyTimingSafe runs a full bcrypt comparison even when there is no
// stored hash, so a missing account costs as much as a wrong password.
func (h *PasswordHasher) VerifyTimingSafe(
	password string,
	encodedHash *string,
) (bool, error) {
	if encodedHash == nil || *encodedHash == "" {
		//nolint:errcheck // result is discarded on purpose
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
		return false, nil
	}

	return h.Verify(password, *encodedHash)
}

func (h *PasswordHasher) NeedsRehash(encodedHash string) bool {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return true
	}
	return cost != h.cost
}

func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Detached returns a context that survives cancellation of parent but is
// bounded by timeout. Store and file mutations run under it so a client
// disconnect cannot abandon them halfway.
func Detached(
	parent context.Context,
	timeout time.Duration,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
