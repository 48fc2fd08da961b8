package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// AlphabetDigits is the numeric alphabet used for login challenge codes.
const AlphabetDigits = "0123456789"

// AlphabetUpperAlnum is the alphabet used for password reset codes.
const AlphabetUpperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	// ErrNotFound is returned when no code exists for the owner key.
	ErrNotFound = errors.New("code not found")

	// ErrMismatch is returned when a presented code does not match.
	ErrMismatch = errors.New("code mismatch")

	// ErrAttemptsExceeded is returned once repeated mismatches burn the code.
	ErrAttemptsExceeded = errors.New("code attempts exceeded")

	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("code store unavailable")
)

// Record is a stored one-time code. Only the hash of the code is kept.
type Record struct {
	CodeHash  [32]byte
	ExpiresAt int64
	Attempts  uint16
}

// Store persists one-time code records. Save overwrites any existing record
// for the key, so regenerating a code invalidates the previous one. Consume
// must be atomic: under concurrent calls with the correct hash, exactly one
// succeeds.
type Store interface {
	Save(ctx context.Context, key string, record *Record, ttl time.Duration) error
	Consume(ctx context.Context, key string, providedHash [32]byte, maxAttempts int) (*Record, error)
	Delete(ctx context.Context, key string) error
}

// Config controls code shape and lifetime.
type Config struct {
	Alphabet    string
	Length      int
	TTL         time.Duration
	MaxAttempts int
}

// Service issues and verifies one-time codes for a single purpose.
type Service struct {
	store       Store
	alphabet    string
	length      int
	ttl         time.Duration
	maxAttempts int
}

// NewService creates a code service. Zero-value config fields fall back to
// 6 digits, 10 minutes, 5 attempts.
func NewService(store Store, cfg Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("otp: store is required")
	}
	if cfg.Alphabet == "" {
		cfg.Alphabet = AlphabetDigits
	}
	if len(cfg.Alphabet) > 255 {
		return nil, errors.New("otp: alphabet too large")
	}
	if cfg.Length == 0 {
		cfg.Length = 6
	}
	if cfg.Length < 4 || cfg.Length > 64 {
		return nil, errors.New("otp: length out of range")
	}
	if cfg.TTL == 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.TTL < 0 {
		return nil, errors.New("otp: ttl must be positive")
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	return &Service{
		store:       store,
		alphabet:    cfg.Alphabet,
		length:      cfg.Length,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
	}, nil
}

// Generate creates a fresh code for the owner key, replacing any code
// issued earlier, and returns the plaintext for delivery. The store keeps
// only the hash.
func (s *Service) Generate(ctx context.Context, ownerKey string) (string, error) {
	code, err := randomCode(s.alphabet, s.length)
	if err != nil {
		return "", err
	}

	record := &Record{
		CodeHash:  sha256.Sum256([]byte(code)),
		ExpiresAt: time.Now().Add(s.ttl).Unix(),
	}
	if err := s.store.Save(ctx, ownerKey, record, s.ttl); err != nil {
		return "", err
	}

	return code, nil
}

// Consume verifies and burns the code for the owner key. On success the
// record is deleted, so a second Consume with the same code fails with
// [ErrNotFound] even inside the TTL window.
func (s *Service) Consume(ctx context.Context, ownerKey, code string) error {
	_, err := s.store.Consume(ctx, ownerKey, sha256.Sum256([]byte(code)), s.maxAttempts)
	return err
}

// Cancel discards any pending code for the owner key.
func (s *Service) Cancel(ctx context.Context, ownerKey string) error {
	return s.store.Delete(ctx, ownerKey)
}

// TTL returns the configured code lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func randomCode(alphabet string, length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("otp: entropy source failed: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
