package otp

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store] for tests and single-node setups.
// Records are checked for expiry lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (m *MemoryStore) Save(_ context.Context, key string, record *Record, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *record
	m.records[key] = &clone
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, key string, providedHash [32]byte, maxAttempts int) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().Unix() > record.ExpiresAt {
		delete(m.records, key)
		return nil, ErrNotFound
	}

	if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
		record.Attempts++
		if int(record.Attempts) >= maxAttempts {
			delete(m.records, key)
			return nil, ErrAttemptsExceeded
		}
		return nil, ErrMismatch
	}

	delete(m.records, key)
	matched := *record
	return &matched, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	return nil
}
