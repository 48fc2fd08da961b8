// Package memory provides an in-process [authcore.UserStore] for tests
// and prototypes.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/hostelworks/authcore"
)

// Store implements [authcore.UserStore] on maps guarded by a mutex.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]authcore.UserRecord
	byIdentity map[string]string
	nextID     int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]authcore.UserRecord),
		byIdentity: make(map[string]string),
	}
}

func (s *Store) FindByIdentifier(_ context.Context, identifier string) (authcore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIdentity[identifier]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *Store) FindByID(_ context.Context, userID string) (authcore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[userID]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return record, nil
}

func (s *Store) Create(_ context.Context, input authcore.CreateUserInput) (authcore.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentity[input.Identifier]; exists {
		return authcore.UserRecord{}, authcore.ErrAccountExists
	}

	s.nextID++
	record := authcore.UserRecord{
		UserID:     "u-" + strconv.Itoa(s.nextID),
		Identifier: input.Identifier,
		Hash:       input.Hash,
		Role:       input.Role,
	}
	s.byID[record.UserID] = record
	s.byIdentity[record.Identifier] = record.UserID
	return record, nil
}

func (s *Store) UpdateCredential(_ context.Context, userID string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	record.Hash = hash
	s.byID[userID] = record
	return nil
}

func (s *Store) UpdateRole(_ context.Context, userID string, role authcore.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	record.Role = role
	s.byID[userID] = record
	return nil
}

func (s *Store) UpdateMFA(_ context.Context, userID string, enabled bool, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	record.MFAEnabled = enabled
	record.MFASecret = secret
	s.byID[userID] = record
	return nil
}
