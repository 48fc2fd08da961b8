package authcore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// testUserStore is a map-backed UserStore for engine tests.
type testUserStore struct {
	mu         sync.Mutex
	byID       map[string]UserRecord
	byIdentity map[string]string
	nextID     int
}

func newTestUserStore() *testUserStore {
	return &testUserStore{
		byID:       make(map[string]UserRecord),
		byIdentity: make(map[string]string),
	}
}

func (s *testUserStore) FindByIdentifier(_ context.Context, identifier string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.byIdentity[identifier]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return s.byID[userID], nil
}

func (s *testUserStore) FindByID(_ context.Context, userID string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (s *testUserStore) Create(_ context.Context, input CreateUserInput) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentity[input.Identifier]; exists {
		return UserRecord{}, ErrAccountExists
	}

	s.nextID++
	user := UserRecord{
		UserID:     fmt.Sprintf("u%d", s.nextID),
		Identifier: input.Identifier,
		Hash:       input.Hash,
		Role:       input.Role,
	}
	s.byID[user.UserID] = user
	s.byIdentity[user.Identifier] = user.UserID
	return user, nil
}

func (s *testUserStore) UpdateCredential(_ context.Context, userID string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Hash = hash
	s.byID[userID] = user
	return nil
}

func (s *testUserStore) UpdateRole(_ context.Context, userID string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Role = role
	s.byID[userID] = user
	return nil
}

func (s *testUserStore) UpdateMFA(_ context.Context, userID string, enabled bool, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.MFAEnabled = enabled
	user.MFASecret = secret
	s.byID[userID] = user
	return nil
}

// captureNotifier records the most recent code sent per destination.
type captureNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	sends int
}

func (n *captureNotifier) Send(_ context.Context, destination, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.codes == nil {
		n.codes = make(map[string]string)
	}
	n.codes[destination] = code
	n.sends++
	return nil
}

func (n *captureNotifier) lastCode(destination string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[destination]
}

func (n *captureNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sends
}

// testShortSessionTTL is short enough for miniredis FastForward to expire.
const testShortSessionTTL = 2 * time.Second

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.TTL = time.Minute
	// Low-cost parameters keep the hashing out of the test runtime.
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.RateLimit.MaxLoginAttempts = 3
	cfg.RateLimit.LoginCooldown = time.Minute
	cfg.RateLimit.MaxResetRequests = 2
	cfg.RateLimit.ResetCooldown = time.Minute
	cfg.RateLimit.EnableIPThrottle = false
	cfg.Audit.Enabled = false
	return cfg
}

type engineTestEnv struct {
	engine   *Engine
	redis    *miniredis.Miniredis
	users    *testUserStore
	notifier *captureNotifier
}

func newTestEngine(t *testing.T, mutate func(*Config)) *engineTestEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	users := newTestUserStore()
	notifier := &captureNotifier{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(users).
		WithNotifier(notifier).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = client.Close()
		mr.Close()
	})

	return &engineTestEnv{
		engine:   engine,
		redis:    mr,
		users:    users,
		notifier: notifier,
	}
}

func (env *engineTestEnv) seedUser(t *testing.T, identifier, pass string, role Role, mfaEnabled bool) UserRecord {
	t.Helper()

	hash, err := env.engine.hasher.Hash(pass)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	user, err := env.users.Create(context.Background(), CreateUserInput{
		Identifier: identifier,
		Hash:       hash,
		Role:       role,
	})
	if err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	if mfaEnabled {
		if err := env.users.UpdateMFA(context.Background(), user.UserID, true, ""); err != nil {
			t.Fatalf("seed MFA flag failed: %v", err)
		}
		user.MFAEnabled = true
	}
	return user
}

func (env *engineTestEnv) metric(id MetricID) uint64 {
	return env.engine.MetricsSnapshot().Counters[id]
}
