package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "hs")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestCreateAndGetByToken(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	sess, err := store.Create(ctx, "u-1", "customer", "tok-1", "10.0.0.1", "curl/8", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.SessionID == "" || !sess.Active {
		t.Fatalf("unexpected session: %+v", sess)
	}

	got, err := store.GetByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got.SessionID != sess.SessionID || got.UserID != "u-1" || got.Role != "customer" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.IP != "10.0.0.1" || got.UserAgent != "curl/8" {
		t.Fatalf("unexpected client metadata: %+v", got)
	}

	if _, err := store.GetByToken(ctx, "tok-other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found for unknown token, got %v", err)
	}
}

func TestDeactivateByTokenKeepsRecord(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	sess, err := store.Create(ctx, "u-1", "customer", "tok-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.DeactivateByToken(ctx, "tok-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	// The token no longer resolves but the record survives, inactive.
	if _, err := store.GetByToken(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found after revocation, got %v", err)
	}
	got, err := store.GetByID(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Active {
		t.Fatal("session still active after revocation")
	}

	// Repeat revocation by ID is a no-op.
	if err := store.DeactivateByID(ctx, sess.SessionID); err != nil {
		t.Fatalf("second deactivate: %v", err)
	}
}

func TestTouchByTokenUpdatesLastActivity(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if _, err := store.Create(ctx, "u-1", "customer", "tok-1", "", "", time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	touched, err := store.TouchByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if touched.LastActivity < touched.CreatedAt {
		t.Fatalf("last activity went backwards: %+v", touched)
	}

	if err := store.DeactivateByToken(ctx, "tok-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := store.TouchByToken(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found touching revoked session, got %v", err)
	}
}

func TestDeactivateAllForUserCountsActiveOnly(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	for _, tok := range []string{"tok-1", "tok-2", "tok-3"} {
		if _, err := store.Create(ctx, "u-1", "customer", tok, "", "", time.Hour); err != nil {
			t.Fatalf("create %s: %v", tok, err)
		}
	}
	if _, err := store.Create(ctx, "u-2", "manager", "tok-other", "", "", time.Hour); err != nil {
		t.Fatalf("create other user: %v", err)
	}

	if err := store.DeactivateByToken(ctx, "tok-3"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	revoked, err := store.DeactivateAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("deactivate all: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("expected 2 revoked, got %d", revoked)
	}

	// Other users are untouched.
	if _, err := store.GetByToken(ctx, "tok-other"); err != nil {
		t.Fatalf("other user's session gone: %v", err)
	}

	// Second bulk revocation finds nothing active.
	revoked, err = store.DeactivateAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("second deactivate all: %v", err)
	}
	if revoked != 0 {
		t.Fatalf("expected 0 revoked, got %d", revoked)
	}
}

func TestListActiveForUserOrdersByLastActivity(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	first, err := store.Create(ctx, "u-1", "customer", "tok-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := store.Create(ctx, "u-1", "customer", "tok-2", "", "", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.DeactivateByID(ctx, second.SessionID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := store.ListActiveForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].SessionID != first.SessionID {
		t.Fatalf("unexpected active sessions: %+v", active)
	}
}

func TestPurgeExpiredDropsDanglingIndexEntries(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	sess, err := store.Create(ctx, "u-1", "customer", "tok-1", "", "", time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, "u-1", "customer", "tok-2", "", "", time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Let the first record's TTL reclaim it; the index entry dangles.
	mr.FastForward(2 * time.Minute)

	removed, err := store.PurgeExpired(ctx, "u-1")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.GetByID(ctx, sess.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found for reclaimed session, got %v", err)
	}

	active, err := store.ListActiveForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected one surviving session, got %d", len(active))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now()
	in := &Session{
		UserID:       "u-1",
		Role:         "receptionist",
		TokenHash:    HashToken("tok"),
		IP:           "192.0.2.7",
		UserAgent:    "Mozilla/5.0",
		CreatedAt:    now.Unix(),
		LastActivity: now.Unix(),
		ExpiresAt:    now.Add(time.Hour).Unix(),
		Active:       true,
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out.SessionID = in.SessionID
	if *out != *in {
		t.Fatalf("round trip mismatch:\n in %+v\nout %+v", in, out)
	}

	if _, err := Decode([]byte{99, 0}); err == nil {
		t.Fatal("unknown version decoded")
	}
}
