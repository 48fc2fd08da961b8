package session

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session matches the given ID or token.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps any Redis transport or server failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

const watchRetries = 4

// Store is a Redis-backed session store handling persistence, the
// token-hash and per-user indexes, and in-place deactivation.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; "hs" is used when empty.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "hs"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *Store) tokenKey(hash [32]byte) string {
	return s.prefix + ":t:" + hex.EncodeToString(hash[:])
}

// NewID returns a fresh random session ID.
func NewID() string {
	return uuid.NewString()
}

// Create persists a new active session for the given token and returns it.
//
//	Performance: 3 Redis commands in one MULTI (SET blob, SET token index, SADD user index).
func (s *Store) Create(
	ctx context.Context,
	userID, role, token, ip, userAgent string,
	ttl time.Duration,
) (*Session, error) {
	return s.CreateWithID(ctx, NewID(), userID, role, token, ip, userAgent, ttl)
}

// CreateWithID persists a new active session under a caller-chosen ID.
// Token issuance embeds the session ID in the token, so the ID has to be
// fixed before the record exists.
func (s *Store) CreateWithID(
	ctx context.Context,
	sessionID, userID, role, token, ip, userAgent string,
	ttl time.Duration,
) (*Session, error) {
	now := time.Now()
	sess := &Session{
		SessionID:    sessionID,
		UserID:       userID,
		Role:         role,
		TokenHash:    HashToken(token),
		IP:           ip,
		UserAgent:    userAgent,
		CreatedAt:    now.Unix(),
		LastActivity: now.Unix(),
		ExpiresAt:    now.Add(ttl).Unix(),
		Active:       true,
	}

	data, err := Encode(sess)
	if err != nil {
		return nil, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		pipe.Set(ctx, s.tokenKey(sess.TokenHash), sess.SessionID, ttl)
		pipe.SAdd(ctx, s.userKey(userID), sess.SessionID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// GetByID retrieves a session by ID without checking validity; callers
// decide what an inactive or expired record means.
func (s *Store) GetByID(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID
	return sess, nil
}

// GetByToken resolves a raw token to its session through the token-hash
// index. The stored hash is compared against the computed one so a stale
// index entry can never surface another token's session.
func (s *Store) GetByToken(ctx context.Context, token string) (*Session, error) {
	hash := HashToken(token)

	sessionID, err := s.redis.Get(ctx, s.tokenKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(sess.TokenHash[:], hash[:]) != 1 {
		return nil, ErrNotFound
	}
	return sess, nil
}

// TouchByToken updates the session's last-activity timestamp, preserving
// the remaining Redis TTL. Returns [ErrNotFound] when the session does not
// exist or no longer authorizes requests.
func (s *Store) TouchByToken(ctx context.Context, token string) (*Session, error) {
	hash := HashToken(token)

	sessionID, err := s.redis.Get(ctx, s.tokenKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	key := s.key(sessionID)

	for i := 0; i < watchRetries; i++ {
		var touched *Session

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			sess, err := Decode(data)
			if err != nil {
				return err
			}
			sess.SessionID = sessionID

			if subtle.ConstantTimeCompare(sess.TokenHash[:], hash[:]) != 1 {
				return ErrNotFound
			}
			if !sess.Valid(time.Now()) {
				return ErrNotFound
			}

			pttl, err := tx.PTTL(ctx, key).Result()
			if err != nil {
				return err
			}
			if pttl <= 0 {
				return ErrNotFound
			}

			sess.LastActivity = time.Now().Unix()
			updated, err := Encode(sess)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, pttl)
				return nil
			})
			if err != nil {
				return err
			}

			touched = sess
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, ErrNotFound):
				return nil, ErrNotFound
			default:
				return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}

		return touched, nil
	}

	return nil, ErrNotFound
}

// DeactivateByToken revokes the session behind a raw token. Revoking an
// already inactive session is a no-op.
func (s *Store) DeactivateByToken(ctx context.Context, token string) error {
	hash := HashToken(token)

	sessionID, err := s.redis.Get(ctx, s.tokenKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return s.DeactivateByID(ctx, sessionID)
}

// DeactivateByID flips the session's Active flag in place, preserving the
// remaining Redis TTL, and drops the token index entry so the token can no
// longer resolve. The record itself stays until the TTL reclaims it.
func (s *Store) DeactivateByID(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)

	for i := 0; i < watchRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			sess, err := Decode(data)
			if err != nil {
				return err
			}

			if !sess.Active {
				return nil
			}

			pttl, err := tx.PTTL(ctx, key).Result()
			if err != nil {
				return err
			}
			if pttl <= 0 {
				return ErrNotFound
			}

			sess.Active = false
			updated, err := Encode(sess)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, pttl)
				pipe.Del(ctx, s.tokenKey(sess.TokenHash))
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, ErrNotFound):
				return ErrNotFound
			default:
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}

		return nil
	}

	return ErrNotFound
}

// DeactivateAllForUser revokes every tracked session of a user and returns
// how many were active before the call.
//
// ATOMICITY NOTE: sessions are deactivated one by one; a login racing this
// call may survive it. The race window is narrow and the stray session is
// caught by the next bulk revocation.
func (s *Store) DeactivateAllForUser(ctx context.Context, userID string) (int, error) {
	sessionIDs, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions, err := s.getMany(ctx, sessionIDs)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, sess := range sessions {
		if !sess.Valid(time.Now()) {
			continue
		}
		if err := s.DeactivateByID(ctx, sess.SessionID); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return revoked, err
		}
		revoked++
	}

	return revoked, nil
}

// ListActiveForUser returns the user's currently valid sessions, most
// recently active first.
//
//	Performance: SMEMBERS + 1 pipelined GET per tracked session.
func (s *Store) ListActiveForUser(ctx context.Context, userID string) ([]*Session, error) {
	sessionIDs, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions, err := s.getMany(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	active := make([]*Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Valid(now) {
			active = append(active, sess)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActivity > active[j].LastActivity
	})

	return active, nil
}

// PurgeExpired removes dangling entries from the user's session index:
// IDs whose records have already been reclaimed by their Redis TTL. It is
// an optimization only; validity never depends on it.
func (s *Store) PurgeExpired(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(sessionIDs) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(sessionIDs))
	for i, sessionID := range sessionIDs {
		existsCmds[i] = pipe.Exists(ctx, s.key(sessionID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	dangling := make([]interface{}, 0, len(sessionIDs))
	for i, cmd := range existsCmds {
		v, cmdErr := cmd.Result()
		if cmdErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if v == 0 {
			dangling = append(dangling, sessionIDs[i])
		}
	}

	if len(dangling) == 0 {
		return 0, nil
	}

	if err := s.redis.SRem(ctx, userKey, dangling...).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return len(dangling), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) getMany(ctx context.Context, sessionIDs []string) ([]*Session, error) {
	if len(sessionIDs) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(sessionIDs))
	for i, sessionID := range sessionIDs {
		cmds[i] = pipe.Get(ctx, s.key(sessionID))
	}

	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(sessionIDs))
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		sess, decErr := Decode(data)
		if decErr != nil {
			return nil, decErr
		}
		sess.SessionID = sessionIDs[i]
		sessions = append(sessions, sess)
	}

	return sessions, nil
}
