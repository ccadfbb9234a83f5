package redis

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/letwise/onboarding/internal/core/domain"
)

const (
	sessionIDBytes = 32

	fieldUserID     = "user_id"
	fieldExpiration = "expiration_time"
)

// refreshScript moves a session's expiration only if the session still exists.
var refreshScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "expiration_time", ARGV[1])
redis.call("PEXPIREAT", KEYS[1], ARGV[1])
return 1
`)

// SessionStore keeps sessions as Redis hashes.
// Key format: session:<sha256 hex of the session id>
// The raw id only ever lives in the client's cookie.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Create stores a new session and returns its id: 32 random bytes, hex encoded.
func (s *SessionStore) Create(ctx context.Context, userID string, expiration time.Time) (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	id := hex.EncodeToString(buf)
	key := s.key(id)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldUserID, userID, fieldExpiration, expiration.UnixMilli())
	pipe.PExpireAt(ctx, key, expiration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Get returns the session or (nil, nil) when the id is unknown or malformed.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if !validID(sessionID) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	vals, err := s.client.HMGet(ctx, s.key(sessionID), fieldUserID, fieldExpiration).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	userID, _ := vals[0].(string)
	rawExp, _ := vals[1].(string)
	if userID == "" || rawExp == "" {
		return nil, nil
	}
	exp, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse session expiration: %w", err)
	}

	return &domain.Session{ID: sessionID, UserID: userID, ExpirationTime: exp}, nil
}

func (s *SessionStore) Patch(ctx context.Context, sessionID string, expiration time.Time) error {
	if !validID(sessionID) {
		return domain.ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := refreshScript.Run(ctx, s.client, []string{s.key(sessionID)}, expiration.UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if !validID(sessionID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return "session:" + hex.EncodeToString(sum[:])
}

func validID(id string) bool {
	if len(id) != sessionIDBytes*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
