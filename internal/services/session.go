package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brikvest/apiserver/internal/cache"
	"github.com/brikvest/apiserver/internal/ids"
	"github.com/brikvest/apiserver/types"
)

const (
	sessionKeyPrefix   = "sess:"
	userSessionsPrefix = "user_sessions:"
	defaultSessionTTL  = 30 * 24 * time.Hour
)

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func userSessionsKey(userID int) string {
	return fmt.Sprintf("%s%d", userSessionsPrefix, userID)
}

// SessionRegistry tracks logged-in devices in Redis. Each session lives
// under its own key with a per-user set indexing the session IDs, so
// concurrent logins on different devices never clobber each other.
type SessionRegistry struct {
	cache  *cache.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSessionRegistry(c *cache.Client, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{cache: c, ttl: defaultSessionTTL, logger: logger}
}

// Create registers a new session for the user and returns it.
func (s *SessionRegistry) Create(ctx context.Context, userID int, deviceInfo, ip string) (types.Session, error) {
	now := time.Now()
	sess := types.Session{
		SessionID:  ids.New(),
		UserID:     userID,
		DeviceInfo: deviceInfo,
		IP:         ip,
		CreatedAt:  now,
		LastActive: now,
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return types.Session{}, fmt.Errorf("encode session: %w", err)
	}

	rdb := s.cache.Redis()
	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.SessionID), data, s.ttl)
		pipe.SAdd(ctx, userSessionsKey(userID), sess.SessionID)
		pipe.Expire(ctx, userSessionsKey(userID), s.ttl)
		return nil
	})
	if err != nil {
		return types.Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get returns the session by ID, or ErrSessionNotFound.
func (s *SessionRegistry) Get(ctx context.Context, sessionID string) (types.Session, error) {
	var sess types.Session
	if err := s.cache.GetJSON(ctx, sessionKey(sessionID), &sess); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return types.Session{}, ErrSessionNotFound
		}
		return types.Session{}, err
	}
	return sess, nil
}

// Exists reports whether the session is still live. Used on every
// guarded request so that logout invalidates unexpired access tokens.
func (s *SessionRegistry) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, err := s.cache.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Touch refreshes LastActive and re-extends the session TTL. Called on
// token rotation. The per-user index is extended alongside, so a
// long-lived device never outlives its own index entry.
func (s *SessionRegistry) Touch(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.LastActive = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	rdb := s.cache.Redis()
	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sessionID), data, s.ttl)
		pipe.Expire(ctx, userSessionsKey(sess.UserID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

// List returns all live sessions for the user, pruning index entries
// whose session keys have already expired.
func (s *SessionRegistry) List(ctx context.Context, userID int) ([]types.Session, error) {
	rdb := s.cache.Redis()
	members, err := rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]types.Session, 0, len(members))
	var stale []any
	for _, id := range members {
		sess, err := s.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if len(stale) > 0 {
		if err := rdb.SRem(ctx, userSessionsKey(userID), stale...).Err(); err != nil {
			s.logger.Warn("pruning stale session index failed",
				zap.Int("user_id", userID), zap.Error(err))
		}
	}
	return sessions, nil
}

// Delete removes a single session. The owning user's index is updated
// in the same pipeline.
func (s *SessionRegistry) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	rdb := s.cache.Redis()
	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sessionID))
		pipe.SRem(ctx, userSessionsKey(sess.UserID), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every session belonging to the user and the
// index itself. Returns the number of sessions removed.
func (s *SessionRegistry) DeleteAllForUser(ctx context.Context, userID int) (int, error) {
	rdb := s.cache.Redis()
	members, err := rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, id := range members {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return len(members), nil
}
