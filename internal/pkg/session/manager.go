// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when no live session exists for a token.
var ErrSessionNotFound = errors.New("session not found")

// Manager keeps login sessions and the token blacklist in Redis.
type Manager struct {
	client *redis.Client
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

// CreateSession stores a new session in Redis for ttl
func (m *Manager) CreateSession(ctx context.Context, session *SessionData, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.client.Set(ctx, m.sessionKey(session.UserID, session.JTI), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

// GetSession retrieves a session from Redis
func (m *Manager) GetSession(ctx context.Context, userID int64, jti string) (*SessionData, error) {
	data, err := m.client.Get(ctx, m.sessionKey(userID, jti)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// InvalidateSession removes a session from Redis
func (m *Manager) InvalidateSession(ctx context.Context, userID int64, jti string) error {
	if err := m.client.Del(ctx, m.sessionKey(userID, jti)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAllUserSessions removes every session of a user, forcing a fresh login
func (m *Manager) InvalidateAllUserSessions(ctx context.Context, userID int64) error {
	pattern := fmt.Sprintf("session:%d:*", userID)

	iter := m.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := m.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// IsTokenBlacklisted checks if a token is blacklisted
func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := m.client.Exists(ctx, m.blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

// BlacklistToken adds a token to the blacklist for the rest of its lifetime
func (m *Manager) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return m.client.Set(ctx, m.blacklistKey(jti), "1", ttl).Err()
}

func (m *Manager) sessionKey(userID int64, jti string) string {
	return fmt.Sprintf("session:%d:%s", userID, jti)
}

func (m *Manager) blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}
