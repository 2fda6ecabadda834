// This file implements a Redis-backed session store.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces session keys.
const RedisKeyPrefix = "livewell:session:"

// RedisStore stores sessions as JSON strings with native key TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the redis:// URL in the DSN.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	cfg := applyOptions(opts)
	if cfg.DSN == "" {
		slog.Error("RedisStore URL not set")
		return nil, ErrDSNNotSet
	}
	opt, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		slog.Error("RedisStore failed to parse URL", "error", err)
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return newRedisStore(redis.NewClient(opt), cfg.TTL)
}

func newRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		slog.Error("RedisStore ping failed", "error", err)
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	slog.Debug("RedisStore connected", "ttl", ttl)
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(id string) string { return RedisKeyPrefix + id }

// GetSession loads a session; a missing or expired key is reported as absent.
func (s *RedisStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		slog.Debug("RedisStore GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return decodeSession(data)
}

// SaveSession writes a session and refreshes its TTL.
func (s *RedisStore) SaveSession(ctx context.Context, session models.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(session.SessionID), data, s.ttl).Err(); err != nil {
		slog.Error("RedisStore SaveSession failed", "error", err, "sessionID", session.SessionID)
		return fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}
	slog.Debug("RedisStore SaveSession succeeded", "sessionID", session.SessionID)
	return nil
}

// DeleteSession removes a session key.
func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		slog.Error("RedisStore DeleteSession failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
