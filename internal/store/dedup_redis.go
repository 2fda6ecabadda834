package store

import (
	"context"
	"fmt"
)

// RedisDedupPrefix namespaces inbound message id keys.
const RedisDedupPrefix = "livewell:inbound:"

// RecordInbound sets the message key only if absent; the key expires after
// the dedup window.
func (s *RedisStore) RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error) {
	fresh, err := s.client.SetNX(ctx, RedisDedupPrefix+messageID, sessionID, DefaultDedupWindow).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record inbound message %s: %w", messageID, err)
	}
	return fresh, nil
}

// ForgetInbound deletes the message key.
func (s *RedisStore) ForgetInbound(ctx context.Context, messageID string) error {
	if err := s.client.Del(ctx, RedisDedupPrefix+messageID).Err(); err != nil {
		return fmt.Errorf("failed to forget inbound message %s: %w", messageID, err)
	}
	return nil
}
