package store

import (
	"context"
	"time"
)

// DefaultDedupWindow is how long inbound message ids are remembered.
const DefaultDedupWindow = 24 * time.Hour

// DedupRepo records inbound channel message ids so a redelivered webhook is
// not handled twice.
type DedupRepo interface {
	// RecordInbound records messageID for sessionID. It returns false when the
	// id was already recorded within the dedup window.
	RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error)

	// ForgetInbound drops a recorded id so a redelivery is handled again.
	ForgetInbound(ctx context.Context, messageID string) error
}

// Compile-time checks that every backend deduplicates.
var (
	_ DedupRepo = (*InMemoryStore)(nil)
	_ DedupRepo = (*SQLiteStore)(nil)
	_ DedupRepo = (*PostgresStore)(nil)
	_ DedupRepo = (*RedisStore)(nil)
)

// RecordInbound remembers messageID in the in-memory dedup cache.
func (s *InMemoryStore) RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error) {
	// Add fails when the key is present and unexpired.
	if err := s.seen.Add(messageID, sessionID, DefaultDedupWindow); err != nil {
		return false, nil
	}
	return true, nil
}

// ForgetInbound drops messageID from the in-memory dedup cache.
func (s *InMemoryStore) ForgetInbound(ctx context.Context, messageID string) error {
	s.seen.Delete(messageID)
	return nil
}
