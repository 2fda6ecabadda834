package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired in-memory sessions are purged.
const DefaultCleanupInterval = 10 * time.Minute

// InMemoryStore keeps sessions in a go-cache map with per-item expiry.
type InMemoryStore struct {
	cache       *cache.Cache
	seen        *cache.Cache // inbound message ids
	ttl         time.Duration
	maxSessions int
	mu          sync.Mutex // serializes capacity checks with inserts
}

// NewInMemoryStore creates an in-memory session store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	cfg := applyOptions(opts)
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if cfg.TTL > 0 {
		expiration = cfg.TTL
		cleanup = min(cfg.TTL, DefaultCleanupInterval)
	}
	slog.Debug("InMemoryStore created", "ttl", cfg.TTL, "maxSessions", cfg.MaxSessions)
	return &InMemoryStore{
		cache:       cache.New(expiration, cleanup),
		seen:        cache.New(DefaultDedupWindow, DefaultCleanupInterval),
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
	}
}

// GetSession returns a copy of the stored session.
func (s *InMemoryStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	if x, found := s.cache.Get(id); found {
		return x.(*models.Session).Clone(), nil
	}
	return nil, nil
}

// SaveSession stores a copy of session and refreshes its expiry.
func (s *InMemoryStore) SaveSession(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 {
		if _, exists := s.cache.Get(session.SessionID); !exists && s.cache.ItemCount() >= s.maxSessions {
			s.cache.DeleteExpired()
			if s.cache.ItemCount() >= s.maxSessions {
				s.evictOldest()
			}
		}
	}
	s.cache.Set(session.SessionID, session.Clone(), cache.DefaultExpiration)
	slog.Debug("InMemoryStore SaveSession succeeded", "sessionID", session.SessionID)
	return nil
}

// evictOldest drops the least recently updated session.
func (s *InMemoryStore) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, item := range s.cache.Items() {
		sess := item.Object.(*models.Session)
		if oldestID == "" || sess.UpdatedAt.Before(oldest) {
			oldestID, oldest = id, sess.UpdatedAt
		}
	}
	if oldestID != "" {
		s.cache.Delete(oldestID)
		slog.Debug("InMemoryStore evicted session at capacity", "sessionID", oldestID, "maxSessions", s.maxSessions)
	}
}

// DeleteSession removes a session; deleting an absent id is not an error.
func (s *InMemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet
// purged.
func (s *InMemoryStore) Len() int {
	return s.cache.ItemCount()
}

// Close flushes all sessions.
func (s *InMemoryStore) Close() error {
	s.cache.Flush()
	s.seen.Flush()
	return nil
}
