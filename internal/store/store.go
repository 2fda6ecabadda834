// Package store provides session storage backends for LiveWell.
//
// Every backend implements SessionStore and hands out deep copies, so a turn
// works on a private session and the stored value changes only when the turn
// saves its result. The default backend is an in-memory TTL map; SQLite,
// PostgreSQL and Redis backends are selected from the DSN.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/LiveWell/internal/models"
)

// Backend names returned by DetectDSNType.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = time.Hour

// ErrDSNNotSet is returned by backends that require a DSN.
var ErrDSNNotSet = errors.New("database DSN not set")

// SessionStore persists check-in sessions keyed by session id.
type SessionStore interface {
	// GetSession returns nil, nil when the session is absent or expired.
	GetSession(ctx context.Context, id string) (*models.Session, error)
	SaveSession(ctx context.Context, session models.Session) error
	DeleteSession(ctx context.Context, id string) error
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN         string           // connection string, file path or redis:// URL
	TTL         time.Duration    // idle expiry; 0 disables expiry
	MaxSessions int              // in-memory capacity bound; 0 is unbounded
	Now         func() time.Time // clock used for SQL expiry checks
}

// Option defines a function for configuring a store.
type Option func(*Opts)

// WithDSN sets the DSN; the backend is chosen by Open via DetectDSNType.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithRedisURL sets the redis:// URL.
func WithRedisURL(url string) Option {
	return func(o *Opts) {
		o.DSN = url
	}
}

// WithTTL sets the idle expiry for sessions. 0 disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) {
		o.TTL = ttl
	}
}

// WithMaxSessions bounds the number of sessions the in-memory store keeps.
func WithMaxSessions(n int) Option {
	return func(o *Opts) {
		o.MaxSessions = n
	}
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

func applyOptions(opts []Option) Opts {
	cfg := Opts{TTL: DefaultSessionTTL, Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// DetectDSNType classifies a DSN as one of the backend names.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	lower := strings.ToLower(d)
	switch {
	case d == "":
		return BackendMemory
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return BackendPostgres
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return BackendRedis
	case strings.Contains(lower, "host=") && strings.Contains(lower, "dbname="):
		return BackendPostgres
	default:
		return BackendSQLite
	}
}

// Open creates the backend selected by the configured DSN.
func Open(opts ...Option) (SessionStore, error) {
	cfg := applyOptions(opts)
	backend := DetectDSNType(cfg.DSN)
	slog.Debug("store.Open: selecting backend", "backend", backend, "ttl", cfg.TTL)
	switch backend {
	case BackendPostgres:
		return NewPostgresStore(opts...)
	case BackendRedis:
		return NewRedisStore(opts...)
	case BackendSQLite:
		return NewSQLiteStore(opts...)
	default:
		return NewInMemoryStore(opts...), nil
	}
}

// encodeSession serializes a session for the SQL and Redis backends.
func encodeSession(s models.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session %s: %w", s.SessionID, err)
	}
	return data, nil
}

// decodeSession is the inverse of encodeSession.
func decodeSession(data []byte) (*models.Session, error) {
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.PrismaAnswers == nil {
		s.PrismaAnswers = make(map[string]bool)
	}
	return &s, nil
}

// expiresAt returns the expiry for a session saved at now, or nil without TTL.
func expiresAt(now time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := now.Add(ttl).UTC()
	return &t
}
