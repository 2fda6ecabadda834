package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/store"
)

// SessionManager implements fetch-or-create and persist on top of a
// SessionStore.
type SessionManager struct {
	store store.SessionStore
	clock func() time.Time
}

// NewSessionManager creates a SessionManager backed by st.
func NewSessionManager(st store.SessionStore, clock func() time.Time) *SessionManager {
	slog.Debug("Creating SessionManager")
	if clock == nil {
		clock = time.Now
	}
	return &SessionManager{store: st, clock: clock}
}

// FetchOrCreate returns the stored session for id, or a freshly initialized
// one when id is unknown or expired. The new session is not persisted.
func (sm *SessionManager) FetchOrCreate(ctx context.Context, id string) (*models.Session, error) {
	slog.Debug("SessionManager FetchOrCreate", "sessionID", id)

	s, err := sm.store.GetSession(ctx, id)
	if err != nil {
		slog.Error("SessionManager FetchOrCreate get error", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	if s == nil {
		slog.Debug("SessionManager FetchOrCreate creating new session", "sessionID", id)
		return models.NewSession(id, sm.clock()), nil
	}
	if s.PrismaAnswers == nil {
		s.PrismaAnswers = make(map[string]bool)
	}
	return s, nil
}

// Get returns the stored session for id, or nil when there is none.
func (sm *SessionManager) Get(ctx context.Context, id string) (*models.Session, error) {
	s, err := sm.store.GetSession(ctx, id)
	if err != nil {
		slog.Error("SessionManager Get error", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// Persist stores s under id and refreshes its UpdatedAt.
func (sm *SessionManager) Persist(ctx context.Context, id string, s *models.Session) error {
	s.SessionID = id
	s.UpdatedAt = sm.clock()
	if err := sm.store.SaveSession(ctx, *s); err != nil {
		slog.Error("SessionManager Persist error", "error", err, "sessionID", id)
		return fmt.Errorf("failed to persist session: %w", err)
	}
	slog.Debug("SessionManager Persist succeeded", "sessionID", id, "awaiting", s.Awaiting.String())
	return nil
}

// Reset forgets the session for id.
func (sm *SessionManager) Reset(ctx context.Context, id string) error {
	if err := sm.store.DeleteSession(ctx, id); err != nil {
		slog.Error("SessionManager Reset error", "error", err, "sessionID", id)
		return fmt.Errorf("failed to reset session: %w", err)
	}
	slog.Info("SessionManager Reset succeeded", "sessionID", id)
	return nil
}
