package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/frailty"
	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/store"
)

// checkinCue is recorded as the user turn of StartCheckin.
const checkinCue = "daily check-in"

// CheckinService is the transport boundary: it loads a session, runs exactly
// one engine turn on a private copy, and persists the result.
type CheckinService struct {
	engine   *Engine
	sessions *SessionManager
	locks    *sessionLocks
}

// NewCheckinService creates a CheckinService over st.
func NewCheckinService(st store.SessionStore, opts ...Option) *CheckinService {
	cfg := applyOptions(opts)
	slog.Debug("Creating CheckinService")
	return &CheckinService{
		engine:   &Engine{planner: cfg.Planner, clock: cfg.Clock},
		sessions: NewSessionManager(st, cfg.Clock),
		locks:    newSessionLocks(),
	}
}

// Engine returns the dialogue engine used by the service.
func (cs *CheckinService) Engine() *Engine { return cs.engine }

// HandleMessage runs one turn for sessionID. inline, when it holds a complete
// PRISMA-7 answer set, replaces the stored answers and score before routing.
func (cs *CheckinService) HandleMessage(ctx context.Context, sessionID, message string, inline map[string]any) (string, *models.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", nil, models.ErrEmptySessionID
	}

	unlock := cs.locks.Lock(sessionID)
	defer unlock()

	stored, err := cs.sessions.FetchOrCreate(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	s := stored.Clone()
	s.SessionID = sessionID

	if len(inline) > 0 {
		applyInlineAnswers(s, inline)
	}

	now := cs.engine.clock()
	s.AppendMessage(models.RoleUser, message, now)
	s.Reply = ""
	label := cs.engine.Run(ctx, s, message)
	s.AppendMessage(models.RoleAssistant, s.Reply, cs.engine.clock())

	if err := cs.sessions.Persist(ctx, sessionID, s); err != nil {
		return "", nil, err
	}
	slog.Info("CheckinService turn handled", "sessionID", sessionID, "label", label, "awaiting", s.Awaiting.String())
	return s.Reply, s, nil
}

// applyInlineAnswers scores a complete inline submission. Incomplete sets are
// ignored.
func applyInlineAnswers(s *models.Session, inline map[string]any) {
	answers := frailty.Normalize(inline)
	score, ok := frailty.Score(answers)
	if !ok {
		slog.Debug("CheckinService inline answers incomplete", "sessionID", s.SessionID, "missing", frailty.Missing(answers))
		return
	}
	s.PrismaAnswers = answers
	s.PrismaIndex = frailty.QuestionCount()
	s.FrailtyScore = &score
	slog.Debug("CheckinService inline answers scored", "sessionID", s.SessionID, "score", score)
}

// Welcome greets the session proactively and waits for the check-in
// confirmation.
func (cs *CheckinService) Welcome(ctx context.Context, sessionID string) (string, *models.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", nil, models.ErrEmptySessionID
	}

	unlock := cs.locks.Lock(sessionID)
	defer unlock()

	stored, err := cs.sessions.FetchOrCreate(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	s := stored.Clone()
	s.SessionID = sessionID
	s.Awaiting = models.Await(models.AwaitingConfirmCheckin)
	s.Reply = replyWelcome
	s.AppendMessage(models.RoleAssistant, s.Reply, cs.engine.clock())
	if err := cs.sessions.Persist(ctx, sessionID, s); err != nil {
		return "", nil, err
	}
	return s.Reply, s, nil
}

// StartCheckin (re)starts the PRISMA-7 wizard for sessionID whatever the
// session is waiting for. The cue is recorded in the transcript.
func (cs *CheckinService) StartCheckin(ctx context.Context, sessionID string) (string, *models.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", nil, models.ErrEmptySessionID
	}

	unlock := cs.locks.Lock(sessionID)
	defer unlock()

	stored, err := cs.sessions.FetchOrCreate(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	s := stored.Clone()
	s.SessionID = sessionID

	s.AppendMessage(models.RoleUser, checkinCue, cs.engine.clock())
	cs.engine.startPrisma(s)
	s.AppendMessage(models.RoleAssistant, s.Reply, cs.engine.clock())

	if err := cs.sessions.Persist(ctx, sessionID, s); err != nil {
		return "", nil, err
	}
	slog.Info("CheckinService wizard started", "sessionID", sessionID)
	return s.Reply, s, nil
}

// AnswerCheckin feeds one wizard answer for sessionID.
func (cs *CheckinService) AnswerCheckin(ctx context.Context, sessionID, answer string) (string, *models.Session, error) {
	if strings.TrimSpace(answer) == "" {
		return "", nil, models.ErrEmptyAnswer
	}
	return cs.HandleMessage(ctx, sessionID, answer, nil)
}

// Reset deletes the stored session for sessionID.
func (cs *CheckinService) Reset(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return models.ErrEmptySessionID
	}
	unlock := cs.locks.Lock(sessionID)
	defer unlock()
	return cs.sessions.Reset(ctx, sessionID)
}

// ErrSessionNotFound is returned by Session for an unknown id.
var ErrSessionNotFound = errors.New("session not found")

// Session returns the stored session for sessionID.
func (cs *CheckinService) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, models.ErrEmptySessionID
	}
	s, err := cs.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}
