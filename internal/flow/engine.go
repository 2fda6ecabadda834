// Package flow implements the check-in dialogue: intent classification, the
// PRISMA-7 wizard, slot filling, planning, and the service that threads a
// stored session through one turn at a time.
package flow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/LiveWell/internal/lexical"
	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/planner"
)

// Label names the handler a turn is routed to.
type Label string

const (
	LabelConfirmCheckin Label = "handle_checkin_confirmation"
	LabelContinuePrisma Label = "continue_prisma"
	LabelPostCheckin    Label = "handle_post_checkin"
	LabelAfterPlan      Label = "handle_after_plan"
	LabelContinueSlot   Label = "continue_slot"
	LabelStartPrisma    Label = "start_prisma"
	LabelMotivate       Label = "motivate"
	LabelGreet          Label = "greet_and_offer_checkin"
	LabelCheckSlots     Label = "check_slots"
	LabelComputeAndPlan Label = "maybe_compute_frailty"
)

var (
	checkinRx  = regexp.MustCompile(`\b(daily\s*check[ -]?in|check[ -]?in|checkup|check-up|todays?\s*check[ -]?in)\b`)
	motivateRx = regexp.MustCompile(`\b(motivat(e|ion)|pep\s*talk|pep|encourage|boost|inspire)\b`)
	restartRx  = regexp.MustCompile(`\b(restart|start over|redo)\b`)
	greetingRx = regexp.MustCompile(`\b(hi|hello|hey|hiya|howdy|good (morning|afternoon|evening))\b`)
	easierRx   = regexp.MustCompile(`\b(easier|lighter)\b`)
	harderRx   = regexp.MustCompile(`\b(harder|tougher)\b`)
	swapRx     = regexp.MustCompile(`\b(swap|different|variety)\b`)
	planAskRx  = regexp.MustCompile(`\b(plan|go ahead|make it|draft)\b`)
)

var (
	openers         = map[string]bool{"": true, "start": true, "begin": true}
	acknowledgments = map[string]bool{"ok": true, "okay": true, "thanks": true, "thank you": true}
)

// Opts holds configuration for the engine and the check-in service.
type Opts struct {
	Planner *planner.Planner
	Clock   func() time.Time
}

// Option defines a function for configuring the engine and the check-in service.
type Option func(*Opts)

// WithPlanner sets the planner used for routine generation.
func WithPlanner(p *planner.Planner) Option {
	return func(o *Opts) {
		o.Planner = p
	}
}

// WithClock overrides the clock used for timestamps and the daily seed.
func WithClock(clock func() time.Time) Option {
	return func(o *Opts) {
		o.Clock = clock
	}
}

func applyOptions(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Planner == nil {
		cfg.Planner = planner.New(planner.WithClock(cfg.Clock))
	}
	return cfg
}

// Engine runs one dialogue turn against a session.
type Engine struct {
	planner *planner.Planner
	clock   func() time.Time
}

// NewEngine creates an Engine. Without WithPlanner it plans with the
// deterministic fallback only.
func NewEngine(opts ...Option) *Engine {
	cfg := applyOptions(opts)
	return &Engine{planner: cfg.Planner, clock: cfg.Clock}
}

// Classify picks the handler for text. An outstanding question always wins
// over keyword matching.
func Classify(s *models.Session, text string) Label {
	switch s.Awaiting.Kind {
	case models.AwaitingConfirmCheckin:
		return LabelConfirmCheckin
	case models.AwaitingPrisma:
		return LabelContinuePrisma
	case models.AwaitingPostCheckin:
		return LabelPostCheckin
	case models.AwaitingAfterPlan:
		return LabelAfterPlan
	case models.AwaitingSlot:
		return LabelContinueSlot
	}

	low := normalize(text)
	switch {
	case checkinRx.MatchString(low):
		return LabelStartPrisma
	case motivateRx.MatchString(low):
		return LabelMotivate
	case openers[low] || greetingRx.MatchString(low):
		return LabelGreet
	case lexical.MentionsSlot(low) || lexical.IsBareNumber(low):
		return LabelCheckSlots
	}
	if _, ok := lexical.InferMood(low); ok {
		return LabelCheckSlots
	}
	return LabelComputeAndPlan
}

// Run classifies text, applies exactly one handler to s and guarantees that
// s.Reply is set. The caller clears s.Reply before the turn.
func (e *Engine) Run(ctx context.Context, s *models.Session, text string) Label {
	label := Classify(s, text)
	slog.Debug("CheckinEngine classify", "sessionID", s.SessionID, "label", label, "awaiting", s.Awaiting.String())

	switch label {
	case LabelConfirmCheckin:
		e.handleConfirmation(ctx, s, text)
	case LabelContinuePrisma:
		e.continuePrisma(s, text)
	case LabelPostCheckin:
		e.handlePostCheckin(ctx, s, text)
	case LabelAfterPlan:
		e.handleAfterPlan(ctx, s, text)
	case LabelContinueSlot:
		e.collectSlotAnswer(ctx, s, text)
	case LabelStartPrisma:
		e.startPrisma(s)
	case LabelMotivate:
		e.motivate(s)
	case LabelGreet:
		e.Greet(s)
	case LabelCheckSlots:
		e.checkSlots(ctx, s, text)
	default:
		e.computeAndPlan(ctx, s)
	}

	e.compose(s)
	slog.Debug("CheckinEngine turn complete", "sessionID", s.SessionID, "label", label, "awaiting", s.Awaiting.String())
	return label
}

// Greet offers the daily check-in and waits for the confirmation.
func (e *Engine) Greet(s *models.Session) {
	s.Awaiting = models.Await(models.AwaitingConfirmCheckin)
	s.Reply = replyGreet
}

// compose keeps a reply set by a handler, otherwise renders the current plan.
func (e *Engine) compose(s *models.Session) {
	if s.Reply != "" {
		return
	}
	if s.Plan == nil {
		s.Reply = replyNoPlan
		return
	}
	var suffix string
	if s.Awaiting.Is(models.AwaitingAfterPlan) {
		suffix = replyPlanSuffix
	}
	s.Reply = RenderPlan(*s.Plan) + suffix
}

// RenderPlan formats a plan as the fixed text template.
func RenderPlan(p models.Plan) string {
	var b strings.Builder
	b.WriteString("Here is your plan:\n")
	fmt.Fprintf(&b, "- Morning: %s\n", strings.Join(p.Morning, ", "))
	fmt.Fprintf(&b, "- Afternoon: %s\n", strings.Join(p.Afternoon, ", "))
	fmt.Fprintf(&b, "- Evening: %s\n", strings.Join(p.Evening, ", "))
	fmt.Fprintf(&b, "Notes: %s", strings.Join(p.Notes, ", "))
	return b.String()
}

// StableSeed derives the per-session plan seed from the session id and the
// UTC day, so variety rotates daily and differs across sessions.
func StableSeed(sessionID string, now time.Time) int {
	if sessionID == "" {
		sessionID = "anon"
	}
	u := now.UTC()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%04d%03d", sessionID, u.Year(), u.YearDay())))
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:4]), 16, 64)
	return int(v)
}

// normalize lowercases and trims text and strips trailing punctuation.
func normalize(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), " .!?,")
}
