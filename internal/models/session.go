package models

import (
	"maps"
	"slices"
	"time"

	"github.com/BTreeMap/LiveWell/internal/frailty"
	"github.com/BTreeMap/LiveWell/internal/lexical"
)

// Role identifies the author of a transcript message.
type Role string

const (
	// RoleUser marks a message sent by the participant.
	RoleUser Role = "user"
	// RoleAssistant marks a reply produced by the check-in engine.
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SlotName names one of the facts collected before planning.
type SlotName string

const (
	// SlotMood is a lowercase free-form mood label.
	SlotMood SlotName = "mood"
	// SlotEnergy is an integer in [0,10].
	SlotEnergy SlotName = "energy"
	// SlotSteps is a non-negative step count.
	SlotSteps SlotName = "steps"
)

// IsValid reports whether n is a known slot.
func (n SlotName) IsValid() bool {
	switch n {
	case SlotMood, SlotEnergy, SlotSteps:
		return true
	default:
		return false
	}
}

// DefaultRequiredSlots returns the slots asked for, in order, before a plan is drafted.
func DefaultRequiredSlots() []SlotName {
	return []SlotName{SlotMood, SlotEnergy, SlotSteps}
}

// Slots holds the collected facts. A nil field has not been provided yet.
type Slots struct {
	Mood   *string `json:"mood,omitempty"`
	Energy *int    `json:"energy,omitempty"`
	Steps  *int    `json:"steps,omitempty"`
}

// Has reports whether the named slot holds a value.
func (s Slots) Has(name SlotName) bool {
	switch name {
	case SlotMood:
		return s.Mood != nil
	case SlotEnergy:
		return s.Energy != nil
	case SlotSteps:
		return s.Steps != nil
	default:
		return false
	}
}

// FirstMissing returns the first slot in required order that has no value.
func (s Slots) FirstMissing(required []SlotName) (SlotName, bool) {
	for _, name := range required {
		if !s.Has(name) {
			return name, true
		}
	}
	return "", false
}

// Merge copies every fact present in f into s. Absent facts leave s untouched.
func (s *Slots) Merge(f lexical.Facts) {
	if f.Mood != nil {
		s.SetMood(*f.Mood)
	}
	if f.Energy != nil {
		s.SetEnergy(*f.Energy)
	}
	if f.Steps != nil {
		s.SetSteps(*f.Steps)
	}
}

// SetMood stores mood.
func (s *Slots) SetMood(mood string) { s.Mood = &mood }

// SetEnergy stores energy clamped to [0,10].
func (s *Slots) SetEnergy(energy int) {
	energy = lexical.ClampEnergy(energy)
	s.Energy = &energy
}

// SetSteps stores steps; negative counts are stored as 0.
func (s *Slots) SetSteps(steps int) {
	steps = max(steps, 0)
	s.Steps = &steps
}

// Clone returns a copy that shares no pointers with s.
func (s Slots) Clone() Slots {
	return Slots{Mood: clonePtr(s.Mood), Energy: clonePtr(s.Energy), Steps: clonePtr(s.Steps)}
}

// Plan is a structured daily routine. All four lists are always present.
type Plan struct {
	Risk      frailty.Band `json:"risk"`
	Morning   []string     `json:"morning"`
	Afternoon []string     `json:"afternoon"`
	Evening   []string     `json:"evening"`
	Notes     []string     `json:"notes"`
}

// Clone returns a deep copy of p.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	return &Plan{
		Risk:      p.Risk,
		Morning:   slices.Clone(p.Morning),
		Afternoon: slices.Clone(p.Afternoon),
		Evening:   slices.Clone(p.Evening),
		Notes:     slices.Clone(p.Notes),
	}
}

// Session is the state threaded through every check-in turn.
type Session struct {
	SessionID     string          `json:"session_id"`
	Messages      []Message       `json:"messages"`
	Awaiting      Awaiting        `json:"awaiting"`
	RequiredSlots []SlotName      `json:"required_slots"`
	Slots         Slots           `json:"slots"`
	PrismaAnswers map[string]bool `json:"prisma_answers"`
	PrismaIndex   int             `json:"prisma_index"`
	FrailtyScore  *int            `json:"frailty_score"`
	Plan          *Plan           `json:"plan"`
	PlanSeed      *int            `json:"plan_seed"`
	Reply         string          `json:"reply,omitempty"` // outgoing message for the current turn
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewSession returns a freshly initialized session: no slots, nothing awaited,
// no PRISMA answers, no score and no plan.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		SessionID:     id,
		Messages:      []Message{},
		RequiredSlots: DefaultRequiredSlots(),
		PrismaAnswers: make(map[string]bool),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Required returns the configured required slots, or the defaults when unset.
func (s *Session) Required() []SlotName {
	if len(s.RequiredSlots) == 0 {
		return DefaultRequiredSlots()
	}
	return s.RequiredSlots
}

// AppendMessage adds a transcript entry. The transcript is append-only.
func (s *Session) AppendMessage(role Role, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: now})
}

// ResetWizard restarts the PRISMA-7 run: answers, cursor and score are cleared.
func (s *Session) ResetWizard() {
	s.PrismaAnswers = make(map[string]bool)
	s.PrismaIndex = 0
	s.FrailtyScore = nil
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = slices.Clone(s.Messages)
	out.RequiredSlots = slices.Clone(s.RequiredSlots)
	out.Slots = s.Slots.Clone()
	out.PrismaAnswers = maps.Clone(s.PrismaAnswers)
	if out.PrismaAnswers == nil {
		out.PrismaAnswers = make(map[string]bool)
	}
	out.FrailtyScore = clonePtr(s.FrailtyScore)
	out.Plan = s.Plan.Clone()
	out.PlanSeed = clonePtr(s.PlanSeed)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
