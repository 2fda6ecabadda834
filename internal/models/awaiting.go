package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AwaitingKind identifies which question, if any, is outstanding for the next user turn.
type AwaitingKind string

const (
	// AwaitingNone means the next message is interpreted as a fresh intent.
	AwaitingNone AwaitingKind = ""
	// AwaitingConfirmCheckin waits for a yes/no to the check-in offer.
	AwaitingConfirmCheckin AwaitingKind = "confirm_checkin"
	// AwaitingPrisma waits for the answer to the PRISMA-7 question at Session.PrismaIndex.
	AwaitingPrisma AwaitingKind = "prisma"
	// AwaitingPostCheckin waits for a choice after the wizard completed.
	AwaitingPostCheckin AwaitingKind = "post_checkin"
	// AwaitingAfterPlan waits for a tweak or follow-up after a plan was shown.
	AwaitingAfterPlan AwaitingKind = "after_plan"
	// AwaitingSlot waits for the value of the slot named in Awaiting.Slot.
	AwaitingSlot AwaitingKind = "slot"
)

const slotPrefix = "slot:"

// Awaiting is the tagged outstanding-question state. Slot is only set when
// Kind is AwaitingSlot.
type Awaiting struct {
	Kind AwaitingKind
	Slot SlotName
}

// Idle returns the empty awaiting state.
func Idle() Awaiting { return Awaiting{} }

// Await returns an awaiting state of the given kind without a payload.
func Await(kind AwaitingKind) Awaiting { return Awaiting{Kind: kind} }

// AwaitSlot returns the awaiting state for a slot question.
func AwaitSlot(name SlotName) Awaiting { return Awaiting{Kind: AwaitingSlot, Slot: name} }

// IsIdle reports whether no question is outstanding.
func (a Awaiting) IsIdle() bool { return a.Kind == AwaitingNone }

// Is reports whether a is of the given kind.
func (a Awaiting) Is(kind AwaitingKind) bool { return a.Kind == kind }

// String renders the wire form: "", "confirm_checkin", ..., or "slot:<name>".
func (a Awaiting) String() string {
	if a.Kind == AwaitingSlot {
		return slotPrefix + string(a.Slot)
	}
	return string(a.Kind)
}

// ParseAwaiting parses the wire form produced by String.
func ParseAwaiting(s string) (Awaiting, error) {
	s = strings.TrimSpace(s)
	if name, ok := strings.CutPrefix(s, slotPrefix); ok {
		slot := SlotName(name)
		if !slot.IsValid() {
			return Awaiting{}, fmt.Errorf("unknown slot in awaiting state %q", s)
		}
		return AwaitSlot(slot), nil
	}
	switch kind := AwaitingKind(s); kind {
	case AwaitingNone, AwaitingConfirmCheckin, AwaitingPrisma, AwaitingPostCheckin, AwaitingAfterPlan:
		return Awaiting{Kind: kind}, nil
	default:
		return Awaiting{}, fmt.Errorf("unknown awaiting state %q", s)
	}
}

// MarshalJSON encodes the idle state as null and everything else as its wire string.
func (a Awaiting) MarshalJSON() ([]byte, error) {
	if a.IsIdle() {
		return []byte("null"), nil
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts null or a wire string.
func (a *Awaiting) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Idle()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal awaiting state: %w", err)
	}
	parsed, err := ParseAwaiting(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
