package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/frailty"
	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/planner"
)

// Micro-goal bounds for the motivation message.
const (
	motivateMinTarget = 1000
	motivateMaxTarget = 7000
)

var lowMoods = map[string]bool{"low": true, "down": true, "tired": true}

// motivate replies with a short pep talk and a gentle walking micro-goal. It
// does not change what the session is waiting for.
func (e *Engine) motivate(s *models.Session) {
	s.Reply = MotivationMessage(s.Slots, s.FrailtyScore)
}

// MotivationMessage builds the pep talk for the given slots and score.
func MotivationMessage(slots models.Slots, score *int) string {
	mood := planner.DefaultMood
	if slots.Mood != nil {
		mood = strings.ToLower(*slots.Mood)
	}
	energy := currentEnergy(slots)
	steps := 0
	if slots.Steps != nil {
		steps = *slots.Steps
	}

	bump := 1000
	if energy < 5 {
		bump = 500
	}
	if frailty.BandFor(score) == frailty.BandHigh {
		bump = 600
		if energy < 5 {
			bump = 300
		}
	}
	target := min(max(steps+bump, motivateMinTarget), motivateMaxTarget)
	toGo := max(0, target-steps)

	opener := "You got this. Small wins add up fast."
	if lowMoods[mood] || energy <= 3 {
		opener = "Small steps count. Two minutes is enough to start."
	}
	return strings.Join([]string{
		opener,
		fmt.Sprintf("Micro-goal: about %d steps would meet today's gentle target.", toGo),
		"Tip: stand, roll shoulders, and walk to the kitchen and back. Then decide the next tiny step.",
		"Hydrate and breathe: 4-4-4-4 for one minute.",
	}, "\n")
}
