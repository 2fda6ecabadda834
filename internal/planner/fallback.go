package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/frailty"
	"github.com/BTreeMap/LiveWell/internal/models"
)

// Fallback bounds and defaults.
const (
	DefaultMood   = "okay"
	DefaultEnergy = 5
	MaxSteps      = 100000

	minWalkTarget = 1000
	maxWalkTarget = 8000
	minReps       = 4
	maxReps       = 14
	minBalanceSec = 8
	maxBalanceSec = 30

	variantCount = 3
)

const hydrate = "Drink a glass of water (250 ml)"

var (
	breathers = [variantCount]string{
		"Box breathing 4-4-4-4 (5-7 min)",
		"4-7-8 breathing (5-7 min)",
		"Pursed-lip breathing (5 min)",
	}
	mobilitySnacks = [variantCount]string{
		"Shoulder rolls and ankle circles (2 min)",
		"Neck turns and gentle hip circles (2 min)",
		"Seated cat-cow and wrist circles (2 min)",
	}
	eveningWinddowns = [variantCount]string{
		"Gentle stretches: hamstrings, hip flexors, chest (5 min)",
		"Progressive muscle relaxation (5-7 min)",
		"Guided mindfulness or relaxing audio (10 min)",
	}
	safetyNotes = []string{
		"Safety: stop if pain or dizziness; keep a chair or rail nearby.",
		"If any new symptoms, consult a clinician.",
	}
)

// facts are the slot values with fallback defaults applied.
type facts struct {
	mood   string
	energy int
	steps  int
}

func readFacts(slots models.Slots) facts {
	f := facts{mood: DefaultMood, energy: DefaultEnergy}
	if slots.Mood != nil {
		if m := strings.ToLower(strings.TrimSpace(*slots.Mood)); m != "" {
			f.mood = m
		}
	}
	if slots.Energy != nil {
		f.energy = clamp(*slots.Energy, 0, 10)
	}
	if slots.Steps != nil {
		f.steps = clamp(*slots.Steps, 0, MaxSteps)
	}
	return f
}

// Fallback builds the rules-based plan. It is pure: the same slots, score and
// seed always produce the same plan.
func Fallback(slots models.Slots, score *int, seed int) models.Plan {
	risk := frailty.BandFor(score)
	f := readFacts(slots)
	variant := Variant(seed)

	target := WalkTarget(f.steps, f.energy, risk)
	toGo := max(0, target-f.steps)
	reps := StrengthReps(f.energy, risk)
	hold := BalanceSeconds(f.energy, risk)

	moves := [variantCount]string{
		fmt.Sprintf("Gentle walk: target ~%d steps", toGo),
		fmt.Sprintf("Hallway laps: aim ~%d easy passes", max(6, toGo/150)),
		fmt.Sprintf("Out-and-back stroll: reach ~%d more steps", toGo),
	}
	strength := [variantCount][]string{
		{fmt.Sprintf("Chair sit-to-stands x%d", reps), fmt.Sprintf("Calf raises x%d", reps)},
		{fmt.Sprintf("Wall push-ups x%d", reps), fmt.Sprintf("Counter rows or band pulls x%d", reps)},
		{fmt.Sprintf("Step-ups to a low step x%d", reps), "Heel-to-toe walk 2x20 steps"},
	}

	afternoon := append([]string{}, strength[variant]...)
	afternoon = append(afternoon,
		fmt.Sprintf("Balance hold near support: %ds/side", hold),
		mobilitySnacks[variant],
		hydrate,
	)

	notes := []string{
		fmt.Sprintf("Mood: %s", f.mood),
		fmt.Sprintf("Energy: %d/10", f.energy),
		fmt.Sprintf("Steps so far: %d", f.steps),
		fmt.Sprintf("Frailty risk (PRISMA-7): %s", risk),
	}
	notes = append(notes, safetyNotes...)

	return models.Plan{
		Risk:      risk,
		Morning:   []string{breathers[variant], moves[variant], hydrate},
		Afternoon: afternoon,
		Evening:   []string{eveningWinddowns[variant], "Optional: 1-line gratitude note"},
		Notes:     notes,
	}
}

// Variant selects one of the three phrasing sets. Negative seeds are folded
// into range.
func Variant(seed int) int {
	v := seed % variantCount
	if v < 0 {
		v += variantCount
	}
	return v
}

// WalkTarget is the absolute step goal for the day.
func WalkTarget(steps, energy int, risk frailty.Band) int {
	var bump int
	switch {
	case energy <= 3:
		bump = 300
	case energy >= 8:
		bump = 1500
	default:
		bump = 800
	}
	if risk == frailty.BandHigh {
		bump = bump * 6 / 10
	}
	return clamp(steps+bump, minWalkTarget, maxWalkTarget)
}

// StrengthReps scales the per-exercise repetitions by risk and energy.
// Half-way adjustments round to even.
func StrengthReps(energy int, risk frailty.Band) int {
	base := 8
	switch risk {
	case frailty.BandHigh:
		base = 6
	case frailty.BandLow:
		base = 10
	}
	adj := int(math.RoundToEven(float64(energy-DefaultEnergy) / 2))
	return clamp(base+adj, minReps, maxReps)
}

// BalanceSeconds scales the balance hold by risk and energy.
func BalanceSeconds(energy int, risk frailty.Band) int {
	base := 15
	switch risk {
	case frailty.BandHigh:
		base = 10
	case frailty.BandLow:
		base = 20
	}
	return clamp(base+energy-DefaultEnergy, minBalanceSec, maxBalanceSec)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
