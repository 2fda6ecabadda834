package frailty

import (
	"testing"
)

// allAnswers builds a complete answer set with every key set to v, except
// someone_close which is set to support.
func allAnswers(v, support bool) map[string]bool {
	answers := make(map[string]bool)
	for _, k := range Keys() {
		answers[k] = v
	}
	answers["someone_close"] = support
	return answers
}

func TestScore_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]bool
		want    int
	}{
		{"all no with support", allAnswers(false, true), 0},
		{"all no without support", allAnswers(false, false), 1},
		{"all yes with support", allAnswers(true, true), 6},
		{"all yes without support", allAnswers(true, false), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Score(tt.answers)
			if !ok {
				t.Fatal("expected complete answers to score")
			}
			if got != tt.want {
				t.Errorf("expected score %d, got %d", tt.want, got)
			}
		})
	}
}

func TestScore_ReverseCodedFlip(t *testing.T) {
	// Enumerate every combination of the 7 answers.
	keys := Keys()
	for mask := 0; mask < 1<<len(keys); mask++ {
		answers := make(map[string]bool)
		for i, k := range keys {
			answers[k] = mask&(1<<i) != 0
		}
		base, ok := Score(answers)
		if !ok || base < 0 || base > MaxScore {
			t.Fatalf("mask %b: score %d ok=%v out of range", mask, base, ok)
		}

		// Flipping a normal key from no to yes adds a point.
		if !answers["over_85"] {
			answers["over_85"] = true
			got, _ := Score(answers)
			if got != base+1 {
				t.Errorf("mask %b: flipping over_85 to yes: expected %d, got %d", mask, base+1, got)
			}
			answers["over_85"] = false
		}

		// Flipping the reverse-coded key from no to yes removes a point.
		if !answers["someone_close"] {
			answers["someone_close"] = true
			got, _ := Score(answers)
			if got != base-1 {
				t.Errorf("mask %b: flipping someone_close to yes: expected %d, got %d", mask, base-1, got)
			}
		}
	}
}

func TestScore_Incomplete(t *testing.T) {
	for _, k := range Keys() {
		answers := allAnswers(true, true)
		delete(answers, k)
		if _, ok := Score(answers); ok {
			t.Errorf("expected incomplete when %s is missing", k)
		}
	}

	if _, ok := Score(map[string]bool{}); ok {
		t.Error("expected incomplete for empty answers")
	}
}

func TestScore_LooseValues(t *testing.T) {
	answers := map[string]any{
		"over_85":             "YES",
		"male":                "n",
		"limit_activities":    "true",
		"need_help_regularly": "0",
		"stay_home":           false,
		"someone_close":       "No",
		"use_aid":             1,
	}
	got, ok := Score(answers)
	if !ok {
		t.Fatal("expected loose values to normalize")
	}
	// over_85, limit_activities, use_aid, plus someone_close=no
	if got != 4 {
		t.Errorf("expected score 4, got %d", got)
	}

	answers["male"] = "maybe"
	if _, ok := Score(answers); ok {
		t.Error("expected unparseable value to make the set incomplete")
	}
}

func TestNextUnanswered(t *testing.T) {
	answers := map[string]bool{}
	q, ok := NextUnanswered(answers)
	if !ok || q.Key != "over_85" {
		t.Fatalf("expected over_85 first, got %q ok=%v", q.Key, ok)
	}

	answers["over_85"] = false
	answers["male"] = true
	q, ok = NextUnanswered(answers)
	if !ok || q.Key != "limit_activities" {
		t.Fatalf("expected limit_activities next, got %q ok=%v", q.Key, ok)
	}

	if _, ok := NextUnanswered(allAnswers(false, true)); ok {
		t.Error("expected no unanswered question for a complete set")
	}

	loose := map[string]any{"over_85": "perhaps"}
	q, ok = NextUnanswered(loose)
	if !ok || q.Key != "over_85" {
		t.Errorf("expected unparseable answer to count as unanswered, got %q", q.Key)
	}
}

func TestBandForScore(t *testing.T) {
	tests := []struct {
		score int
		want  Band
	}{
		{0, BandLow}, {2, BandLow}, {3, BandModerate}, {4, BandModerate}, {5, BandHigh}, {7, BandHigh},
	}
	for _, tt := range tests {
		if got := BandForScore(tt.score); got != tt.want {
			t.Errorf("score %d: expected %s, got %s", tt.score, tt.want, got)
		}
	}
	if BandFor(nil) != BandModerate {
		t.Error("expected missing score to map to moderate")
	}
	if IsHighRisk(2) || !IsHighRisk(3) {
		t.Error("expected high-risk threshold at 3")
	}
}

func TestNormalize_Aliases(t *testing.T) {
	raw := map[string]any{
		"over_85":                          false,
		"male":                             false,
		"health_problems_limit_activities": false,
		"need_help_regularly":              false,
		"health_problems_stay_home":        false,
		"count_on_someone_close":           true,
		"use_stick_walker_wheelchair":      false,
		"favourite_colour":                 "blue",
	}
	answers := Normalize(raw)
	if len(answers) != QuestionCount() {
		t.Fatalf("expected %d canonical answers, got %d: %v", QuestionCount(), len(answers), answers)
	}
	score, ok := Score(answers)
	if !ok || score != 0 {
		t.Errorf("expected score 0, got %d ok=%v", score, ok)
	}
}

func TestSetAnswer(t *testing.T) {
	answers := map[string]bool{}
	if SetAnswer(answers, "unknown", true) {
		t.Error("expected unknown key to be ignored")
	}
	if SetAnswer(answers, "male", "dunno") {
		t.Error("expected unparseable value to be ignored")
	}
	if !SetAnswer(answers, "MALE", "y") || !answers["male"] {
		t.Error("expected male=true to be recorded")
	}
}

func TestQuestions_Fixed(t *testing.T) {
	qs := Questions()
	if len(qs) != 7 {
		t.Fatalf("expected 7 questions, got %d", len(qs))
	}
	reversed := 0
	for _, q := range qs {
		if q.Reverse {
			reversed++
			if q.Key != "someone_close" {
				t.Errorf("unexpected reverse-coded key %s", q.Key)
			}
		}
	}
	if reversed != 1 {
		t.Errorf("expected exactly one reverse-coded question, got %d", reversed)
	}

	qs[0].Text = "mutated"
	if q, _ := QuestionAt(0); q.Text == "mutated" {
		t.Error("Questions must return a copy")
	}
}
