// Package frailty implements deterministic PRISMA-7 frailty scoring.
//
// Seven yes/no questions each score one point in the "risk" direction. The
// "someone close" question is reverse-coded: having support lowers risk, so a
// NO answer scores the point. A score is only produced when all seven answers
// are present and normalize to a boolean; otherwise the set is incomplete.
package frailty

import (
	"fmt"
	"strings"
)

// Band is the coarse risk category derived from a PRISMA-7 score.
type Band string

const (
	// BandLow covers scores 0-2.
	BandLow Band = "low"
	// BandModerate covers scores 3-4, and is the default when no score exists.
	BandModerate Band = "moderate"
	// BandHigh covers scores 5-7.
	BandHigh Band = "high"
)

// Scoring thresholds.
const (
	// MaxScore is the highest possible PRISMA-7 score.
	MaxScore = 7
	// HighRiskThreshold is the conventional binary cut-off (score >= 3).
	HighRiskThreshold = 3
	lowBandMax        = 2
	moderateBandMax   = 4
)

// Question is one fixed PRISMA-7 item.
type Question struct {
	Key     string
	Text    string
	Reverse bool // NO scores the risk point instead of YES
}

// questions is the fixed question order. Never mutated at runtime.
var questions = [...]Question{
	{Key: "over_85", Text: "Are you over 85? (yes/no)"},
	{Key: "male", Text: "Are you male? (yes/no)"},
	{Key: "limit_activities", Text: "Do health problems limit your activities? (yes/no)"},
	{Key: "need_help_regularly", Text: "Do you need help on a regular basis? (yes/no)"},
	{Key: "stay_home", Text: "Do health problems force you to stay at home? (yes/no)"},
	{Key: "someone_close", Text: "In case of need, can you count on someone close to you? (yes/no)", Reverse: true},
	{Key: "use_aid", Text: "Do you regularly use a cane, walker, or wheelchair? (yes/no)"},
}

// keyAliases maps the long-form keys accepted by the standalone scoring
// endpoint onto the canonical keys.
var keyAliases = map[string]string{
	"health_problems_limit_activities": "limit_activities",
	"health_problems_stay_home":        "stay_home",
	"count_on_someone_close":           "someone_close",
	"use_stick_walker_wheelchair":      "use_aid",
}

// Questions returns a copy of the fixed question list in order.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions[:])
	return out
}

// QuestionCount is the number of PRISMA-7 items.
func QuestionCount() int { return len(questions) }

// QuestionAt returns the question at index i of the fixed order.
func QuestionAt(i int) (Question, bool) {
	if i < 0 || i >= len(questions) {
		return Question{}, false
	}
	return questions[i], true
}

// Keys returns the canonical answer keys in question order.
func Keys() []string {
	keys := make([]string, len(questions))
	for i, q := range questions {
		keys[i] = q.Key
	}
	return keys
}

// IsKey reports whether key is a canonical PRISMA-7 key.
func IsKey(key string) bool {
	for _, q := range questions {
		if q.Key == key {
			return true
		}
	}
	return false
}

// CanonicalKey maps an accepted alias to its canonical key. Unknown keys are
// returned lowercased and trimmed.
func CanonicalKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if canon, ok := keyAliases[k]; ok {
		return canon
	}
	return k
}

// NormalizeBool accepts bools and the strings y/yes/true/1 and n/no/false/0
// (case-insensitive). The second return is false when v cannot be parsed.
func NormalizeBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case *bool:
		if t == nil {
			return false, false
		}
		return *t, true
	case nil:
		return false, false
	case int:
		return normalizeString(fmt.Sprint(t))
	case float64:
		return normalizeString(fmt.Sprint(t))
	case string:
		return normalizeString(t)
	default:
		return normalizeString(fmt.Sprint(t))
	}
}

func normalizeString(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true, true
	case "n", "no", "false", "0":
		return false, true
	default:
		return false, false
	}
}

// Score computes the PRISMA-7 score. ok is false when any of the seven keys is
// missing or does not normalize to a boolean; no partial score is guessed.
func Score[V any](answers map[string]V) (score int, ok bool) {
	for _, q := range questions {
		raw, present := answers[q.Key]
		if !present {
			return 0, false
		}
		v, valid := NormalizeBool(raw)
		if !valid {
			return 0, false
		}
		if v != q.Reverse {
			score++
		}
	}
	return score, true
}

// Missing returns the canonical keys lacking a normalizable answer, in order.
func Missing[V any](answers map[string]V) []string {
	var missing []string
	for _, q := range questions {
		raw, present := answers[q.Key]
		if !present {
			missing = append(missing, q.Key)
			continue
		}
		if _, valid := NormalizeBool(raw); !valid {
			missing = append(missing, q.Key)
		}
	}
	return missing
}

// NextUnanswered returns the first question in fixed order without a
// normalizable answer. ok is false when every question is answered.
func NextUnanswered[V any](answers map[string]V) (Question, bool) {
	for _, q := range questions {
		raw, present := answers[q.Key]
		if !present {
			return q, true
		}
		if _, valid := NormalizeBool(raw); !valid {
			return q, true
		}
	}
	return Question{}, false
}

// SetAnswer normalizes value and records it under key. Unknown keys and
// unparseable values are ignored; the return reports whether anything was set.
func SetAnswer(answers map[string]bool, key string, value any) bool {
	key = CanonicalKey(key)
	if !IsKey(key) {
		return false
	}
	v, ok := NormalizeBool(value)
	if !ok {
		return false
	}
	answers[key] = v
	return true
}

// Normalize converts a loosely typed answer set (aliases, strings) into
// canonical boolean answers. Entries that cannot be normalized are dropped.
func Normalize[V any](raw map[string]V) map[string]bool {
	out := make(map[string]bool, len(questions))
	for k, v := range raw {
		SetAnswer(out, k, v)
	}
	return out
}

// BandForScore maps a score onto its risk band.
func BandForScore(score int) Band {
	switch {
	case score <= lowBandMax:
		return BandLow
	case score <= moderateBandMax:
		return BandModerate
	default:
		return BandHigh
	}
}

// BandFor maps an optional score onto its band; a missing score is moderate.
func BandFor(score *int) Band {
	if score == nil {
		return BandModerate
	}
	return BandForScore(*score)
}

// IsHighRisk reports whether score meets the binary high-risk threshold.
func IsHighRisk(score int) bool {
	return score >= HighRiskThreshold
}

// IsValidBand reports whether b is one of the three bands.
func IsValidBand(b Band) bool {
	switch b {
	case BandLow, BandModerate, BandHigh:
		return true
	default:
		return false
	}
}
