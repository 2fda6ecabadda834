// Package lexical maps raw user text onto typed facts: yes/no answers,
// integers, mood labels, and the mood/energy/steps slot values.
//
// Everything here is a pure function of its input. Nothing returns an error:
// text that does not parse reports ok == false (or a nil field) so the caller
// can re-prompt.
package lexical

import (
	"regexp"
	"strconv"
	"strings"
)

// Slot value bounds.
const (
	MinEnergy = 0
	MaxEnergy = 10
)

// yesWords and noWords are matched against the whole trimmed answer. "ok" and
// "okay" are deliberately absent so acknowledgements stay neutral.
var (
	yesWords = map[string]bool{
		"y": true, "yes": true, "yeah": true, "yep": true, "true": true,
		"sure": true, "go": true, "start": true, "plan": true,
	}
	noWords = map[string]bool{
		"n": true, "no": true, "nope": true, "false": true,
		"later": true, "not now": true, "skip": true,
	}
)

var (
	yesRx = regexp.MustCompile(`\by(?:es)?\b`)
	noRx  = regexp.MustCompile(`\bno?\b`)

	intRx           = regexp.MustCompile(`[-+]?\d+`)
	thousandsRx     = regexp.MustCompile(`(\d),(\d{3})`)
	tiredRx         = regexp.MustCompile(`\btired+d*\b`)
	fatigueRx       = regexp.MustCompile(`\b(?:fatigued|exhausted|weary|sleepy)\b`)
	lowMoodRx       = regexp.MustCompile(`\b(?:sad|down|low|depressed|blue|stressed|anxious|worried)\b`)
	neutralMoodRx   = regexp.MustCompile(`\b(?:ok(?:ay)?|fine|neutral)\b`)
	positiveMoodRx  = regexp.MustCompile(`\b(?:good|great|happy|well|better)\b`)
	explicitMoodRx  = regexp.MustCompile(`\bmood\b\s*(?:[:=]|is\b)?\s*([a-z]+)`)
	energyRx        = regexp.MustCompile(`\benergy\b\s*(?:[:=]|is\b)?\s*(\d{1,2})`)
	stepsBeforeRx   = regexp.MustCompile(`\bsteps?\s*[:=]?\s*(\d{2,6})\b`)
	stepsAfterRx    = regexp.MustCompile(`\b(\d{2,6})\s*steps?\b`)
	slotKeywordRx   = regexp.MustCompile(`\b(?:mood|energy|steps?)\b`)
	bareNumberRx    = regexp.MustCompile(`^\s*\d{1,6}\s*$`)
	leadingLetterRx = regexp.MustCompile(`[a-z]+`)
)

// Mood labels produced by InferMood.
const (
	MoodTired = "tired"
	MoodLow   = "low"
	MoodOkay  = "okay"
	MoodGood  = "good"
)

// ParseYesNo interprets a yes/no answer. The trimmed text is first matched
// exactly against fixed word sets, then against whole-word y/yes and n/no.
// ok is false when nothing matches; callers must re-prompt rather than
// assume a default.
func ParseYesNo(text string) (answer bool, ok bool) {
	t := strings.Trim(strings.ToLower(strings.TrimSpace(text)), " .!?,")
	if yesWords[t] {
		return true, true
	}
	if noWords[t] {
		return false, true
	}
	if yesRx.MatchString(t) {
		return true, true
	}
	if noRx.MatchString(t) {
		return false, true
	}
	return false, false
}

// ParseFirstInteger returns the first signed integer in text after removing
// thousands separators.
func ParseFirstInteger(text string) (int, bool) {
	m := intRx.FindString(strings.ReplaceAll(text, ",", ""))
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// InferMood applies an ordered heuristic over fixed word families. Tiredness
// is checked before the generic low-mood words.
func InferMood(text string) (string, bool) {
	low := strings.ToLower(text)
	switch {
	case tiredRx.MatchString(low), fatigueRx.MatchString(low):
		return MoodTired, true
	case lowMoodRx.MatchString(low):
		return MoodLow, true
	case neutralMoodRx.MatchString(low):
		return MoodOkay, true
	case positiveMoodRx.MatchString(low):
		return MoodGood, true
	default:
		return "", false
	}
}

// Facts is a partial set of slot values extracted from one message. A nil
// field means the message said nothing about that slot.
type Facts struct {
	Mood   *string
	Energy *int
	Steps  *int
}

// Empty reports whether no slot was extracted.
func (f Facts) Empty() bool {
	return f.Mood == nil && f.Energy == nil && f.Steps == nil
}

// ExtractSlotFacts pulls mood, energy and steps out of free text. An explicit
// "mood: X" wins over the free-text heuristic. Energy is clamped to [0,10].
// Steps are accepted both as "steps 3200" and "3200 steps".
func ExtractSlotFacts(text string) Facts {
	var f Facts
	low := thousandsRx.ReplaceAllString(strings.ToLower(text), "$1$2")

	if m := explicitMoodRx.FindStringSubmatch(low); m != nil && !slotKeywordRx.MatchString(m[1]) {
		mood := m[1]
		f.Mood = &mood
	} else if mood, ok := InferMood(low); ok {
		f.Mood = &mood
	}

	if m := energyRx.FindStringSubmatch(low); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			v = ClampEnergy(v)
			f.Energy = &v
		}
	}

	m := stepsBeforeRx.FindStringSubmatch(low)
	if m == nil {
		m = stepsAfterRx.FindStringSubmatch(low)
	}
	if m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v >= 0 {
			f.Steps = &v
		}
	}
	return f
}

// MentionsSlot reports whether text names one of the slot keywords.
func MentionsSlot(text string) bool {
	return slotKeywordRx.MatchString(strings.ToLower(text))
}

// IsBareNumber reports whether text is nothing but a short number.
func IsBareNumber(text string) bool {
	return bareNumberRx.MatchString(text)
}

// MoodAnswer interprets a direct answer to the mood question: the heuristic
// label if one matches, else the first alphabetic word. ok is false when the
// text contains no letters.
func MoodAnswer(text string) (string, bool) {
	if mood, ok := InferMood(text); ok {
		return mood, true
	}
	word := leadingLetterRx.FindString(strings.ToLower(text))
	if word == "" {
		return "", false
	}
	return word, true
}

// ClampEnergy bounds an energy value to [0,10].
func ClampEnergy(v int) int {
	return clamp(v, MinEnergy, MaxEnergy)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
