package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/frailty"
	"github.com/BTreeMap/LiveWell/internal/models"
)

var fenceRx = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*(.*?)\\s*```\\s*$")

// Validate parses raw suggester output into a plan. The three day-part lists
// must be present as lists of strings or the whole candidate is rejected.
// Notes default to empty and an absent or unknown risk is derived from score.
func Validate(raw string, score *int) (models.Plan, bool) {
	fields, ok := decodeObject(raw)
	if !ok {
		return models.Plan{}, false
	}

	plan := models.Plan{Risk: frailty.BandFor(score)}
	for _, part := range []struct {
		key string
		dst *[]string
	}{
		{"morning", &plan.Morning},
		{"afternoon", &plan.Afternoon},
		{"evening", &plan.Evening},
	} {
		list, ok := stringList(fields[part.key])
		if !ok {
			return models.Plan{}, false
		}
		*part.dst = list
	}

	if notes, ok := stringList(fields["notes"]); ok {
		plan.Notes = notes
	} else {
		plan.Notes = []string{}
	}

	var risk string
	if r, present := fields["risk"]; present && json.Unmarshal(r, &risk) == nil {
		if band := frailty.Band(risk); frailty.IsValidBand(band) {
			plan.Risk = band
		}
	}
	return plan, true
}

// decodeObject unwraps an optional code fence and decodes a JSON object. If
// the text carries prose around the object, the outermost braces are tried.
func decodeObject(raw string) (map[string]json.RawMessage, bool) {
	text := strings.TrimSpace(raw)
	if m := fenceRx.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err == nil && fields != nil {
		return fields, true
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// stringList decodes a JSON array whose elements are all strings.
func stringList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	if list == nil {
		list = []string{}
	}
	return list, true
}

// appendAutoNotes adds the mood/energy/steps/risk summary lines that are not
// already present verbatim.
func appendAutoNotes(notes []string, slots models.Slots, score *int) []string {
	f := readFacts(slots)
	auto := []string{
		fmt.Sprintf("(auto) Mood: %s", f.mood),
		fmt.Sprintf("(auto) Energy: %d/10", f.energy),
		fmt.Sprintf("(auto) Steps so far: %d", f.steps),
		fmt.Sprintf("(auto) Frailty risk: %s", frailty.BandFor(score)),
	}
	for _, line := range auto {
		if !slices.Contains(notes, line) {
			notes = append(notes, line)
		}
	}
	return notes
}
