package lexical

import "testing"

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		in     string
		want   bool
		wantOK bool
	}{
		{"yes", true, true},
		{"  YES  ", true, true},
		{"Yep!", true, true},
		{"sure", true, true},
		{"plan", true, true},
		{"y", true, true},
		{"yes please", true, true},
		{"no", false, true},
		{"Nope.", false, true},
		{"not now", false, true},
		{"later", false, true},
		{"no thanks", false, true},
		{"n", false, true},
		{"ok", false, false},
		{"okay", false, false},
		{"maybe", false, false},
		{"I don't know", false, false},
		{"not sure", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		got, ok := ParseYesNo(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("ParseYesNo(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseFirstInteger(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"3200", 3200, true},
		{"about 3,200 today", 3200, true},
		{"-4", -4, true},
		{"energy 7 of 10", 7, true},
		{"none", 0, false},
		{"", 0, false},
		{"99999999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFirstInteger(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseFirstInteger(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestInferMood(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tired", MoodTired},
		{"tiredd", MoodTired},
		{"so TIREDDD today", MoodTired},
		{"feeling exhausted", MoodTired},
		{"tired and down", MoodTired},
		{"a bit down", MoodLow},
		{"stressed", MoodLow},
		{"ok", MoodOkay},
		{"I'm fine", MoodOkay},
		{"pretty good", MoodGood},
		{"great", MoodGood},
	}
	for _, tt := range tests {
		got, ok := InferMood(tt.in)
		if !ok || got != tt.want {
			t.Errorf("InferMood(%q) = (%q, %v), want %q", tt.in, got, ok, tt.want)
		}
	}

	for _, in := range []string{"", "purple", "3200", "tiresome"} {
		if got, ok := InferMood(in); ok {
			t.Errorf("InferMood(%q) = %q, expected no match", in, got)
		}
	}
}

func TestExtractSlotFacts_StepsBothOrders(t *testing.T) {
	for _, in := range []string{"3200 steps", "steps 3200", "Steps: 3,200", "steps=3200"} {
		f := ExtractSlotFacts(in)
		if f.Steps == nil || *f.Steps != 3200 {
			t.Errorf("ExtractSlotFacts(%q) steps = %v, want 3200", in, f.Steps)
		}
	}
}

func TestExtractSlotFacts_Combined(t *testing.T) {
	f := ExtractSlotFacts("I'm tired, energy 3, steps 1200")
	if f.Mood == nil || *f.Mood != MoodTired {
		t.Errorf("expected mood tired, got %v", f.Mood)
	}
	if f.Energy == nil || *f.Energy != 3 {
		t.Errorf("expected energy 3, got %v", f.Energy)
	}
	if f.Steps == nil || *f.Steps != 1200 {
		t.Errorf("expected steps 1200, got %v", f.Steps)
	}
}

func TestExtractSlotFacts_Mood(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tiredd", MoodTired},
		{"mood: cheerful", "cheerful"},
		{"mood=Grumpy", "grumpy"},
		{"my mood is calm", "calm"},
		{"feeling fine", MoodOkay},
	}
	for _, tt := range tests {
		f := ExtractSlotFacts(tt.in)
		if f.Mood == nil || *f.Mood != tt.want {
			t.Errorf("ExtractSlotFacts(%q) mood = %v, want %q", tt.in, f.Mood, tt.want)
		}
	}
}

func TestExtractSlotFacts_EnergyClamped(t *testing.T) {
	f := ExtractSlotFacts("energy=99")
	if f.Energy == nil || *f.Energy != MaxEnergy {
		t.Errorf("expected energy clamped to %d, got %v", MaxEnergy, f.Energy)
	}
	f = ExtractSlotFacts("energy: 0")
	if f.Energy == nil || *f.Energy != 0 {
		t.Errorf("expected energy 0, got %v", f.Energy)
	}
}

func TestExtractSlotFacts_AbsentKeysStayNil(t *testing.T) {
	f := ExtractSlotFacts("energy 6")
	if f.Mood != nil || f.Steps != nil {
		t.Errorf("expected only energy, got mood=%v steps=%v", f.Mood, f.Steps)
	}
	if !ExtractSlotFacts("hello there").Empty() {
		t.Error("expected no facts from a greeting")
	}
	if !ExtractSlotFacts("").Empty() {
		t.Error("expected no facts from empty text")
	}
}

func TestMoodAnswer(t *testing.T) {
	if got, ok := MoodAnswer("tiredd"); !ok || got != MoodTired {
		t.Errorf("expected tired, got %q", got)
	}
	if got, ok := MoodAnswer("Cheerful today"); !ok || got != "cheerful" {
		t.Errorf("expected cheerful, got %q", got)
	}
	if _, ok := MoodAnswer("   42 "); ok {
		t.Error("expected no mood from digits")
	}
}

func TestMentionsSlotAndBareNumber(t *testing.T) {
	if !MentionsSlot("my Energy is fine") {
		t.Error("expected energy keyword match")
	}
	if MentionsSlot("stepson") {
		t.Error("expected whole-word matching")
	}
	if !IsBareNumber(" 4500 ") || IsBareNumber("4500 steps") {
		t.Error("unexpected bare number detection")
	}
}
