package flow

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/LiveWell/internal/frailty"
	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/planner"
)

var testNow = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(append([]Option{WithClock(fixedClock)}, opts...)...)
}

// turn runs one message the way the service does.
func turn(t *testing.T, e *Engine, s *models.Session, text string) string {
	t.Helper()
	s.Reply = ""
	e.Run(context.Background(), s, text)
	if strings.TrimSpace(s.Reply) == "" {
		t.Fatalf("empty reply for %q (awaiting %s)", text, s.Awaiting)
	}
	return s.Reply
}

var repsRx = regexp.MustCompile(`x(\d+)`)

func afternoonReps(t *testing.T, p *models.Plan) int {
	t.Helper()
	if p == nil || len(p.Afternoon) == 0 {
		t.Fatalf("plan has no afternoon: %+v", p)
	}
	m := repsRx.FindStringSubmatch(p.Afternoon[0])
	if m == nil {
		t.Fatalf("no reps in %q", p.Afternoon[0])
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		awaiting models.Awaiting
		text     string
		want     Label
	}{
		{"confirm wins over keywords", models.Await(models.AwaitingConfirmCheckin), "hello", LabelConfirmCheckin},
		{"wizard", models.Await(models.AwaitingPrisma), "daily check-in", LabelContinuePrisma},
		{"post checkin", models.Await(models.AwaitingPostCheckin), "motivate me", LabelPostCheckin},
		{"after plan", models.Await(models.AwaitingAfterPlan), "hi", LabelAfterPlan},
		{"slot", models.AwaitSlot(models.SlotSteps), "hello", LabelContinueSlot},
		{"check-in trigger", models.Idle(), "Can we do my daily check-in?", LabelStartPrisma},
		{"checkup trigger", models.Idle(), "checkup", LabelStartPrisma},
		{"motivation", models.Idle(), "I need a pep talk", LabelMotivate},
		{"bare motivation", models.Idle(), "motivation", LabelMotivate},
		{"greeting", models.Idle(), "Hey there", LabelGreet},
		{"good morning", models.Idle(), "good morning!", LabelGreet},
		{"empty", models.Idle(), "   ", LabelGreet},
		{"start", models.Idle(), "start", LabelGreet},
		{"slot keyword", models.Idle(), "energy 6", LabelCheckSlots},
		{"bare number", models.Idle(), "3200", LabelCheckSlots},
		{"free text mood", models.Idle(), "feeling tired", LabelCheckSlots},
		{"default", models.Idle(), "what should I do today", LabelComputeAndPlan},
		{"this is not a greeting", models.Idle(), "this", LabelComputeAndPlan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := models.NewSession("s", testNow)
			s.Awaiting = tt.awaiting
			if got := Classify(s, tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("alice", testNow)

	reply := turn(t, e, s, "hello")
	if !s.Awaiting.Is(models.AwaitingConfirmCheckin) || reply != replyGreet {
		t.Fatalf("expected check-in offer, got %q awaiting %s", reply, s.Awaiting)
	}

	reply = turn(t, e, s, "yes")
	if !s.Awaiting.Is(models.AwaitingPrisma) || s.PrismaIndex != 0 {
		t.Fatalf("expected wizard at Q1, got awaiting %s index %d", s.Awaiting, s.PrismaIndex)
	}
	if !strings.HasPrefix(reply, "Great - daily check-in Q1: Are you over 85?") {
		t.Errorf("unexpected Q1 reply %q", reply)
	}

	for i, key := range frailty.Keys() {
		answer := "no"
		if key == "someone_close" {
			answer = "yes"
		}
		reply = turn(t, e, s, answer)
		if i < frailty.QuestionCount()-1 {
			if !strings.HasPrefix(reply, "Q"+strconv.Itoa(i+2)+": ") {
				t.Errorf("expected Q%d, got %q", i+2, reply)
			}
		}
	}
	if s.FrailtyScore == nil || *s.FrailtyScore != 0 {
		t.Fatalf("expected score 0, got %v", s.FrailtyScore)
	}
	if frailty.BandFor(s.FrailtyScore) != frailty.BandLow {
		t.Errorf("expected low band")
	}
	if !s.Awaiting.Is(models.AwaitingPostCheckin) || !strings.Contains(reply, "score is 0 (low risk)") {
		t.Fatalf("unexpected completion: %q awaiting %s", reply, s.Awaiting)
	}

	reply = turn(t, e, s, "I'm tired, energy 3, steps 1200")
	if !s.Awaiting.Is(models.AwaitingAfterPlan) || s.Plan == nil {
		t.Fatalf("expected plan, got %q awaiting %s", reply, s.Awaiting)
	}
	if *s.Slots.Mood != "tired" || *s.Slots.Energy != 3 || *s.Slots.Steps != 1200 {
		t.Errorf("unexpected slots %+v", s.Slots)
	}
	if !strings.HasPrefix(reply, "Here is your plan:\n- Morning: ") || !strings.HasSuffix(reply, replyPlanSuffix) {
		t.Errorf("unexpected plan reply %q", reply)
	}
	lowEnergyReps := afternoonReps(t, s.Plan)

	other := models.NewSession("bob", testNow)
	other.PrismaAnswers = maps7(false)
	other.PrismaAnswers["someone_close"] = true
	turn(t, e, other, "I'm tired, energy 9, steps 1200")
	if other.FrailtyScore == nil || *other.FrailtyScore != 0 {
		t.Fatalf("expected score computed before planning, got %v", other.FrailtyScore)
	}
	if highEnergyReps := afternoonReps(t, other.Plan); lowEnergyReps >= highEnergyReps {
		t.Errorf("expected fewer reps at energy 3 (%d) than at energy 9 (%d)", lowEnergyReps, highEnergyReps)
	}

	seed := *s.PlanSeed
	before := s.Plan.Clone()
	turn(t, e, s, "swap")
	if *s.PlanSeed != seed+1 {
		t.Errorf("expected seed %d, got %d", seed+1, *s.PlanSeed)
	}
	if strings.Join(before.Morning, "|") == strings.Join(s.Plan.Morning, "|") &&
		strings.Join(before.Afternoon, "|") == strings.Join(s.Plan.Afternoon, "|") &&
		strings.Join(before.Evening, "|") == strings.Join(s.Plan.Evening, "|") {
		t.Error("expected swap to change the plan wording")
	}
	if !s.Awaiting.Is(models.AwaitingAfterPlan) {
		t.Errorf("expected after_plan after swap, got %s", s.Awaiting)
	}
}

func maps7(v bool) map[string]bool {
	out := make(map[string]bool)
	for _, k := range frailty.Keys() {
		out[k] = v
	}
	return out
}

func TestEngine_ConfirmationDeclineAndReask(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)
	turn(t, e, s, "hi")

	if reply := turn(t, e, s, "hmm"); reply != replyConfirmReask || !s.Awaiting.Is(models.AwaitingConfirmCheckin) {
		t.Errorf("expected re-ask, got %q awaiting %s", reply, s.Awaiting)
	}
	if reply := turn(t, e, s, "no"); reply != replyConfirmDecline || !s.Awaiting.IsIdle() {
		t.Errorf("expected decline, got %q awaiting %s", reply, s.Awaiting)
	}
}

func TestEngine_WizardReasksUnparseable(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)
	turn(t, e, s, "daily check-in")
	turn(t, e, s, "yes")
	turn(t, e, s, "no")

	reply := turn(t, e, s, "maybe, not sure")
	if s.PrismaIndex != 2 || !s.Awaiting.Is(models.AwaitingPrisma) {
		t.Fatalf("expected cursor to stay at 2, got %d awaiting %s", s.PrismaIndex, s.Awaiting)
	}
	q, _ := frailty.QuestionAt(2)
	if reply != "Q3: "+q.Text {
		t.Errorf("expected Q3 again, got %q", reply)
	}
	if len(s.PrismaAnswers) != 2 || !s.PrismaAnswers["over_85"] || s.PrismaAnswers["male"] {
		t.Errorf("recorded answers changed: %+v", s.PrismaAnswers)
	}
}

func TestEngine_WizardRecoversFromGaps(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)
	s.Awaiting = models.Await(models.AwaitingPrisma)
	s.PrismaAnswers = maps7(false)
	delete(s.PrismaAnswers, "male")
	s.PrismaIndex = 6

	reply := turn(t, e, s, "no")
	if s.PrismaIndex != 1 || reply != "Q2: Are you male? (yes/no)" {
		t.Fatalf("expected to re-ask Q2, got %q index %d", reply, s.PrismaIndex)
	}
	reply = turn(t, e, s, "yes")
	if s.FrailtyScore == nil || *s.FrailtyScore != 2 || !s.Awaiting.Is(models.AwaitingPostCheckin) {
		t.Errorf("expected completion with score 2, got %v (%q)", s.FrailtyScore, reply)
	}
}

func TestEngine_SlotFilling(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)

	if reply := turn(t, e, s, "my mood is good"); reply != slotQuestions[models.SlotEnergy] {
		t.Fatalf("expected energy question, got %q", reply)
	}
	if s.Awaiting != models.AwaitSlot(models.SlotEnergy) {
		t.Fatalf("expected awaiting slot:energy, got %s", s.Awaiting)
	}

	if reply := turn(t, e, s, "lots"); reply != slotFollowUps[models.SlotEnergy] || s.Slots.Energy != nil {
		t.Fatalf("expected energy re-ask, got %q energy=%v", reply, s.Slots.Energy)
	}

	if reply := turn(t, e, s, "12"); reply != slotFollowUps[models.SlotSteps] {
		t.Fatalf("expected steps question, got %q", reply)
	}
	if *s.Slots.Energy != 10 {
		t.Errorf("expected energy clamped to 10, got %d", *s.Slots.Energy)
	}

	if reply := turn(t, e, s, "-40"); reply != slotFollowUps[models.SlotSteps] || s.Slots.Steps != nil {
		t.Fatalf("expected negative steps to be ignored, got %q", reply)
	}

	turn(t, e, s, "about 2,500")
	if s.Slots.Steps == nil || *s.Slots.Steps != 2500 {
		t.Fatalf("expected 2500 steps, got %v", s.Slots.Steps)
	}
	if !s.Awaiting.Is(models.AwaitingAfterPlan) || s.Plan == nil {
		t.Errorf("expected plan once slots are complete, got awaiting %s", s.Awaiting)
	}
}

func TestEngine_SlotAnswerMentioningOtherSlot(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)
	s.Awaiting = models.AwaitSlot(models.SlotEnergy)
	s.Slots.SetMood("okay")

	turn(t, e, s, "I walked 3000 steps")
	if s.Slots.Energy != nil {
		t.Errorf("step count must not be read as energy, got %d", *s.Slots.Energy)
	}
	if s.Slots.Steps == nil || *s.Slots.Steps != 3000 {
		t.Errorf("expected steps merged, got %v", s.Slots.Steps)
	}
	if s.Awaiting != models.AwaitSlot(models.SlotEnergy) {
		t.Errorf("expected energy to be asked again, got %s", s.Awaiting)
	}
}

func TestEngine_AcknowledgementsStayNeutral(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)
	s.Awaiting = models.Await(models.AwaitingPostCheckin)

	for _, ack := range []string{"ok", "Okay", "thanks!", "thank you"} {
		if reply := turn(t, e, s, ack); reply != replyPostCheckinAck {
			t.Errorf("post-checkin %q: got %q", ack, reply)
		}
		if !s.Awaiting.Is(models.AwaitingPostCheckin) || s.Slots.Mood != nil || s.Plan != nil {
			t.Fatalf("acknowledgement changed state: %+v", s)
		}
	}

	turn(t, e, s, "yes")
	if s.Plan == nil || !s.Awaiting.Is(models.AwaitingAfterPlan) {
		t.Fatalf("expected plan on yes, got awaiting %s", s.Awaiting)
	}
	plan := s.Plan.Clone()
	seed := *s.PlanSeed
	if reply := turn(t, e, s, "ok"); reply != replyAfterPlanAck {
		t.Errorf("after-plan ok: got %q", reply)
	}
	if *s.PlanSeed != seed || s.Slots.Mood != nil || strings.Join(plan.Morning, "") != strings.Join(s.Plan.Morning, "") {
		t.Error("acknowledgement after plan must not re-plan")
	}
}

func TestEngine_PostCheckinRoutes(t *testing.T) {
	tests := []struct {
		text     string
		reply    string
		awaiting models.Awaiting
	}{
		{"no", replyPostCheckinDecline, models.Await(models.AwaitingPostCheckin)},
		{"blah blah", replyPostCheckinMenu, models.Await(models.AwaitingPostCheckin)},
		{"feeling good", slotQuestions[models.SlotEnergy], models.AwaitSlot(models.SlotEnergy)},
		{"restart", "Great - daily check-in Q1: Are you over 85? (yes/no)", models.Await(models.AwaitingPrisma)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e := newTestEngine()
			s := models.NewSession("s", testNow)
			s.PrismaAnswers = maps7(true)
			score := 6
			s.FrailtyScore = &score
			s.Awaiting = models.Await(models.AwaitingPostCheckin)
			if reply := turn(t, e, s, tt.text); reply != tt.reply {
				t.Errorf("got reply %q, want %q", reply, tt.reply)
			}
			if s.Awaiting != tt.awaiting {
				t.Errorf("got awaiting %s, want %s", s.Awaiting, tt.awaiting)
			}
		})
	}
}

func TestEngine_RestartClearsScore(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)
	s.PrismaAnswers = maps7(true)
	score := 6
	s.FrailtyScore = &score
	s.PrismaIndex = 7
	s.Awaiting = models.Await(models.AwaitingAfterPlan)

	turn(t, e, s, "let's start over")
	if s.FrailtyScore != nil || len(s.PrismaAnswers) != 0 || s.PrismaIndex != 0 {
		t.Errorf("expected wizard reset, got score=%v answers=%v index=%d", s.FrailtyScore, s.PrismaAnswers, s.PrismaIndex)
	}
	if !s.Awaiting.Is(models.AwaitingPrisma) {
		t.Errorf("expected prisma, got %s", s.Awaiting)
	}
}

func TestEngine_EasierHarder(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)
	turn(t, e, s, "mood okay, energy 3, steps 100")
	reps := afternoonReps(t, s.Plan)

	turn(t, e, s, "make it easier")
	if *s.Slots.Energy != 1 {
		t.Fatalf("expected energy 1, got %d", *s.Slots.Energy)
	}
	if easier := afternoonReps(t, s.Plan); easier > reps {
		t.Errorf("easier plan has more reps: %d > %d", easier, reps)
	}
	turn(t, e, s, "lighter")
	turn(t, e, s, "lighter")
	if *s.Slots.Energy != 0 {
		t.Errorf("expected energy floor 0, got %d", *s.Slots.Energy)
	}

	for range 6 {
		turn(t, e, s, "harder")
	}
	if *s.Slots.Energy != 10 {
		t.Errorf("expected energy cap 10, got %d", *s.Slots.Energy)
	}
	if !s.Awaiting.Is(models.AwaitingAfterPlan) {
		t.Errorf("expected after_plan, got %s", s.Awaiting)
	}
}

func TestEngine_AfterPlanMenuAndMotivate(t *testing.T) {
	e := newTestEngine()
	s := models.NewSession("s", testNow)
	turn(t, e, s, "plan my day")
	if !s.Awaiting.Is(models.AwaitingAfterPlan) {
		t.Fatalf("expected after_plan, got %s", s.Awaiting)
	}
	if reply := turn(t, e, s, "qwerty"); reply != replyAfterPlanMenu {
		t.Errorf("expected menu, got %q", reply)
	}
	reply := turn(t, e, s, "motivate me")
	if !strings.Contains(reply, "Micro-goal:") || !s.Awaiting.Is(models.AwaitingAfterPlan) {
		t.Errorf("expected motivation keeping after_plan, got %q awaiting %s", reply, s.Awaiting)
	}
}

func TestEngine_GarbageAlwaysReplies(t *testing.T) {
	inputs := []string{"", "   ", "?!?!", "\x00\x01", "ñandú", "1234567890123", strings.Repeat("a", 5000)}
	awaitings := []models.Awaiting{
		models.Idle(),
		models.Await(models.AwaitingConfirmCheckin),
		models.Await(models.AwaitingPrisma),
		models.Await(models.AwaitingPostCheckin),
		models.Await(models.AwaitingAfterPlan),
		models.AwaitSlot(models.SlotMood),
		models.AwaitSlot(models.SlotEnergy),
		models.AwaitSlot(models.SlotSteps),
	}
	e := newTestEngine()
	for _, a := range awaitings {
		for _, in := range inputs {
			s := models.NewSession("g", testNow)
			s.Awaiting = a
			turn(t, e, s, in)
		}
	}
}

func TestEngine_UsesSuggesterPlan(t *testing.T) {
	suggester := planner.SuggesterFunc(func(ctx context.Context, slots models.Slots, score *int) planner.Suggestion {
		return planner.Suggested(`{"morning":["Tea on the porch"],"afternoon":["Short walk"],"evening":["Read"],"notes":[]}`)
	})
	e := newTestEngine(WithPlanner(planner.New(planner.WithSuggester(suggester))))
	s := models.NewSession("s", testNow)
	reply := turn(t, e, s, "plan please")
	if !strings.Contains(reply, "- Morning: Tea on the porch\n") {
		t.Errorf("expected suggested plan in reply, got %q", reply)
	}
}

func TestRenderPlan(t *testing.T) {
	p := models.Plan{
		Morning:   []string{"a", "b"},
		Afternoon: []string{"c"},
		Evening:   []string{},
		Notes:     []string{"n"},
	}
	want := "Here is your plan:\n- Morning: a, b\n- Afternoon: c\n- Evening: \nNotes: n"
	if got := RenderPlan(p); got != want {
		t.Errorf("RenderPlan = %q, want %q", got, want)
	}
}

func TestStableSeed(t *testing.T) {
	a := StableSeed("alice", testNow)
	if a != StableSeed("alice", testNow.Add(time.Hour)) {
		t.Error("expected the same seed within a day")
	}
	if a == StableSeed("alice", testNow.AddDate(0, 0, 1)) {
		t.Error("expected the seed to change across days")
	}
	if a == StableSeed("bob", testNow) {
		t.Error("expected different sessions to get different seeds")
	}
	if StableSeed("", testNow) != StableSeed("anon", testNow) {
		t.Error("expected empty id to hash as anon")
	}
	if a < 0 {
		t.Errorf("expected non-negative seed, got %d", a)
	}
}

func TestMotivationMessage(t *testing.T) {
	var tired models.Slots
	tired.SetMood("tired")
	tired.SetEnergy(3)
	tired.SetSteps(1200)
	msg := MotivationMessage(tired, nil)
	lines := strings.Split(msg, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", msg)
	}
	if lines[0] != "Small steps count. Two minutes is enough to start." {
		t.Errorf("unexpected opener %q", lines[0])
	}
	if lines[1] != "Micro-goal: about 500 steps would meet today's gentle target." {
		t.Errorf("unexpected goal %q", lines[1])
	}

	var strong models.Slots
	strong.SetMood("good")
	strong.SetEnergy(8)
	strong.SetSteps(6800)
	high := 6
	msg = MotivationMessage(strong, &high)
	if !strings.HasPrefix(msg, "You got this.") || !strings.Contains(msg, "about 200 steps") {
		t.Errorf("unexpected message %q", msg)
	}

	var zero models.Slots
	zero.SetEnergy(0)
	if msg := MotivationMessage(zero, nil); !strings.HasPrefix(msg, "Small steps count.") {
		t.Errorf("expected energy 0 to be treated as low, got %q", msg)
	}

	if msg := MotivationMessage(models.Slots{}, nil); !strings.Contains(msg, "about 1000 steps") {
		t.Errorf("expected default target, got %q", msg)
	}
}
