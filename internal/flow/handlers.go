package flow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/BTreeMap/LiveWell/internal/frailty"
	"github.com/BTreeMap/LiveWell/internal/lexical"
	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/planner"
)

// handleConfirmation answers the check-in offer: yes starts the wizard, no
// clears the question, anything else re-asks.
func (e *Engine) handleConfirmation(ctx context.Context, s *models.Session, text string) {
	yes, ok := lexical.ParseYesNo(text)
	switch {
	case ok && yes:
		e.startPrisma(s)
	case ok:
		s.Awaiting = models.Idle()
		s.Reply = replyConfirmDecline
	default:
		s.Awaiting = models.Await(models.AwaitingConfirmCheckin)
		s.Reply = replyConfirmReask
	}
}

// startPrisma clears any previous wizard run and asks the first question.
func (e *Engine) startPrisma(s *models.Session) {
	s.ResetWizard()
	q, _ := frailty.QuestionAt(0)
	s.Awaiting = models.Await(models.AwaitingPrisma)
	s.Reply = fmt.Sprintf(replyWizardFirstFmt, q.Text)
	slog.Debug("CheckinEngine wizard started", "sessionID", s.SessionID)
}

// continuePrisma records one yes/no answer. An unparseable answer re-asks the
// same question and leaves the cursor and recorded answers untouched.
func (e *Engine) continuePrisma(s *models.Session, text string) {
	if s.PrismaAnswers == nil {
		s.PrismaAnswers = make(map[string]bool)
	}
	i := s.PrismaIndex
	if q, ok := frailty.QuestionAt(i); ok {
		if yes, parsed := lexical.ParseYesNo(text); parsed {
			s.PrismaAnswers[q.Key] = yes
			i = nextQuestion(s.PrismaAnswers)
		}
	} else {
		// Cursor out of range: resync to the first gap without recording.
		i = nextQuestion(s.PrismaAnswers)
	}
	s.PrismaIndex = i

	if q, ok := frailty.QuestionAt(i); ok {
		s.Awaiting = models.Await(models.AwaitingPrisma)
		s.Reply = fmt.Sprintf(replyWizardNextFmt, i+1, q.Text)
		return
	}

	score, _ := frailty.Score(s.PrismaAnswers)
	if s.FrailtyScore == nil {
		s.FrailtyScore = &score
	}
	s.Awaiting = models.Await(models.AwaitingPostCheckin)
	s.Reply = fmt.Sprintf(replyWizardDoneFmt, *s.FrailtyScore, frailty.BandFor(s.FrailtyScore))
	slog.Info("CheckinEngine wizard complete", "sessionID", s.SessionID, "score", *s.FrailtyScore)
}

// nextQuestion is the index of the first unanswered question, or the question
// count when every answer is recorded.
func nextQuestion(answers map[string]bool) int {
	q, ok := frailty.NextUnanswered(answers)
	if !ok {
		return frailty.QuestionCount()
	}
	return slices.Index(frailty.Keys(), q.Key)
}

// handlePostCheckin routes the turn after the wizard finished.
func (e *Engine) handlePostCheckin(ctx context.Context, s *models.Session, text string) {
	low := normalize(text)
	if isRestart(low) {
		e.startPrisma(s)
		return
	}
	if acknowledgments[low] {
		s.Awaiting = models.Await(models.AwaitingPostCheckin)
		s.Reply = replyPostCheckinAck
		return
	}
	if motivateRx.MatchString(low) {
		e.motivate(s)
		return
	}
	if e.logFacts(ctx, s, low) {
		return
	}
	yes, ok := lexical.ParseYesNo(low)
	if (ok && yes) || planAskRx.MatchString(low) {
		e.computeAndPlan(ctx, s)
		return
	}
	s.Awaiting = models.Await(models.AwaitingPostCheckin)
	if ok {
		s.Reply = replyPostCheckinDecline
		return
	}
	s.Reply = replyPostCheckinMenu
}

// handleAfterPlan handles tweaks and follow-ups once a plan was shown.
func (e *Engine) handleAfterPlan(ctx context.Context, s *models.Session, text string) {
	low := normalize(text)
	switch {
	case isRestart(low):
		e.startPrisma(s)
		return
	case acknowledgments[low]:
		s.Reply = replyAfterPlanAck
		return
	case motivateRx.MatchString(low):
		e.motivate(s)
		return
	case easierRx.MatchString(low):
		s.Slots.SetEnergy(currentEnergy(s.Slots) - 2)
		e.planRoutine(ctx, s)
		return
	case harderRx.MatchString(low):
		s.Slots.SetEnergy(currentEnergy(s.Slots) + 2)
		e.planRoutine(ctx, s)
		return
	case swapRx.MatchString(low):
		seed := StableSeed(s.SessionID, e.clock())
		if s.PlanSeed != nil {
			seed = *s.PlanSeed
		}
		seed++
		s.PlanSeed = &seed
		e.planRoutine(ctx, s)
		return
	}
	if e.logFacts(ctx, s, low) {
		return
	}
	s.Awaiting = models.Await(models.AwaitingAfterPlan)
	s.Reply = replyAfterPlanMenu
}

// logFacts merges any slot facts in text and moves on to slot collection.
// It reports false when text carries no fact.
func (e *Engine) logFacts(ctx context.Context, s *models.Session, low string) bool {
	facts := lexical.ExtractSlotFacts(low)
	if facts.Empty() && !lexical.MentionsSlot(low) && !lexical.IsBareNumber(low) {
		return false
	}
	s.Slots.Merge(facts)
	s.Awaiting = models.Idle()
	e.ensureSlots(ctx, s, false)
	return true
}

// checkSlots is the free-form slot path: extract what the message says, then
// ask for the next missing slot or plan.
func (e *Engine) checkSlots(ctx context.Context, s *models.Session, text string) {
	s.Slots.Merge(lexical.ExtractSlotFacts(text))
	e.ensureSlots(ctx, s, false)
}

// collectSlotAnswer interprets a reply to a slot question. A value that does
// not parse leaves the slot missing so the same question is asked again.
func (e *Engine) collectSlotAnswer(ctx context.Context, s *models.Session, text string) {
	asked := s.Awaiting.Slot
	facts := lexical.ExtractSlotFacts(text)
	s.Slots.Merge(facts)

	if !s.Slots.Has(asked) {
		numeric := facts.Energy == nil && facts.Steps == nil
		switch asked {
		case models.SlotMood:
			if facts.Empty() {
				if mood, ok := lexical.MoodAnswer(text); ok {
					s.Slots.SetMood(mood)
				}
			}
		case models.SlotEnergy:
			if v, ok := lexical.ParseFirstInteger(text); ok && numeric {
				s.Slots.SetEnergy(v)
			}
		case models.SlotSteps:
			if v, ok := lexical.ParseFirstInteger(text); ok && numeric && v >= 0 {
				s.Slots.SetSteps(v)
			}
		}
	}
	if !s.Slots.Has(asked) {
		slog.Debug("CheckinEngine slot answer not understood", "sessionID", s.SessionID, "slot", asked)
	}
	e.ensureSlots(ctx, s, true)
}

// ensureSlots asks for the first missing required slot, or clears the
// question and plans once every slot is known.
func (e *Engine) ensureSlots(ctx context.Context, s *models.Session, followUp bool) {
	if name, missing := s.Slots.FirstMissing(s.Required()); missing {
		s.Awaiting = models.AwaitSlot(name)
		if followUp {
			s.Reply = slotFollowUps[name]
		} else {
			s.Reply = slotQuestions[name]
		}
		return
	}
	s.Awaiting = models.Idle()
	e.computeAndPlan(ctx, s)
}

// computeAndPlan fills in the frailty score when all answers exist, then plans.
func (e *Engine) computeAndPlan(ctx context.Context, s *models.Session) {
	maybeComputeFrailty(s)
	e.planRoutine(ctx, s)
}

func maybeComputeFrailty(s *models.Session) {
	if s.FrailtyScore != nil {
		return
	}
	if score, ok := frailty.Score(s.PrismaAnswers); ok {
		s.FrailtyScore = &score
	}
}

// planRoutine generates the plan and leaves the reply empty so the composer
// renders it.
func (e *Engine) planRoutine(ctx context.Context, s *models.Session) {
	if s.PlanSeed == nil {
		seed := StableSeed(s.SessionID, e.clock())
		s.PlanSeed = &seed
	}
	plan := e.planner.Generate(ctx, s.Slots, s.FrailtyScore, s.PlanSeed)
	s.Plan = &plan
	s.Awaiting = models.Await(models.AwaitingAfterPlan)
	s.Reply = ""
	slog.Debug("CheckinEngine plan generated", "sessionID", s.SessionID, "risk", plan.Risk, "seed", *s.PlanSeed)
}

func isRestart(low string) bool {
	return checkinRx.MatchString(low) || restartRx.MatchString(low)
}

// currentEnergy is the energy slot, or the planner default when unset.
func currentEnergy(slots models.Slots) int {
	if slots.Energy == nil {
		return planner.DefaultEnergy
	}
	return *slots.Energy
}
