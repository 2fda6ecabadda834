package flow

import "github.com/BTreeMap/LiveWell/internal/models"

// User-facing reply texts.
const (
	replyGreet          = "Hi! Want to do your daily check-in now? It is 7 quick yes/no questions and takes about a minute."
	replyWelcome        = "Hi! Ready for your daily check-in? It's 7 quick yes/no questions and takes about a minute. Say \"yes\" to begin, or share your mood/energy/steps."
	replyConfirmDecline = "No worries. You can say \"daily check-in\" anytime. If you like, tell me your mood, energy (0-10), or steps so far."
	replyConfirmReask   = "Would you like to start your daily check-in now? (yes/no)"

	replyWizardFirstFmt = "Great - daily check-in Q1: %s"
	replyWizardNextFmt  = "Q%d: %s"
	replyWizardDoneFmt  = "All done - your daily check-in score is %d (%s risk). Would you like me to draft a quick plan for today, or would you prefer to log mood, energy, or steps first?"

	replyPostCheckinMenu    = "I can draft a quick plan (say yes), or we can log mood, energy (0-10), or steps. What would you like?"
	replyPostCheckinAck     = "Want me to put together a quick plan now (yes/no), or shall we log mood, energy, or steps?"
	replyPostCheckinDecline = "No problem. Tell me your mood, energy (0-10), or steps whenever you like, or say \"plan\" when you're ready."

	replyAfterPlanAck  = "Want tweaks (say easier/harder/swap), a pep talk (motivate), or log mood/energy/steps?"
	replyAfterPlanMenu = "Say easier/harder/swap, motivate, or log mood/energy/steps."

	replyPlanSuffix = "\n\nWant tweaks (easier/harder/swap), a pep talk (motivate), or log mood/energy/steps?"
	replyNoPlan     = "I can draft a quick plan for today or start your daily check-in. What would you like?"
)

// slotQuestions asks for a slot the first time.
var slotQuestions = map[models.SlotName]string{
	models.SlotMood:   "How's your mood today (e.g., good/okay/low)?",
	models.SlotEnergy: "What's your energy level 0-10?",
	models.SlotSteps:  "How many steps have you taken so far today?",
}

// slotFollowUps asks for the next slot after an answer was collected.
var slotFollowUps = map[models.SlotName]string{
	models.SlotMood:   "Got it. What's your mood today?",
	models.SlotEnergy: "Thanks. What's your energy level 0-10?",
	models.SlotSteps:  "Thanks. How many steps have you taken so far today?",
}
