// Package planner produces the structured daily routine.
//
// A Planner first asks an optional Suggester for a plan. The suggestion is
// used only if it validates; otherwise, and whenever the suggester is absent,
// slow, panics or reports itself unavailable, the deterministic rules-based
// Fallback is returned. Generate never fails.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/LiveWell/internal/models"
)

// DefaultSuggestTimeout bounds a single suggester call.
const DefaultSuggestTimeout = 8 * time.Second

// ErrSuggestionUnavailable marks a suggestion that must not be used.
var ErrSuggestionUnavailable = errors.New("suggestion unavailable")

// Suggestion is the result of asking a Suggester for a plan: either raw text
// expected to hold the plan JSON, or an unavailability reason in Err.
type Suggestion struct {
	Text string
	Err  error
}

// Available reports whether the suggestion carries text worth validating.
func (s Suggestion) Available() bool { return s.Err == nil }

// Suggested wraps raw suggester output.
func Suggested(text string) Suggestion { return Suggestion{Text: text} }

// Unavailable builds a suggestion that the planner will skip. cause may be nil.
func Unavailable(cause error) Suggestion {
	switch {
	case cause == nil:
		return Suggestion{Err: ErrSuggestionUnavailable}
	case errors.Is(cause, ErrSuggestionUnavailable):
		return Suggestion{Err: cause}
	default:
		return Suggestion{Err: fmt.Errorf("%w: %w", ErrSuggestionUnavailable, cause)}
	}
}

// Suggester proposes a plan for the given slots and optional frailty score.
type Suggester interface {
	Suggest(ctx context.Context, slots models.Slots, score *int) Suggestion
}

// SuggesterFunc adapts a function to the Suggester interface.
type SuggesterFunc func(ctx context.Context, slots models.Slots, score *int) Suggestion

// Suggest calls f.
func (f SuggesterFunc) Suggest(ctx context.Context, slots models.Slots, score *int) Suggestion {
	return f(ctx, slots, score)
}

// Opts holds configuration for a Planner.
type Opts struct {
	Suggester Suggester
	Timeout   time.Duration
	Clock     func() time.Time
}

// Option defines a function for configuring a Planner.
type Option func(*Opts)

// WithSuggester sets the optional plan suggester.
func WithSuggester(s Suggester) Option {
	return func(o *Opts) {
		o.Suggester = s
	}
}

// WithTimeout bounds each suggester call.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.Timeout = d
	}
}

// WithClock overrides the clock used to derive the default seed.
func WithClock(clock func() time.Time) Option {
	return func(o *Opts) {
		o.Clock = clock
	}
}

// Planner generates validated plans.
type Planner struct {
	suggester Suggester
	timeout   time.Duration
	clock     func() time.Time
}

// New creates a Planner with the provided options.
func New(opts ...Option) *Planner {
	cfg := Opts{
		Timeout: DefaultSuggestTimeout,
		Clock:   time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSuggestTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Planner{suggester: cfg.Suggester, timeout: cfg.Timeout, clock: cfg.Clock}
}

// GeneratePlan is a one-shot convenience over New(WithSuggester(s)).Generate.
// suggester may be nil.
func GeneratePlan(ctx context.Context, slots models.Slots, score *int, suggester Suggester, seed *int) models.Plan {
	return New(WithSuggester(suggester)).Generate(ctx, slots, score, seed)
}

// Generate returns a plan for slots and the optional frailty score. A nil seed
// falls back to the day-of-year seed.
func (p *Planner) Generate(ctx context.Context, slots models.Slots, score *int, seed *int) models.Plan {
	if p.suggester != nil {
		suggestion := p.suggest(ctx, slots, score)
		if suggestion.Available() {
			if plan, ok := Validate(suggestion.Text, score); ok {
				plan.Notes = appendAutoNotes(plan.Notes, slots, score)
				slog.Debug("Planner.Generate: using suggested plan", "risk", plan.Risk)
				return plan
			}
			slog.Debug("Planner.Generate: suggestion failed validation, using fallback")
		} else {
			slog.Debug("Planner.Generate: suggester unavailable, using fallback", "reason", suggestion.Err)
		}
	}

	s := DaySeed(p.clock())
	if seed != nil {
		s = *seed
	}
	return Fallback(slots, score, s)
}

// suggest invokes the suggester with a deadline and converts panics into an
// unavailable suggestion.
func (p *Planner) suggest(ctx context.Context, slots models.Slots, score *int) Suggestion {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var scoreCopy *int
	if score != nil {
		v := *score
		scoreCopy = &v
	}

	result := make(chan Suggestion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- Unavailable(fmt.Errorf("suggester panicked: %v", r))
			}
		}()
		result <- p.suggester.Suggest(ctx, slots.Clone(), scoreCopy)
	}()

	select {
	case s := <-result:
		return s
	case <-ctx.Done():
		return Unavailable(ctx.Err())
	}
}

// DaySeed derives the default variant seed from the UTC date as YYYYDDD.
func DaySeed(now time.Time) int {
	u := now.UTC()
	return u.Year()*1000 + u.YearDay()
}
