// Package scheduler runs LiveWell's periodic maintenance jobs, such as purging
// expired sessions, on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler. Panicking jobs are
// recovered and logged.
func NewScheduler() *Scheduler {
	// Standard 5-field parser plus descriptors such as "@every 10m".
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	logger := slogLogger{}
	c := cron.New(cron.WithParser(parser), cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	if _, err := s.cron.AddFunc(expr, task); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Purger deletes expired sessions from a store.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeTimeout bounds one purge run.
const PurgeTimeout = time.Minute

// SchedulePurge runs p.PurgeExpired every interval.
func SchedulePurge(s *Scheduler, p Purger, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("purge interval must be positive, got %v", interval)
	}
	return s.AddJob("@every "+interval.String(), purgeJob(p))
}

func purgeJob(p Purger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), PurgeTimeout)
		defer cancel()
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			slog.Error("Scheduler purge failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("Scheduler purged expired sessions", "count", n)
		}
	}
}

// slogLogger adapts cron's logger interface to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("Scheduler "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("Scheduler "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
