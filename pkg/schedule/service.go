// Package schedule runs the periodic memory lifecycle jobs (session
// ingest, weekly consolidation, pruning, re-indexing) on cron
// expressions.
package schedule

import (
	"fmt"
	"time"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled lifecycle task.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Spec is a standard cron expression, e.g. "0 3 * * 0".
	Spec string

	// Run executes the job. Errors are logged, never fatal: one failed
	// run must not stop the schedule.
	Run func() error
}

// Service owns the cron scheduler.
type Service struct {
	cron   *rcron.Cron
	logger *zap.Logger
}

// NewService creates an empty scheduler.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cron: rcron.New(), logger: logger}
}

// Add registers a job. Invalid cron expressions are rejected here so a
// bad config fails at startup, not at first tick.
func (s *Service) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("schedule: job %s has no run function", job.Name)
	}
	_, err := s.cron.AddFunc(job.Spec, func() {
		start := time.Now()
		if err := job.Run(); err != nil {
			s.logger.Error("scheduled job failed",
				zap.String("job", job.Name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job completed",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule: add job %s: %w", job.Name, err)
	}
	return nil
}

// Start begins running jobs in the background.
func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
