package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/common"
)

// Job is one scheduled unit of work, typically a full scrape run.
type Job func(ctx context.Context) error

// Service re-runs a job on a cron schedule. A tick that fires while the
// previous run is still in progress is skipped.
type Service struct {
	cron         *cron.Cron
	logger       arbor.ILogger
	mu           sync.Mutex // Protects isProcessing, running and completed
	isProcessing bool
	running      bool
	completed    int
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers job under schedule and starts the cron loop. ctx is
// handed to every run.
func (s *Service) Start(ctx context.Context, schedule string, job Job) error {
	if err := common.ValidateSchedule(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.runJob(ctx, job) }); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", schedule).Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a run in progress to return.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Run executes job once immediately, then on every tick of schedule until
// ctx is cancelled.
func (s *Service) Run(ctx context.Context, schedule string, job Job) error {
	if err := s.Start(ctx, schedule, job); err != nil {
		return err
	}
	defer s.Stop()

	s.runJob(ctx, job)
	if next := s.NextRun(); !next.IsZero() && ctx.Err() == nil {
		s.logger.Info().Str("next_run", next.Format(time.RFC3339)).Msg("Waiting for next scheduled run")
	}

	<-ctx.Done()
	return nil
}

// NextRun returns the time of the next scheduled run, zero when stopped.
func (s *Service) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// IsRunning reports whether the cron loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Completed returns the number of runs that have finished.
func (s *Service) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *Service) runJob(ctx context.Context, job Job) {
	// Panic recovery to prevent service crash
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scheduled run")
		}
	}()

	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping this cycle")
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.completed++
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info().Msg("Scheduled run started")
	if err := job(ctx); err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled run failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("Scheduled run completed")
}
