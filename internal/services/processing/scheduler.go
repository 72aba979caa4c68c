package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
)

// Scheduler periodically retries documents whose ingestion failed or
// stalled. One catch-up run executes at a time; a cycle that fires while
// the previous one is still working is skipped.
type Scheduler struct {
	documents interfaces.DocumentService
	config    *common.ProcessingConfig
	cron      *cron.Cron
	logger    arbor.ILogger

	mu           sync.Mutex
	isProcessing bool
	running      bool
	lastRun      *time.Time
	lastError    string
}

// NewScheduler creates the catch-up scheduler
func NewScheduler(documents interfaces.DocumentService, config *common.ProcessingConfig, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		documents: documents,
		config:    config,
		cron:      cron.New(cron.WithSeconds()),
		logger:    logger,
	}
}

// Start begins the scheduler using the configured cron expression
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "0 */10 * * * *" // Every 10 minutes
	}

	if _, err := s.cron.AddFunc(schedule, s.runCatchUp); err != nil {
		return fmt.Errorf("failed to add catch-up job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Int("limit", s.config.Limit).
		Msg("Document catch-up scheduler started")
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Document catch-up scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerNow runs the catch-up pass immediately in the background.
func (s *Scheduler) TriggerNow() {
	s.logger.Info().Msg("Manual catch-up run requested")
	go s.runCatchUp()
}

// Status reports the last run time and error of the catch-up job.
func (s *Scheduler) Status() (lastRun *time.Time, lastError string, processing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastError, s.isProcessing
}

func (s *Scheduler) runCatchUp() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in catch-up run")
		}
	}()

	s.mu.Lock()
	if s.isProcessing {
		s.logger.Debug().Msg("Catch-up run already in progress, skipping cycle")
		s.mu.Unlock()
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	started := time.Now()
	processed, err := s.documents.ProcessPending(context.Background(), s.config.Limit)

	s.mu.Lock()
	now := time.Now()
	s.lastRun = &now
	s.isProcessing = false
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("Catch-up run failed")
		return
	}
	if processed > 0 {
		s.logger.Info().
			Int("processed", processed).
			Dur("duration", time.Since(started)).
			Msg("Catch-up run completed")
	}
}
