package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"farm-order-mailer/internal/metrics"
	"farm-order-mailer/internal/worker"
)

// Config holds scheduler configuration.
type Config struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// Scheduler drives the email worker on a fixed interval. Each tick runs one
// bounded batch; there is no long-running consumer loop. Manual invocations
// (RunOnce) share the same path as scheduled ones.
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    *Config
	worker    *worker.Worker
	metrics   *metrics.Metrics
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *Config, w *worker.Worker, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		config:  cfg,
		worker:  w,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	// Fresh context in case a previous Stop cancelled the old one
	s.ctx, s.cancel = context.WithCancel(context.Background())

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.processBatch)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	// Cancel context to stop any running operations
	s.cancel()

	s.cron.Remove(s.entryID)
	ctx := s.cron.Stop()

	// Wait for any in-flight batch to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// processBatch runs one worker batch and records metrics for it.
func (s *Scheduler) processBatch() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping batch")
		return
	}
	ctx := s.ctx
	s.mu.RUnlock()

	if _, err := s.Run(ctx); err != nil {
		logrus.Errorf("Email batch failed: %v", err)
	}
}

// Run executes one batch immediately and records its metrics. Used by both
// the cron tick and the manual trigger endpoint so counters are recorded in
// exactly one place.
func (s *Scheduler) Run(ctx context.Context) (worker.Summary, error) {
	start := time.Now()
	summary, err := s.worker.ProcessBatch(ctx)

	if s.metrics != nil {
		s.metrics.BatchDuration.Observe(time.Since(start).Seconds())
		s.metrics.SendSuccesses.Add(float64(summary.Succeeded))
		s.metrics.SendRequeues.Add(float64(summary.Requeued))
		s.metrics.SendFailures.Add(float64(summary.Failed))
		if err == nil {
			s.metrics.QueueLength.Set(float64(summary.QueueLength))
		}
	}
	return summary, err
}

// RunOnce runs one batch outside the schedule (for manual triggering).
func (s *Scheduler) RunOnce(ctx context.Context) (worker.Summary, error) {
	logrus.Info("Running email batch once")
	return s.Run(ctx)
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Prev
}

// Wait waits for any in-flight batch to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
