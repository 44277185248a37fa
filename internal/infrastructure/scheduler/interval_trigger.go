package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// triggerEntry pairs a job type with its tick interval
type triggerEntry struct {
	jobType  JobType
	interval time.Duration
}

// IntervalTrigger submits a maintenance job on a fixed interval per job
// type. A tick that lands while the previous run is still in flight is
// skipped; the next tick picks the work up again.
type IntervalTrigger struct {
	scheduler *Scheduler
	logger    *zap.Logger

	entries []triggerEntry

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(scheduler *Scheduler, logger *zap.Logger) *IntervalTrigger {
	return &IntervalTrigger{
		scheduler: scheduler,
		logger:    logger,
	}
}

// Schedule registers a job type to run on the given interval. Must be
// called before Start. Non-positive intervals are rejected.
func (t *IntervalTrigger) Schedule(jobType JobType, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidConfig
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return errors.New("cannot schedule on a running trigger")
	}
	t.entries = append(t.entries, triggerEntry{jobType: jobType, interval: interval})
	return nil
}

// Start starts one tick loop per scheduled entry
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	entries := t.entries
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	for _, entry := range entries {
		t.wg.Add(1)
		go t.runLoop(ctx, entry)
	}

	t.logger.Info("Interval trigger started", zap.Int("job_types", len(entries)))

	return nil
}

// Stop stops the trigger
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Interval trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop ticks and submits jobs for a single entry
func (t *IntervalTrigger) runLoop(ctx context.Context, entry triggerEntry) {
	defer t.wg.Done()

	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.submit(entry.jobType)
		}
	}
}

// submit schedules one job, tolerating in-flight and shutdown races
func (t *IntervalTrigger) submit(jobType JobType) {
	err := t.scheduler.ScheduleJob(jobType)
	switch {
	case err == nil:
	case errors.Is(err, ErrJobAlreadyQueued):
		t.logger.Debug("Skipping tick, previous run still in flight",
			zap.String("job_type", string(jobType)),
		)
	case errors.Is(err, ErrSchedulerNotRunning):
		// Shutdown race between trigger and scheduler, nothing to do
	default:
		t.logger.Error("Failed to schedule job",
			zap.String("job_type", string(jobType)),
			zap.Error(err),
		)
	}
}
