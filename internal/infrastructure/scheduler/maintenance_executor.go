package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// JobRunner executes one maintenance sweep. The returned summary is a
// short human-readable result recorded on the job, e.g. "sent=3 failed=1".
type JobRunner interface {
	Run(ctx context.Context) (summary string, err error)
}

// JobRunnerFunc adapts a function to the JobRunner interface
type JobRunnerFunc func(ctx context.Context) (string, error)

// Run implements JobRunner
func (f JobRunnerFunc) Run(ctx context.Context) (string, error) {
	return f(ctx)
}

// MaintenanceExecutor dispatches jobs to the runner registered for
// their type. Wiring happens at startup, before the scheduler starts.
type MaintenanceExecutor struct {
	mu      sync.RWMutex
	runners map[JobType]JobRunner
	logger  *zap.Logger
}

// NewMaintenanceExecutor creates a new maintenance executor
func NewMaintenanceExecutor(logger *zap.Logger) *MaintenanceExecutor {
	return &MaintenanceExecutor{
		runners: make(map[JobType]JobRunner),
		logger:  logger,
	}
}

// Register binds a runner to a job type, replacing any previous binding
func (e *MaintenanceExecutor) Register(jobType JobType, runner JobRunner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runners[jobType] = runner
}

// Execute runs the job through its registered runner
func (e *MaintenanceExecutor) Execute(ctx context.Context, job *Job) error {
	e.mu.RLock()
	runner, ok := e.runners[job.Type]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	job.Summary = summary
	return nil
}

var _ JobExecutor = (*MaintenanceExecutor)(nil)
