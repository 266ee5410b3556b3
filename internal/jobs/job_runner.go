package jobs

import (
	"context"
	"time"

	"rentaldesk-bff/internal/config"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/repository"
)

const jobTimeout = 2 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	submissions repository.SubmissionRepository
	config      *config.Config
	now         func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(submissions repository.SubmissionRepository, cfg *config.Config) *JobRunner {
	return &JobRunner{
		submissions: submissions,
		config:      cfg,
		now:         time.Now,
	}
}

// Config returns the configuration the jobs were created with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	jobFunc(ctx)
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ReleaseStaleSubmissions()
	jr.PruneSubmissions()
}
