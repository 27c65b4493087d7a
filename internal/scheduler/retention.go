package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// runTimeout bounds a single purge
const runTimeout = 5 * time.Minute

// RunPurger deletes stored runs older than a maximum age
type RunPurger interface {
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

// RetentionJob removes runs that fall outside the retention window
type RetentionJob struct {
	purger RunPurger
	maxAge time.Duration
	log    zerolog.Logger
}

// NewRetentionJob creates a retention job. A zero maxAge makes Run a no-op.
func NewRetentionJob(purger RunPurger, maxAge time.Duration) *RetentionJob {
	return &RetentionJob{
		purger: purger,
		maxAge: maxAge,
		log:    zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *RetentionJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "purge_old_runs"
}

// Run executes the retention job
func (j *RetentionJob) Run() error {
	if j.maxAge <= 0 {
		j.log.Debug().Msg("Retention disabled, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	deleted, err := j.purger.PurgeOlderThan(ctx, j.maxAge)
	if err != nil {
		return fmt.Errorf("failed to purge runs older than %s: %w", j.maxAge, err)
	}

	j.log.Info().
		Int64("deleted", deleted).
		Dur("max_age", j.maxAge).
		Msg("Retention job completed")
	return nil
}
