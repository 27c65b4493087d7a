package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/scheduler"
)

// Maintenance schedules (seconds field first)
const (
	CheckDatabasesSchedule = "0 15 4 * * *"   // Daily at 04:15
	CheckWALSchedule       = "0 */30 * * * *" // Every 30 minutes
)

// RegisterJobs creates the background jobs
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		Retention:      scheduler.NewRetentionJob(container.MashupService, cfg.Retention.MaxAge()),
		CheckDatabases: scheduler.NewCheckDatabasesJob(container.Databases()...),
		CheckWAL:       scheduler.NewCheckWALCheckpointsJob(container.Databases()...),
	}
	instances.Retention.SetLogger(log)
	instances.CheckDatabases.SetLogger(log)
	instances.CheckWAL.SetLogger(log)

	log.Info().Msg("Jobs registered")
	return instances, nil
}

// ScheduleJobs adds the jobs to the scheduler. Retention is skipped when
// RUN_RETENTION_DAYS is 0.
func ScheduleJobs(s *scheduler.Scheduler, jobs *JobInstances, cfg *config.Config) error {
	if cfg.Retention.Days > 0 {
		if err := s.AddJob(cfg.Retention.Schedule, jobs.Retention); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", jobs.Retention.Name(), err)
		}
	}
	if err := s.AddJob(CheckDatabasesSchedule, jobs.CheckDatabases); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", jobs.CheckDatabases.Name(), err)
	}
	if err := s.AddJob(CheckWALSchedule, jobs.CheckWAL); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", jobs.CheckWAL.Name(), err)
	}
	return nil
}
