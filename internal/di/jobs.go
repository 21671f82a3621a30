package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/reliability"
	"github.com/aristath/papertrade/internal/scheduler"
)

// Job schedules
const (
	ClientDataCleanupSchedule = "@every 15m"
	MaintenanceSchedule       = "0 3 * * *"
)

// RegisterJobs creates the background jobs and, when sched is not nil, schedules them
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		ClientDataCleanup: clientdata.NewCleanupJob(container.ClientDataRepo, log),
		Maintenance:       reliability.NewMaintenanceJob([]*database.DB{container.LedgerDB, container.CacheDB}, log),
	}
	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, log)
	}

	if sched == nil {
		return jobs, nil
	}

	if err := sched.AddJob(ClientDataCleanupSchedule, jobs.ClientDataCleanup); err != nil {
		return nil, err
	}
	if err := sched.AddJob(MaintenanceSchedule, jobs.Maintenance); err != nil {
		return nil, err
	}
	if jobs.Backup != nil {
		if err := sched.AddJob(cfg.Backup.Schedule, jobs.Backup); err != nil {
			return nil, err
		}
	}

	return jobs, nil
}
