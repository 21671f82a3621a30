package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/database"
)

// backupTimeout bounds one scheduled backup run
const backupTimeout = 10 * time.Minute

// BackupJob runs the backup service on a schedule
type BackupJob struct {
	service *BackupService
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	return j.service.Run(ctx)
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}

// MaintenanceJob checks database integrity and truncates the WAL of every database
type MaintenanceJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(databases []*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Run executes the maintenance job.
// A failed integrity check fails the job; a failed checkpoint is only logged.
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("CRITICAL: Database integrity check failed")
			return fmt.Errorf("integrity check of %s failed: %w", db.Name(), err)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}

		if stats, err := db.GetStats(); err == nil {
			j.log.Info().
				Str("database", db.Name()).
				Int64("size_bytes", stats.SizeBytes).
				Int64("wal_size_bytes", stats.WALSizeBytes).
				Int64("freelist_count", stats.FreelistCount).
				Msg("Database metrics")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}
