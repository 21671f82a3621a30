package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/scheduler"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize services
// 4. Register jobs
// provider overrides the configured quote provider (nil in production).
// sched may be nil when jobs are only run on demand, as the CLI does.
func Wire(cfg *config.Config, provider domain.QuoteProvider, sched *scheduler.Scheduler, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	InitializeRepositories(container, log)

	if err := InitializeServices(container, cfg, provider, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := RegisterJobs(container, cfg, sched, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}
