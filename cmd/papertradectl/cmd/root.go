// Package cmd implements the papertradectl commands.
package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/di"
	"github.com/aristath/papertrade/pkg/logger"
)

// rootOptions is shared by every subcommand
type rootOptions struct {
	loadConfig func() (*config.Config, error)
	log        zerolog.Logger
	verbose    bool
}

// NewRootCmd builds the command tree using the environment configuration
func NewRootCmd() *cobra.Command {
	return newRootCmd(config.Load)
}

func newRootCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	opts := &rootOptions{loadConfig: loadConfig, log: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "papertradectl",
		Short: "Administer a papertrade installation",
		Long: `papertradectl works directly on the papertrade databases.

It reads the same environment (and .env file) as the server:
PAPERTRADE_DATA_DIR selects the data directory.

Examples:
  papertradectl migrate
  papertradectl accounts create alice --password 'Secret1'
  papertradectl history alice -o yaml
  papertradectl backup export ./papertrade.tar.gz`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			opts.log = logger.New(logger.Config{
				Level:  level,
				Pretty: true,
				Output: cmd.ErrOrStderr(),
				App:    "papertradectl",
			})
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newAccountsCmd(opts),
		newHistoryCmd(opts),
		newMaintenanceCmd(opts),
		newBackupCmd(opts),
	)

	return cmd
}

// open loads the configuration and wires the container without a scheduler
func (o *rootOptions) open() (*config.Config, *di.Container, *di.JobInstances, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	container, jobs, err := di.Wire(cfg, nil, nil, o.log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open databases: %w", err)
	}

	return cfg, container, jobs, nil
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger and cache schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Wire applies the schemas of both databases
			cfg, container, _, err := opts.open()
			if err != nil {
				return err
			}
			defer container.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Schemas up to date:\n  %s\n  %s\n", cfg.LedgerPath(), cfg.CachePath())
			return nil
		},
	}
}

func newMaintenanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Purge expired sessions and quotes, then check and checkpoint both databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, container, jobs, err := opts.open()
			if err != nil {
				return err
			}
			defer container.Close()

			if err := jobs.ClientDataCleanup.Run(); err != nil {
				return fmt.Errorf("%s: %w", jobs.ClientDataCleanup.Name(), err)
			}
			if err := jobs.Maintenance.Run(); err != nil {
				return fmt.Errorf("%s: %w", jobs.Maintenance.Name(), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Maintenance completed")
			return nil
		},
	}
}
