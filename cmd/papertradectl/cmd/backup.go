package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/reliability"
)

var errBackupsDisabled = errors.New("backups are not configured (set BACKUP_BUCKET)")

func newBackupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, export and verify ledger backups",
	}

	cmd.AddCommand(
		newBackupRunCmd(opts),
		newBackupListCmd(opts),
		newBackupExportCmd(opts),
		newBackupVerifyCmd(),
	)
	return cmd
}

func newBackupRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Upload a backup to the configured bucket and rotate old ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, container, _, err := opts.open()
			if err != nil {
				return err
			}
			defer container.Close()

			if container.BackupService == nil {
				return errBackupsDisabled
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			if err := container.BackupService.Run(ctx); err != nil {
				return fmt.Errorf("backup: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Backup uploaded")
			return nil
		},
	}
}

func newBackupListCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			_, container, _, err := opts.open()
			if err != nil {
				return err
			}
			defer container.Close()

			if container.BackupService == nil {
				return errBackupsDisabled
			}

			backups, err := container.BackupService.ListBackups(context.Background())
			if err != nil {
				return fmt.Errorf("list backups: %w", err)
			}

			return printOutput(cmd.OutOrStdout(), format, backups, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TIMESTAMP\tSIZE\tKEY")
				for _, b := range backups {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", b.Timestamp.Format(time.RFC3339), b.SizeBytes, b.Key)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func newBackupExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <archive.tar.gz>",
		Short: "Write a backup archive of the ledger to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(archivePath); err == nil {
				return fmt.Errorf("%s already exists", archivePath)
			}

			_, container, _, err := opts.open()
			if err != nil {
				return err
			}
			defer container.Close()

			// A local export needs no object store
			service := reliability.NewBackupService(
				[]*database.DB{container.LedgerDB},
				nil,
				"",
				0,
				filepath.Dir(archivePath),
				nil,
				opts.log,
			)

			metadata, err := service.BuildArchive(context.Background(), archivePath)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d database(s) to %s\n", len(metadata.Databases), archivePath)
			return nil
		},
	}
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive.tar.gz>",
		Short: "Check every database in an archive against its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			metadata, err := reliability.VerifyArchive(f)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Archive OK, created %s\n", metadata.Timestamp.Format(time.RFC3339))
			for _, d := range metadata.Databases {
				fmt.Fprintf(out, "  %s  %d bytes  %s\n", d.Filename, d.SizeBytes, d.Checksum)
			}
			return nil
		},
	}
}
