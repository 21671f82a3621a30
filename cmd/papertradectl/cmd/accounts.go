package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/papertrade/internal/domain"
)

type accountRow struct {
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Username  string    `json:"username" yaml:"username"`
	Cash      string    `json:"cash" yaml:"cash"`
	ID        int64     `json:"id" yaml:"id"`
}

func newAccountsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Create, list and log out accounts",
	}

	cmd.AddCommand(newAccountsCreateCmd(opts), newAccountsListCmd(opts), newAccountsLogoutCmd(opts))
	return cmd
}

func newAccountsCreateCmd(opts *rootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Register an account funded with the starting cash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, container, _, err := opts.open()
			if err != nil {
				return err
			}
			defer container.Close()

			account, err := container.AccountService.Register(context.Background(), args[0], password, password)
			if err != nil {
				return fmt.Errorf("create account: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created account %d (%s) with %s\n",
				account.ID, account.Username, domain.FormatUSD(account.Cash))
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password for the new account (required)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newAccountsListCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every account with its cash balance",
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

			accounts, err := container.AccountService.List(context.Background())
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}

			rows := make([]accountRow, 0, len(accounts))
			for _, a := range accounts {
				rows = append(rows, accountRow{
					ID:        a.ID,
					Username:  a.Username,
					Cash:      a.Cash.String(),
					CreatedAt: a.CreatedAt,
				})
			}

			return printOutput(cmd.OutOrStdout(), format, rows, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tUSERNAME\tCASH\tCREATED")
				for _, a := range accounts {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
						a.ID, a.Username, domain.FormatUSD(a.Cash), a.CreatedAt.Format(time.RFC3339))
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func newAccountsLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <username>",
		Short: "End every session of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, container, _, err := opts.open()
			if err != nil {
				return err
			}
			defer container.Close()

			ctx := context.Background()
			account, err := container.AccountService.GetByUsername(ctx, args[0])
			if err != nil {
				return fmt.Errorf("find account: %w", err)
			}

			n, err := container.SessionStore.DeleteForAccount(ctx, account.ID)
			if err != nil {
				return fmt.Errorf("end sessions: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Ended %d session(s) of %s\n", n, account.Username)
			return nil
		},
	}
}
