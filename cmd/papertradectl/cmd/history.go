package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/papertrade/internal/domain"
)

type transactionRow struct {
	ExecutedAt time.Time `json:"executed_at" yaml:"executed_at"`
	Ref        string    `json:"ref" yaml:"ref"`
	Operation  string    `json:"operation" yaml:"operation"`
	Symbol     string    `json:"symbol" yaml:"symbol"`
	Price      string    `json:"price" yaml:"price"`
	Value      string    `json:"value" yaml:"value"`
	Shares     int64     `json:"shares" yaml:"shares"`
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history <username>",
		Short: "Show an account's transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}

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

			transactions, err := container.TradingService.History(ctx, account.ID, limit)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}

			rows := make([]transactionRow, 0, len(transactions))
			for _, t := range transactions {
				rows = append(rows, transactionRow{
					ExecutedAt: t.ExecutedAt,
					Ref:        t.Ref,
					Operation:  string(t.Side),
					Symbol:     t.Symbol,
					Price:      t.Price.String(),
					Value:      t.Value().String(),
					Shares:     t.Shares,
				})
			}

			return printOutput(cmd.OutOrStdout(), format, rows, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TRANSACTED\tOPERATION\tSYMBOL\tSHARES\tPRICE\tVALUE")
				for _, t := range transactions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
						t.ExecutedAt.UTC().Format("2006-01-02 15:04:05"), t.Side, t.Symbol, t.Shares,
						domain.FormatUSD(t.Price), domain.FormatUSD(t.Value()))
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n transactions (0 for all)")
	return cmd
}
