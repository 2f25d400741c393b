package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelvault/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent job outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, ctx, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show")

	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func runHistory(cmd *cobra.Command, ctx *commandContext, limit int) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ledger, err := history.Open(cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("open history ledger: %w", err)
	}
	defer ledger.Close()

	entries, err := ledger.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		completed := ""
		if !entry.CompletedAt.IsZero() {
			completed = entry.CompletedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			completed,
			entry.Category,
			entry.SourceFile,
			entry.FinalFile,
			entry.Status,
			entry.ErrorMessage,
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Completed", "Category", "Source", "Final", "Status", "Error"},
		rows,
		nil,
	))
	return nil
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history entries older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ledger, err := history.Open(cfg.Paths.LogDir)
			if err != nil {
				return fmt.Errorf("open history ledger: %w", err)
			}
			defer ledger.Close()

			cutoff := time.Now().AddDate(0, 0, -days)
			removed, err := ledger.Prune(cmd.Context(), cutoff)
			if err != nil {
				return fmt.Errorf("prune history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %d day(s)\n", removed, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "Delete entries older than this many days")
	return cmd
}
