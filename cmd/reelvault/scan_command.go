package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelvault/internal/jobs"
	"reelvault/internal/logging"
	"reelvault/internal/pipeline"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [category...]",
		Short: "Process pending rows now",
		Long: "Fetches pending rows from the metadata store and processes them " +
			"synchronously, one after another. Unlike the daemon's periodic scan, " +
			"rows carrying the error marker are retried. With no arguments every " +
			"category is scanned.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, ctx, args)
		},
	}
}

func runScan(cmd *cobra.Command, ctx *commandContext, categories []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		return fmt.Errorf("prepare runtime: %w", err)
	}

	if len(categories) == 0 {
		categories = categoryNames
	}

	out := cmd.OutOrStdout()
	cb := jobs.Callbacks{
		Log:    func(msg string) { fmt.Fprintln(out, msg) },
		Status: func(msg string) { fmt.Fprintln(out, msg) },
	}

	var payloads []pipeline.Payload
	for _, category := range categories {
		rows, err := rt.store.ListPending(cmd.Context(), category)
		if err != nil {
			return fmt.Errorf("list pending rows for %s: %w", category, err)
		}
		for _, row := range rows {
			payloads = append(payloads, payloadFromRow(category, row))
		}
	}

	if len(payloads) == 0 {
		fmt.Fprintln(out, "Nothing to process")
		return nil
	}

	outcomes := rt.executor.ExecuteBatch(cmd.Context(), payloads, cb)

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
		}
	}
	fmt.Fprintf(out, "Processed %d item(s), %d failed\n", len(outcomes), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d item(s) failed", failed, len(outcomes))
	}
	return nil
}
