package main

import (
	"fmt"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelvault/internal/logging"
	"reelvault/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and pending rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, ctx)
		},
	}
}

func runStatus(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := cmd.OutOrStdout()

	running, err := daemonRunning(cfg.Paths.LogDir)
	if err != nil {
		fmt.Fprintf(out, "Daemon: unknown (%v)\n", err)
	} else if running {
		fmt.Fprintln(out, "Daemon: running")
	} else {
		fmt.Fprintln(out, "Daemon: stopped")
	}

	var checkRows [][]string
	for _, check := range preflight.RunAll(cmd.Context(), cfg) {
		state := "FAIL"
		if check.Passed {
			state = "ok"
		}
		checkRows = append(checkRows, []string{check.Name, state, check.Detail})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Check", "State", "Detail"},
		checkRows,
		nil,
	))

	store := buildStoreClient(cfg, logging.NewNop())
	markers := store.Markers()

	var rows [][]string
	for _, category := range categoryNames {
		pending, err := store.ListPending(cmd.Context(), category)
		if err != nil {
			return fmt.Errorf("list pending rows for %s: %w", category, err)
		}
		for _, row := range pending {
			status := row.Status
			if status == "" {
				status = markers.Pending
			}
			rows = append(rows, []string{
				category,
				strconv.Itoa(row.Index),
				row.Date,
				row.Country,
				row.Name,
				row.File,
				status,
			})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No pending rows")
		return nil
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Category", "Row", "Date", "Country", "Name", "File", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

// daemonRunning probes the daemon lock. A lock we can take means no daemon
// holds it.
func daemonRunning(logDir string) (bool, error) {
	lock := flock.New(lockPath(logDir))
	locked, err := lock.TryLock()
	if err != nil {
		return false, err
	}
	if locked {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}
