package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelvault/internal/config"
	"reelvault/internal/deps"
	"reelvault/internal/history"
	"reelvault/internal/jobs"
	"reelvault/internal/logging"
	"reelvault/internal/preflight"
)

const lockFileName = "reelvault.lock"

func lockPath(logDir string) string {
	return filepath.Join(logDir, lockFileName)
}

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the background worker",
		Long: "Runs the worker loop in the foreground: scans the metadata store on an " +
			"interval, queues pending rows, and processes them one at a time until " +
			"interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), ctx)
		},
	}
}

func runDaemon(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock := flock.New(lockPath(cfg.Paths.LogDir))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another reelvault daemon is already running (lock: %s)", lock.Path())
	}
	defer lock.Unlock()

	logPath := filepath.Join(cfg.Paths.LogDir, "reelvault.log")
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ledger, err := history.Open(cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("open history ledger: %w", err)
	}
	defer ledger.Close()

	for _, check := range preflight.Failures(preflight.RunAll(signalCtx, cfg)) {
		logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}
	if missing := deps.MissingRequired(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
		logger.Warn("required tools missing, jobs will fail until installed",
			logging.String("tools", strings.Join(missing, ", ")))
	}

	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		return fmt.Errorf("prepare runtime: %w", err)
	}

	manager := jobs.NewManager(logging.NewComponentLogger(logger, "worker"),
		&historyRecorder{store: ledger},
		time.Duration(cfg.Worker.PollInterval)*time.Second)
	manager.Start(signalCtx)

	logger.Info("daemon started",
		logging.String("log_file", logPath),
		logging.Int("scan_interval_s", cfg.Worker.ScanInterval))

	go scanLoop(signalCtx, cfg, rt, manager, logging.NewComponentLogger(logger, "scanner"))

	<-signalCtx.Done()
	logger.Info("daemon shutting down")
	<-manager.Done()
	return nil
}

// scanLoop polls the metadata store and submits new rows to the worker. Rows
// already carrying the error marker are left for a manual `reelvault scan`;
// the daemon never retries failures on its own.
func scanLoop(ctx context.Context, cfg *config.Config, rt *runtime, manager *jobs.Manager, logger *slog.Logger) {
	interval := time.Duration(cfg.Worker.ScanInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	inflight := newInflightSet()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scanOnce(ctx, rt, manager, inflight, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scanOnce(ctx, rt, manager, inflight, logger)
		}
	}
}

func scanOnce(ctx context.Context, rt *runtime, manager *jobs.Manager, inflight *inflightSet, logger *slog.Logger) {
	markers := rt.store.Markers()
	for _, category := range categoryNames {
		rows, err := rt.store.ListPending(ctx, category)
		if err != nil {
			logger.Warn("scan category",
				logging.String("category", category),
				logging.Error(err))
			continue
		}
		for _, row := range rows {
			if row.Status == markers.Error {
				continue
			}
			key := category + "#" + strconv.Itoa(row.Index)
			if !inflight.claim(key) {
				continue
			}

			run := rt.executor.PipelineFor(ctx, payloadFromRow(category, row))
			id := manager.Submit(
				jobs.Descriptor{Kind: category, Title: row.File},
				func(cb jobs.Callbacks) (map[string]string, error) {
					defer inflight.release(key)
					return run(cb)
				},
			)
			logger.Info("row queued",
				logging.String("job_id", id),
				logging.String("category", category),
				logging.Int("row", row.Index),
				logging.String("file", row.File))
		}
	}
}
