package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reelvault/internal/logging"
	"reelvault/internal/services"
)

// OutcomeRecorder receives terminal job snapshots for persistence. Recording
// is best-effort; failures are logged and never affect the job.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, snap Snapshot) error
}

// Manager owns the registry and the single worker goroutine.
type Manager struct {
	registry     *registry
	logger       *slog.Logger
	recorder     OutcomeRecorder
	pollInterval time.Duration

	startOnce sync.Once
	done      chan struct{}
}

// NewManager builds a Manager. recorder may be nil.
func NewManager(logger *slog.Logger, recorder OutcomeRecorder, pollInterval time.Duration) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Manager{
		registry:     newRegistry(),
		logger:       logger,
		recorder:     recorder,
		pollInterval: pollInterval,
		done:         make(chan struct{}),
	}
}

// Start launches the worker goroutine. The worker drains the queue one job
// at a time until ctx is cancelled. Start is idempotent.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.workerLoop(ctx)
	})
}

// Done is closed once the worker loop has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) workerLoop(ctx context.Context) {
	defer close(m.done)
	m.logger.Info("worker started")
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		id := m.registry.dequeue()
		if id == "" {
			select {
			case <-ctx.Done():
				m.logger.Info("worker stopping")
				return
			case <-ticker.C:
			}
			continue
		}
		m.runJob(ctx, id)

		select {
		case <-ctx.Done():
			m.logger.Info("worker stopping")
			return
		default:
		}
	}
}

// runJob executes one job with panic containment so a misbehaving pipeline
// never kills the worker loop.
func (m *Manager) runJob(ctx context.Context, id string) {
	rec, ok := m.registry.get(id)
	if !ok {
		return
	}

	m.registry.mu.Lock()
	rec.status = StatusProcessing
	rec.startedAt = time.Now()
	run := rec.run
	m.registry.mu.Unlock()

	jobCtx := services.WithJobID(ctx, rec.id)
	jobCtx = services.WithCategory(jobCtx, rec.kind)
	logger := logging.WithContext(jobCtx, m.logger)

	logger.Info("job started", "title", rec.title)

	cb := Callbacks{
		Progress: func(current, total int) {
			m.registry.mu.Lock()
			defer m.registry.mu.Unlock()
			if total > 0 {
				rec.progress = current * 100 / total
			} else {
				rec.progress = 0
			}
		},
		Log: func(message string) {
			m.appendLog(rec, message)
		},
	}
	cb.Status = func(message string) {
		cb.Log("STATUS: " + message)
	}

	result, err := m.invoke(run, cb)

	m.registry.mu.Lock()
	rec.completedAt = time.Now()
	if err != nil {
		rec.status = StatusFailed
		rec.err = err.Error()
	} else {
		rec.status = StatusCompleted
		rec.result = result
		rec.progress = 100
	}
	snap := rec.snapshot()
	m.registry.mu.Unlock()

	if err != nil {
		m.appendLog(rec, fmt.Sprintf("CRITICAL ERROR: %v", err))
		logger.Error("job failed", logging.Error(err))
	} else {
		logger.Info("job completed", "artifacts", len(result))
	}

	if m.recorder != nil {
		if recordErr := m.recorder.RecordOutcome(jobCtx, snap); recordErr != nil {
			logger.Warn("job outcome not recorded", logging.Error(recordErr))
		}
	}
}

func (m *Manager) invoke(run PipelineFunc, cb Callbacks) (result map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	if run == nil {
		return nil, fmt.Errorf("job has no pipeline function")
	}
	return run(cb)
}

func (m *Manager) appendLog(rec *record, message string) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message)
	m.registry.mu.Lock()
	rec.logs = append(rec.logs, line)
	m.registry.mu.Unlock()
}
