package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestManager(recorder OutcomeRecorder) *Manager {
	return NewManager(nil, recorder, 5*time.Millisecond)
}

func waitForStatus(t *testing.T, m *Manager, id string, want Status) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap, ok := m.Get(id); ok && snap.Status == want {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	snap, _ := m.Get(id)
	t.Fatalf("job %s never reached %s (currently %s)", id, want, snap.Status)
	return Snapshot{}
}

func TestSubmitIsNonBlocking(t *testing.T) {
	m := newTestManager(nil)
	// Worker not started: submission must still return immediately.
	id := m.Submit(Descriptor{Kind: "other", Title: "clip"}, func(cb Callbacks) (map[string]string, error) {
		return nil, nil
	})
	snap, ok := m.Get(id)
	if !ok {
		t.Fatal("submitted job not found")
	}
	if snap.Status != StatusQueued {
		t.Fatalf("status = %s, want queued", snap.Status)
	}
	if snap.SubmittedAt.IsZero() {
		t.Fatal("submitted_at not set")
	}
}

func TestJobsRunOneAtATimeInOrder(t *testing.T) {
	m := newTestManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	var active, peak atomic.Int32
	var mu sync.Mutex
	var order []string

	task := func(name string) PipelineFunc {
		return func(cb Callbacks) (map[string]string, error) {
			now := active.Add(1)
			if now > peak.Load() {
				peak.Store(now)
			}
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			active.Add(-1)
			return map[string]string{"video": name + ".mp4"}, nil
		}
	}

	first := m.Submit(Descriptor{Kind: "other", Title: "first"}, task("first"))
	second := m.Submit(Descriptor{Kind: "other", Title: "second"}, task("second"))
	third := m.Submit(Descriptor{Kind: "other", Title: "third"}, task("third"))

	waitForStatus(t, m, first, StatusCompleted)
	waitForStatus(t, m, second, StatusCompleted)
	waitForStatus(t, m, third, StatusCompleted)

	if got := peak.Load(); got != 1 {
		t.Fatalf("expected at most one active job, peak was %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("jobs ran out of order: %v", order)
	}
}

func TestFailedJobDoesNotStopWorker(t *testing.T) {
	m := newTestManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	failing := m.Submit(Descriptor{Kind: "other", Title: "bad"}, func(cb Callbacks) (map[string]string, error) {
		return nil, errors.New("stage exploded")
	})
	panicking := m.Submit(Descriptor{Kind: "other", Title: "worse"}, func(cb Callbacks) (map[string]string, error) {
		panic("boom")
	})
	healthy := m.Submit(Descriptor{Kind: "other", Title: "good"}, func(cb Callbacks) (map[string]string, error) {
		return map[string]string{"video": "done.mp4"}, nil
	})

	failedSnap := waitForStatus(t, m, failing, StatusFailed)
	if failedSnap.Error != "stage exploded" {
		t.Errorf("error = %q", failedSnap.Error)
	}
	panicSnap := waitForStatus(t, m, panicking, StatusFailed)
	if !strings.Contains(panicSnap.Error, "boom") {
		t.Errorf("panic error = %q", panicSnap.Error)
	}
	healthySnap := waitForStatus(t, m, healthy, StatusCompleted)
	if healthySnap.Result["video"] != "done.mp4" {
		t.Errorf("result = %v", healthySnap.Result)
	}
	if healthySnap.Error != "" {
		t.Errorf("completed job must not carry an error: %q", healthySnap.Error)
	}
	if failedSnap.Result != nil {
		t.Errorf("failed job must not carry a result: %v", failedSnap.Result)
	}
}

func TestCriticalErrorLogged(t *testing.T) {
	m := newTestManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	id := m.Submit(Descriptor{Kind: "other", Title: "bad"}, func(cb Callbacks) (map[string]string, error) {
		return nil, errors.New("disk gone")
	})
	waitForStatus(t, m, id, StatusFailed)

	// The critical log line lands right after the terminal transition.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap, _ := m.Get(id)
		for _, line := range snap.Logs {
			if strings.Contains(line, "CRITICAL ERROR: disk gone") {
				return
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("critical error log line missing")
}

func TestCallbacksUpdateRecord(t *testing.T) {
	m := newTestManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	release := make(chan struct{})
	id := m.Submit(Descriptor{Kind: "other", Title: "clip"}, func(cb Callbacks) (map[string]string, error) {
		cb.Log("working")
		cb.Status("extracting audio")
		cb.Progress(1, 4)
		<-release
		return map[string]string{"video": "clip.mp4"}, nil
	})

	var snap Snapshot
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, _ = m.Get(id)
		if snap.Progress == 25 && len(snap.Logs) >= 2 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	close(release)

	if snap.Progress != 25 {
		t.Fatalf("progress = %d, want 25", snap.Progress)
	}
	if !strings.Contains(snap.Logs[1], "STATUS: extracting audio") {
		t.Fatalf("status log missing: %v", snap.Logs)
	}

	final := waitForStatus(t, m, id, StatusCompleted)
	if final.Progress != 100 {
		t.Fatalf("terminal progress = %d, want 100", final.Progress)
	}
}

type captureRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (c *captureRecorder) RecordOutcome(_ context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, snap)
	return nil
}

func TestTerminalOutcomesRecorded(t *testing.T) {
	rec := &captureRecorder{}
	m := newTestManager(rec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	id := m.Submit(Descriptor{Kind: "testimony", Title: "clip"}, func(cb Callbacks) (map[string]string, error) {
		return map[string]string{"video": "archived.mp4"}, nil
	})
	waitForStatus(t, m, id, StatusCompleted)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rec.mu.Lock()
		n := len(rec.snaps)
		rec.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.snaps) != 1 || rec.snaps[0].ID != id || rec.snaps[0].Result["video"] != "archived.mp4" {
		t.Fatalf("unexpected recorded outcomes %+v", rec.snaps)
	}
}

func TestClearTerminal(t *testing.T) {
	m := newTestManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	done := m.Submit(Descriptor{Kind: "other", Title: "done"}, func(cb Callbacks) (map[string]string, error) {
		return nil, nil
	})
	waitForStatus(t, m, done, StatusCompleted)

	blocked := make(chan struct{})
	running := m.Submit(Descriptor{Kind: "other", Title: "running"}, func(cb Callbacks) (map[string]string, error) {
		<-blocked
		return nil, nil
	})
	waitForStatus(t, m, running, StatusProcessing)

	if removed := m.ClearTerminal(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := m.Get(done); ok {
		t.Fatal("terminal job should be gone")
	}
	if _, ok := m.Get(running); !ok {
		t.Fatal("active job must survive ClearTerminal")
	}
	close(blocked)
	waitForStatus(t, m, running, StatusCompleted)
}

type capturedRecord struct {
	msg   string
	attrs map[string]string
}

type logSink struct {
	mu      sync.Mutex
	records []capturedRecord
}

func (s *logSink) find(msg string) (capturedRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.msg == msg {
			return rec, true
		}
	}
	return capturedRecord{}, false
}

// captureHandler collects records with their accumulated attrs so tests can
// assert on structured fields.
type captureHandler struct {
	sink  *logSink
	attrs []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]string)
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.records = append(h.sink.records, capturedRecord{msg: r.Message, attrs: attrs})
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &captureHandler{sink: h.sink, attrs: merged}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestJobLogsCarryContextFields(t *testing.T) {
	sink := &logSink{}
	m := NewManager(slog.New(&captureHandler{sink: sink}), nil, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	id := m.Submit(Descriptor{Kind: "testimony", Title: "clip"}, func(cb Callbacks) (map[string]string, error) {
		return map[string]string{"video": "clip.mp4"}, nil
	})
	waitForStatus(t, m, id, StatusCompleted)

	deadline := time.Now().Add(time.Second)
	var started, completed capturedRecord
	var ok bool
	for time.Now().Before(deadline) {
		if started, ok = sink.find("job started"); ok {
			if completed, ok = sink.find("job completed"); ok {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !ok {
		t.Fatal("job lifecycle log records missing")
	}
	if started.attrs["job_id"] != id {
		t.Errorf("job started job_id = %q, want %q", started.attrs["job_id"], id)
	}
	if started.attrs["category"] != "testimony" {
		t.Errorf("job started category = %q", started.attrs["category"])
	}
	if completed.attrs["job_id"] != id {
		t.Errorf("job completed job_id = %q, want %q", completed.attrs["job_id"], id)
	}
}

func TestWorkerStopsOnCancel(t *testing.T) {
	m := newTestManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
