// Package jobs provides the in-memory job registry, its FIFO queue, and the
// single background worker that drains it. One video is processed at a time;
// submissions return immediately with an id callers poll for progress.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a job lifecycle state. Transitions run strictly forward:
// queued, processing, then exactly one of completed or failed.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Descriptor names a piece of work at submission time.
type Descriptor struct {
	Kind  string
	Title string
}

// Callbacks are handed to the pipeline function so it can report back into
// the owning record. All three are safe to call from the worker goroutine
// only.
type Callbacks struct {
	// Progress reports units of work done out of a total. A non-positive
	// total resets progress to zero.
	Progress func(current, total int)
	// Log appends a timestamped line to the job's log buffer.
	Log func(message string)
	// Status logs a high-visibility state change.
	Status func(message string)
}

// PipelineFunc is the unit of work a job runs. On success it returns the
// job's artifact map (artifact kind to final path); an error marks the job
// failed.
type PipelineFunc func(cb Callbacks) (map[string]string, error)

type record struct {
	id          string
	kind        string
	title       string
	run         PipelineFunc
	status      Status
	progress    int
	logs        []string
	result      map[string]string
	err         string
	submittedAt time.Time
	startedAt   time.Time
	completedAt time.Time
}

// Snapshot is a point-in-time copy of a job record. Log lines are copied so
// pollers never observe the worker appending.
type Snapshot struct {
	ID          string
	Kind        string
	Title       string
	Status      Status
	Progress    int
	Logs        []string
	Result      map[string]string
	Error       string
	SubmittedAt time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

func (r *record) snapshot() Snapshot {
	logs := make([]string, len(r.logs))
	copy(logs, r.logs)
	var result map[string]string
	if r.result != nil {
		result = make(map[string]string, len(r.result))
		for kind, path := range r.result {
			result[kind] = path
		}
	}
	return Snapshot{
		ID:          r.id,
		Kind:        r.kind,
		Title:       r.title,
		Status:      r.status,
		Progress:    r.progress,
		Logs:        logs,
		Result:      result,
		Error:       r.err,
		SubmittedAt: r.submittedAt,
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
	}
}

// registry guards the id->record map and the FIFO order.
type registry struct {
	mu      sync.Mutex
	records map[string]*record
	order   []string
	queue   []string
}

func newRegistry() *registry {
	return &registry{records: make(map[string]*record)}
}

func (r *registry) add(rec *record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.id] = rec
	r.order = append(r.order, rec.id)
	r.queue = append(r.queue, rec.id)
}

// dequeue pops the oldest queued id, or "" when the queue is empty.
func (r *registry) dequeue() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return ""
	}
	id := r.queue[0]
	r.queue = r.queue[1:]
	return id
}

func (r *registry) get(id string) (*record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Submit registers a job and queues it for the worker. It never blocks.
func (m *Manager) Submit(desc Descriptor, run PipelineFunc) string {
	rec := &record{
		id:          uuid.NewString(),
		kind:        desc.Kind,
		title:       desc.Title,
		run:         run,
		status:      StatusQueued,
		submittedAt: time.Now(),
	}
	m.registry.add(rec)
	m.logger.Info("job submitted", "job_id", rec.id, "kind", rec.kind, "title", rec.title)
	return rec.id
}

// Get returns a snapshot of one job.
func (m *Manager) Get(id string) (Snapshot, bool) {
	rec, ok := m.registry.get(id)
	if !ok {
		return Snapshot{}, false
	}
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()
	return rec.snapshot(), true
}

// GetAll returns snapshots of every known job in submission order.
func (m *Manager) GetAll() []Snapshot {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()
	out := make([]Snapshot, 0, len(m.registry.order))
	for _, id := range m.registry.order {
		if rec, ok := m.registry.records[id]; ok {
			out = append(out, rec.snapshot())
		}
	}
	return out
}

// ClearTerminal drops completed and failed records from the registry and
// returns how many were removed. Queued and processing jobs are untouched.
func (m *Manager) ClearTerminal() int {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()
	removed := 0
	kept := m.registry.order[:0]
	for _, id := range m.registry.order {
		rec, ok := m.registry.records[id]
		if !ok {
			continue
		}
		if rec.status.Terminal() {
			delete(m.registry.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.registry.order = kept
	return removed
}
