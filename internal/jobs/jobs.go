// Package jobs implements the bounded in-process background job map: long-
// running handler work (currently admin.sync) gets
// a jobId and runs off the dispatch goroutine, polled via its status.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrAtCapacity is returned by Start when max concurrent jobs are already
// running; the caller gets FIFO rejection instead of queuing.
var ErrAtCapacity = errors.New("jobs: at capacity")

// ErrNotFound is returned when a jobId has no tracked job.
var ErrNotFound = errors.New("jobs: not found")

// Job is one tracked unit of background work.
type Job struct {
	ID          string     `json:"jobId"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`

	cancel context.CancelFunc
}

// snapshot returns a copy of j safe to hand to a caller (no cancel func).
func (j *Job) snapshot() Job {
	out := *j
	out.cancel = nil
	return out
}

// Manager is the bounded job map: at most maxConcurrent jobs run at once,
// additional Start calls are rejected (not queued) until one finishes.
type Manager struct {
	mu            sync.Mutex
	jobs          map[string]*Job
	maxConcurrent int
	runningCount  int
}

// NewManager returns a Manager allowing at most maxConcurrent running jobs.
func NewManager(maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Manager{jobs: make(map[string]*Job), maxConcurrent: maxConcurrent}
}

// Work is the background function a started job runs. It must honor
// ctx.Done() for Cancel to have any effect.
type Work func(ctx context.Context) (any, error)

// Start launches work as a new job and returns its id immediately. It
// returns ErrAtCapacity without starting anything if maxConcurrent jobs are
// already running.
func (m *Manager) Start(work Work) (string, error) {
	m.mu.Lock()
	if m.runningCount >= m.maxConcurrent {
		m.mu.Unlock()
		return "", ErrAtCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{ID: uuid.NewString(), Status: StatusRunning, StartedAt: time.Now().UTC(), cancel: cancel}
	m.jobs[job.ID] = job
	m.runningCount++
	m.mu.Unlock()

	go m.run(ctx, job, work)

	return job.ID, nil
}

func (m *Manager) run(ctx context.Context, job *Job, work Work) {
	result, err := work(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.jobs[job.ID]
	if !exists {
		return
	}
	if current.Status == StatusCancelled {
		return // cancelled mid-flight: discard whatever work returned
	}
	now := time.Now().UTC()
	current.CompletedAt = &now
	m.runningCount--

	if err != nil {
		current.Status = StatusFailed
		current.Error = err.Error()
		return
	}
	current.Status = StatusCompleted
	current.Progress = 100
	current.Result = result
}

// SetProgress updates a running job's 0-100 progress, for work functions
// that report incremental status.
func (m *Manager) SetProgress(jobID string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Progress = progress
	return nil
}

// Cancel marks jobID cancelled and calls its context's cancel func. If the
// work function later resolves anyway, its result is discarded.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusRunning {
		return nil // already terminal: cancel is a no-op, not an error
	}
	job.Status = StatusCancelled
	now := time.Now().UTC()
	job.CompletedAt = &now
	m.runningCount--
	if job.cancel != nil {
		job.cancel()
	}
	return nil
}

// Get returns a snapshot of jobID's current state.
func (m *Manager) Get(jobID string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job.snapshot(), nil
}

// List returns a snapshot of every tracked job.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job.snapshot())
	}
	return out
}
