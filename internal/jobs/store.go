// Package jobs tracks asynchronous operations in process memory.
// Records live for the lifetime of the process and are polled by
// clients; there is no persistence and no cancellation.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is the state of one asynchronous operation. Result is set only
// on completion, Error only on failure.
type Record struct {
	ID        string         `json:"job_id"`
	Type      string         `json:"job_type"`
	OwnerID   string         `json:"-"`
	Status    Status         `json:"status"`
	Stage     string         `json:"stage,omitempty"`
	Progress  int            `json:"progress"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store is a mutex-protected job registry. All reads return copies so
// concurrent pollers never observe a half-applied update. Terminal
// records (completed/failed) accept further updates; callers are
// expected not to issue them, but the store does not reject them.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Record
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Record)}
}

// Create registers a queued job with a fresh opaque id and returns a
// copy of the new record.
func (s *Store) Create(jobType, ownerID string) Record {
	rec := &Record{
		ID:        uuid.NewString(),
		Type:      jobType,
		OwnerID:   ownerID,
		Status:    StatusQueued,
		UpdatedAt: time.Now(),
	}
	s.mu.Lock()
	s.jobs[rec.ID] = rec
	s.mu.Unlock()
	return *rec
}

// Get returns a copy of the record, or false for an unknown id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Update mutates the record in place. Empty status/stage and negative
// progress mean "leave unchanged"; progress is clamped to [0, 100].
// Unknown ids are a no-op.
func (s *Store) Update(id string, status Status, stage string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return
	}
	if status != "" {
		rec.Status = status
	}
	if stage != "" {
		rec.Stage = stage
	}
	if progress >= 0 {
		if progress > 100 {
			progress = 100
		}
		rec.Progress = progress
	}
	rec.UpdatedAt = time.Now()
}

// Complete marks the job completed with progress 100 and the result
// payload. Unknown ids are a no-op.
func (s *Store) Complete(id string, result map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return
	}
	rec.Status = StatusCompleted
	rec.Stage = "completed"
	rec.Progress = 100
	rec.Result = result
	rec.UpdatedAt = time.Now()
}

// Fail marks the job failed, preserving progress capped at 100.
// Unknown ids are a no-op.
func (s *Store) Fail(id string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return
	}
	rec.Status = StatusFailed
	rec.Stage = "failed"
	rec.Error = errMsg
	if rec.Progress > 100 {
		rec.Progress = 100
	}
	rec.UpdatedAt = time.Now()
}
