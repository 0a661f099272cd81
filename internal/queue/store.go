// Package queue implements the in-memory generation queue: a job store
// guarded by a single mutex/condition pair and the background worker that
// drains it one job at a time.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
)

// Store owns all mutable queue state. Jobs are retained for the process
// lifetime; Reset is the only way to purge them.
type Store struct {
	mu    sync.Mutex
	cond  *sync.Cond
	jobs  map[string]*domain.Job
	order []string
}

// NewStore creates an empty job store.
func NewStore() *Store {
	s := &Store{jobs: make(map[string]*domain.Job)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Enqueue creates a queued job with a fresh id and appends it to the FIFO
// order. Returns the job id.
func (s *Store) Enqueue(prompt string, tempo, duration int) string {
	job := &domain.Job{
		ID:       uuid.NewString(),
		Prompt:   prompt,
		Tempo:    tempo,
		Duration: duration,
		Status:   domain.JobStatusQueued,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.cond.Broadcast()
	return job.ID
}

// DequeueNext pops the front of the pending order, or reports false when the
// queue is empty. It does not block; the worker uses claimNext instead.
func (s *Store) DequeueNext() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return "", false
	}
	id := s.order[0]
	s.order = s.order[1:]
	s.cond.Broadcast()
	return id, true
}

// Get returns a snapshot of the job, or false when the id is unknown.
func (s *Store) Get(id string) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return job.Clone(), true
}

// Transition applies a forward-only status change. Unknown ids and illegal
// transitions are ignored so late worker writes cannot corrupt state after a
// Reset.
func (s *Store) Transition(id string, status domain.JobStatus, wav []byte, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || !job.Status.CanTransition(status) {
		return
	}

	job.Status = status
	switch status {
	case domain.JobStatusGenerating:
		job.ErrorMessage = ""
	case domain.JobStatusCompleted:
		job.WAVBytes = wav
		job.ErrorMessage = ""
	case domain.JobStatusFailed:
		job.WAVBytes = nil
		job.ErrorMessage = errMsg
	}
	s.cond.Broadcast()
}

// KnownIDs lists every job id currently retained, in no particular order.
// Test and administrative use only.
func (s *Store) KnownIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Reset clears all jobs and the pending order. Test and administrative use
// only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*domain.Job)
	s.order = nil
	s.cond.Broadcast()
}

// WaitTerminal blocks until the job reaches a terminal state or the timeout
// elapses. The predicate is re-checked on every wake, so spurious broadcasts
// are harmless. On timeout the stored job is left untouched.
func (s *Store) WaitTerminal(id string, timeout time.Duration) (domain.Job, error) {
	deadline := time.Now().Add(timeout)
	// Broadcast under the lock so the wake cannot slip between a waiter's
	// deadline check and its cond.Wait.
	timer := time.AfterFunc(timeout, s.wake)
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		job, ok := s.jobs[id]
		if !ok {
			return domain.Job{}, domain.ErrJobNotFound
		}
		if job.Status.Terminal() {
			return job.Clone(), nil
		}
		if !time.Now().Before(deadline) {
			return domain.Job{}, domain.ErrGenerationTimeout
		}
		s.cond.Wait()
	}
}

// claimNext blocks until a pending job can be claimed or stopped reports
// true. The claimed job is moved to generating before the lock is released,
// so at most one job is ever in that state.
func (s *Store) claimNext(stopped func() bool) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if stopped() {
			return domain.Job{}, false
		}
		for len(s.order) > 0 {
			id := s.order[0]
			s.order = s.order[1:]
			job, ok := s.jobs[id]
			if !ok {
				// Dequeued id with no record, e.g. a concurrent Reset.
				continue
			}
			job.Status = domain.JobStatusGenerating
			job.ErrorMessage = ""
			s.cond.Broadcast()
			return job.Clone(), true
		}
		s.cond.Wait()
	}
}

// wake re-broadcasts to all waiters. Used by the worker's Stop so idle waits
// observe the stop flag promptly.
func (s *Store) wake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cond.Broadcast()
}
