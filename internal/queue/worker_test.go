package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls []string
	fn    func(prompt string, tempo, duration int) ([]byte, error)
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, tempo, duration int) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(prompt, tempo, duration)
	}
	return []byte("wav:" + prompt), nil
}

func (f *fakeGenerator) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestWorker(s *Store, gen Generator) *Worker {
	return NewWorker(s, gen, zerolog.Nop(), time.Second)
}

func TestWorkerCompletesJobsInEnqueueOrder(t *testing.T) {
	s := NewStore()
	gen := &fakeGenerator{}
	w := newTestWorker(s, gen)
	defer w.Stop()

	a := s.Enqueue("job a", 90, 40)
	b := s.Enqueue("job b", 70, 40)
	w.EnsureRunning()

	for _, id := range []string{a, b} {
		job, err := s.WaitTerminal(id, 2*time.Second)
		if err != nil {
			t.Fatalf("job %q did not finish: %v", id, err)
		}
		if job.Status != domain.JobStatusCompleted {
			t.Fatalf("job %q status = %q, want completed", id, job.Status)
		}
	}

	order := gen.callOrder()
	if len(order) != 2 || order[0] != "job a" || order[1] != "job b" {
		t.Fatalf("processing order = %v, want [job a, job b]", order)
	}
}

func TestWorkerStoresGeneratedBytes(t *testing.T) {
	s := NewStore()
	w := newTestWorker(s, &fakeGenerator{})
	defer w.Stop()
	w.EnsureRunning()

	id := s.Enqueue("chill lofi jazz, 80 BPM", 80, 40)
	job, err := s.WaitTerminal(id, 2*time.Second)
	if err != nil {
		t.Fatalf("job did not finish: %v", err)
	}
	if !strings.HasPrefix(string(job.WAVBytes), "wav:") {
		t.Fatalf("result bytes = %q", job.WAVBytes)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("completed job carries error %q", job.ErrorMessage)
	}
}

func TestWorkerFailureDoesNotBlockQueue(t *testing.T) {
	s := NewStore()
	gen := &fakeGenerator{fn: func(prompt string, _, _ int) ([]byte, error) {
		if prompt == "job a" {
			return nil, errors.New("connection refused")
		}
		return []byte("ok"), nil
	}}
	w := newTestWorker(s, gen)
	defer w.Stop()

	a := s.Enqueue("job a", 90, 40)
	b := s.Enqueue("job b", 70, 40)
	w.EnsureRunning()

	jobA, err := s.WaitTerminal(a, 2*time.Second)
	if err != nil {
		t.Fatalf("job a did not finish: %v", err)
	}
	if jobA.Status != domain.JobStatusFailed {
		t.Fatalf("job a status = %q, want failed", jobA.Status)
	}
	if jobA.ErrorMessage != FailedMessage {
		t.Fatalf("job a error = %q, want generic message", jobA.ErrorMessage)
	}

	jobB, err := s.WaitTerminal(b, 2*time.Second)
	if err != nil {
		t.Fatalf("job b did not finish: %v", err)
	}
	if jobB.Status != domain.JobStatusCompleted {
		t.Fatalf("job b status = %q, want completed", jobB.Status)
	}
}

func TestWorkerRunsOneJobAtATime(t *testing.T) {
	s := NewStore()
	release := make(chan struct{})
	started := make(chan string, 2)
	gen := &fakeGenerator{fn: func(prompt string, _, _ int) ([]byte, error) {
		started <- prompt
		<-release
		return []byte("ok"), nil
	}}
	w := newTestWorker(s, gen)
	defer w.Stop()

	s.Enqueue("job a", 90, 40)
	b := s.Enqueue("job b", 70, 40)
	w.EnsureRunning()

	<-started
	// While job a is in flight, job b must still be queued.
	jobB, _ := s.Get(b)
	if jobB.Status != domain.JobStatusQueued {
		t.Fatalf("job b status = %q while job a in flight, want queued", jobB.Status)
	}

	close(release)
	if _, err := s.WaitTerminal(b, 2*time.Second); err != nil {
		t.Fatalf("job b did not finish: %v", err)
	}
}

func TestEnsureRunningIsIdempotent(t *testing.T) {
	s := NewStore()
	var concurrent, peak int
	var mu sync.Mutex
	gen := &fakeGenerator{fn: func(string, int, int) ([]byte, error) {
		mu.Lock()
		concurrent++
		if concurrent > peak {
			peak = concurrent
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		concurrent--
		mu.Unlock()
		return []byte("ok"), nil
	}}
	w := newTestWorker(s, gen)
	defer w.Stop()

	w.EnsureRunning()
	w.EnsureRunning()
	w.EnsureRunning()

	var last string
	for i := 0; i < 5; i++ {
		last = s.Enqueue("prompt", 80, 40)
	}
	if _, err := s.WaitTerminal(last, 5*time.Second); err != nil {
		t.Fatalf("queue did not drain: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak != 1 {
		t.Fatalf("peak concurrent generations = %d, want 1", peak)
	}
}

func TestStopWakesIdleWorkerPromptly(t *testing.T) {
	s := NewStore()
	w := newTestWorker(s, &fakeGenerator{})
	w.EnsureRunning()

	start := time.Now()
	w.Stop()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Stop took %v on an idle worker", elapsed)
	}

	// A stopped worker leaves new jobs untouched.
	id := s.Enqueue("prompt", 80, 40)
	time.Sleep(50 * time.Millisecond)
	job, _ := s.Get(id)
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("stopped worker picked up job, status = %q", job.Status)
	}
}

func TestStopThenEnsureRunningRestartsWorker(t *testing.T) {
	s := NewStore()
	w := newTestWorker(s, &fakeGenerator{})
	w.EnsureRunning()
	w.Stop()

	id := s.Enqueue("prompt", 80, 40)
	w.EnsureRunning()
	defer w.Stop()

	if _, err := s.WaitTerminal(id, 2*time.Second); err != nil {
		t.Fatalf("restarted worker did not process job: %v", err)
	}
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	w := newTestWorker(NewStore(), &fakeGenerator{})
	w.Stop()
}
