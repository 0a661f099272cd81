package queue

import (
	"context"
	"sync"
	"time"

	"server/internal/domain"
	"server/internal/infra"
)

// FailedMessage is the generic user-facing message recorded on failed jobs.
// Failure detail stays in the logs.
const FailedMessage = "Audio generation failed"

// DefaultStopTimeout bounds how long Stop waits for the loop to exit.
const DefaultStopTimeout = 5 * time.Second

// Generator produces audio bytes for a prompt. Implemented by the ACE-Step
// client; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string, tempo, duration int) ([]byte, error)
}

// Worker drains the store with a single background goroutine. The backing
// generation service runs one task at a time, so serialization here is a
// protocol requirement, not a tuning choice.
type Worker struct {
	store       *Store
	gen         Generator
	log         infra.Logger
	stopTimeout time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewWorker creates a worker bound to the store and generator. A
// non-positive stopTimeout falls back to DefaultStopTimeout.
func NewWorker(store *Store, gen Generator, log infra.Logger, stopTimeout time.Duration) *Worker {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Worker{store: store, gen: gen, log: log, stopTimeout: stopTimeout}
}

// EnsureRunning starts the background loop if it is not already running.
// Safe to call on every enqueue.
func (w *Worker) EnsureRunning() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.run(w.stop, w.done)
}

// Stop signals the loop to exit, wakes any idle wait, and joins the
// goroutine bounded by the stop timeout. A loop stuck in a remote call past
// the timeout still exits after that call returns.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stop, done := w.stop, w.done
	w.running = false
	w.mu.Unlock()

	close(stop)
	w.store.wake()

	select {
	case <-done:
	case <-time.After(w.stopTimeout):
		w.log.Warn().Msg("worker: stop timed out waiting for loop to exit")
	}
}

func (w *Worker) run(stop, done chan struct{}) {
	defer close(done)

	stopped := func() bool {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}

	w.log.Debug().Msg("worker: started")
	for {
		job, ok := w.store.claimNext(stopped)
		if !ok {
			w.log.Debug().Msg("worker: stopped")
			return
		}

		// The remote call happens outside the store lock so status and
		// result reads stay responsive while generation is in flight.
		wav, err := w.gen.Generate(context.Background(), job.Prompt, job.Tempo, job.Duration)
		if err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("worker: generation failed")
			w.store.Transition(job.ID, domain.JobStatusFailed, nil, FailedMessage)
			continue
		}
		w.store.Transition(job.ID, domain.JobStatusCompleted, wav, "")
		w.log.Info().Str("job_id", job.ID).Int("bytes", len(wav)).Msg("worker: job completed")
	}
}
