// Package service exposes the synchronous and asynchronous generation
// facades consumed by the HTTP layer.
package service

import (
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/queue"
)

// AudioService coordinates the queue store and worker behind the API.
type AudioService struct {
	store       *queue.Store
	worker      *queue.Worker
	waitTimeout time.Duration
	log         infra.Logger
}

// NewAudioService wires the facades to a store and worker. waitTimeout
// bounds the synchronous Generate wait.
func NewAudioService(store *queue.Store, worker *queue.Worker, waitTimeout time.Duration, log infra.Logger) *AudioService {
	return &AudioService{store: store, worker: worker, waitTimeout: waitTimeout, log: log}
}

// CreatedJob is the immediate response of the async create facade.
type CreatedJob struct {
	ID     string           `json:"id"`
	Status domain.JobStatus `json:"status"`
}

// JobStatusInfo is the async status response.
type JobStatusInfo struct {
	ID     string           `json:"id"`
	Status domain.JobStatus `json:"status"`
	Error  *string          `json:"error"`
}

// BuildPrompt renders the generation prompt for a request. Text mode passes
// the prompt through untouched; the other modes fold the parameters in.
func BuildPrompt(req domain.GenerateRequest) string {
	prompt := ""
	if req.Prompt != nil {
		prompt = *req.Prompt
	}
	switch req.Mode {
	case domain.ModeText:
		return prompt
	case domain.ModeTextParams, domain.ModeTextAndPar:
		return fmt.Sprintf("%s, %s, %s, %d BPM", prompt, req.Mood, req.Style, req.Tempo)
	default:
		return fmt.Sprintf("%s lofi %s, %d BPM", req.Mood, req.Style, req.Tempo)
	}
}

// Generate enqueues a job and blocks until it reaches a terminal state or
// the wait timeout elapses. On timeout the job stays in the queue and keeps
// running.
func (s *AudioService) Generate(req domain.GenerateRequest) ([]byte, error) {
	s.worker.EnsureRunning()
	id := s.store.Enqueue(BuildPrompt(req), req.EffectiveTempo(), req.Duration)

	job, err := s.store.WaitTerminal(id, s.waitTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationTimeout) {
			s.log.Warn().Str("job_id", id).Msg("audio: synchronous wait timed out")
		}
		return nil, err
	}
	if job.Status == domain.JobStatusFailed || job.WAVBytes == nil {
		return nil, domain.ErrGenerationFailed
	}
	return job.WAVBytes, nil
}

// Create enqueues a job and returns its id without waiting.
func (s *AudioService) Create(req domain.GenerateRequest) CreatedJob {
	s.worker.EnsureRunning()
	id := s.store.Enqueue(BuildPrompt(req), req.EffectiveTempo(), req.Duration)
	return CreatedJob{ID: id, Status: domain.JobStatusQueued}
}

// Status reports the current state of a job.
func (s *AudioService) Status(id string) (JobStatusInfo, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return JobStatusInfo{}, domain.ErrJobNotFound
	}
	info := JobStatusInfo{ID: job.ID, Status: job.Status}
	if job.ErrorMessage != "" {
		info.Error = &job.ErrorMessage
	}
	return info, nil
}

// Audio returns the generated bytes for a completed job. Jobs that are still
// queued or generating report not-ready, which is distinct from failure.
func (s *AudioService) Audio(id string) ([]byte, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	switch {
	case job.Status == domain.JobStatusFailed:
		return nil, domain.ErrGenerationFailed
	case job.Status != domain.JobStatusCompleted || job.WAVBytes == nil:
		return nil, domain.ErrAudioNotReady
	}
	return job.WAVBytes, nil
}
