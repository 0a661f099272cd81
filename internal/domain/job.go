package domain

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions can occur from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether a job may move from s to next. The
// lifecycle only moves forward: queued -> generating -> completed|failed.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusGenerating
	case JobStatusGenerating:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// Job tracks a single audio generation request through the queue.
type Job struct {
	ID           string
	Prompt       string
	Tempo        int
	Duration     int
	Status       JobStatus
	WAVBytes     []byte
	ErrorMessage string
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (j Job) Clone() Job {
	out := j
	if j.WAVBytes != nil {
		out.WAVBytes = append([]byte(nil), j.WAVBytes...)
	}
	return out
}
