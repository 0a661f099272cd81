package domain

import (
	"fmt"
	"strings"
)

// Bounds for user-supplied generation parameters.
const (
	MinTempo           = 60
	MaxTempo           = 120
	MinDurationSeconds = 40
	MaxDurationSeconds = 300

	DefaultTempo           = 80
	DefaultDurationSeconds = 40
	DefaultMood            = "chill"
	DefaultStyle           = "jazz"
)

// Request modes. Text modes take the prompt verbatim (optionally combined
// with the parameters); params modes synthesize a prompt from the parameters.
const (
	ModeText       = "text"
	ModeTextParams = "text+params"
	ModeTextAndPar = "text-and-parameters"
	ModeParams     = "params"
	ModeParameters = "parameters"
)

// InvalidPayloadError is the canonical message returned for any payload that
// fails decoding or validation.
var InvalidPayloadError = fmt.Sprintf(
	"Invalid payload. Expected { mode?: 'text'|'text+params'|'text-and-parameters'|'params'|'parameters', "+
		"prompt?: string, mood?: string, tempo?: number (%d-%d), duration?: number (%d-%d), style?: string }",
	MinTempo, MaxTempo, MinDurationSeconds, MaxDurationSeconds,
)

// GenerateRequest is the decoded body of a generation request.
type GenerateRequest struct {
	Mode     string  `json:"mode"`
	Prompt   *string `json:"prompt"`
	Mood     string  `json:"mood"`
	Tempo    int     `json:"tempo"`
	Duration int     `json:"duration"`
	Style    string  `json:"style"`
}

// NewGenerateRequest returns a request populated with defaults. Decoding a
// JSON body on top of it leaves absent fields at their default values.
func NewGenerateRequest() GenerateRequest {
	return GenerateRequest{
		Mode:     ModeParams,
		Mood:     DefaultMood,
		Tempo:    DefaultTempo,
		Duration: DefaultDurationSeconds,
		Style:    DefaultStyle,
	}
}

// TextMode reports whether the request carries a user-authored prompt.
func (r GenerateRequest) TextMode() bool {
	switch r.Mode {
	case ModeText, ModeTextParams, ModeTextAndPar:
		return true
	}
	return false
}

// EffectiveTempo is the tempo recorded on the enqueued job. Plain text mode
// ignores the tempo parameter and pins the default.
func (r GenerateRequest) EffectiveTempo() int {
	if r.Mode == ModeText {
		return DefaultTempo
	}
	return r.Tempo
}

// Validate normalizes the request in place and reports whether it satisfies
// the payload contract. All failures map to ErrInvalidRequest.
func (r *GenerateRequest) Validate() error {
	switch r.Mode {
	case ModeText, ModeTextParams, ModeTextAndPar, ModeParams, ModeParameters:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}

	if r.Prompt != nil {
		trimmed := strings.TrimSpace(*r.Prompt)
		if trimmed == "" {
			return fmt.Errorf("%w: prompt must be a non-empty string", ErrInvalidRequest)
		}
		r.Prompt = &trimmed
	}
	if r.TextMode() && r.Prompt == nil {
		return fmt.Errorf("%w: prompt is required in text modes", ErrInvalidRequest)
	}

	r.Mood = strings.TrimSpace(r.Mood)
	if r.Mood == "" {
		return fmt.Errorf("%w: mood must be a non-empty string", ErrInvalidRequest)
	}
	r.Style = strings.TrimSpace(r.Style)
	if r.Style == "" {
		return fmt.Errorf("%w: style must be a non-empty string", ErrInvalidRequest)
	}

	if r.Tempo < MinTempo || r.Tempo > MaxTempo {
		return fmt.Errorf("%w: tempo %d out of range", ErrInvalidRequest, r.Tempo)
	}
	if r.Duration < MinDurationSeconds || r.Duration > MaxDurationSeconds {
		return fmt.Errorf("%w: duration %d out of range", ErrInvalidRequest, r.Duration)
	}
	return nil
}
