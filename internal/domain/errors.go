package domain

import "errors"

var (
	ErrJobNotFound       = errors.New("queue item not found")
	ErrGenerationFailed  = errors.New("audio generation failed")
	ErrGenerationTimeout = errors.New("audio generation timed out")
	ErrAudioNotReady     = errors.New("audio not ready")
	ErrInvalidRequest    = errors.New("invalid request")
)
