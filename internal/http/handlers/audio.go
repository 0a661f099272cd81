package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

// User-facing messages, kept stable for API consumers.
const (
	msgNotFound   = "Queue item not found"
	msgGenFailed  = "Audio generation failed"
	msgGenTimeout = "Audio generation timed out"
	msgNotReady   = "Audio not ready"
)

// decodeGenerateRequest parses and validates a generation request body.
// Absent fields keep their defaults; any decode or validation failure maps
// to the canonical invalid-payload message.
func (a *App) decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (domain.GenerateRequest, bool) {
	req := domain.NewGenerateRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusUnprocessableEntity, domain.InvalidPayloadError)
		return domain.GenerateRequest{}, false
	}
	if err := req.Validate(); err != nil {
		a.Log.Debug().Err(err).Msg("audio: rejected payload")
		a.jsonError(w, http.StatusUnprocessableEntity, domain.InvalidPayloadError)
		return domain.GenerateRequest{}, false
	}
	return req, true
}

// GenerateAudio handles POST /api/generate: block until the clip is ready
// and stream it back.
func (a *App) GenerateAudio(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeGenerateRequest(w, r)
	if !ok {
		return
	}

	data, err := a.Audio.Generate(req)
	switch {
	case errors.Is(err, domain.ErrGenerationTimeout):
		a.jsonError(w, http.StatusGatewayTimeout, msgGenTimeout)
	case err != nil:
		a.jsonError(w, http.StatusInternalServerError, msgGenFailed)
	default:
		a.wav(w, data)
	}
}

// CreateGenerationRequest handles POST /api/generate-requests: enqueue and
// return the job id immediately.
func (a *App) CreateGenerationRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, a.Audio.Create(req))
}

// GetGenerationRequest handles GET /api/generate-requests/{id}.
func (a *App) GetGenerationRequest(w http.ResponseWriter, r *http.Request) {
	info, err := a.Audio.Status(chi.URLParam(r, "id"))
	if err != nil {
		a.jsonError(w, http.StatusNotFound, msgNotFound)
		return
	}
	a.json(w, http.StatusOK, info)
}

// GetGenerationRequestAudio handles GET /api/generate-requests/{id}/audio.
func (a *App) GetGenerationRequestAudio(w http.ResponseWriter, r *http.Request) {
	data, err := a.Audio.Audio(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		a.jsonError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, domain.ErrGenerationFailed):
		a.jsonError(w, http.StatusInternalServerError, msgGenFailed)
	case errors.Is(err, domain.ErrAudioNotReady):
		a.jsonError(w, http.StatusConflict, msgNotReady)
	default:
		a.wav(w, data)
	}
}
