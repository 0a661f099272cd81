package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/infra"
	"server/internal/service"
)

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	Audio *service.AudioService
	Log   infra.Logger
}

func NewApp(audio *service.AudioService, log infra.Logger) *App {
	return &App{Audio: audio, Log: log}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

func (a *App) wav(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
