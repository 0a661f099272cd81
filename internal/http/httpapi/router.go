package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

func NewRouter(app *handlers.App, log infra.Logger, corsOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(corsOrigins))

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", app.GenerateAudio)

		r.Route("/generate-requests", func(r chi.Router) {
			r.Post("/", app.CreateGenerationRequest)
			r.Get("/{id}", app.GetGenerationRequest)
			r.Get("/{id}/audio", app.GetGenerationRequestAudio)
		})
	})

	return r
}
