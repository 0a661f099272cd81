package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/acestep"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/queue"
	"server/internal/service"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// Generation queue: in-memory store drained by a single worker, because
	// the ACE-Step backend serves one task at a time.
	store := queue.NewStore()
	client := acestep.NewClient(acestep.Options{
		BaseURL:         cfg.AceStepAPIURL,
		Timeout:         cfg.AceStepHTTPTimeout,
		PollInterval:    cfg.AceStepPollInterval,
		MaxPollAttempts: cfg.AceStepMaxPollTries,
	})
	worker := queue.NewWorker(store, client, logger, cfg.WorkerStopTimeout)
	worker.EnsureRunning()

	audio := service.NewAudioService(store, worker, cfg.QueueWaitTimeout, logger)

	app := handlers.NewApp(audio, logger)
	router := httpapi.NewRouter(app, logger, cfg.CORSAllowedOrigins)
	server := infra.NewHTTPServer(cfg, router)

	// Start async
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	worker.Stop()
	logger.Info().Msg("server stopped")
}
