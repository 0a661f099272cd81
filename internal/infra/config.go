package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	AceStepAPIURL       string
	AceStepHTTPTimeout  time.Duration
	AceStepPollInterval time.Duration
	AceStepMaxPollTries int

	QueueWaitTimeout  time.Duration
	WorkerStopTimeout time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		AceStepAPIURL:       strings.TrimRight(getEnv("ACESTEP_API_URL", "http://localhost:8001"), "/"),
		AceStepHTTPTimeout:  time.Second * time.Duration(getEnvInt("ACESTEP_HTTP_TIMEOUT_SECONDS", 30)),
		AceStepPollInterval: time.Millisecond * time.Duration(getEnvInt("ACESTEP_POLL_INTERVAL_MS", 500)),
		AceStepMaxPollTries: getEnvInt("ACESTEP_MAX_POLL_ATTEMPTS", 1200),

		QueueWaitTimeout:  time.Second * time.Duration(getEnvInt("QUEUE_WAIT_TIMEOUT_SECONDS", 300)),
		WorkerStopTimeout: time.Second * time.Duration(getEnvInt("WORKER_STOP_TIMEOUT_SECONDS", 5)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
