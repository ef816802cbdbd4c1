package app

import (
	"os"
	"time"

	"ai-interview-copilot/internal/config"
	"ai-interview-copilot/internal/observability/logging"

	"github.com/rs/zerolog"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) *Application {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg: cfg,
		Logger: logging.Logger().With().
			Str("service", "ai-interview-copilot").
			Logger(),
	}

	a.Logger.Info().
		Str("logLevel", cfg.Observability.LogLevel).
		Str("environment", os.Getenv("ENV")).
		Msg("Interview copilot application created")
	return a
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Interview copilot service starting")
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Interview copilot service shutting down")
}
