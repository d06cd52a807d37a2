// Package app wires configuration, logging, the event publisher, the
// extraction service, and session construction into one application object.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clinical-scribe/internal/config"
	"clinical-scribe/internal/events"
	"clinical-scribe/internal/extract"
	"clinical-scribe/internal/observability/logging"
	"clinical-scribe/internal/service/recog"
	"clinical-scribe/internal/service/recog/google"
	"clinical-scribe/internal/service/recog/mock"
	"clinical-scribe/internal/service/scribe"
)

// Application holds process-wide state for the scribe service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Publisher   *events.Publisher
	Extractor   *extract.Service
}

// New constructs the application from the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	logger := logging.WithComponent("application")

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicInterim: cfg.Kafka.TopicInterim,
		TopicFinal:   cfg.Kafka.TopicFinal,
		TopicNote:    cfg.Kafka.TopicNote,
		Principal:    cfg.Service.Principal,
	})

	extractor, err := extract.NewService(ctx, cfg.Extract)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	a := &Application{
		Logger:    logger,
		Cfg:       cfg,
		Publisher: publisher,
		Extractor: extractor,
	}

	logger.Info().
		Str("principal", cfg.Service.Principal).
		Str("recogProvider", cfg.Recog.Provider).
		Bool("kafka", cfg.Kafka.Enabled).
		Bool("extraction", extractor.Enabled()).
		Msg("clinical scribe application created")
	return a, nil
}

// NewSession creates a session backed by the given engine factories, falling
// back to the configured server-side provider when none are given.
func (a *Application) NewSession(factories ...recog.Factory) *scribe.Session {
	if len(factories) == 0 {
		factories = a.serverFactories()
	}
	return scribe.NewSession(a.Publisher, factories...)
}

// serverFactories returns the capability probes for sessions driven by a
// server-side engine rather than browser-forwarded events.
func (a *Application) serverFactories() []recog.Factory {
	switch a.Cfg.Recog.Provider {
	case "google":
		cfg := google.DefaultConfig()
		cfg.LanguageCode = a.Cfg.Recog.LanguageCode
		cfg.SampleRateHz = a.Cfg.Recog.SampleRateHz
		cfg.InterimResults = a.Cfg.Recog.InterimResults
		return []recog.Factory{google.Factory(cfg, nil)}
	default:
		return []recog.Factory{func() recog.Engine { return mock.New() }}
	}
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("clinical scribe service starting")
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("clinical scribe service shutting down")
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("error closing publisher")
	}
}
