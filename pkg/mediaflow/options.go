package mediaflow

import (
	"log/slog"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/config"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/event"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/executor"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/observability"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/store"
)

// engineConfig holds configuration for an Engine.
type engineConfig struct {
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
	services       executor.Services
	registry       *executor.Registry
	repo           store.Repository
	settings       config.Settings
	bus            event.Bus
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		settings: config.DefaultSettings(),
	}
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
func WithMetrics() Option {
	return func(c *engineConfig) {
		c.metrics = observability.NewMetricsRecorder()
	}
}

// WithMetricsRecorder sets a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *engineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for runs and nodes through the
// global tracer provider.
func WithTracing() Option {
	return func(c *engineConfig) {
		c.spans = observability.NewSpanManager()
		c.tracingEnabled = true
	}
}

// WithSpanManager enables tracing through a custom span manager.
func WithSpanManager(m observability.SpanManager) Option {
	return func(c *engineConfig) {
		if m != nil {
			c.spans = m
			c.tracingEnabled = true
		}
	}
}

// WithServices sets the collaborators used by the default behavior registry.
// Ignored when WithRegistry is given.
func WithServices(svc executor.Services) Option {
	return func(c *engineConfig) {
		c.services = svc
	}
}

// WithRegistry replaces the default behavior registry.
//
// Example:
//
//	reg := executor.NewDefaultRegistry(svc)
//	reg.Register(graph.TypeGenerateImage, myBehavior)
//	engine, err := mediaflow.New(mediaflow.WithRegistry(reg))
func WithRegistry(r *executor.Registry) Option {
	return func(c *engineConfig) {
		c.registry = r
	}
}

// WithRepository sets the workflow repository used for autosave and
// workflow switching. Without one, autosave is disabled.
func WithRepository(r store.Repository) Option {
	return func(c *engineConfig) {
		c.repo = r
	}
}

// WithSettings sets the engine settings. Default: config.DefaultSettings().
func WithSettings(s config.Settings) Option {
	return func(c *engineConfig) {
		c.settings = s
	}
}

// WithBus sets the event bus. The engine does not close a bus it was given.
// Default: a non-blocking LocalBus owned by the engine.
func WithBus(b event.Bus) Option {
	return func(c *engineConfig) {
		c.bus = b
	}
}
