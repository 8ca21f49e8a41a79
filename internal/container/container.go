package container

import (
	"fmt"
	"net/http"

	"go-redflag-detector/internal/config"
	"go-redflag-detector/internal/extractor"
	"go-redflag-detector/internal/factory"
	"go-redflag-detector/internal/generator"
	"go-redflag-detector/internal/logger"
	"go-redflag-detector/internal/observer"
	"go-redflag-detector/internal/pipeline"
	"go-redflag-detector/internal/session"
	"go-redflag-detector/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config    config.Config
	publisher *observer.EventPublisher
	sessions  *session.Registry
	handler   http.Handler
}

// NewContainer builds the dependency graph from an already loaded config
func NewContainer(cfg config.Config) (*Container, error) {
	components := factory.NewComponentFactory()

	engine, err := components.EngineFactory.CreateEngine(cfg.OCR)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}
	source, err := components.CreateImageSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create image source: %w", err)
	}

	textExtractor := extractor.New(engine, source, cfg.Images.FetchTimeout)
	verdicts := components.CreateReconciler(cfg.Scoring, generator.New(nil))

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	sessions := session.NewRegistry(cfg.SessionTTL, func(id string) *pipeline.Controller {
		return pipeline.New(textExtractor, verdicts, pipeline.Options{
			RevealDelay: cfg.Pipeline.RevealDelay,
			Events:      publisher,
			SessionID:   id,
		})
	})

	handler := transport.NewHandler(sessions, metrics, cfg)

	return &Container{
		config:    cfg,
		publisher: publisher,
		sessions:  sessions,
		handler:   handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() config.Config {
	return c.config
}

// Sessions exposes the registry so main can run the prune loop
func (c *Container) Sessions() *session.Registry {
	return c.sessions
}

// Publisher lets main drain pending event notifications on shutdown
func (c *Container) Publisher() *observer.EventPublisher {
	return c.publisher
}
