package di

import (
	"canvasflow/application/ports"
	"canvasflow/application/services"
	domaincfg "canvasflow/domain/config"
	"canvasflow/infrastructure/canvashost"
	"canvasflow/infrastructure/completion"
	"canvasflow/infrastructure/config"
	ws "canvasflow/interfaces/websocket"
	"canvasflow/pkg/observability"

	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideDomainConfig supplies the placement and placeholder defaults
func ProvideDomainConfig() *domaincfg.DomainConfig {
	return domaincfg.DefaultDomainConfig()
}

// ProvideMetrics creates the metrics registry
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics()
}

// ProvideCanvas opens the canvas document and starts the file watcher
func ProvideCanvas(cfg *config.Config, logger *zap.Logger) (*canvashost.Canvas, error) {
	canvas, err := canvashost.NewCanvas(cfg.CanvasPath, cfg.SaveDebounce, logger)
	if err != nil {
		return nil, err
	}

	if cfg.WatchCanvas {
		if err := canvas.Watch(); err != nil {
			logger.Warn("Canvas file watching unavailable", zap.Error(err))
		}
	}

	return canvas, nil
}

// ProvideWorkspace wraps the canvas in workspace focus tracking
func ProvideWorkspace(canvas *canvashost.Canvas) ports.Workspace {
	return canvashost.NewWorkspace(canvas)
}

// ProvideHub creates the WebSocket event hub
func ProvideHub(logger *zap.Logger) *ws.Hub {
	return ws.NewHub(logger)
}

// ProvideEventPublisher broadcasts lifecycle events over the hub
func ProvideEventPublisher(hub *ws.Hub) ports.EventPublisher {
	return ws.NewEventBroadcaster(hub)
}

// ProvideCompletionTransport creates the upstream completion client
func ProvideCompletionTransport(cfg *config.Config, logger *zap.Logger) ports.CompletionTransport {
	return completion.NewOpenAITransport(completion.Config{
		BaseURL: cfg.CompletionBaseURL,
		APIKey:  cfg.CompletionAPIKey,
		Model:   cfg.CompletionModel,
		Timeout: cfg.CompletionTimeout,
	}, logger)
}

// ProvideContextExtractor creates the context extractor
func ProvideContextExtractor() *services.ContextExtractor {
	return services.NewContextExtractor()
}

// ProvideNodeMutator creates the node mutator
func ProvideNodeMutator(logger *zap.Logger) *services.NodeMutator {
	return services.NewNodeMutator(logger)
}

// ProvideOrchestrator wires the request orchestrator
func ProvideOrchestrator(
	extractor *services.ContextExtractor,
	mutator *services.NodeMutator,
	transport ports.CompletionTransport,
	publisher ports.EventPublisher,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *services.Orchestrator {
	return services.NewOrchestrator(extractor, mutator, transport, publisher, domainCfg, logger, metrics)
}
