package di

import (
	"github.com/google/wire"

	"canvasflow/application/ports"
	"canvasflow/application/services"
	"canvasflow/infrastructure/canvashost"
	"canvasflow/infrastructure/config"
	ws "canvasflow/interfaces/websocket"
	"canvasflow/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Canvas       *canvashost.Canvas
	Workspace    ports.Workspace
	Hub          *ws.Hub
	Publisher    ports.EventPublisher
	Transport    ports.CompletionTransport
	Extractor    *services.ContextExtractor
	Mutator      *services.NodeMutator
	Orchestrator *services.Orchestrator
	Metrics      *observability.Metrics
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideMetrics,
	ProvideCanvas,
	ProvideWorkspace,
	ProvideHub,
	ProvideEventPublisher,
	ProvideCompletionTransport,
	ProvideContextExtractor,
	ProvideNodeMutator,
	ProvideOrchestrator,
	wire.Struct(new(Container), "*"),
)

// Close releases container resources in dependency order
func (c *Container) Close() {
	if c.Orchestrator != nil {
		c.Orchestrator.Cleanup()
	}
	if c.Hub != nil {
		c.Hub.Stop()
	}
	if c.Canvas != nil {
		if err := c.Canvas.Close(); err != nil {
			c.Logger.Error("Canvas close failed", zap.Error(err))
		}
	}
}
