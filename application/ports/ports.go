package ports

import (
	"context"
	"time"

	"canvasflow/domain/core/aggregates"
	"canvasflow/domain/core/entities"
	"canvasflow/domain/core/valueobjects"
	"canvasflow/domain/events"
)

// GraphReader is the read-only slice of the host surface the context
// extractor depends on. Edges can fail: some host states expose a node
// mapping but no edge collection.
type GraphReader interface {
	// GetNode resolves a node by id
	GetNode(id string) (*entities.Node, bool)

	// Edges returns the edge collection in host order
	Edges() ([]*entities.Edge, error)
}

// CreateTextNodeOptions mirrors the host's node-creation primitive options
type CreateTextNodeOptions struct {
	Position valueobjects.Position
	Size     valueobjects.Size
	Text     string
	Focus    bool

	// Save false tells the host to skip its own persistence side effect as
	// part of creation; the caller decides when persistence happens.
	Save bool
}

// NodeHandle is the host's view of a created node. Implementations that
// keep render state in sync also implement TextMutator.
type NodeHandle interface {
	Node() *entities.Node
}

// TextMutator is the rich-node capability: direct text mutation that keeps
// host-internal render state consistent
type TextMutator interface {
	SetText(text string) error
}

// EdgeHandle is the host's view of a created edge. Implementations with a
// label capability also implement LabelMutator.
type EdgeHandle interface {
	Edge() *entities.Edge
}

// LabelMutator is the rich-edge capability for setting labels
type LabelMutator interface {
	SetLabel(label string) error
}

// GraphView is the host's graph surface: node/edge storage plus the
// creation, data-splice, persistence and render-invalidation primitives
type GraphView interface {
	GraphReader

	// Nodes returns the node mapping
	Nodes() map[string]*entities.Node

	// CreateTextNode delegates to the host's node-creation primitive
	CreateTextNode(ctx context.Context, opts CreateTextNodeOptions) (NodeHandle, error)

	// CreateEdge delegates to the host's direct edge-creation primitive
	CreateEdge(ctx context.Context, from, to *entities.Node, sides valueobjects.SidePair) (EdgeHandle, error)

	// GetData returns the full raw document snapshot
	GetData() (*aggregates.GraphData, error)

	// ImportData re-injects an authoritative document into the host
	ImportData(data *aggregates.GraphData) error

	// RequestSave asks the host to persist through its own debounced
	// mechanism
	RequestSave()

	// RequestFrame signals render invalidation
	RequestFrame()
}

// ViewKind tags host view types
type ViewKind string

// ViewKindCanvas marks graph-typed views
const ViewKindCanvas ViewKind = "canvas"

// Workspace is the host's view registry
type Workspace interface {
	// ActiveViewOfType returns the focused view when it matches the kind
	ActiveViewOfType(kind ViewKind) (GraphView, bool)
}

// CompletionRequest is the transport's request shape
type CompletionRequest struct {
	ID      string
	Context string
	Prompt  string
	Stream  bool

	// OnStream is invoked once per chunk, in delivery order, when Stream
	// is set
	OnStream func(chunk string)
}

// CompletionResponse is the transport's response shape. Content is
// authoritative and may differ from the naive chunk concatenation.
type CompletionResponse struct {
	ID           string
	Content      string
	Model        string
	Timestamp    time.Time
	TokensUsed   int
	FinishReason string
}

// CompletionTransport is the text-completion collaborator. Retry and
// deadline policy live behind this interface, not in the core.
type CompletionTransport interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// EventPublisher carries the orchestrator's lifecycle events to whatever
// host-facing layer wants them
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
