package services

import (
	"context"
	"math"

	"go.uber.org/zap"

	"canvasflow/application/ports"
	"canvasflow/application/sagas"
	"canvasflow/domain/core/aggregates"
	"canvasflow/domain/core/entities"
	"canvasflow/domain/core/valueobjects"
	pkgerrors "canvasflow/pkg/errors"
)

// ResponseNode binds a created node to its text-mutation strategy. The
// strategy is selected once at creation time: the host's own capability
// when present, direct field assignment otherwise.
type ResponseNode struct {
	node    *entities.Node
	setText func(text string) error
}

// Node returns the underlying entity
func (r *ResponseNode) Node() *entities.Node {
	return r.node
}

// ID returns the node id
func (r *ResponseNode) ID() string {
	return r.node.ID()
}

// NodeMutator wraps the host's graph API: node creation, text updates and
// edge creation with a direct-primitive-then-manual-splice fallback. It
// knows nothing about AI requests.
type NodeMutator struct {
	logger *zap.Logger
}

// NewNodeMutator creates a node mutator
func NewNodeMutator(logger *zap.Logger) *NodeMutator {
	return &NodeMutator{logger: logger}
}

// CreateTextNode creates a text node through the host primitive, with the
// host's own persistence side effect suppressed; the caller controls when
// persistence happens. A handle without the text-mutation capability is
// logged and still returned, bound to the plain-record fallback.
func (m *NodeMutator) CreateTextNode(ctx context.Context, graph ports.GraphView, text string, position valueobjects.Position, size valueobjects.Size) (*ResponseNode, error) {
	handle, err := graph.CreateTextNode(ctx, ports.CreateTextNodeOptions{
		Position: position,
		Size:     size,
		Text:     text,
		Focus:    false,
		Save:     false,
	})
	if err != nil {
		return nil, pkgerrors.NewNodeOperationError(pkgerrors.OpCreate, "host node creation failed", err)
	}

	node := handle.Node()
	if node == nil {
		return nil, pkgerrors.NewNodeOperationError(pkgerrors.OpCreate, "host returned an empty node handle", nil)
	}

	if mutator, ok := handle.(ports.TextMutator); ok {
		return &ResponseNode{node: node, setText: mutator.SetText}, nil
	}

	m.logger.Warn("Created node lacks text mutation capability, using field assignment",
		zap.String("nodeID", node.ID()),
	)
	return &ResponseNode{
		node: node,
		setText: func(text string) error {
			node.SetText(text)
			return nil
		},
	}, nil
}

// UpdateNodeContent writes text through the node's bound mutation strategy
// and signals render invalidation. It never triggers host persistence:
// that is left to the host's own debounced mechanism, since forcing it per
// streamed chunk is a performance and legacy-data crash hazard.
func (m *NodeMutator) UpdateNodeContent(graph ports.GraphView, node *ResponseNode, text string) error {
	if node == nil || node.setText == nil {
		return pkgerrors.NewNodeOperationError(pkgerrors.OpUpdate, "response node is not bound", nil)
	}

	if err := node.setText(text); err != nil {
		return pkgerrors.NewNodeOperationError(pkgerrors.OpUpdate, "text mutation failed", err)
	}

	graph.RequestFrame()
	return nil
}

// DetermineEdgeSides picks connector anchors from the dominant axis
// between the two node origins. Vertical wins ties.
func (m *NodeMutator) DetermineEdgeSides(from, to *entities.Node) valueobjects.SidePair {
	dx := to.Position().X() - from.Position().X()
	dy := to.Position().Y() - from.Position().Y()

	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return valueobjects.SidePair{From: valueobjects.SideRight, To: valueobjects.SideLeft}
		}
		return valueobjects.SidePair{From: valueobjects.SideLeft, To: valueobjects.SideRight}
	}

	if dy < 0 {
		return valueobjects.SidePair{From: valueobjects.SideTop, To: valueobjects.SideBottom}
	}
	return valueobjects.SidePair{From: valueobjects.SideBottom, To: valueobjects.SideTop}
}

// CreateEdge connects two nodes. The host's direct primitive is tried
// first; on any failure the edge is spliced manually into the raw document
// and re-injected. Both tiers' failure reasons are kept for diagnostics.
// On total failure the graph is left without a partial edge and a
// node-operation failure is returned, never a panic.
func (m *NodeMutator) CreateEdge(ctx context.Context, graph ports.GraphView, from, to *entities.Node, label string) error {
	sides := m.DetermineEdgeSides(from, to)

	primary := sagas.Attempt{
		Name: "host-edge-primitive",
		Run: func(ctx context.Context) error {
			return m.createEdgeDirect(ctx, graph, from, to, sides, label)
		},
	}
	fallback := sagas.Attempt{
		Name: "manual-data-splice",
		Run: func(ctx context.Context) error {
			return m.spliceEdge(graph, from, to, sides, label)
		},
	}

	if err := sagas.NewFallback("create-edge", m.logger).Execute(ctx, primary, fallback); err != nil {
		return pkgerrors.NewNodeOperationError(pkgerrors.OpConnect, "edge creation failed on both paths", err)
	}
	return nil
}

// createEdgeDirect is the primary tier: the host primitive, the label
// capability when present, then a persistence request.
func (m *NodeMutator) createEdgeDirect(ctx context.Context, graph ports.GraphView, from, to *entities.Node, sides valueobjects.SidePair, label string) error {
	handle, err := graph.CreateEdge(ctx, from, to, sides)
	if err != nil {
		return err
	}

	if label != "" {
		if mutator, ok := handle.(ports.LabelMutator); ok {
			if err := mutator.SetLabel(label); err != nil {
				m.logger.Debug("Edge label capability failed, assigning field directly",
					zap.String("edgeID", handle.Edge().ID()),
					zap.Error(err),
				)
				handle.Edge().SetLabel(label)
			}
		} else if edge := handle.Edge(); edge != nil {
			edge.SetLabel(label)
		}
	}

	graph.RequestSave()
	return nil
}

// spliceEdge is the fallback tier: read the full document, synthesize an
// edge record, re-inject the combined data, then request a frame. No
// persistence request here: the injected data already is the host's
// authoritative copy.
func (m *NodeMutator) spliceEdge(graph ports.GraphView, from, to *entities.Node, sides valueobjects.SidePair, label string) error {
	data, err := graph.GetData()
	if err != nil {
		return pkgerrors.NewContextExtractionError(pkgerrors.OpContextBuild, "graph data snapshot unavailable").WithCause(err)
	}
	if data == nil {
		return pkgerrors.NewContextExtractionError(pkgerrors.OpContextBuild, "graph data snapshot unavailable")
	}

	record := aggregates.EdgeRecord{
		ID:       valueobjects.NewEdgeID(),
		FromNode: from.ID(),
		ToNode:   to.ID(),
		FromSide: sides.From.String(),
		ToSide:   sides.To.String(),
		Label:    label,
	}
	data.Edges = append(data.Edges, record)

	if err := graph.ImportData(data); err != nil {
		return err
	}

	m.logger.Info("Edge spliced through data re-injection",
		zap.String("edgeID", record.ID),
		zap.String("from", from.ID()),
		zap.String("to", to.ID()),
	)

	graph.RequestFrame()
	return nil
}

// CalculateNodePosition places a response node relative to its trigger:
// horizontally offset from the trigger's origin, vertically offset from
// the trigger's bottom edge. Offsets may be negative.
func (m *NodeMutator) CalculateNodePosition(trigger *entities.Node, offsetX, offsetY float64) valueobjects.Position {
	return valueobjects.NewPosition(
		trigger.Position().X()+offsetX,
		trigger.Position().Y()+trigger.Size().Height()+offsetY,
	)
}

// ActiveGraph returns the focused graph view, or false when the host's
// active view is not graph-typed. Never panics.
func (m *NodeMutator) ActiveGraph(workspace ports.Workspace) (ports.GraphView, bool) {
	if workspace == nil {
		return nil, false
	}
	return workspace.ActiveViewOfType(ports.ViewKindCanvas)
}
