package services

import (
	"context"
	"fmt"
	"sync"

	"canvasflow/application/ports"
	"canvasflow/domain/core/aggregates"
	"canvasflow/domain/core/entities"
	"canvasflow/domain/core/valueobjects"
	"canvasflow/domain/events"
)

// fakeGraph is an in-memory GraphView with switchable failure modes so
// tests can force each tier of the mutation fallbacks.
type fakeGraph struct {
	mu    sync.Mutex
	nodes map[string]*entities.Node
	order []string
	edges []*entities.Edge

	// Failure switches
	edgesErr      error
	createNodeErr error
	createEdgeErr error
	getDataErr    error
	importErr     error

	// When true, node handles come back without the text capability
	plainHandles bool

	saveCount   int
	frameCount  int
	importCount int
	nodeSeq     int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{nodes: make(map[string]*entities.Node)}
}

func (g *fakeGraph) addTextNode(id, text string, x, y, w, h float64) *entities.Node {
	node, err := entities.NewTextNode(id, text, valueobjects.NewPosition(x, y), valueobjects.NewSize(w, h))
	if err != nil {
		panic(err)
	}
	g.mu.Lock()
	g.nodes[id] = node
	g.order = append(g.order, id)
	g.mu.Unlock()
	return node
}

func (g *fakeGraph) addNode(node *entities.Node) *entities.Node {
	g.mu.Lock()
	g.nodes[node.ID()] = node
	g.order = append(g.order, node.ID())
	g.mu.Unlock()
	return node
}

func (g *fakeGraph) addEdge(id, from, to string) *entities.Edge {
	edge, err := entities.NewEdge(id, from, to, valueobjects.SidePair{}, "")
	if err != nil {
		panic(err)
	}
	g.mu.Lock()
	g.edges = append(g.edges, edge)
	g.mu.Unlock()
	return edge
}

func (g *fakeGraph) GetNode(id string) (*entities.Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	node, ok := g.nodes[id]
	return node, ok
}

func (g *fakeGraph) Nodes() map[string]*entities.Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]*entities.Node, len(g.nodes))
	for k, v := range g.nodes {
		out[k] = v
	}
	return out
}

func (g *fakeGraph) Edges() ([]*entities.Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.edgesErr != nil {
		return nil, g.edgesErr
	}
	out := make([]*entities.Edge, len(g.edges))
	copy(out, g.edges)
	return out, nil
}

func (g *fakeGraph) CreateTextNode(ctx context.Context, opts ports.CreateTextNodeOptions) (ports.NodeHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createNodeErr != nil {
		return nil, g.createNodeErr
	}

	g.nodeSeq++
	id := fmt.Sprintf("host-node-%d", g.nodeSeq)
	node, err := entities.NewTextNode(id, opts.Text, opts.Position, opts.Size)
	if err != nil {
		return nil, err
	}
	g.nodes[id] = node
	g.order = append(g.order, id)
	if opts.Save {
		g.saveCount++
	}

	if g.plainHandles {
		return &plainNodeHandle{node: node}, nil
	}
	return &richNodeHandle{node: node}, nil
}

func (g *fakeGraph) CreateEdge(ctx context.Context, from, to *entities.Node, sides valueobjects.SidePair) (ports.EdgeHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createEdgeErr != nil {
		return nil, g.createEdgeErr
	}

	edge, err := entities.NewEdge(fmt.Sprintf("host-edge-%d", len(g.edges)+1), from.ID(), to.ID(), sides, "")
	if err != nil {
		return nil, err
	}
	g.edges = append(g.edges, edge)
	return &richEdgeHandle{edge: edge}, nil
}

func (g *fakeGraph) GetData() (*aggregates.GraphData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getDataErr != nil {
		return nil, g.getDataErr
	}

	data := &aggregates.GraphData{}
	for _, id := range g.order {
		data.Nodes = append(data.Nodes, aggregates.RecordFromNode(g.nodes[id]))
	}
	for _, edge := range g.edges {
		data.Edges = append(data.Edges, aggregates.RecordFromEdge(edge))
	}
	return data, nil
}

func (g *fakeGraph) ImportData(data *aggregates.GraphData) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.importErr != nil {
		return g.importErr
	}
	g.importCount++

	nodes := make(map[string]*entities.Node, len(data.Nodes))
	order := make([]string, 0, len(data.Nodes))
	for _, rec := range data.Nodes {
		node, err := aggregates.NodeFromRecord(rec)
		if err != nil {
			return err
		}
		nodes[node.ID()] = node
		order = append(order, node.ID())
	}
	edges := make([]*entities.Edge, 0, len(data.Edges))
	for _, rec := range data.Edges {
		edge, err := aggregates.EdgeFromRecord(rec)
		if err != nil {
			return err
		}
		edges = append(edges, edge)
	}

	g.nodes = nodes
	g.order = order
	g.edges = edges
	return nil
}

func (g *fakeGraph) RequestSave() {
	g.mu.Lock()
	g.saveCount++
	g.mu.Unlock()
}

func (g *fakeGraph) RequestFrame() {
	g.mu.Lock()
	g.frameCount++
	g.mu.Unlock()
}

func (g *fakeGraph) saves() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saveCount
}

func (g *fakeGraph) frames() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frameCount
}

func (g *fakeGraph) imports() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.importCount
}

func (g *fakeGraph) nodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

func (g *fakeGraph) edgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edges)
}

// richNodeHandle carries the text capability
type richNodeHandle struct {
	node *entities.Node
}

func (h *richNodeHandle) Node() *entities.Node { return h.node }
func (h *richNodeHandle) SetText(text string) error {
	h.node.SetText(text)
	return nil
}

// plainNodeHandle lacks the text capability
type plainNodeHandle struct {
	node *entities.Node
}

func (h *plainNodeHandle) Node() *entities.Node { return h.node }

// richEdgeHandle carries the label capability
type richEdgeHandle struct {
	edge *entities.Edge
}

func (h *richEdgeHandle) Edge() *entities.Edge { return h.edge }
func (h *richEdgeHandle) SetLabel(label string) error {
	h.edge.SetLabel(label)
	return nil
}

// fakeWorkspace serves a single view under a configurable kind
type fakeWorkspace struct {
	view ports.GraphView
	kind ports.ViewKind
}

func (w *fakeWorkspace) ActiveViewOfType(kind ports.ViewKind) (ports.GraphView, bool) {
	if w.view == nil || w.kind != kind {
		return nil, false
	}
	return w.view, true
}

// fakeTransport delegates to a per-test function and counts invocations
type fakeTransport struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error)
}

func (t *fakeTransport) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return t.fn(ctx, req)
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// recordingPublisher captures every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		p.Publish(ctx, event)
	}
	return nil
}

func (p *recordingPublisher) byType(eventType string) []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.DomainEvent
	for _, event := range p.events {
		if event.GetEventType() == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (p *recordingPublisher) settledOutcome(requestID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, event := range p.events {
		if settled, ok := event.(events.RequestSettled); ok && settled.RequestID == requestID {
			return settled.Outcome, true
		}
	}
	return "", false
}
