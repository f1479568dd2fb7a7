package canvashost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canvasflow/application/ports"
	"canvasflow/domain/core/aggregates"
	"canvasflow/domain/core/entities"
	"canvasflow/domain/core/valueobjects"
)

// Canvas is a file-backed implementation of the host graph surface. The
// document format is the JSON canvas shape: {"nodes":[...],"edges":[...]}.
// All operations are safe for concurrent use; persistence is debounced and
// writes are atomic (temp file + rename).
type Canvas struct {
	path         string
	saveDebounce time.Duration
	logger       *zap.Logger

	mu        sync.RWMutex
	nodes     map[string]*entities.Node
	nodeOrder []string
	edges     []*entities.Edge

	saveMu    sync.Mutex
	saveTimer *time.Timer

	frameMu        sync.RWMutex
	frameListeners []func()

	// selfWrites counts pending filesystem events caused by our own Flush,
	// so the reload watcher can tell them apart from external edits.
	selfWrites atomic.Int64

	watcher *reloadWatcher
}

// NewCanvas opens (or initializes) the canvas document at path
func NewCanvas(path string, saveDebounce time.Duration, logger *zap.Logger) (*Canvas, error) {
	c := &Canvas{
		path:         path,
		saveDebounce: saveDebounce,
		logger:       logger,
		nodes:        make(map[string]*entities.Node),
		nodeOrder:    []string{},
		edges:        []*entities.Edge{},
	}

	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// load reads the document from disk; a missing file starts an empty canvas
func (c *Canvas) load() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Info("Canvas file not found, starting empty", zap.String("path", c.path))
			return nil
		}
		return fmt.Errorf("failed to read canvas file: %w", err)
	}

	var data aggregates.GraphData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse canvas file: %w", err)
	}

	return c.replaceData(&data)
}

// replaceData swaps the in-memory document for the given records
func (c *Canvas) replaceData(data *aggregates.GraphData) error {
	nodes := make(map[string]*entities.Node, len(data.Nodes))
	order := make([]string, 0, len(data.Nodes))
	for _, rec := range data.Nodes {
		node, err := aggregates.NodeFromRecord(rec)
		if err != nil {
			return fmt.Errorf("invalid node record %q: %w", rec.ID, err)
		}
		if _, dup := nodes[node.ID()]; dup {
			return fmt.Errorf("duplicate node id %q", node.ID())
		}
		nodes[node.ID()] = node
		order = append(order, node.ID())
	}

	edges := make([]*entities.Edge, 0, len(data.Edges))
	for _, rec := range data.Edges {
		edge, err := aggregates.EdgeFromRecord(rec)
		if err != nil {
			return fmt.Errorf("invalid edge record %q: %w", rec.ID, err)
		}
		edges = append(edges, edge)
	}

	c.mu.Lock()
	c.nodes = nodes
	c.nodeOrder = order
	c.edges = edges
	c.mu.Unlock()
	return nil
}

// GetNode resolves a node by id
func (c *Canvas) GetNode(id string) (*entities.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	node, ok := c.nodes[id]
	return node, ok
}

// Nodes returns a copy of the node mapping
func (c *Canvas) Nodes() map[string]*entities.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nodes := make(map[string]*entities.Node, len(c.nodes))
	for k, v := range c.nodes {
		nodes[k] = v
	}
	return nodes
}

// Edges returns the edge collection in document order
func (c *Canvas) Edges() ([]*entities.Edge, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	edges := make([]*entities.Edge, len(c.edges))
	copy(edges, c.edges)
	return edges, nil
}

// canvasNode is the host's node handle. Handles hold an id, not a bare
// entity pointer: a reload or ImportData replaces the entity objects, and
// mutations through a handle must land on whichever entity is current.
type canvasNode struct {
	canvas *Canvas
	node   *entities.Node
}

// Node returns the current entity for this handle's id. The creation-time
// entity is returned only when a reload has removed the node entirely.
func (h *canvasNode) Node() *entities.Node {
	h.canvas.mu.RLock()
	defer h.canvas.mu.RUnlock()
	if current, ok := h.canvas.nodes[h.node.ID()]; ok {
		return current
	}
	return h.node
}

// SetText implements the rich-node capability
func (h *canvasNode) SetText(text string) error {
	h.canvas.mu.RLock()
	current, ok := h.canvas.nodes[h.node.ID()]
	h.canvas.mu.RUnlock()
	if !ok {
		return fmt.Errorf("node %q no longer in canvas", h.node.ID())
	}
	current.SetText(text)
	return nil
}

// canvasEdge is the host's edge handle with the label capability
type canvasEdge struct {
	canvas *Canvas
	edge   *entities.Edge
}

func (h *canvasEdge) Edge() *entities.Edge {
	h.canvas.mu.RLock()
	defer h.canvas.mu.RUnlock()
	if current := h.canvas.findEdge(h.edge.ID()); current != nil {
		return current
	}
	return h.edge
}

// SetLabel implements the rich-edge capability
func (h *canvasEdge) SetLabel(label string) error {
	h.canvas.mu.RLock()
	current := h.canvas.findEdge(h.edge.ID())
	h.canvas.mu.RUnlock()
	if current == nil {
		return fmt.Errorf("edge %q no longer in canvas", h.edge.ID())
	}
	current.SetLabel(label)
	return nil
}

// findEdge resolves an edge by id; callers hold c.mu
func (c *Canvas) findEdge(id string) *entities.Edge {
	for _, edge := range c.edges {
		if edge.ID() == id {
			return edge
		}
	}
	return nil
}

// CreateTextNode creates a text node. When opts.Save is false, persistence
// is skipped here and left entirely to the caller's RequestSave calls.
func (c *Canvas) CreateTextNode(ctx context.Context, opts ports.CreateTextNodeOptions) (ports.NodeHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node, err := entities.NewTextNode(newNodeID(), opts.Text, opts.Position, opts.Size)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.nodes[node.ID()] = node
	c.nodeOrder = append(c.nodeOrder, node.ID())
	c.mu.Unlock()

	if opts.Save {
		c.RequestSave()
	}

	return &canvasNode{canvas: c, node: node}, nil
}

// CreateEdge creates an edge between two existing nodes
func (c *Canvas) CreateEdge(ctx context.Context, from, to *entities.Node, sides valueobjects.SidePair) (ports.EdgeHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, errors.New("edge endpoints cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.nodes[from.ID()]; !ok {
		return nil, fmt.Errorf("source node %q not in canvas", from.ID())
	}
	if _, ok := c.nodes[to.ID()]; !ok {
		return nil, fmt.Errorf("target node %q not in canvas", to.ID())
	}

	edge, err := entities.NewEdge(newEdgeID(), from.ID(), to.ID(), sides, "")
	if err != nil {
		return nil, err
	}
	c.edges = append(c.edges, edge)

	return &canvasEdge{canvas: c, edge: edge}, nil
}

// GetData returns the full raw document snapshot
func (c *Canvas) GetData() (*aggregates.GraphData, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data := &aggregates.GraphData{
		Nodes: make([]aggregates.NodeRecord, 0, len(c.nodes)),
		Edges: make([]aggregates.EdgeRecord, 0, len(c.edges)),
	}
	for _, id := range c.nodeOrder {
		if node, ok := c.nodes[id]; ok {
			data.Nodes = append(data.Nodes, aggregates.RecordFromNode(node))
		}
	}
	for _, edge := range c.edges {
		data.Edges = append(data.Edges, aggregates.RecordFromEdge(edge))
	}
	return data, nil
}

// ImportData re-injects an authoritative document, replacing the current one
func (c *Canvas) ImportData(data *aggregates.GraphData) error {
	if data == nil {
		return errors.New("data cannot be nil")
	}
	return c.replaceData(data)
}

// RequestSave schedules a debounced write of the document. Bursts of
// requests coalesce into one write.
func (c *Canvas) RequestSave() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if c.saveTimer != nil {
		c.saveTimer.Stop()
	}
	c.saveTimer = time.AfterFunc(c.saveDebounce, func() {
		if err := c.Flush(); err != nil {
			c.logger.Error("Canvas save failed", zap.String("path", c.path), zap.Error(err))
		}
	})
}

// Flush writes the document now, atomically
func (c *Canvas) Flush() error {
	data, err := c.GetData()
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal canvas: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create canvas directory: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write canvas: %w", err)
	}
	// Marked before the rename so the watcher cannot observe the event
	// ahead of the mark.
	if c.watcher != nil {
		c.selfWrites.Add(1)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		if c.watcher != nil {
			c.selfWrites.Add(-1)
		}
		return fmt.Errorf("failed to replace canvas: %w", err)
	}

	c.logger.Debug("Canvas persisted",
		zap.String("path", c.path),
		zap.Int("nodes", len(data.Nodes)),
		zap.Int("edges", len(data.Edges)),
	)
	return nil
}

// consumeSelfWrite reports whether a pending self-write mark accounts for a
// filesystem event, consuming it if so
func (c *Canvas) consumeSelfWrite() bool {
	for {
		n := c.selfWrites.Load()
		if n <= 0 {
			return false
		}
		if c.selfWrites.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// RequestFrame signals render invalidation to all registered listeners
func (c *Canvas) RequestFrame() {
	c.frameMu.RLock()
	listeners := make([]func(), len(c.frameListeners))
	copy(listeners, c.frameListeners)
	c.frameMu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnFrame registers a render-invalidation listener
func (c *Canvas) OnFrame(fn func()) {
	c.frameMu.Lock()
	c.frameListeners = append(c.frameListeners, fn)
	c.frameMu.Unlock()
}

// Close stops the debounce timer and the watcher, flushing pending state
func (c *Canvas) Close() error {
	c.saveMu.Lock()
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	c.saveMu.Unlock()

	if c.watcher != nil {
		c.watcher.stop()
	}

	return c.Flush()
}

// Path returns the backing file path
func (c *Canvas) Path() string {
	return c.path
}

func newNodeID() string {
	return "node-" + uuid.New().String()
}

func newEdgeID() string {
	return "edge-" + uuid.New().String()
}
