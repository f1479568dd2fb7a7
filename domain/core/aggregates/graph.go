package aggregates

import (
	"errors"

	"canvasflow/domain/core/entities"
	"canvasflow/domain/core/valueobjects"
)

// Graph is a snapshot of the host's canvas document: a node mapping plus an
// ordered edge collection. The host owns the canonical copy; this aggregate
// only mirrors it for reads and validates invariants on mutation.
type Graph struct {
	nodes map[string]*entities.Node
	edges []*entities.Edge
}

// NewGraph creates an empty graph snapshot
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*entities.Node),
		edges: []*entities.Edge{},
	}
}

// AddNode adds a node to the snapshot
func (g *Graph) AddNode(node *entities.Node) error {
	if node == nil {
		return errors.New("node cannot be nil")
	}
	if _, exists := g.nodes[node.ID()]; exists {
		return errors.New("node already exists in graph")
	}

	g.nodes[node.ID()] = node
	return nil
}

// AddEdge appends an edge. Both endpoints must already be present; this is
// the invariant the fallback splice path must also respect.
func (g *Graph) AddEdge(edge *entities.Edge) error {
	if edge == nil {
		return errors.New("edge cannot be nil")
	}
	if _, ok := g.nodes[edge.FromNode()]; !ok {
		return errors.New("edge references non-existent source node")
	}
	if _, ok := g.nodes[edge.ToNode()]; !ok {
		return errors.New("edge references non-existent target node")
	}

	g.edges = append(g.edges, edge)
	return nil
}

// GetNode retrieves a node by id
func (g *Graph) GetNode(id string) (*entities.Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// Nodes returns a copy of the node mapping
func (g *Graph) Nodes() map[string]*entities.Node {
	nodes := make(map[string]*entities.Node, len(g.nodes))
	for k, v := range g.nodes {
		nodes[k] = v
	}
	return nodes
}

// Edges returns the edge collection in insertion order
func (g *Graph) Edges() []*entities.Edge {
	edges := make([]*entities.Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Validate ensures graph invariants hold: every edge endpoint resolves to a
// node in the same snapshot
func (g *Graph) Validate() error {
	for _, edge := range g.edges {
		if _, ok := g.nodes[edge.FromNode()]; !ok {
			return errors.New("edge references non-existent source node")
		}
		if _, ok := g.nodes[edge.ToNode()]; !ok {
			return errors.New("edge references non-existent target node")
		}
	}
	return nil
}

// GraphData is the host's raw document shape, as returned by GetData and
// accepted by ImportData. Records use the canvas storage format.
type GraphData struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// NodeRecord is one node in the host's storage format
type NodeRecord struct {
	ID     string  `json:"id"`
	Type   string  `json:"type,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Text   string  `json:"text,omitempty"`
	File   string  `json:"file,omitempty"`
	URL    string  `json:"url,omitempty"`
}

// EdgeRecord is one edge in the host's storage format
type EdgeRecord struct {
	ID       string `json:"id"`
	FromNode string `json:"fromNode"`
	ToNode   string `json:"toNode"`
	FromSide string `json:"fromSide,omitempty"`
	ToSide   string `json:"toSide,omitempty"`
	Label    string `json:"label,omitempty"`
}

// NodeFromRecord rehydrates an entity from a storage record
func NodeFromRecord(rec NodeRecord) (*entities.Node, error) {
	return entities.NewNode(
		rec.ID,
		entities.NodeKind(rec.Type),
		valueobjects.NewPosition(rec.X, rec.Y),
		valueobjects.NewSize(rec.Width, rec.Height),
		rec.Text,
		rec.File,
		rec.URL,
	)
}

// EdgeFromRecord rehydrates an entity from a storage record
func EdgeFromRecord(rec EdgeRecord) (*entities.Edge, error) {
	fromSide, err := valueobjects.NewSideFromString(rec.FromSide)
	if err != nil {
		return nil, err
	}
	toSide, err := valueobjects.NewSideFromString(rec.ToSide)
	if err != nil {
		return nil, err
	}

	return entities.NewEdge(rec.ID, rec.FromNode, rec.ToNode, valueobjects.SidePair{From: fromSide, To: toSide}, rec.Label)
}

// RecordFromNode flattens an entity into its storage record
func RecordFromNode(n *entities.Node) NodeRecord {
	return NodeRecord{
		ID:     n.ID(),
		Type:   string(n.Kind()),
		X:      n.Position().X(),
		Y:      n.Position().Y(),
		Width:  n.Size().Width(),
		Height: n.Size().Height(),
		Text:   n.Text(),
		File:   n.File(),
		URL:    n.URL(),
	}
}

// RecordFromEdge flattens an entity into its storage record
func RecordFromEdge(e *entities.Edge) EdgeRecord {
	return EdgeRecord{
		ID:       e.ID(),
		FromNode: e.FromNode(),
		ToNode:   e.ToNode(),
		FromSide: e.FromSide().String(),
		ToSide:   e.ToSide().String(),
		Label:    e.Label(),
	}
}
