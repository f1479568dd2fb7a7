package entities

import (
	"sync"

	"canvasflow/domain/core/valueobjects"
	pkgerrors "canvasflow/pkg/errors"
)

// Edge is a directed connection between two nodes of the same graph,
// optionally anchored at specific sides and labeled. A node X is a parent
// of N when an edge X→N exists; Y is a child of N when N→Y exists.
type Edge struct {
	id       string
	fromNode string
	toNode   string
	fromSide valueobjects.Side
	toSide   valueobjects.Side

	// mu guards the label, the only field mutated after construction
	mu    sync.RWMutex
	label string
}

// NewEdge creates an edge from host data
func NewEdge(id, fromNode, toNode string, sides valueobjects.SidePair, label string) (*Edge, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("edge id cannot be empty")
	}
	if fromNode == "" || toNode == "" {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}

	return &Edge{
		id:       id,
		fromNode: fromNode,
		toNode:   toNode,
		fromSide: sides.From,
		toSide:   sides.To,
		label:    label,
	}, nil
}

// ID returns the edge's host-assigned identifier
func (e *Edge) ID() string {
	return e.id
}

// FromNode returns the source node id
func (e *Edge) FromNode() string {
	return e.fromNode
}

// ToNode returns the target node id
func (e *Edge) ToNode() string {
	return e.toNode
}

// FromSide returns the anchor on the source node, possibly unset
func (e *Edge) FromSide() valueobjects.Side {
	return e.fromSide
}

// ToSide returns the anchor on the target node, possibly unset
func (e *Edge) ToSide() valueobjects.Side {
	return e.toSide
}

// Label returns the edge label, possibly empty
func (e *Edge) Label() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.label
}

// SetLabel assigns the edge label directly. Hosts with richer edge objects
// expose their own label capability which is preferred over this.
func (e *Edge) SetLabel(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.label = label
}
