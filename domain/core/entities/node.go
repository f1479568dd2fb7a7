package entities

import (
	"sync"

	"canvasflow/domain/core/valueobjects"
	pkgerrors "canvasflow/pkg/errors"
)

// NodeKind discriminates the payload a canvas node carries
type NodeKind string

const (
	KindText  NodeKind = "text"
	KindFile  NodeKind = "file"
	KindLink  NodeKind = "link"
	KindGroup NodeKind = "group"
)

// Node is a positioned, sized entity in the canvas graph. The host owns the
// canonical record; this entity mirrors it for context extraction and for
// the plain-record text fallback.
type Node struct {
	id string

	// Exactly one of text/file/url is meaningful for a non-group node.
	// file and url never change after construction.
	file string
	url  string

	// mu guards the mutable fields: a streaming request writes text while
	// context extraction for another request may be reading it.
	mu       sync.RWMutex
	kind     NodeKind
	position valueobjects.Position
	size     valueobjects.Size
	text     string
}

// NewNode creates a node from host data. kind may be empty: the host's
// in-memory representations do not always populate the discriminator, so we
// fall back to structural inspection of the payload fields.
func NewNode(id string, kind NodeKind, position valueobjects.Position, size valueobjects.Size, text, file, url string) (*Node, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("node id cannot be empty")
	}

	n := &Node{
		id:       id,
		kind:     kind,
		position: position,
		size:     size,
		text:     text,
		file:     file,
		url:      url,
	}

	if n.kind == "" {
		n.kind = inferKind(text, file, url)
	}

	return n, nil
}

// NewTextNode creates a text node, the only variant this core itself mints
func NewTextNode(id, text string, position valueobjects.Position, size valueobjects.Size) (*Node, error) {
	return NewNode(id, KindText, position, size, text, "", "")
}

// inferKind inspects the payload fields when the discriminator is absent.
// A node carrying none of them is treated as a group.
func inferKind(text, file, url string) NodeKind {
	switch {
	case text != "":
		return KindText
	case file != "":
		return KindFile
	case url != "":
		return KindLink
	default:
		return KindGroup
	}
}

// ID returns the node's host-assigned identifier
func (n *Node) ID() string {
	return n.id
}

// Kind returns the node's payload variant
func (n *Node) Kind() NodeKind {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.kind
}

// Position returns the node's origin
func (n *Node) Position() valueobjects.Position {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position
}

// Size returns the node's extent
func (n *Node) Size() valueobjects.Size {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.size
}

// Text returns the text payload (meaningful for text nodes)
func (n *Node) Text() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.text
}

// File returns the file path payload (meaningful for file nodes)
func (n *Node) File() string {
	return n.file
}

// URL returns the link payload (meaningful for link nodes)
func (n *Node) URL() string {
	return n.url
}

// SetText assigns the text payload directly. This is the plain-record
// fallback; hosts that track render state expose their own mutation
// capability which is preferred over this.
func (n *Node) SetText(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = text
	if n.kind == "" {
		n.kind = KindText
	}
}

// MoveTo repositions the node
func (n *Node) MoveTo(position valueobjects.Position) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = position
}

// Resize changes the node's extent
func (n *Node) Resize(size valueobjects.Size) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.size = size
}
