package canvashost

import (
	"sync"

	"canvasflow/application/ports"
)

// Workspace tracks which view is active. The canvas view is the only view
// this host knows how to serve, but callers still go through the kind probe
// so non-canvas focus states are represented.
type Workspace struct {
	mu     sync.RWMutex
	canvas *Canvas
	active ports.ViewKind
}

func NewWorkspace(canvas *Canvas) *Workspace {
	return &Workspace{
		canvas: canvas,
		active: ports.ViewKindCanvas,
	}
}

// ActiveViewOfType returns the active view when it matches the requested kind
func (w *Workspace) ActiveViewOfType(kind ports.ViewKind) (ports.GraphView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active != kind || w.canvas == nil {
		return nil, false
	}
	return w.canvas, true
}

// SetActive switches workspace focus to another view kind
func (w *Workspace) SetActive(kind ports.ViewKind) {
	w.mu.Lock()
	w.active = kind
	w.mu.Unlock()
}
