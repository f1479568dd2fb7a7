package services

import (
	"fmt"
	"path"
	"strings"

	"canvasflow/application/ports"
	"canvasflow/domain/core/entities"
	pkgerrors "canvasflow/pkg/errors"
)

// Prompt section labels and payload tags. These are part of the prompt
// contract with the completion transport and must stay stable.
const (
	labelCurrentNode = "当前节点内容:"
	labelParentNodes = "父节点内容:"
	labelChildNodes  = "子节点内容:"

	fileTagFormat = "[文件: %s]"
	linkTagFormat = "[链接: %s]"
)

// RelatedContext is the assembled neighborhood of a node. ParentNodes and
// ChildNodes carry one entry per matching edge, duplicates and self-loops
// included.
type RelatedContext struct {
	CurrentNode string
	ParentNodes []string
	ChildNodes  []string
	FullContext string
}

// ContextExtractor assembles prompt context from a graph snapshot. All
// operations are pure: no mutation, no I/O, no hidden state.
type ContextExtractor struct{}

// NewContextExtractor creates a context extractor
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{}
}

// ExtractNodeContent renders one node's payload as prompt text: verbatim
// text for text nodes, a tag plus the path's final segment for file nodes,
// a tag plus the raw URL for link nodes, and an empty string for groups.
func (e *ContextExtractor) ExtractNodeContent(node *entities.Node) (string, error) {
	if node == nil {
		return "", pkgerrors.NewContextExtractionError(pkgerrors.OpNodeContent, "node is nil")
	}

	switch node.Kind() {
	case entities.KindText:
		return node.Text(), nil
	case entities.KindFile:
		return fmt.Sprintf(fileTagFormat, path.Base(node.File())), nil
	case entities.KindLink:
		return fmt.Sprintf(linkTagFormat, node.URL()), nil
	default:
		// Groups and unrecognized variants contribute nothing
		return "", nil
	}
}

// ExtractCurrentNodeContext renders the single-node context: the current
// node label followed by the node's content. Never contains parent or
// child section labels.
func (e *ContextExtractor) ExtractCurrentNodeContext(node *entities.Node) (string, error) {
	content, err := e.ExtractNodeContent(node)
	if err != nil {
		return "", err
	}
	return labelCurrentNode + "\n" + content, nil
}

// ExtractRelatedNodesContext scans the edge collection once and assembles
// the node's neighborhood: parents (edges into the node, in encounter
// order), the node itself, children (edges out of the node, likewise
// ordered). The parent/child counts always equal the matching edge counts.
func (e *ContextExtractor) ExtractRelatedNodesContext(graph ports.GraphReader, node *entities.Node) (*RelatedContext, error) {
	if graph == nil {
		return nil, pkgerrors.NewContextExtractionError(pkgerrors.OpConnectedNodes, "graph snapshot is nil")
	}

	current, err := e.ExtractNodeContent(node)
	if err != nil {
		return nil, err
	}

	edges, err := graph.Edges()
	if err != nil {
		return nil, pkgerrors.NewContextExtractionError(pkgerrors.OpConnectedNodes, "edge collection unavailable").WithCause(err)
	}

	parents := []string{}
	children := []string{}

	for _, edge := range edges {
		if edge.ToNode() == node.ID() {
			content, err := e.neighborContent(graph, edge.FromNode())
			if err != nil {
				return nil, err
			}
			parents = append(parents, content)
		}
		if edge.FromNode() == node.ID() {
			content, err := e.neighborContent(graph, edge.ToNode())
			if err != nil {
				return nil, err
			}
			children = append(children, content)
		}
	}

	var sections []string
	if len(parents) > 0 {
		sections = append(sections, labelParentNodes+"\n"+strings.Join(parents, "\n\n"))
	}
	sections = append(sections, labelCurrentNode+"\n"+current)
	if len(children) > 0 {
		sections = append(sections, labelChildNodes+"\n"+strings.Join(children, "\n\n"))
	}

	return &RelatedContext{
		CurrentNode: current,
		ParentNodes: parents,
		ChildNodes:  children,
		FullContext: strings.Join(sections, "\n\n"),
	}, nil
}

// neighborContent resolves an edge endpoint and renders its content. An
// endpoint missing from the node mapping means the snapshot violates its
// own invariants; that is a context-build failure, never silently dropped.
func (e *ContextExtractor) neighborContent(graph ports.GraphReader, nodeID string) (string, error) {
	neighbor, ok := graph.GetNode(nodeID)
	if !ok {
		return "", pkgerrors.NewContextExtractionError(pkgerrors.OpContextBuild,
			fmt.Sprintf("edge references node %s absent from the snapshot", nodeID))
	}
	return e.ExtractNodeContent(neighbor)
}
