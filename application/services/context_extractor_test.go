package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasflow/domain/core/entities"
	"canvasflow/domain/core/valueobjects"
	pkgerrors "canvasflow/pkg/errors"
)

func mustNode(t *testing.T, id string, kind entities.NodeKind, text, file, url string) *entities.Node {
	t.Helper()
	node, err := entities.NewNode(id, kind, valueobjects.NewPosition(0, 0), valueobjects.NewSize(100, 100), text, file, url)
	require.NoError(t, err)
	return node
}

func TestContextExtractor_ExtractNodeContent(t *testing.T) {
	extractor := NewContextExtractor()

	t.Run("text node returns text verbatim", func(t *testing.T) {
		node := mustNode(t, "n1", entities.KindText, "  hello\nworld  ", "", "")

		content, err := extractor.ExtractNodeContent(node)

		require.NoError(t, err)
		assert.Equal(t, "  hello\nworld  ", content)
	})

	t.Run("file node renders tag with final path segment", func(t *testing.T) {
		node := mustNode(t, "n2", entities.KindFile, "", "docs/notes/2024/summary.md", "")

		content, err := extractor.ExtractNodeContent(node)

		require.NoError(t, err)
		assert.Equal(t, "[文件: summary.md]", content)
	})

	t.Run("link node renders tag with raw url", func(t *testing.T) {
		node := mustNode(t, "n3", entities.KindLink, "", "", "https://example.com/a?b=c")

		content, err := extractor.ExtractNodeContent(node)

		require.NoError(t, err)
		assert.Equal(t, "[链接: https://example.com/a?b=c]", content)
	})

	t.Run("group node contributes nothing", func(t *testing.T) {
		node := mustNode(t, "n4", entities.KindGroup, "", "", "")

		content, err := extractor.ExtractNodeContent(node)

		require.NoError(t, err)
		assert.Empty(t, content)
	})

	t.Run("kind inferred from populated fields when discriminator absent", func(t *testing.T) {
		node, err := entities.NewNode("n5", "", valueobjects.NewPosition(0, 0), valueobjects.NewSize(10, 10), "", "plan.canvas", "")
		require.NoError(t, err)

		content, err := extractor.ExtractNodeContent(node)

		require.NoError(t, err)
		assert.Equal(t, "[文件: plan.canvas]", content)
	})

	t.Run("repeated extraction is stable", func(t *testing.T) {
		node := mustNode(t, "n6", entities.KindText, "stable content", "", "")

		first, err := extractor.ExtractNodeContent(node)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			again, err := extractor.ExtractNodeContent(node)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("extraction while another request streams into the node", func(t *testing.T) {
		node := mustNode(t, "n7", entities.KindText, "seed", "", "")

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 200; i++ {
				node.SetText(fmt.Sprintf("chunk %d", i))
			}
		}()
		for i := 0; i < 200; i++ {
			content, err := extractor.ExtractNodeContent(node)
			require.NoError(t, err)
			assert.NotEmpty(t, content)
		}
		<-done
	})

	t.Run("nil node is an extraction failure", func(t *testing.T) {
		_, err := extractor.ExtractNodeContent(nil)

		require.Error(t, err)
		assert.Equal(t, pkgerrors.KindContextExtraction, pkgerrors.KindOf(err))
	})
}

func TestContextExtractor_ExtractCurrentNodeContext(t *testing.T) {
	extractor := NewContextExtractor()
	node := mustNode(t, "n1", entities.KindText, "current text", "", "")

	context, err := extractor.ExtractCurrentNodeContext(node)

	require.NoError(t, err)
	assert.Equal(t, "当前节点内容:\ncurrent text", context)
	assert.NotContains(t, context, "父节点内容:")
	assert.NotContains(t, context, "子节点内容:")
}

func TestContextExtractor_ExtractRelatedNodesContext(t *testing.T) {
	extractor := NewContextExtractor()

	t.Run("parents and children in edge encounter order", func(t *testing.T) {
		graph := newFakeGraph()
		graph.addTextNode("p1", "parent one", 0, 0, 100, 100)
		graph.addTextNode("p2", "parent two", 0, 0, 100, 100)
		current := graph.addTextNode("cur", "current", 0, 0, 100, 100)
		graph.addTextNode("c1", "child one", 0, 0, 100, 100)
		graph.addEdge("e1", "p1", "cur")
		graph.addEdge("e2", "cur", "c1")
		graph.addEdge("e3", "p2", "cur")

		related, err := extractor.ExtractRelatedNodesContext(graph, current)

		require.NoError(t, err)
		assert.Equal(t, []string{"parent one", "parent two"}, related.ParentNodes)
		assert.Equal(t, []string{"child one"}, related.ChildNodes)
		assert.Equal(t,
			"父节点内容:\nparent one\n\nparent two\n\n当前节点内容:\ncurrent\n\n子节点内容:\nchild one",
			related.FullContext)
	})

	t.Run("duplicate edges produce duplicate entries", func(t *testing.T) {
		graph := newFakeGraph()
		graph.addTextNode("p1", "parent", 0, 0, 100, 100)
		current := graph.addTextNode("cur", "current", 0, 0, 100, 100)
		graph.addEdge("e1", "p1", "cur")
		graph.addEdge("e2", "p1", "cur")

		related, err := extractor.ExtractRelatedNodesContext(graph, current)

		require.NoError(t, err)
		assert.Equal(t, []string{"parent", "parent"}, related.ParentNodes)
	})

	t.Run("self loop appears as both parent and child", func(t *testing.T) {
		graph := newFakeGraph()
		current := graph.addTextNode("cur", "current", 0, 0, 100, 100)
		graph.addEdge("e1", "cur", "cur")

		related, err := extractor.ExtractRelatedNodesContext(graph, current)

		require.NoError(t, err)
		assert.Equal(t, []string{"current"}, related.ParentNodes)
		assert.Equal(t, []string{"current"}, related.ChildNodes)
	})

	t.Run("isolated node omits parent and child sections", func(t *testing.T) {
		graph := newFakeGraph()
		current := graph.addTextNode("cur", "alone", 0, 0, 100, 100)

		related, err := extractor.ExtractRelatedNodesContext(graph, current)

		require.NoError(t, err)
		assert.Empty(t, related.ParentNodes)
		assert.Empty(t, related.ChildNodes)
		assert.Equal(t, "当前节点内容:\nalone", related.FullContext)
		assert.False(t, strings.Contains(related.FullContext, "父节点内容:"))
		assert.False(t, strings.Contains(related.FullContext, "子节点内容:"))
	})

	t.Run("unrelated edges are ignored", func(t *testing.T) {
		graph := newFakeGraph()
		current := graph.addTextNode("cur", "current", 0, 0, 100, 100)
		graph.addTextNode("a", "a", 0, 0, 100, 100)
		graph.addTextNode("b", "b", 0, 0, 100, 100)
		graph.addEdge("e1", "a", "b")

		related, err := extractor.ExtractRelatedNodesContext(graph, current)

		require.NoError(t, err)
		assert.Empty(t, related.ParentNodes)
		assert.Empty(t, related.ChildNodes)
	})

	t.Run("mixed neighbor kinds render their tags", func(t *testing.T) {
		graph := newFakeGraph()
		current := graph.addTextNode("cur", "current", 0, 0, 100, 100)
		file := mustNode(t, "f1", entities.KindFile, "", "refs/spec.pdf", "")
		graph.addNode(file)
		graph.addEdge("e1", "f1", "cur")

		related, err := extractor.ExtractRelatedNodesContext(graph, current)

		require.NoError(t, err)
		assert.Equal(t, []string{"[文件: spec.pdf]"}, related.ParentNodes)
	})

	t.Run("nil graph is a connected-nodes failure", func(t *testing.T) {
		node := mustNode(t, "n1", entities.KindText, "x", "", "")

		_, err := extractor.ExtractRelatedNodesContext(nil, node)

		require.Error(t, err)
		assert.Equal(t, pkgerrors.KindContextExtraction, pkgerrors.KindOf(err))
	})

	t.Run("edge collection failure is wrapped, not raised", func(t *testing.T) {
		graph := newFakeGraph()
		current := graph.addTextNode("cur", "current", 0, 0, 100, 100)
		graph.edgesErr = errors.New("host edge table detached")

		_, err := extractor.ExtractRelatedNodesContext(graph, current)

		require.Error(t, err)
		assert.Equal(t, pkgerrors.KindContextExtraction, pkgerrors.KindOf(err))
		assert.ErrorContains(t, err, "edge collection unavailable")
	})

	t.Run("edge referencing missing node is a context-build failure", func(t *testing.T) {
		graph := newFakeGraph()
		current := graph.addTextNode("cur", "current", 0, 0, 100, 100)
		graph.addEdge("e1", "ghost", "cur")

		_, err := extractor.ExtractRelatedNodesContext(graph, current)

		require.Error(t, err)
		assert.Equal(t, pkgerrors.KindContextExtraction, pkgerrors.KindOf(err))
		assert.ErrorContains(t, err, "ghost")
	})
}
