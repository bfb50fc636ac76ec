package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/ipxgraph/internal/models"
)

func node(id string, t models.NodeType) models.ArtifactNode {
	return models.ArtifactNode{ID: id, Name: id, Type: t, Domain: models.DomainFrontend}
}

func edge(src, tgt string, t models.EdgeType) models.DependencyEdge {
	return models.DependencyEdge{SourceID: src, TargetID: tgt, Type: t, Domain: models.DomainFrontend}
}

func TestAddNode_Duplicate(t *testing.T) {
	s := NewInMemoryGraphStore()
	require.NoError(t, s.AddNode(node("comp", models.NodeIPXACTComponent)))

	err := s.AddNode(models.ArtifactNode{ID: "comp", Name: "other", Type: models.NodeSDCConstraint})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))

	// Store is unchanged.
	got, ok := s.GetNode("comp")
	require.True(t, ok)
	assert.Equal(t, "comp", got.Name)
	assert.Equal(t, models.NodeIPXACTComponent, got.Type)
	assert.Len(t, s.Nodes(), 1)
}

func TestAddNode_EmptyID(t *testing.T) {
	s := NewInMemoryGraphStore()
	err := s.AddNode(models.ArtifactNode{Name: "anon"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAddNode_StoresCopy(t *testing.T) {
	s := NewInMemoryGraphStore()
	n := node("comp", models.NodeIPXACTComponent)
	n.DefinedElements = models.DefinedElements{models.ElementClocks: {"clk"}}
	require.NoError(t, s.AddNode(n))

	n.DefinedElements[models.ElementClocks][0] = "mutated"
	got, _ := s.GetNode("comp")
	assert.Equal(t, []string{"clk"}, got.Elements(models.ElementClocks))

	got.DefinedElements[models.ElementClocks][0] = "mutated again"
	again, _ := s.GetNode("comp")
	assert.Equal(t, []string{"clk"}, again.Elements(models.ElementClocks))
}

func TestUpdateNode(t *testing.T) {
	s := NewInMemoryGraphStore()
	err := s.UpdateNode(node("missing", models.NodeSDCConstraint))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.AddNode(node("sdc", models.NodeSDCConstraint)))
	updated := node("sdc", models.NodeSDCConstraint)
	updated.Version = "2.0"
	require.NoError(t, s.UpdateNode(updated))

	got, _ := s.GetNode("sdc")
	assert.Equal(t, "2.0", got.Version)
}

func TestRemoveNode_CascadesEdges(t *testing.T) {
	s := NewInMemoryGraphStore()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddNode(node(id, models.NodeRTLSource)))
	}
	require.NoError(t, s.AddEdge(edge("a", "b", models.EdgeGenerates)))
	require.NoError(t, s.AddEdge(edge("b", "c", models.EdgeGenerates)))
	require.NoError(t, s.AddEdge(edge("a", "c", models.EdgeReferences)))

	require.NoError(t, s.RemoveNode("b"))

	assert.Len(t, s.Nodes(), 2)
	edges := s.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "a--references-->c", edges[0].ID())
	assert.Equal(t, []string{"c"}, s.Successors("a"))
	assert.Equal(t, []string{"a"}, s.Predecessors("c"))

	assert.ErrorIs(t, s.RemoveNode("b"), ErrNotFound)
}

func TestQueries_EmptyResults(t *testing.T) {
	s := NewInMemoryGraphStore()
	_, ok := s.GetNode("nope")
	assert.False(t, ok)
	assert.Empty(t, s.NodesByType(models.NodeUPFPower))
	assert.NotNil(t, s.NodesByType(models.NodeUPFPower))
	assert.Empty(t, s.NodesByDomain(models.DomainDFT))
	assert.Empty(t, s.EdgesFrom("nope"))
	assert.Empty(t, s.Predecessors("nope"))
}

func TestNodesByTypeAndDomain(t *testing.T) {
	s := NewInMemoryGraphStore()
	require.NoError(t, s.AddNode(node("comp", models.NodeIPXACTComponent)))
	sdc := node("sdc", models.NodeSDCConstraint)
	sdc.Domain = models.DomainSignoff
	require.NoError(t, s.AddNode(sdc))
	require.NoError(t, s.AddNode(node("sdc2", models.NodeSDCConstraint)))

	byType := s.NodesByType(models.NodeSDCConstraint)
	require.Len(t, byType, 2)
	assert.Equal(t, "sdc", byType[0].ID)
	assert.Equal(t, "sdc2", byType[1].ID)

	byDomain := s.NodesByDomain(models.DomainSignoff)
	require.Len(t, byDomain, 1)
	assert.Equal(t, "sdc", byDomain[0].ID)
}

func TestAddEdge_MissingEndpoint(t *testing.T) {
	s := NewInMemoryGraphStore()
	require.NoError(t, s.AddNode(node("a", models.NodeIPXACTComponent)))

	err := s.AddEdge(edge("a", "ghost", models.EdgeGenerates))
	assert.ErrorIs(t, err, ErrNotFound)
	err = s.AddEdge(edge("ghost", "a", models.EdgeGenerates))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, s.Edges())
	assert.Empty(t, s.EdgesFrom("a"))
	assert.Empty(t, s.EdgesTo("a"))
}

func TestAddEdge_ParallelEdges(t *testing.T) {
	s := NewInMemoryGraphStore()
	require.NoError(t, s.AddNode(node("comp", models.NodeIPXACTComponent)))
	require.NoError(t, s.AddNode(node("sdc", models.NodeSDCConstraint)))

	require.NoError(t, s.AddEdge(edge("comp", "sdc", models.EdgeGenerates)))
	require.NoError(t, s.AddEdge(edge("comp", "sdc", models.EdgeConstrains)))
	assert.Len(t, s.EdgesFrom("comp"), 2)
	assert.Equal(t, []string{"sdc"}, s.Successors("comp"))

	err := s.AddEdge(edge("comp", "sdc", models.EdgeGenerates))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Len(t, s.Edges(), 2)
}

func TestRemoveEdge(t *testing.T) {
	s := NewInMemoryGraphStore()
	require.NoError(t, s.AddNode(node("comp", models.NodeIPXACTComponent)))
	require.NoError(t, s.AddNode(node("sdc", models.NodeSDCConstraint)))
	require.NoError(t, s.AddEdge(edge("comp", "sdc", models.EdgeGenerates)))
	require.NoError(t, s.AddEdge(edge("comp", "sdc", models.EdgeConstrains)))

	require.NoError(t, s.RemoveEdge("comp", "sdc", models.EdgeGenerates))
	edges := s.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, models.EdgeConstrains, edges[0].Type)
	assert.Len(t, s.EdgesTo("sdc"), 1)

	assert.ErrorIs(t, s.RemoveEdge("comp", "sdc", models.EdgeGenerates), ErrNotFound)
}

func TestGetEdges_DirectionAndType(t *testing.T) {
	s := NewInMemoryGraphStore()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddNode(node(id, models.NodeRTLSource)))
	}
	require.NoError(t, s.AddEdge(edge("a", "b", models.EdgeGenerates)))
	require.NoError(t, s.AddEdge(edge("b", "c", models.EdgeReferences)))
	require.NoError(t, s.AddEdge(edge("c", "b", models.EdgeValidates)))

	assert.Len(t, s.GetEdges("b", DirectionOutbound, ""), 1)
	assert.Len(t, s.GetEdges("b", DirectionInbound, ""), 2)
	assert.Len(t, s.GetEdges("b", DirectionInbound, models.EdgeValidates), 1)

	both := s.GetEdges("b", DirectionBoth, "")
	require.Len(t, both, 3)
	assert.Equal(t, "b", both[0].SourceID)
}
