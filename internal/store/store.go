// Package store holds the artifact dependency graph: typed node and edge
// CRUD, adjacency queries, and the traversal, cycle and ordering utilities
// the validator and change detector are built on.
package store

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/nvandessel/ipxgraph/internal/models"
)

var (
	// ErrDuplicateID is returned when a node id (or an identical edge) is
	// already present.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrNotFound is returned when a referenced node or edge does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCycle is returned when a topological order is requested on a
	// graph that contains a directed cycle.
	ErrCycle = errors.New("graph has a cycle")
	// ErrInvalid is returned for records missing mandatory identity fields.
	ErrInvalid = errors.New("invalid record")
)

// Direction specifies edge traversal direction.
type Direction string

const (
	DirectionOutbound Direction = "outbound" // Follow edges from source to target
	DirectionInbound  Direction = "inbound"  // Follow edges from target to source
	DirectionBoth     Direction = "both"     // Follow edges in both directions
)

// Reader is the read-only view of the graph used by the validator and the
// change detector. Returned values are copies owned by the caller.
type Reader interface {
	// Nodes returns every node in insertion order.
	Nodes() []models.ArtifactNode
	// Edges returns every edge in insertion order.
	Edges() []models.DependencyEdge
	GetNode(id string) (models.ArtifactNode, bool)
	// GetEdges returns the edges touching nodeID in the given direction,
	// optionally restricted to one edge type ("" matches all).
	GetEdges(nodeID string, dir Direction, edgeType models.EdgeType) []models.DependencyEdge
}

// GraphStore is the mutable artifact graph.
type GraphStore interface {
	Reader

	AddNode(node models.ArtifactNode) error
	UpdateNode(node models.ArtifactNode) error
	RemoveNode(id string) error
	NodesByType(t models.NodeType) []models.ArtifactNode
	NodesByDomain(d models.Domain) []models.ArtifactNode

	AddEdge(edge models.DependencyEdge) error
	RemoveEdge(source, target string, edgeType models.EdgeType) error
	Predecessors(id string) []string
	Successors(id string) []string
}

// Option configures an InMemoryGraphStore.
type Option func(*InMemoryGraphStore)

// WithLogger sets the logger used for mutation events.
func WithLogger(l *zap.Logger) Option {
	return func(s *InMemoryGraphStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// InMemoryGraphStore is an adjacency-list GraphStore. Nodes and edges keep
// their insertion order, which makes every query and report deterministic.
//
// It does no internal locking: callers must not mutate the store while a
// validation or detection pass is reading it.
type InMemoryGraphStore struct {
	nodes map[string]*models.ArtifactNode
	order []string
	edges []*models.DependencyEdge
	out   map[string][]*models.DependencyEdge
	in    map[string][]*models.DependencyEdge

	logger *zap.Logger
}

// NewInMemoryGraphStore creates an empty store.
func NewInMemoryGraphStore(opts ...Option) *InMemoryGraphStore {
	s := &InMemoryGraphStore{
		nodes:  make(map[string]*models.ArtifactNode),
		out:    make(map[string][]*models.DependencyEdge),
		in:     make(map[string][]*models.DependencyEdge),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddNode inserts a node. It fails with ErrDuplicateID if the id is taken.
func (s *InMemoryGraphStore) AddNode(node models.ArtifactNode) error {
	if node.ID == "" {
		return fmt.Errorf("%w: node id is empty", ErrInvalid)
	}
	if _, ok := s.nodes[node.ID]; ok {
		return fmt.Errorf("%w: node %q already exists, use UpdateNode", ErrDuplicateID, node.ID)
	}
	n := node.Clone()
	s.nodes[n.ID] = &n
	s.order = append(s.order, n.ID)
	s.logger.Debug("added node", zap.String("node_id", n.ID), zap.String("node_type", string(n.Type)))
	return nil
}

// UpdateNode replaces the full record of an existing node.
func (s *InMemoryGraphStore) UpdateNode(node models.ArtifactNode) error {
	if _, ok := s.nodes[node.ID]; !ok {
		return fmt.Errorf("%w: node %q", ErrNotFound, node.ID)
	}
	n := node.Clone()
	s.nodes[n.ID] = &n
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (s *InMemoryGraphStore) RemoveNode(id string) error {
	if _, ok := s.nodes[id]; !ok {
		return fmt.Errorf("%w: node %q", ErrNotFound, id)
	}

	before := len(s.edges)
	s.edges = slices.DeleteFunc(s.edges, func(e *models.DependencyEdge) bool {
		return e.SourceID == id || e.TargetID == id
	})
	removed := before - len(s.edges)

	for _, e := range s.out[id] {
		s.in[e.TargetID] = slices.DeleteFunc(s.in[e.TargetID], func(x *models.DependencyEdge) bool { return x == e })
	}
	for _, e := range s.in[id] {
		s.out[e.SourceID] = slices.DeleteFunc(s.out[e.SourceID], func(x *models.DependencyEdge) bool { return x == e })
	}
	delete(s.out, id)
	delete(s.in, id)

	delete(s.nodes, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	s.logger.Debug("removed node", zap.String("node_id", id), zap.Int("edges_removed", removed))
	return nil
}

// GetNode returns a copy of the node with the given id.
func (s *InMemoryGraphStore) GetNode(id string) (models.ArtifactNode, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return models.ArtifactNode{}, false
	}
	return n.Clone(), true
}

// Nodes returns every node in insertion order.
func (s *InMemoryGraphStore) Nodes() []models.ArtifactNode {
	out := make([]models.ArtifactNode, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// NodesByType returns the nodes of type t in insertion order.
func (s *InMemoryGraphStore) NodesByType(t models.NodeType) []models.ArtifactNode {
	return s.filterNodes(func(n *models.ArtifactNode) bool { return n.Type == t })
}

// NodesByDomain returns the nodes owned by domain d in insertion order.
func (s *InMemoryGraphStore) NodesByDomain(d models.Domain) []models.ArtifactNode {
	return s.filterNodes(func(n *models.ArtifactNode) bool { return n.Domain == d })
}

func (s *InMemoryGraphStore) filterNodes(keep func(*models.ArtifactNode) bool) []models.ArtifactNode {
	out := []models.ArtifactNode{}
	for _, id := range s.order {
		if n := s.nodes[id]; keep(n) {
			out = append(out, n.Clone())
		}
	}
	return out
}

// AddEdge appends an edge. Both endpoints must exist. Parallel edges between
// the same pair are kept as long as their edge types differ.
func (s *InMemoryGraphStore) AddEdge(edge models.DependencyEdge) error {
	if _, ok := s.nodes[edge.SourceID]; !ok {
		return fmt.Errorf("%w: source node %q", ErrNotFound, edge.SourceID)
	}
	if _, ok := s.nodes[edge.TargetID]; !ok {
		return fmt.Errorf("%w: target node %q", ErrNotFound, edge.TargetID)
	}
	if s.findEdge(edge.SourceID, edge.TargetID, edge.Type) >= 0 {
		return fmt.Errorf("%w: edge %q already exists", ErrDuplicateID, edge.ID())
	}

	e := edge.Clone()
	s.edges = append(s.edges, &e)
	s.out[e.SourceID] = append(s.out[e.SourceID], &e)
	s.in[e.TargetID] = append(s.in[e.TargetID], &e)
	s.logger.Debug("added edge", zap.String("edge_id", e.ID()))
	return nil
}

// RemoveEdge deletes the edge matching source, target and type.
func (s *InMemoryGraphStore) RemoveEdge(source, target string, edgeType models.EdgeType) error {
	i := s.findEdge(source, target, edgeType)
	if i < 0 {
		return fmt.Errorf("%w: edge %s--%s-->%s", ErrNotFound, source, edgeType, target)
	}
	e := s.edges[i]
	s.edges = slices.Delete(s.edges, i, i+1)
	s.out[source] = slices.DeleteFunc(s.out[source], func(x *models.DependencyEdge) bool { return x == e })
	s.in[target] = slices.DeleteFunc(s.in[target], func(x *models.DependencyEdge) bool { return x == e })
	return nil
}

func (s *InMemoryGraphStore) findEdge(source, target string, edgeType models.EdgeType) int {
	return slices.IndexFunc(s.edges, func(e *models.DependencyEdge) bool {
		return e.SourceID == source && e.TargetID == target && e.Type == edgeType
	})
}

// Edges returns every edge in insertion order.
func (s *InMemoryGraphStore) Edges() []models.DependencyEdge {
	return cloneEdges(s.edges, "")
}

// GetEdges returns the edges touching nodeID. Outbound edges come before
// inbound ones when dir is DirectionBoth.
func (s *InMemoryGraphStore) GetEdges(nodeID string, dir Direction, edgeType models.EdgeType) []models.DependencyEdge {
	switch dir {
	case DirectionOutbound:
		return cloneEdges(s.out[nodeID], edgeType)
	case DirectionInbound:
		return cloneEdges(s.in[nodeID], edgeType)
	default:
		return append(cloneEdges(s.out[nodeID], edgeType), cloneEdges(s.in[nodeID], edgeType)...)
	}
}

// EdgesFrom returns the outgoing edges of id.
func (s *InMemoryGraphStore) EdgesFrom(id string) []models.DependencyEdge {
	return s.GetEdges(id, DirectionOutbound, "")
}

// EdgesTo returns the incoming edges of id.
func (s *InMemoryGraphStore) EdgesTo(id string) []models.DependencyEdge {
	return s.GetEdges(id, DirectionInbound, "")
}

// Predecessors returns the distinct source ids of edges into id.
func (s *InMemoryGraphStore) Predecessors(id string) []string {
	return distinctEnds(s.in[id], func(e *models.DependencyEdge) string { return e.SourceID })
}

// Successors returns the distinct target ids of edges out of id.
func (s *InMemoryGraphStore) Successors(id string) []string {
	return distinctEnds(s.out[id], func(e *models.DependencyEdge) string { return e.TargetID })
}

func distinctEnds(edges []*models.DependencyEdge, end func(*models.DependencyEdge) string) []string {
	out := []string{}
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		id := end(e)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func cloneEdges(edges []*models.DependencyEdge, edgeType models.EdgeType) []models.DependencyEdge {
	out := make([]models.DependencyEdge, 0, len(edges))
	for _, e := range edges {
		if edgeType != "" && e.Type != edgeType {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}
