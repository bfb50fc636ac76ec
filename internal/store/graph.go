package store

import (
	"fmt"
	"sort"

	"github.com/nvandessel/ipxgraph/internal/models"
)

// Reached is a node found by Traverse together with the shortest route to it.
type Reached struct {
	ID        string
	Path      []string          // node ids from the start node to ID, both included
	EdgeTypes []models.EdgeType // edge types along Path, len(Path)-1 entries
	Depth     int               // hop count
}

// Traverse runs a breadth-first search from start and returns every other
// reachable node exactly once, in discovery order, with its shortest path.
// Edges are followed in insertion order, so among equally short routes the
// one through earlier edges wins. maxDepth <= 0 means unlimited.
func Traverse(r Reader, start string, dir Direction, maxDepth int) []Reached {
	if _, ok := r.GetNode(start); !ok {
		return nil
	}

	type item struct {
		id    string
		path  []string
		types []models.EdgeType
	}

	visited := map[string]bool{start: true}
	queue := []item{{id: start, path: []string{start}}}
	var out []Reached

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		depth := len(cur.path) - 1
		if maxDepth > 0 && depth >= maxDepth {
			continue
		}

		for _, e := range r.GetEdges(cur.id, dir, "") {
			next := e.TargetID
			if e.TargetID == cur.id && dir != DirectionOutbound {
				next = e.SourceID
			}
			if visited[next] {
				continue
			}
			visited[next] = true

			path := append(append(make([]string, 0, len(cur.path)+1), cur.path...), next)
			types := append(append(make([]models.EdgeType, 0, len(cur.types)+1), cur.types...), e.Type)
			out = append(out, Reached{ID: next, Path: path, EdgeTypes: types, Depth: depth + 1})
			queue = append(queue, item{id: next, path: path, types: types})
		}
	}
	return out
}

// HasCycle reports whether the graph contains a directed cycle, using an
// iterative depth-first search with white/grey/black visit states.
func (s *InMemoryGraphStore) HasCycle() bool {
	const (
		white = iota
		grey
		black
	)
	type frame struct {
		id   string
		next int
	}

	state := make(map[string]int, len(s.nodes))
	for _, root := range s.order {
		if state[root] != white {
			continue
		}
		state[root] = grey
		stack := []frame{{id: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			outs := s.out[top.id]
			if top.next < len(outs) {
				next := outs[top.next].TargetID
				top.next++
				switch state[next] {
				case grey:
					return true
				case white:
					state[next] = grey
					stack = append(stack, frame{id: next})
				}
				continue
			}
			state[top.id] = black
			stack = stack[:len(stack)-1]
		}
	}
	return false
}

// TopologicalOrder returns every node id such that each edge's source comes
// before its target. Among nodes with no ordering constraint between them,
// insertion order is kept. It fails with ErrCycle on a cyclic graph.
func (s *InMemoryGraphStore) TopologicalOrder() ([]string, error) {
	n := len(s.order)
	index := make(map[string]int, n)
	for i, id := range s.order {
		index[id] = i
	}

	indeg := make([]int, n)
	for _, e := range s.edges {
		indeg[index[e.TargetID]]++
	}

	var ready []int
	for i := range n {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		id := s.order[i]
		order = append(order, id)

		for _, e := range s.out[id] {
			j := index[e.TargetID]
			indeg[j]--
			if indeg[j] == 0 {
				// Insert while keeping ready sorted.
				k := sort.SearchInts(ready, j)
				ready = append(ready, 0)
				copy(ready[k+1:], ready[k:])
				ready[k] = j
			}
		}
	}

	if len(order) != n {
		return nil, fmt.Errorf("%w: %d of %d nodes are on or behind a cycle", ErrCycle, n-len(order), n)
	}
	return order, nil
}

// ShortestPath returns the node ids on a shortest directed path from source
// to target, both included. It returns an empty slice when target is
// unreachable, or when source == target and there is no self-loop.
func (s *InMemoryGraphStore) ShortestPath(source, target string) []string {
	if source == target {
		if s.hasSelfLoop(source) {
			return []string{source, source}
		}
		return []string{}
	}
	for _, r := range Traverse(s, source, DirectionOutbound, 0) {
		if r.ID == target {
			return r.Path
		}
	}
	return []string{}
}

func (s *InMemoryGraphStore) hasSelfLoop(id string) bool {
	for _, e := range s.out[id] {
		if e.TargetID == id {
			return true
		}
	}
	return false
}

// Summary describes the size and shape of the graph.
type Summary struct {
	TotalNodes int                     `json:"total_nodes"`
	TotalEdges int                     `json:"total_edges"`
	HasCycles  bool                    `json:"has_cycles"`
	NodeTypes  map[models.NodeType]int `json:"node_types"`
	Domains    map[models.Domain]int   `json:"domains"`
	Islands    int                     `json:"islands"`   // nodes with no edges at all
	Connected  int                     `json:"connected"` // nodes with at least one edge
}

// Summary returns node/edge totals, the cycle flag and per-type and
// per-domain counts.
func (s *InMemoryGraphStore) Summary() Summary {
	sum := Summary{
		TotalNodes: len(s.nodes),
		TotalEdges: len(s.edges),
		HasCycles:  s.HasCycle(),
		NodeTypes:  make(map[models.NodeType]int),
		Domains:    make(map[models.Domain]int),
	}
	for _, id := range s.order {
		n := s.nodes[id]
		sum.NodeTypes[n.Type]++
		sum.Domains[n.Domain]++
		if len(s.out[id]) > 0 || len(s.in[id]) > 0 {
			sum.Connected++
		} else {
			sum.Islands++
		}
	}
	return sum
}
