// Package dag provides an insertion-ordered adjacency mapping and the pure
// graph algorithms the layer-graph engine is built on: cycle detection,
// topological sorting and subgraph filtering.
//
// The node type is generic and only needs to be comparable; the layers package
// instantiates it with its Layer interface, whose implementations are pointers,
// so node identity is pointer identity.
//
// Insertion order is preserved everywhere: it determines traversal order and,
// transitively, the order of a network's inputs and outputs.
package dag

import (
	"fmt"

	"github.com/AndyB66/neupy/types"
)

// Adjacency maps each node to the ordered list of nodes its edges point to.
// The interpretation of an edge (successor vs. dependency) is up to the caller;
// TopologicalSort documents the convention it uses.
//
// The zero value is not usable, create it with New.
type Adjacency[N comparable] struct {
	keys  []N
	edges map[N][]N
}

// New returns an empty adjacency mapping.
func New[N comparable]() *Adjacency[N] {
	return &Adjacency[N]{edges: make(map[N][]N)}
}

// Add registers the node (if not yet present) and appends the given targets to
// its edge list, skipping targets already recorded for the node. Targets are
// not implicitly added as keys, see Complete.
func (a *Adjacency[N]) Add(node N, targets ...N) {
	if _, found := a.edges[node]; !found {
		a.keys = append(a.keys, node)
		a.edges[node] = nil
	}
	for _, target := range targets {
		if !contains(a.edges[node], target) {
			a.edges[node] = append(a.edges[node], target)
		}
	}
}

// Complete adds an explicit (empty) entry for every node that is referenced as
// a target but is not yet a key. A completed adjacency is "closed": iterating
// over Nodes visits every node of the graph.
func (a *Adjacency[N]) Complete() {
	for _, node := range a.Nodes() {
		for _, target := range a.edges[node] {
			if _, found := a.edges[target]; !found {
				a.keys = append(a.keys, target)
				a.edges[target] = nil
			}
		}
	}
}

// Has returns whether node is a key of the adjacency.
func (a *Adjacency[N]) Has(node N) bool {
	_, found := a.edges[node]
	return found
}

// Edges returns the edge list of the given node. The returned slice is owned by
// the adjacency and must not be modified.
func (a *Adjacency[N]) Edges(node N) []N {
	return a.edges[node]
}

// Nodes returns all keys in insertion order. The returned slice is owned by the
// adjacency and must not be modified.
func (a *Adjacency[N]) Nodes() []N {
	return a.keys
}

// Len returns the number of nodes (keys).
func (a *Adjacency[N]) Len() int {
	return len(a.keys)
}

// Clone returns a deep copy: edge lists are copied, nodes are not.
func (a *Adjacency[N]) Clone() *Adjacency[N] {
	clone := New[N]()
	for _, node := range a.keys {
		clone.Add(node, a.edges[node]...)
	}
	return clone
}

// Reverse returns the adjacency with every edge flipped. Node (key) order is
// preserved, and every key of the original is a key of the result.
func (a *Adjacency[N]) Reverse() *Adjacency[N] {
	reversed := New[N]()
	for _, node := range a.keys {
		reversed.Add(node)
	}
	for _, node := range a.keys {
		for _, target := range a.edges[node] {
			reversed.Add(target, node)
		}
	}
	return reversed
}

// Filter returns a new adjacency restricted to the nodes in keep: only kept
// keys survive, and their edge lists are filtered to kept members. Relative
// order is preserved.
func Filter[N comparable](a *Adjacency[N], keep types.Set[N]) *Adjacency[N] {
	filtered := New[N]()
	for _, node := range a.keys {
		if !keep.Has(node) {
			continue
		}
		filtered.Add(node)
		for _, target := range a.edges[node] {
			if keep.Has(target) {
				filtered.Add(node, target)
			}
		}
	}
	return filtered
}

// IsCyclic returns whether the directed graph has a cycle. It runs a
// depth-first search keeping the set of nodes on the active path: revisiting a
// node still on the path marks a cycle. Traversal follows insertion order.
func IsCyclic[N comparable](a *Adjacency[N]) bool {
	path := types.MakeSet[N]()
	visited := types.MakeSet[N]()

	var visit func(node N) bool
	visit = func(node N) bool {
		if visited.Has(node) {
			return false
		}
		visited.Insert(node)
		path.Insert(node)
		for _, target := range a.edges[node] {
			if path.Has(target) || visit(target) {
				return true
			}
		}
		delete(path, node)
		return false
	}

	for _, node := range a.keys {
		if visit(node) {
			return true
		}
	}
	return false
}

// CycleError is returned by TopologicalSort (and by graph constructors built on
// it) when the graph is not acyclic.
type CycleError struct {
	err error
}

// Error implements the error interface.
func (e *CycleError) Error() string { return e.err.Error() }

// Unwrap returns the underlying error.
func (e *CycleError) Unwrap() error { return e.err }

// Cyclef creates a *CycleError with a formatted message.
func Cyclef(format string, args ...any) error {
	return &CycleError{err: fmt.Errorf(format, args...)}
}

// TopologicalSort sorts the nodes such that every node appears after all the
// nodes its edges point to. Edges are therefore read as dependencies: passing a
// backward (predecessor) adjacency emits each node after all its predecessors.
//
// It repeatedly sweeps the remaining nodes, extracting the ones whose
// dependencies have all been extracted already. Fails with *CycleError if the
// graph has cycles.
func TopologicalSort[N comparable](a *Adjacency[N]) ([]N, error) {
	if a.Len() == 0 {
		return nil, nil
	}
	if IsCyclic(a) {
		return nil, Cyclef("cannot apply topological sort to a graph with cycles")
	}

	sorted := make([]N, 0, a.Len())
	remaining := a.Clone()

	for remaining.Len() > 0 {
		var kept []N
		for _, node := range remaining.keys {
			resolved := true
			for _, dep := range remaining.edges[node] {
				if remaining.Has(dep) {
					resolved = false
					break
				}
			}
			if resolved {
				sorted = append(sorted, node)
				delete(remaining.edges, node)
			} else {
				kept = append(kept, node)
			}
		}
		remaining.keys = kept
	}
	return sorted, nil
}

func contains[N comparable](list []N, element N) bool {
	for _, value := range list {
		if value == element {
			return true
		}
	}
	return false
}
