// Package dependency builds and flattens dependency graphs.
//
// It backs the schema acquisition closure in the xsd package: each
// schema namespace is a vertex, and an edge target -> dependency
// records that target's schema declared an <import> or <include> of
// dependency's namespace. Flattening the graph yields a traversal
// order that never revisits a namespace, breaking the import cycles
// that real-world schema sets are full of.
package dependency

import "sort"

// insertUnique inserts x into set, preserving order. If x is already in
// set, it is not added. The augmented set is returned.
func insertUnique[T int | string](set []T, x T) []T {
	i := search(set, x)
	if i >= len(set) || set[i] != x {
		set = append(set, *new(T))
		copy(set[i+1:], set[i:])
		set[i] = x
	}
	return set
}

func search[T int | string](set []T, x T) int {
	return sort.Search(len(set), func(i int) bool { return !less(set[i], x) })
}

func less[T int | string](a, b T) bool {
	switch a := any(a).(type) {
	case int:
		return a < any(b).(int)
	case string:
		return a < any(b).(string)
	}
	panic("unreachable")
}

// A Graph is a collection of targets and their dependencies. A Graph
// is keyed by any ordered, comparable identifier — typically a
// schema namespace URI.
type Graph[T int | string] struct {
	targets []T
	nodes   map[T][]T
}

// Len returns the number of targets in the graph.
func (g *Graph[T]) Len() int {
	return len(g.targets)
}

func (g *Graph[T]) init() {
	if g.nodes == nil {
		g.nodes = make(map[T][]T)
	}
}

// Add adds a dependency to a Graph.
func (g *Graph[T]) Add(target, dependency T) {
	g.init()
	g.targets = insertUnique(g.targets, target)
	g.nodes[target] = insertUnique(g.nodes[target], dependency)
}

// Flatten calls the walk function on each node in the Graph in topological
// order, starting with the leaves and traversing up to the roots. The same
// Graph will always be traversed in the same order.
//
// Every vertex in the Graph is visited once; any cycles in the graph are
// skipped.
func (g *Graph[T]) Flatten(walk func(T)) {
	g.init()
	visited := make(map[T]bool, len(g.nodes))
	for _, tgt := range g.targets {
		if !visited[tgt] {
			visited[tgt] = true
			g.flatten(walk, g.nodes[tgt], visited)
			walk(tgt)
		}
	}
}

func (g *Graph[T]) flatten(fn func(T), targets []T, visited map[T]bool) {
	for _, tgt := range targets {
		if !visited[tgt] {
			visited[tgt] = true
			g.flatten(fn, g.nodes[tgt], visited)
			fn(tgt)
		}
	}
}
