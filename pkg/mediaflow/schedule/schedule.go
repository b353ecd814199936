// Package schedule computes the dependency-respecting execution order of a
// workflow graph.
//
// Order performs a depth-first traversal: visiting a node first visits the
// sources of every edge targeting it, then appends the node in post-order.
// The result is deterministic for a given node and edge ordering.
package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

// ErrCycleDetected indicates the graph contains a dependency cycle.
var ErrCycleDetected = errors.New("cycle detected")

// CycleError reports the nodes forming a detected cycle, in traversal order.
// The first and last entries are the same node.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCycleDetected for errors.Is.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

type mark uint8

const (
	unvisited mark = iota
	active
	done
)

// Order returns every node exactly once such that for every edge s->t, s
// precedes t. Edges whose endpoints are not in nodes are ignored.
//
// Returns a *CycleError if a node is reached again while still on the
// recursion stack.
func Order(nodes []*graph.Node, edges []*graph.Edge) ([]*graph.Node, error) {
	byID := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	sources := make(map[string][]string, len(nodes))
	for _, e := range edges {
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		sources[e.Target] = append(sources[e.Target], e.Source)
	}

	marks := make(map[string]mark, len(nodes))
	order := make([]*graph.Node, 0, len(nodes))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		switch marks[id] {
		case done:
			return nil
		case active:
			return &CycleError{Path: cyclePath(stack, id)}
		}

		marks[id] = active
		stack = append(stack, id)
		for _, src := range sources[id] {
			if err := visit(src); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		marks[id] = done
		order = append(order, byID[id])
		return nil
	}

	for _, n := range nodes {
		if err := visit(n.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// cyclePath extracts the cycle closing at id from the recursion stack.
// Traversal walks edges backwards, so the path is reversed into edge
// direction.
func cyclePath(stack []string, id string) []string {
	start := 0
	for i, s := range stack {
		if s == id {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	path = append(path, id)
	for i := len(stack) - 1; i >= start; i-- {
		path = append(path, stack[i])
	}
	return path
}

// StartIndex returns the position of nodeID in order. An empty nodeID means
// "from the beginning" and returns 0; an unknown id returns -1.
//
// Nodes before the returned index are skipped by the caller, not
// re-validated.
func StartIndex(order []*graph.Node, nodeID string) int {
	if nodeID == "" {
		return 0
	}
	for i, n := range order {
		if n.ID == nodeID {
			return i
		}
	}
	return -1
}

// IDs returns the ids of nodes, in order.
func IDs(nodes []*graph.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
