// Package graph builds the immutable dependency graph over service
// registrations and computes the initialization schedule. Edges point
// from a required dependency to its dependent, so dependencies order
// before dependents. Optional edges are ordering hints only: they never
// participate in cycle detection and are dropped when absent or when
// admitting one would close a cycle.
package graph

import (
	"fmt"

	"github.com/R3E-Network/service_runtime/service"
)

// Node is one service in the graph.
type Node struct {
	Type     string
	Requires []string
	Optional []string
	Priority int
	// Order is the registration index, used as the stable tie-break
	// after priority.
	Order int
}

// Graph is the immutable dependency graph. Build validates it fully;
// a successfully built graph always drains into waves.
type Graph struct {
	nodes map[string]*Node
	order []string

	// ordering edges: required edges plus admissible optional edges,
	// stored as predecessor lists (dep -> dependent direction).
	preds map[string][]string
	succs map[string][]string
}

// Build constructs the graph from registrations. Registrations must have
// passed registry validation; Build still rejects unresolved required
// edges defensively and rejects cycles over required edges with a
// *CycleError carrying the ordered cycle path.
func Build(regs []service.Registration) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]*Node, len(regs)),
		preds: make(map[string][]string, len(regs)),
		succs: make(map[string][]string, len(regs)),
	}

	for i, reg := range regs {
		if _, exists := g.nodes[reg.Type]; exists {
			return nil, fmt.Errorf("duplicate node: %s", reg.Type)
		}
		g.nodes[reg.Type] = &Node{
			Type:     reg.Type,
			Requires: append([]string(nil), reg.Requires...),
			Optional: append([]string(nil), reg.Optional...),
			Priority: reg.Priority,
			Order:    i,
		}
		g.order = append(g.order, reg.Type)
	}

	// Required edges first; they are the hard skeleton of the graph.
	for _, serviceType := range g.order {
		node := g.nodes[serviceType]
		for _, dep := range node.Requires {
			if _, ok := g.nodes[dep]; !ok {
				return nil, fmt.Errorf("service %s requires unregistered dependency %s", serviceType, dep)
			}
			g.addEdge(dep, serviceType)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	// Optional edges are admitted one at a time, in registration order,
	// and only while they keep the ordering graph acyclic.
	for _, serviceType := range g.order {
		node := g.nodes[serviceType]
		for _, dep := range node.Optional {
			if _, ok := g.nodes[dep]; !ok {
				continue // absent optional target, tolerated
			}
			if g.hasEdge(dep, serviceType) {
				continue
			}
			if g.reachable(serviceType, dep) {
				continue // soft edge would close a cycle, drop it
			}
			g.addEdge(dep, serviceType)
		}
	}

	return g, nil
}

func (g *Graph) addEdge(from, to string) {
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

func (g *Graph) hasEdge(from, to string) bool {
	for _, succ := range g.succs[from] {
		if succ == to {
			return true
		}
	}
	return false
}

// reachable reports whether to is reachable from from over ordering edges.
func (g *Graph) reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, succ := range g.succs[current] {
			if succ == to {
				return true
			}
			if !seen[succ] {
				seen[succ] = true
				stack = append(stack, succ)
			}
		}
	}
	return false
}

// Node returns the node for a service type.
func (g *Graph) Node(serviceType string) (*Node, bool) {
	node, ok := g.nodes[serviceType]
	return node, ok
}

// Types returns all node types in registration order.
func (g *Graph) Types() []string {
	return append([]string(nil), g.order...)
}

// RequiredDeps returns the required dependencies of a service.
func (g *Graph) RequiredDeps(serviceType string) []string {
	if node, ok := g.nodes[serviceType]; ok {
		return append([]string(nil), node.Requires...)
	}
	return nil
}

// Dependents returns every service ordered after the given one, i.e.
// all direct successors over the ordering graph.
func (g *Graph) Dependents(serviceType string) []string {
	return append([]string(nil), g.succs[serviceType]...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}
