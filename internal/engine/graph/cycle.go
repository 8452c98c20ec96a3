package graph

import (
	"fmt"
	"strings"
)

// CycleError reports a circular required-dependency chain. Path holds
// the ordered cycle with the entry node repeated at the end, e.g.
// [A B A].
type CycleError struct {
	Path []string
}

// Error implements error.
func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Path, " -> "))
}

// Three-coloring for the DFS cycle check.
type color int8

const (
	colorWhite color = iota // unvisited
	colorGrey               // in progress
	colorBlack              // done
)

// findCycle runs a depth-first traversal over required edges only and
// returns the ordered cycle path when a grey node is revisited, or nil.
// Optional edges are excluded from cycle detection entirely.
func (g *Graph) findCycle() []string {
	colors := make(map[string]color, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(string) bool
	visit = func(serviceType string) bool {
		colors[serviceType] = colorGrey
		stack = append(stack, serviceType)

		for _, dep := range g.nodes[serviceType].Requires {
			switch colors[dep] {
			case colorGrey:
				// Found the cycle: slice the stack from the first
				// occurrence of the revisited node and close the loop.
				for i, t := range stack {
					if t == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						return true
					}
				}
			case colorWhite:
				if visit(dep) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[serviceType] = colorBlack
		return false
	}

	for _, serviceType := range g.order {
		if colors[serviceType] == colorWhite {
			if visit(serviceType) {
				return cycle
			}
		}
	}
	return nil
}
