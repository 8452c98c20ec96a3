package graph

import "sort"

// Waves computes the initialization schedule with a variant of Kahn's
// algorithm over the ordering graph: repeatedly extract every node whose
// predecessors have all been emitted, order the batch by priority
// descending then registration order, and emit it as one wave. Services
// within a wave are independent by construction and may initialize
// concurrently. A built (cycle-free) graph always drains fully.
func (g *Graph) Waves() [][]string {
	indegree := make(map[string]int, len(g.nodes))
	for _, serviceType := range g.order {
		indegree[serviceType] = len(g.preds[serviceType])
	}

	remaining := len(g.order)
	var waves [][]string

	for remaining > 0 {
		var ready []string
		for _, serviceType := range g.order {
			if degree, ok := indegree[serviceType]; ok && degree == 0 {
				ready = append(ready, serviceType)
			}
		}

		sort.SliceStable(ready, func(i, j int) bool {
			a, b := g.nodes[ready[i]], g.nodes[ready[j]]
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
			return a.Order < b.Order
		})

		for _, serviceType := range ready {
			delete(indegree, serviceType)
			for _, dependent := range g.succs[serviceType] {
				if _, ok := indegree[dependent]; ok {
					indegree[dependent]--
				}
			}
		}

		waves = append(waves, ready)
		remaining -= len(ready)
	}

	return waves
}

// ShutdownOrder returns every service in exact reverse of the given
// bring-up order. The caller records bring-up order as services settle.
func ShutdownOrder(bringUp []string) []string {
	out := make([]string, len(bringUp))
	for i, serviceType := range bringUp {
		out[len(bringUp)-1-i] = serviceType
	}
	return out
}
