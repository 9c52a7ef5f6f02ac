package osmparser

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
)

// MarkSmallSubnetworks clears the Foot flag of every edge inside a connected component with fewer than
// minSize nodes, so nothing snaps onto islands like a mapped courtyard. Returns the number of edges cleared.
func MarkSmallSubnetworks(g *datastructure.StreetGraph, minSize int) int {
	if minSize <= 1 {
		return 0
	}
	n := uint(g.NodeCount())
	visited := bitset.New(n)
	cleared := 0

	stack := make([]int32, 0)
	component := make([]int32, 0)
	for start := uint(0); start < n; start++ {
		if visited.Test(start) {
			continue
		}
		visited.Set(start)
		stack = append(stack[:0], int32(start))
		component = component[:0]
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, u)
			for _, adj := range [][]int32{g.OutEdges[u], g.InEdges[u]} {
				for _, eid := range adj {
					e := g.Edges[eid]
					v := e.To
					if v == u {
						v = e.From
					}
					if !visited.Test(uint(v)) {
						visited.Set(uint(v))
						stack = append(stack, v)
					}
				}
			}
		}

		if len(component) >= minSize {
			continue
		}
		for _, u := range component {
			for _, eid := range g.OutEdges[u] {
				if g.Edges[eid].Foot {
					g.Edges[eid].Foot = false
					cleared++
				}
			}
		}
	}
	return cleared
}
