package routingalgorithm

import (
	"iter"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
)

type StreetGraph interface {
	EdgesAround(node int32, reverse bool) iter.Seq[datastructure.StreetEdge]
	Node(id int32) datastructure.StreetNode
}

type RouteAlgorithm struct {
	graph           StreetGraph
	maxVisitedNodes int
}

func NewRouteAlgorithm(graph StreetGraph) *RouteAlgorithm {
	return &RouteAlgorithm{graph: graph, maxVisitedNodes: defaultMaxVisitedNodes}
}

// WithMaxVisitedNodes bounds the number of settled nodes of one query.
func (rt *RouteAlgorithm) WithMaxVisitedNodes(n int) *RouteAlgorithm {
	if n > 0 {
		rt.maxVisitedNodes = n
	}
	return rt
}
