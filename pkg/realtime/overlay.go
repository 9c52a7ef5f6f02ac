package realtime

import (
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

// overlayGraph numbers its nodes and edges after the static graph and keeps the edges to itself.
// Interned attributes and trip edges of realtime trips land in a scratch storage.
type overlayGraph struct {
	*storage.GtfsStorage

	nextNode int32
	nextEdge int32
	edges    []ptgraph.PtEdge
}

func newOverlayGraph(graph *ptgraph.PtGraph) *overlayGraph {
	return &overlayGraph{
		GtfsStorage: storage.NewGtfsStorage(),
		nextNode:    graph.NodeCount(),
		nextEdge:    graph.EdgeCount(),
		edges:       make([]ptgraph.PtEdge, 0),
	}
}

func (o *overlayGraph) CreateNode() int32 {
	n := o.nextNode
	o.nextNode++
	return n
}

func (o *overlayGraph) CreateEdge(from, to int32, attrs datastructure.PtEdgeAttributes) int32 {
	id := o.nextEdge
	o.nextEdge++
	o.edges = append(o.edges, ptgraph.PtEdge{ID: id, BaseNode: from, AdjNode: to, Attrs: attrs})
	return id
}
