package builder

import (
	"iter"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

// PtGraphReader is the read view of the static transit graph.
type PtGraphReader interface {
	EdgesAround(node int32) (iter.Seq[ptgraph.PtEdge], error)
	BackEdgesAround(node int32) (iter.Seq[ptgraph.PtEdge], error)
	Edge(id int32) (ptgraph.PtEdge, error)
	NodeCount() int32
}

// PtGraphOut receives every node, edge and side record the reader produces.
type PtGraphOut interface {
	CreateNode() int32
	CreateEdge(from, to int32, attrs datastructure.PtEdgeAttributes) int32
	PutPlatformNode(node int32, platform datastructure.PlatformDescriptor)
	PutTripEdges(feedID string, td datastructure.TripDescriptor, board, alight []int32)

	InternValidity(v *datastructure.Validity) *datastructure.Validity
	InternFeedZone(v datastructure.FeedIDWithTimezone) *datastructure.FeedIDWithTimezone
	InternPlatform(v datastructure.PlatformDescriptor) *datastructure.PlatformDescriptor
	InternTripDescriptor(v datastructure.TripDescriptor) *datastructure.TripDescriptor
}

// StaticGraphOut writes into the static graph and its storage, used at import time.
type StaticGraphOut struct {
	*ptgraph.PtGraph
	*storage.GtfsStorage
}

func NewStaticGraphOut(graph *ptgraph.PtGraph, st *storage.GtfsStorage) *StaticGraphOut {
	return &StaticGraphOut{PtGraph: graph, GtfsStorage: st}
}
