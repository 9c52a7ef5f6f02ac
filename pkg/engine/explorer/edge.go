package explorer

import (
	"fmt"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
)

// MultiModalEdge is either a transit edge or a street (HIGHWAY) edge.
type MultiModalEdge struct {
	pt       *ptgraph.PtEdge
	street   *datastructure.StreetEdge
	id       int32
	baseNode int32
	adj      datastructure.NodeID
	millis   int64
}

func (e MultiModalEdge) Type() datastructure.EdgeType {
	if e.pt != nil {
		return e.pt.Attrs.Type
	}
	return datastructure.EdgeHighway
}

// ID is the transit edge id or the street edge id, the two id spaces overlap.
func (e MultiModalEdge) ID() int32 {
	return e.id
}

func (e MultiModalEdge) IsStreet() bool {
	return e.pt == nil
}

func (e MultiModalEdge) BaseNode() int32 {
	return e.baseNode
}

func (e MultiModalEdge) AdjNode() datastructure.NodeID {
	return e.adj
}

func (e MultiModalEdge) Transfers() int {
	if e.pt != nil {
		return int(e.pt.Attrs.Transfers)
	}
	return 0
}

// TimeMillis is the stored duration, see GraphExplorer.CalcTravelTimeMillis for the time dependent one.
func (e MultiModalEdge) TimeMillis() int64 {
	if e.pt != nil {
		return int64(e.pt.Attrs.Time) * 1000
	}
	return e.millis
}

func (e MultiModalEdge) DistanceMeters() float64 {
	if e.street != nil {
		return e.street.DistMeters
	}
	return 0
}

func (e MultiModalEdge) RouteType() int {
	if e.pt != nil {
		return int(e.pt.Attrs.RouteType)
	}
	return 0
}

func (e MultiModalEdge) StopSequence() int {
	if e.pt != nil {
		return int(e.pt.Attrs.StopSequence)
	}
	return 0
}

func (e MultiModalEdge) TripDescriptor() *datastructure.TripDescriptor {
	if e.pt != nil {
		return e.pt.Attrs.TripDescriptor
	}
	return nil
}

func (e MultiModalEdge) Platform() *datastructure.PlatformDescriptor {
	if e.pt != nil {
		return e.pt.Attrs.Platform
	}
	return nil
}

func (e MultiModalEdge) FeedIDWithTimezone() *datastructure.FeedIDWithTimezone {
	if e.pt != nil {
		return e.pt.Attrs.FeedIDWithTimezone
	}
	return nil
}

// PtEdge is the transit edge, nil for street edges.
func (e MultiModalEdge) PtEdge() *ptgraph.PtEdge {
	return e.pt
}

// StreetEdge is the street edge, nil for transit edges.
func (e MultiModalEdge) StreetEdge() *datastructure.StreetEdge {
	return e.street
}

func (e MultiModalEdge) String() string {
	return fmt.Sprintf("MultiModalEdge{%s %d: %d->%s}", e.Type(), e.id, e.baseNode, e.adj)
}
