package explorer

import (
	"iter"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

// StreetGraph is the foot network the explorer walks on.
type StreetGraph interface {
	EdgesAround(node int32, reverse bool) iter.Seq[datastructure.StreetEdge]
	Node(id int32) datastructure.StreetNode
	Edge(id int32) datastructure.StreetEdge
}

type PtGraph interface {
	EdgesAround(node int32) (iter.Seq[ptgraph.PtEdge], error)
	BackEdgesAround(node int32) (iter.Seq[ptgraph.PtEdge], error)
	NodeCount() int32
}

// Realtime is the view of a realtime snapshot, *realtime.Feed implements it (a nil *realtime.Feed too).
type Realtime interface {
	IsBlocked(edgeID int32) bool
	DelayForBoardEdge(edgeID int32, now time.Time) int64
	DelayForAlightEdge(edgeID int32, now time.Time) int64
	AdditionalEdgesFrom(node int32) []ptgraph.PtEdge
	AdditionalEdgesTo(node int32) []ptgraph.PtEdge
}

type noRealtime struct{}

func (noRealtime) IsBlocked(int32) bool { return false }
func (noRealtime) DelayForBoardEdge(int32, time.Time) int64 { return 0 }
func (noRealtime) DelayForAlightEdge(int32, time.Time) int64 { return 0 }
func (noRealtime) AdditionalEdgesFrom(int32) []ptgraph.PtEdge { return nil }
func (noRealtime) AdditionalEdgesTo(int32) []ptgraph.PtEdge { return nil }

const DefaultWalkSpeedKmh = 5.0

type Options struct {
	Reverse          bool
	WalkOnly         bool
	PtOnly           bool
	IgnoreValidities bool
	// bit i set blocks route type i on ENTER_PT, EXIT_PT & TRANSFER edges
	BlockedRouteTypes int
	WalkSpeedKmh      float64
	// enter the time expanded network only through the least wait departure
	LeastWaitEnter bool
}

// GraphExplorer enumerates the multimodal edges around a node for one search direction.
// It is cheap to build and meant to be created per query.
type GraphExplorer struct {
	street   StreetGraph
	pt       PtGraph
	storage  *storage.GtfsStorage
	realtime Realtime
	opts     Options
}

func NewGraphExplorer(street StreetGraph, pt PtGraph, st *storage.GtfsStorage, rt Realtime, opts Options) *GraphExplorer {
	if rt == nil {
		rt = noRealtime{}
	}
	if opts.WalkSpeedKmh <= 0 {
		opts.WalkSpeedKmh = DefaultWalkSpeedKmh
	}
	return &GraphExplorer{
		street:   street,
		pt:       pt,
		storage:  st,
		realtime: rt,
		opts:     opts,
	}
}

func (ex *GraphExplorer) Reverse() bool {
	return ex.opts.Reverse
}

func (ex *GraphExplorer) Options() Options {
	return ex.opts
}

// StreetNodeID is the multimodal node of a street node, with its station if it has one.
func (ex *GraphExplorer) StreetNodeID(streetNode int32) datastructure.NodeID {
	pt, ok := ex.storage.StreetToPt[streetNode]
	if !ok {
		pt = -1
	}
	return datastructure.NodeID{StreetNode: streetNode, PtNode: pt}
}

// PtNodeID is the multimodal node of a transit node, with its street node if it has one.
func (ex *GraphExplorer) PtNodeID(ptNode int32) datastructure.NodeID {
	street, ok := ex.storage.PtToStreet[ptNode]
	if !ok {
		street = -1
	}
	return datastructure.NodeID{StreetNode: street, PtNode: ptNode}
}

// ExploreEdgesAround yields the transit edges of the node first, then its street edges.
// Each call returns a fresh sequence.
func (ex *GraphExplorer) ExploreEdgesAround(node datastructure.NodeID, currentTime int64) iter.Seq[MultiModalEdge] {
	return func(yield func(MultiModalEdge) bool) {
		if node.PtNode != -1 {
			for e := range ex.ptEdges(node.PtNode, currentTime) {
				if !yield(e) {
					return
				}
			}
		}
		if node.StreetNode != -1 && ex.street != nil && !ex.opts.PtOnly {
			for e := range ex.streetEdges(node.StreetNode) {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// rawPtEdges are the static plus overlay edges around node, as seen from node.
func (ex *GraphExplorer) rawPtEdges(node int32) iter.Seq[ptgraph.PtEdge] {
	return func(yield func(ptgraph.PtEdge) bool) {
		if node < ex.pt.NodeCount() {
			var static iter.Seq[ptgraph.PtEdge]
			var err error
			if ex.opts.Reverse {
				static, err = ex.pt.BackEdgesAround(node)
			} else {
				static, err = ex.pt.EdgesAround(node)
			}
			if err == nil {
				for e := range static {
					if !yield(e) {
						return
					}
				}
			}
		}
		var additional []ptgraph.PtEdge
		if ex.opts.Reverse {
			additional = ex.realtime.AdditionalEdgesTo(node)
		} else {
			additional = ex.realtime.AdditionalEdgesFrom(node)
		}
		for _, e := range additional {
			if !yield(e) {
				return
			}
		}
	}
}

func (ex *GraphExplorer) ptEdges(node int32, currentTime int64) iter.Seq[MultiModalEdge] {
	return func(yield func(MultiModalEdge) bool) {
		var enter *ptgraph.PtEdge
		var enterTT int64
		for e := range ex.rawPtEdges(node) {
			edgeType := e.Attrs.Type
			if edgeType == datastructure.EdgeEnterNetwork && !ex.opts.WalkOnly && ex.opts.LeastWaitEnter && !ex.opts.Reverse {
				// later departures stay reachable over WAIT edges
				tt := ex.calcPtTravelTimeMillis(e, currentTime)
				if enter == nil || tt < enterTT {
					chosen := e
					enter = &chosen
					enterTT = tt
				}
				continue
			}
			if !ex.accept(e, currentTime) {
				continue
			}
			if !yield(ex.ptEdge(e)) {
				return
			}
		}
		if enter != nil {
			yield(ex.ptEdge(*enter))
		}
	}
}

func (ex *GraphExplorer) accept(e ptgraph.PtEdge, currentTime int64) bool {
	edgeType := e.Attrs.Type
	if ex.opts.WalkOnly {
		want := datastructure.EdgeEnterPt
		if ex.opts.Reverse {
			want = datastructure.EdgeExitPt
		}
		if edgeType != want {
			return false
		}
	}
	if !ex.opts.IgnoreValidities && !isValidOn(e, currentTime) {
		return false
	}
	if edgeType == datastructure.EdgeWaitArrival && !ex.opts.Reverse {
		return false
	}
	if edgeType == datastructure.EdgeEnterPt && ex.opts.Reverse && ex.opts.PtOnly {
		return false
	}
	if edgeType == datastructure.EdgeExitPt && !ex.opts.Reverse && ex.opts.PtOnly {
		return false
	}
	if edgeType == datastructure.EdgeEnterPt || edgeType == datastructure.EdgeExitPt || edgeType == datastructure.EdgeTransfer {
		if ex.opts.BlockedRouteTypes&(1<<uint(e.Attrs.RouteType)) != 0 {
			return false
		}
	}
	return true
}

func (ex *GraphExplorer) ptEdge(e ptgraph.PtEdge) MultiModalEdge {
	return MultiModalEdge{
		pt:       &e,
		id:       e.ID,
		baseNode: e.BaseNode,
		adj:      ex.PtNodeID(e.AdjNode),
	}
}

func (ex *GraphExplorer) streetEdges(node int32) iter.Seq[MultiModalEdge] {
	return func(yield func(MultiModalEdge) bool) {
		for e := range ex.street.EdgesAround(node, ex.opts.Reverse) {
			if !e.Foot {
				continue
			}
			if !yield(ex.streetEdge(e, node)) {
				return
			}
		}
	}
}

// streetEdge views e from base, which is e.From forward and e.To in reverse.
func (ex *GraphExplorer) streetEdge(e datastructure.StreetEdge, base int32) MultiModalEdge {
	adj := e.To
	if base == e.To && base != e.From {
		adj = e.From
	}
	street := e
	return MultiModalEdge{
		street:   &street,
		id:       e.ID,
		baseNode: base,
		adj:      ex.StreetNodeID(adj),
		millis:   int64(float64(e.WeightMillis) * (DefaultWalkSpeedKmh / ex.opts.WalkSpeedKmh)),
	}
}

// StreetEdge returns the street edge with id walked forward, for rebuilding transfer walks.
func (ex *GraphExplorer) StreetEdge(id int32) MultiModalEdge {
	e := ex.street.Edge(id)
	return ex.streetEdge(e, e.From)
}

// CalcTravelTimeMillis is the time spent on edge when it is entered at currentTime.
// In a reverse search the waiting time on LEAVE_NETWORK edges is negative.
func (ex *GraphExplorer) CalcTravelTimeMillis(edge MultiModalEdge, currentTime int64) int64 {
	if edge.pt == nil {
		return edge.millis
	}
	return ex.calcPtTravelTimeMillis(*edge.pt, currentTime)
}

func (ex *GraphExplorer) calcPtTravelTimeMillis(e ptgraph.PtEdge, currentTime int64) int64 {
	switch e.Attrs.Type {
	case datastructure.EdgeEnterNetwork:
		if ex.opts.Reverse {
			return 0
		}
		return ex.waitingTime(e, currentTime)
	case datastructure.EdgeLeaveNetwork:
		if ex.opts.Reverse {
			return -ex.waitingTime(e, currentTime)
		}
		return 0
	default:
		return int64(e.Attrs.Time) * 1000
	}
}

func (ex *GraphExplorer) waitingTime(e ptgraph.PtEdge, currentTime int64) int64 {
	zone := time.UTC
	if e.Attrs.FeedIDWithTimezone != nil && e.Attrs.FeedIDWithTimezone.Zone != nil {
		zone = e.Attrs.FeedIDWithTimezone.Zone
	}
	l := int64(e.Attrs.Time)*1000 - datastructure.MillisOfDay(currentTime, zone)
	if !ex.opts.Reverse {
		if l < 0 {
			l += datastructure.MillisPerDay
		}
	} else if l > 0 {
		l -= datastructure.MillisPerDay
	}
	return l
}

// isValidOn checks the service day of BOARD & ALIGHT edges, every other edge is always valid.
func isValidOn(e ptgraph.PtEdge, instant int64) bool {
	if e.Attrs.Type != datastructure.EdgeBoard && e.Attrs.Type != datastructure.EdgeAlight {
		return true
	}
	return e.Attrs.Validity.IsValidOn(instant)
}

// IsBlocked reports whether the realtime snapshot cancelled the transit edge.
func (ex *GraphExplorer) IsBlocked(edge MultiModalEdge) bool {
	if edge.pt == nil {
		return false
	}
	return ex.realtime.IsBlocked(edge.id)
}

func (ex *GraphExplorer) DelayFromBoardEdge(edge MultiModalEdge, currentTime int64) int64 {
	if edge.pt == nil {
		return 0
	}
	return ex.realtime.DelayForBoardEdge(edge.id, time.UnixMilli(currentTime))
}

func (ex *GraphExplorer) DelayFromAlightEdge(edge MultiModalEdge, currentTime int64) int64 {
	if edge.pt == nil {
		return 0
	}
	return ex.realtime.DelayForAlightEdge(edge.id, time.UnixMilli(currentTime))
}
