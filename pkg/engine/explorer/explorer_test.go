package explorer

import (
	"testing"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

type platformFixture struct {
	graph    *ptgraph.PtGraph
	storage  *storage.GtfsStorage
	station  int32
	platform int32
	early    int32
	late     int32
}

// newPlatformFixture is a station with one platform and departures at 08:00 and 09:00.
func newPlatformFixture() platformFixture {
	g := ptgraph.NewPtGraph()
	f := platformFixture{graph: g, storage: storage.NewGtfsStorage()}
	zone := &datastructure.FeedIDWithTimezone{FeedID: "f", Zone: time.UTC}
	f.station = g.CreateNode()
	f.platform = g.CreateNode()
	f.early = g.CreateNode()
	f.late = g.CreateNode()
	g.CreateEdge(f.station, f.platform, datastructure.PtEdgeAttributes{Type: datastructure.EdgeEnterPt, RouteType: 3})
	g.CreateEdge(f.platform, f.late, datastructure.PtEdgeAttributes{Type: datastructure.EdgeEnterNetwork, Time: 9 * 3600, FeedIDWithTimezone: zone})
	g.CreateEdge(f.platform, f.early, datastructure.PtEdgeAttributes{Type: datastructure.EdgeEnterNetwork, Time: 8 * 3600, FeedIDWithTimezone: zone})
	g.CreateEdge(f.early, f.late, datastructure.PtEdgeAttributes{Type: datastructure.EdgeWait, Time: 3600})
	return f
}

func collect(ex *GraphExplorer, node datastructure.NodeID, at int64) []MultiModalEdge {
	edges := make([]MultiModalEdge, 0)
	for e := range ex.ExploreEdgesAround(node, at) {
		edges = append(edges, e)
	}
	return edges
}

func TestWaitingTimeForward(t *testing.T) {
	f := newPlatformFixture()
	ex := NewGraphExplorer(nil, f.graph, f.storage, nil, Options{})
	at := day.Add(7*time.Hour + 30*time.Minute).UnixMilli()

	edges := collect(ex, datastructure.TransitNodeID(f.platform), at)
	require.Len(t, edges, 2)
	waits := map[int32]int64{}
	for _, e := range edges {
		waits[e.AdjNode().PtNode] = ex.CalcTravelTimeMillis(e, at)
	}
	assert.Equal(t, int64(30*60*1000), waits[f.early])
	assert.Equal(t, int64(90*60*1000), waits[f.late])

	// after the last departure the wait rolls over to the next day
	afterLast := day.Add(10 * time.Hour).UnixMilli()
	for _, e := range collect(ex, datastructure.TransitNodeID(f.platform), afterLast) {
		if e.AdjNode().PtNode == f.early {
			assert.Equal(t, int64(22*3600*1000), ex.CalcTravelTimeMillis(e, afterLast))
		}
	}
}

func TestWaitingTimeReverse(t *testing.T) {
	g := ptgraph.NewPtGraph()
	zone := &datastructure.FeedIDWithTimezone{FeedID: "f", Zone: time.UTC}
	arrival := g.CreateNode()
	platform := g.CreateNode()
	g.CreateEdge(arrival, platform, datastructure.PtEdgeAttributes{Type: datastructure.EdgeLeaveNetwork, Time: 8 * 3600, FeedIDWithTimezone: zone})
	ex := NewGraphExplorer(nil, g, storage.NewGtfsStorage(), nil, Options{Reverse: true})

	at := day.Add(8*time.Hour + 20*time.Minute).UnixMilli()
	edges := collect(ex, datastructure.TransitNodeID(platform), at)
	require.Len(t, edges, 1)
	assert.Equal(t, arrival, edges[0].AdjNode().PtNode)
	assert.Equal(t, int64(20*60*1000), ex.CalcTravelTimeMillis(edges[0], at))

	before := day.Add(7 * time.Hour).UnixMilli()
	assert.Equal(t, int64(23*3600*1000), ex.CalcTravelTimeMillis(edges[0], before))
}

func TestLeastWaitEnterYieldsOneEnterEdgeLast(t *testing.T) {
	f := newPlatformFixture()
	ex := NewGraphExplorer(nil, f.graph, f.storage, nil, Options{LeastWaitEnter: true})
	at := day.Add(8*time.Hour + 10*time.Minute).UnixMilli()

	edges := collect(ex, datastructure.TransitNodeID(f.platform), at)
	require.Len(t, edges, 1)
	assert.Equal(t, datastructure.EdgeEnterNetwork, edges[0].Type())
	assert.Equal(t, f.late, edges[0].AdjNode().PtNode)
	assert.Equal(t, int64(50*60*1000), ex.CalcTravelTimeMillis(edges[0], at))
}

func TestWalkOnlyKeepsStationAccess(t *testing.T) {
	f := newPlatformFixture()
	ex := NewGraphExplorer(nil, f.graph, f.storage, nil, Options{WalkOnly: true})

	assert.Empty(t, collect(ex, datastructure.TransitNodeID(f.platform), day.UnixMilli()))
	edges := collect(ex, datastructure.TransitNodeID(f.station), day.UnixMilli())
	require.Len(t, edges, 1)
	assert.Equal(t, datastructure.EdgeEnterPt, edges[0].Type())
}

func TestBlockedRouteTypes(t *testing.T) {
	f := newPlatformFixture()
	ex := NewGraphExplorer(nil, f.graph, f.storage, nil, Options{BlockedRouteTypes: 1 << 3})
	assert.Empty(t, collect(ex, datastructure.TransitNodeID(f.station), day.UnixMilli()))

	ex = NewGraphExplorer(nil, f.graph, f.storage, nil, Options{BlockedRouteTypes: 1 << 1})
	assert.Len(t, collect(ex, datastructure.TransitNodeID(f.station), day.UnixMilli()), 1)
}

func TestPtOnlySkipsStationExit(t *testing.T) {
	g := ptgraph.NewPtGraph()
	platform := g.CreateNode()
	station := g.CreateNode()
	g.CreateEdge(platform, station, datastructure.PtEdgeAttributes{Type: datastructure.EdgeExitPt, RouteType: 3})

	assert.Len(t, collect(NewGraphExplorer(nil, g, storage.NewGtfsStorage(), nil, Options{}), datastructure.TransitNodeID(platform), 0), 1)
	assert.Empty(t, collect(NewGraphExplorer(nil, g, storage.NewGtfsStorage(), nil, Options{PtOnly: true}), datastructure.TransitNodeID(platform), 0))
}

func TestBoardValidity(t *testing.T) {
	g := ptgraph.NewPtGraph()
	from := g.CreateNode()
	to := g.CreateNode()
	days := datastructure.NewValidity(bitset.New(3).Set(1), time.UTC, day.AddDate(0, 0, -1))
	g.CreateEdge(from, to, datastructure.PtEdgeAttributes{Type: datastructure.EdgeBoard, Transfers: 1, Validity: days})

	ex := NewGraphExplorer(nil, g, storage.NewGtfsStorage(), nil, Options{})
	assert.Len(t, collect(ex, datastructure.TransitNodeID(from), day.Add(time.Hour).UnixMilli()), 1)
	assert.Empty(t, collect(ex, datastructure.TransitNodeID(from), day.AddDate(0, 0, 1).UnixMilli()))

	ex = NewGraphExplorer(nil, g, storage.NewGtfsStorage(), nil, Options{IgnoreValidities: true})
	assert.Len(t, collect(ex, datastructure.TransitNodeID(from), day.AddDate(0, 0, 1).UnixMilli()), 1)
}

func TestStreetEdgesAfterTransitEdges(t *testing.T) {
	f := newPlatformFixture()
	street := datastructure.NewStreetGraph()
	s0 := street.AddNode(0, 0, 10)
	s1 := street.AddNode(0, 0.001, 11)
	street.AddEdge(s0, s1, 100, true, "", nil)
	street.AddEdge(s1, s0, 100, true, "", nil)
	street.AddEdge(s0, s1, 100, false, "motorway", nil)
	f.storage.PtToStreet[f.station] = s0
	f.storage.StreetToPt[s0] = f.station

	ex := NewGraphExplorer(street, f.graph, f.storage, nil, Options{})
	node := ex.StreetNodeID(s0)
	assert.Equal(t, datastructure.NodeID{StreetNode: s0, PtNode: f.station}, node)

	edges := collect(ex, node, 0)
	require.Len(t, edges, 2)
	assert.Equal(t, datastructure.EdgeEnterPt, edges[0].Type())
	assert.True(t, edges[1].IsStreet())
	assert.Equal(t, datastructure.StreetNodeID(s1), edges[1].AdjNode())
	assert.Equal(t, int64(72000), ex.CalcTravelTimeMillis(edges[1], 0))
	assert.False(t, ex.IsBlocked(edges[1]))

	reverse := NewGraphExplorer(street, f.graph, f.storage, nil, Options{Reverse: true})
	back := collect(reverse, datastructure.StreetNodeID(s1), 0)
	require.Len(t, back, 1)
	assert.Equal(t, datastructure.NodeID{StreetNode: s0, PtNode: f.station}, back[0].AdjNode())

	ptOnly := NewGraphExplorer(street, f.graph, f.storage, nil, Options{PtOnly: true})
	assert.Len(t, collect(ptOnly, node, 0), 1)
}
