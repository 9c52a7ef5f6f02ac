package builder

import (
	"errors"
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/require"
)

var feedStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

type fakeSnapper struct {
	nodes map[[2]float64]int32
}

func (f fakeSnapper) SnapToStreetNode(lat, lon float64) (int32, float64, error) {
	if n, ok := f.nodes[[2]float64{lat, lon}]; ok {
		return n, 1.5, nil
	}
	return -1, 0, snap.ErrNoStreetNode
}

type stationList struct {
	stations []snap.Station
}

func (s *stationList) Insert(st snap.Station) {
	s.stations = append(s.stations, st)
}

// newTestFeed has stops A, B, C on a line and a service running on the given day offsets.
func newTestFeed(days ...int) *gtfs.Feed {
	f := gtfs.NewFeed("f")
	f.AddAgency(gtfs.Agency{ID: "ag", Timezone: time.UTC})
	f.AddRoute(gtfs.Route{ID: "r1", AgencyID: "ag", Type: 3})
	f.AddRoute(gtfs.Route{ID: "r2", AgencyID: "ag", Type: 3})
	f.AddStop(gtfs.Stop{ID: "A", Name: "Tugu", Lat: -7.7829, Lon: 110.3671})
	f.AddStop(gtfs.Stop{ID: "B", Name: "Malioboro", Lat: -7.7925, Lon: 110.3658})
	f.AddStop(gtfs.Stop{ID: "C", Name: "Kraton", Lat: -7.8053, Lon: 110.3642})
	added := make(map[string]struct{})
	for _, d := range days {
		added[feedStart.AddDate(0, 0, d).Format("20060102")] = struct{}{}
	}
	f.AddService(gtfs.Service{ID: "svc", Added: added})
	return f
}

func stopTime(stopID string, seq, arr, dep int) gtfs.StopTime {
	return gtfs.StopTime{StopID: stopID, StopSequence: seq, ArrivalTime: arr, DepartureTime: dep}
}

type testNetwork struct {
	graph   *ptgraph.PtGraph
	storage *storage.GtfsStorage
	reader  *GtfsReader
}

func buildNetwork(t *testing.T, feed *gtfs.Feed, snapper Snapper) (*testNetwork, error) {
	t.Helper()
	require.NoError(t, feed.Finalize())
	g := ptgraph.NewPtGraph()
	st := storage.NewGtfsStorage()
	st.AddFeed(feed)
	r, err := NewGtfsReader(feed.ID, g, NewStaticGraphOut(g, st), st, snapper, &stationList{}, logger.Nop())
	require.NoError(t, err)
	r.ConnectStopsToStreetNetwork()
	err = r.BuildPtNetwork()
	return &testNetwork{graph: g, storage: st, reader: r}, err
}

func (n *testNetwork) edgesOfType(edgeType datastructure.EdgeType) []ptgraph.PtEdge {
	edges := make([]ptgraph.PtEdge, 0)
	for id := int32(0); id < n.graph.EdgeCount(); id++ {
		e, err := n.graph.Edge(id)
		if err != nil {
			panic(err)
		}
		if e.Attrs.Type == edgeType {
			edges = append(edges, e)
		}
	}
	return edges
}

func (n *testNetwork) backEdges(t *testing.T, node int32) []ptgraph.PtEdge {
	it, err := n.graph.BackEdgesAround(node)
	require.NoError(t, err)
	edges := make([]ptgraph.PtEdge, 0)
	for e := range it {
		edges = append(edges, e)
	}
	return edges
}

func (n *testNetwork) outEdges(t *testing.T, node int32) []ptgraph.PtEdge {
	it, err := n.graph.EdgesAround(node)
	require.NoError(t, err)
	edges := make([]ptgraph.PtEdge, 0)
	for e := range it {
		edges = append(edges, e)
	}
	return edges
}

func isMalformed(err error) bool {
	return errors.Is(err, gtfs.ErrMalformedSchedule)
}
