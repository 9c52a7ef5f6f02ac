package ptrouter

import (
	"math"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/tripbased"
	"github.com/lintang-b-s/navigatorx-pt/pkg/geo"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/realtime"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

var (
	serviceDay = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	feedTime   = time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)

	origin      = datastructure.Coordinate{Lat: -7.7780, Lon: 110.3671}
	destination = datastructure.Coordinate{Lat: -7.8100, Lon: 110.3642}
	nowhere     = datastructure.Coordinate{Lat: -7.9000, Lon: 110.5000}
)

// nearestSnapper snaps to the closest node of the street graph.
type nearestSnapper struct {
	g *datastructure.StreetGraph
}

func (s nearestSnapper) SnapToStreetNode(lat, lon float64) (int32, float64, error) {
	best, bestDist := int32(-1), math.MaxFloat64
	for i, n := range s.g.Nodes {
		if d := geo.DistanceMeters(lat, lon, n.Lat, n.Lon); d < bestDist {
			best, bestDist = int32(i), d
		}
	}
	if best == -1 {
		return -1, 0, snap.ErrNoStreetNode
	}
	return best, bestDist, nil
}

type failingSnapper struct{}

func (failingSnapper) SnapToStreetNode(float64, float64) (int32, float64, error) {
	return -1, 0, snap.ErrNoStreetNode
}

type fixedRealtime struct {
	feed *realtime.Feed
}

func (f fixedRealtime) Load() *realtime.Feed {
	return f.feed
}

type network struct {
	street  *datastructure.StreetGraph
	graph   *ptgraph.PtGraph
	storage *storage.GtfsStorage
	trips   *tripbased.Trips
	index   *tripbased.TripTransferIndex
}

// link adds a walkable way in both directions.
func link(g *datastructure.StreetGraph, u, v int32, millis int64) {
	from, to := g.Node(u), g.Node(v)
	dist := geo.DistanceMeters(from.Lat, from.Lon, to.Lat, to.Lon)
	for _, e := range []int32{g.AddEdge(u, v, dist, true, "Jalan Kaliurang", nil), g.AddEdge(v, u, dist, true, "Jalan Kaliurang", nil)} {
		g.Edges[e].WeightMillis = millis
	}
}

/*
origin -(60 s)- A ... t1 A(100) -> B(500) -> C(900), t2 A(400) -> B(800) ... C -(120 s)- destination
nowhere is a street node without ways.
*/
func buildNetwork(t *testing.T) network {
	t.Helper()
	street := datastructure.NewStreetGraph()
	o := street.AddNode(origin.Lat, origin.Lon, 1)
	a := street.AddNode(-7.7829, 110.3671, 2)
	street.AddNode(-7.7925, 110.3658, 3)
	c := street.AddNode(-7.8053, 110.3642, 4)
	d := street.AddNode(destination.Lat, destination.Lon, 5)
	street.AddNode(nowhere.Lat, nowhere.Lon, 6)
	link(street, o, a, 60000)
	link(street, c, d, 120000)

	f := gtfs.NewFeed("f")
	f.AddAgency(gtfs.Agency{ID: "ag", Timezone: time.UTC})
	f.AddRoute(gtfs.Route{ID: "r1", AgencyID: "ag", Type: 3})
	f.AddStop(gtfs.Stop{ID: "A", Name: "Tugu", Lat: -7.7829, Lon: 110.3671})
	f.AddStop(gtfs.Stop{ID: "B", Name: "Malioboro", Lat: -7.7925, Lon: 110.3658})
	f.AddStop(gtfs.Stop{ID: "C", Name: "Alun-Alun", Lat: -7.8053, Lon: 110.3642})
	f.AddService(gtfs.Service{ID: "svc", Added: map[string]struct{}{"20240304": {}, "20240305": {}, "20240306": {}}})
	f.AddTrip(gtfs.Trip{ID: "t1", RouteID: "r1", ServiceID: "svc", Headsign: "Alun-Alun"},
		gtfs.StopTime{StopID: "A", StopSequence: 1, ArrivalTime: 100, DepartureTime: 100},
		gtfs.StopTime{StopID: "B", StopSequence: 2, ArrivalTime: 500, DepartureTime: 500},
		gtfs.StopTime{StopID: "C", StopSequence: 3, ArrivalTime: 900, DepartureTime: 900})
	f.AddTrip(gtfs.Trip{ID: "t2", RouteID: "r1", ServiceID: "svc"},
		gtfs.StopTime{StopID: "A", StopSequence: 1, ArrivalTime: 400, DepartureTime: 400},
		gtfs.StopTime{StopID: "B", StopSequence: 2, ArrivalTime: 800, DepartureTime: 800})
	require.NoError(t, f.Finalize())

	g := ptgraph.NewPtGraph()
	st := storage.NewGtfsStorage()
	st.AddFeed(f)
	r, err := builder.NewGtfsReader("f", g, builder.NewStaticGraphOut(g, st), st, nearestSnapper{street}, nil, logger.Nop())
	require.NoError(t, err)
	r.ConnectStopsToStreetNetwork()
	require.NoError(t, r.BuildPtNetwork())

	trips := tripbased.NewTrips(st)
	return network{
		street:  street,
		graph:   g,
		storage: st,
		trips:   trips,
		index:   tripbased.NewTripTransferIndex(trips, tripbased.TransferConfig{Workers: 1}, nil, logger.Nop()),
	}
}

func (n network) router(rt *realtime.Feed) *Router {
	return NewRouter(n.street, n.graph, n.storage, nearestSnapper{n.street}, DefaultConfig(), logger.Nop(),
		WithRealtime(fixedRealtime{rt}), WithTripBased(n.trips, n.index))
}

// departureDelayed delays trip t1 from its first stop on.
func (n network) departureDelayed(delaySeconds int32) *realtime.Feed {
	msg := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(feedTime.Unix())),
		},
		Entity: []*gtfsrt.FeedEntity{{
			Id: proto.String("t1"),
			TripUpdate: &gtfsrt.TripUpdate{
				Trip: &gtfsrt.TripDescriptor{
					TripId:               proto.String("t1"),
					ScheduleRelationship: gtfsrt.TripDescriptor_SCHEDULED.Enum(),
				},
				StopTimeUpdate: []*gtfsrt.TripUpdate_StopTimeUpdate{{
					StopSequence:         proto.Uint32(1),
					ScheduleRelationship: gtfsrt.TripUpdate_StopTimeUpdate_SCHEDULED.Enum(),
					Departure:            &gtfsrt.TripUpdate_StopTimeEvent{Delay: proto.Int32(delaySeconds)},
				}},
			},
		}},
	}
	return realtime.FromProtobuf(n.storage, n.graph, map[string]*gtfsrt.FeedMessage{"f": msg}, logger.Nop())
}

func request(from, to datastructure.Coordinate, at time.Time) Request {
	return Request{
		FromLat:               from.Lat,
		FromLon:               from.Lon,
		ToLat:                 to.Lat,
		ToLon:                 to.Lon,
		EarliestDepartureTime: at,
	}
}

func secondsAfter(day time.Time, seconds int) time.Time {
	return day.Add(time.Duration(seconds) * time.Second)
}
