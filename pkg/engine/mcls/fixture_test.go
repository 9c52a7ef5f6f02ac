package mcls

import (
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/realtime"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

var (
	serviceDay = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	feedTime   = time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
)

type network struct {
	graph   *ptgraph.PtGraph
	storage *storage.GtfsStorage
}

// buildNetwork has trip t1 A(100) -> B(500) -> C(900) and trip t2 A(400) -> B(800) running 4-6 March 2024.
func buildNetwork(t *testing.T) network {
	t.Helper()
	f := gtfs.NewFeed("f")
	f.AddAgency(gtfs.Agency{ID: "ag", Timezone: time.UTC})
	f.AddRoute(gtfs.Route{ID: "r1", AgencyID: "ag", Type: 3})
	f.AddStop(gtfs.Stop{ID: "A", Lat: -7.7829, Lon: 110.3671})
	f.AddStop(gtfs.Stop{ID: "B", Lat: -7.7925, Lon: 110.3658})
	f.AddStop(gtfs.Stop{ID: "C", Lat: -7.8053, Lon: 110.3642})
	f.AddService(gtfs.Service{ID: "svc", Added: map[string]struct{}{"20240304": {}, "20240305": {}, "20240306": {}}})
	f.AddTrip(gtfs.Trip{ID: "t1", RouteID: "r1", ServiceID: "svc"},
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
	r, err := builder.NewGtfsReader("f", g, builder.NewStaticGraphOut(g, st), st, nil, nil, logger.Nop())
	require.NoError(t, err)
	r.ConnectStopsToStreetNetwork()
	require.NoError(t, r.BuildPtNetwork())
	return network{graph: g, storage: st}
}

func (n network) station(t *testing.T, stopID string) datastructure.NodeID {
	t.Helper()
	node, ok := n.storage.StationNode("f", stopID)
	require.True(t, ok)
	return datastructure.TransitNodeID(node)
}

func (n network) explorer(rt explorer.Realtime, opts explorer.Options) *explorer.GraphExplorer {
	return explorer.NewGraphExplorer(nil, n.graph, n.storage, rt, opts)
}

// departureDelayed delays trip t1 at its first stop, the delay carries over to later stops.
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

func secondsAfter(day time.Time, seconds int64) int64 {
	return day.UnixMilli() + seconds*1000
}
