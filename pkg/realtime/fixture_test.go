package realtime

import (
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

var (
	feedStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	feedTime  = time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
)

// buildStatic has trip t1 A(100) -> B(500) -> C(900) and trip t2 A(400) -> B(800) running on three days.
func buildStatic(t *testing.T) (*storage.GtfsStorage, *ptgraph.PtGraph) {
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
	return st, g
}

type stopUpdateSpec struct {
	seq            uint32
	stopID         string
	arrivalDelay   *int32
	departureDelay *int32
	arrivalTime    *int64
	relationship   gtfsrt.TripUpdate_StopTimeUpdate_ScheduleRelationship
}

func tripUpdateEntity(tripID, routeID string, rel gtfsrt.TripDescriptor_ScheduleRelationship, stops ...stopUpdateSpec) *gtfsrt.FeedEntity {
	updates := make([]*gtfsrt.TripUpdate_StopTimeUpdate, 0, len(stops))
	for _, s := range stops {
		stu := &gtfsrt.TripUpdate_StopTimeUpdate{
			StopSequence:         proto.Uint32(s.seq),
			ScheduleRelationship: s.relationship.Enum(),
		}
		if s.stopID != "" {
			stu.StopId = proto.String(s.stopID)
		}
		if s.arrivalDelay != nil || s.arrivalTime != nil {
			stu.Arrival = &gtfsrt.TripUpdate_StopTimeEvent{Delay: s.arrivalDelay, Time: s.arrivalTime}
		}
		if s.departureDelay != nil {
			stu.Departure = &gtfsrt.TripUpdate_StopTimeEvent{Delay: s.departureDelay}
		}
		updates = append(updates, stu)
	}
	trip := &gtfsrt.TripDescriptor{
		TripId:               proto.String(tripID),
		ScheduleRelationship: rel.Enum(),
	}
	if routeID != "" {
		trip.RouteId = proto.String(routeID)
	}
	return &gtfsrt.FeedEntity{
		Id:         proto.String(tripID),
		TripUpdate: &gtfsrt.TripUpdate{Trip: trip, StopTimeUpdate: updates},
	}
}

func feedMessage(entities ...*gtfsrt.FeedEntity) *gtfsrt.FeedMessage {
	return &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(feedTime.Unix())),
		},
		Entity: entities,
	}
}

func additionalOfType(f *Feed, edgeType datastructure.EdgeType) []ptgraph.PtEdge {
	edges := make([]ptgraph.PtEdge, 0)
	for _, e := range f.additionalEdgesByBase {
		if e.Attrs.Type == edgeType {
			edges = append(edges, e)
		}
	}
	return edges
}
