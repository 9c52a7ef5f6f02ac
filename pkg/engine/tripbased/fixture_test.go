package tripbased

import (
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/require"
)

var serviceDay = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func stopTime(stop string, seq, at int) gtfs.StopTime {
	return gtfs.StopTime{StopID: stop, StopSequence: seq, ArrivalTime: at, DepartureTime: at}
}

func stop(id string) datastructure.FeedIDWithStopID {
	return datastructure.FeedIDWithStopID{FeedID: "f", StopID: id}
}

/*
a1: A(100) -> B(500) -> C(900)
b1: B(600) -> D(1000), b2: B(400) -> D(800), b3: B(1200) -> D(1600)
c1: A(50) -> D(2000)
e1: E(960) -> G(1500)
f1: C -> D every 500 s from 1000 to 2000, 300 s ride
h1: H(950) -> I(1400)
*/
func buildFeed(t *testing.T, blockID string, rules ...gtfs.Transfer) *gtfs.Feed {
	t.Helper()
	f := gtfs.NewFeed("f")
	f.AddAgency(gtfs.Agency{ID: "ag", Timezone: time.UTC})
	for _, r := range []string{"r1", "r2", "r3", "r4", "r5", "r6"} {
		f.AddRoute(gtfs.Route{ID: r, AgencyID: "ag", Type: 3})
	}
	for _, s := range []string{"A", "B", "C", "D", "E", "G", "H", "I"} {
		f.AddStop(gtfs.Stop{ID: s})
	}
	f.AddService(gtfs.Service{ID: "svc", Added: map[string]struct{}{"20240305": {}}})
	f.AddTrip(gtfs.Trip{ID: "a1", RouteID: "r1", ServiceID: "svc", BlockID: blockID},
		stopTime("A", 1, 100), stopTime("B", 2, 500), stopTime("C", 3, 900))
	f.AddTrip(gtfs.Trip{ID: "b1", RouteID: "r2", ServiceID: "svc", BlockID: blockID},
		stopTime("B", 1, 600), stopTime("D", 2, 1000))
	f.AddTrip(gtfs.Trip{ID: "b2", RouteID: "r2", ServiceID: "svc"},
		stopTime("B", 1, 400), stopTime("D", 2, 800))
	f.AddTrip(gtfs.Trip{ID: "b3", RouteID: "r2", ServiceID: "svc"},
		stopTime("B", 1, 1200), stopTime("D", 2, 1600))
	f.AddTrip(gtfs.Trip{ID: "c1", RouteID: "r3", ServiceID: "svc"},
		stopTime("A", 1, 50), stopTime("D", 2, 2000))
	f.AddTrip(gtfs.Trip{ID: "e1", RouteID: "r4", ServiceID: "svc"},
		stopTime("E", 1, 960), stopTime("G", 2, 1500))
	f.AddTrip(gtfs.Trip{ID: "f1", RouteID: "r5", ServiceID: "svc"},
		stopTime("C", 1, 0), stopTime("D", 2, 300))
	f.AddFrequency(gtfs.Frequency{TripID: "f1", StartTime: 1000, EndTime: 2000, HeadwaySecs: 500})
	f.AddTrip(gtfs.Trip{ID: "h1", RouteID: "r6", ServiceID: "svc"},
		stopTime("H", 1, 950), stopTime("I", 2, 1400))
	for _, r := range rules {
		f.AddTransfer(r)
	}
	require.NoError(t, f.Finalize())
	return f
}

type network struct {
	storage *storage.GtfsStorage
	trips   *Trips
	index   *TripTransferIndex
}

func newNetwork(t *testing.T, feed *gtfs.Feed, configure ...func(st *storage.GtfsStorage)) network {
	t.Helper()
	st := storage.NewGtfsStorage()
	st.AddFeed(feed)
	for _, c := range configure {
		c(st)
	}
	trips := NewTrips(st)
	return network{
		storage: st,
		trips:   trips,
		index:   NewTripTransferIndex(trips, TransferConfig{Workers: 2}, nil, logger.Nop()),
	}
}

func (n network) run(tripID, startTime string) *TripRun {
	for _, r := range n.trips.Runs {
		if r.Trip.ID == tripID && r.Descriptor.StartTime == startTime {
			return r
		}
	}
	panic("no run " + tripID)
}

func (n network) router(opts RouterOptions) *Router {
	return NewRouter(n.trips, n.index, opts)
}

func at(stopID string) []StopWithTimeDelta {
	return []StopWithTimeDelta{{Stop: stop(stopID)}}
}

func platformOf(stopID string) datastructure.PlatformDescriptor {
	return datastructure.NewRouteTypePlatform("f", stopID, 3)
}
