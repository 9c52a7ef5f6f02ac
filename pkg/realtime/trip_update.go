package realtime

import (
	"fmt"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/bits-and-blooms/bitset"
	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
)

// updater applies the trip updates of one feed message.
type updater struct {
	feed       *Feed
	feedID     string
	staticFeed *gtfs.Feed
	reader     *builder.GtfsReader
	zone       *time.Location
	validOnDay *bitset.BitSet
	log        logger.Logger
}

func descriptorOf(td *gtfsrt.TripDescriptor) datastructure.TripDescriptor {
	return datastructure.TripDescriptor{
		TripID:    td.GetTripId(),
		RouteID:   td.GetRouteId(),
		StartTime: td.GetStartTime(),
	}
}

func (u *updater) tripEdges(td datastructure.TripDescriptor) ([]int32, []int32, error) {
	board := u.feed.static.BoardEdges(u.feedID, td)
	alight := u.feed.static.AlightEdges(u.feedID, td)
	if board == nil || alight == nil {
		return nil, nil, fmt.Errorf("trip %s start %q of feed %s: %w", td.TripID, td.StartTime, u.feedID, gtfs.ErrUnknownTrip)
	}
	return board, alight, nil
}

func (u *updater) block(edges []int32, stopSequence int) {
	if stopSequence >= 0 && stopSequence < len(edges) && edges[stopSequence] != -1 {
		u.feed.blockedEdges[edges[stopSequence]] = struct{}{}
	}
}

func (u *updater) updateScheduledTrip(tu *gtfsrt.TripUpdate) {
	td := descriptorOf(tu.GetTrip())
	timeOffset := 0
	if td.StartTime != "" && len(u.staticFeed.Frequencies[td.TripID]) > 0 {
		offset, err := datastructure.ParseSecondsOfDay(td.StartTime)
		if err != nil {
			u.log.Warn("invalid trip start time", "feed", u.feedID, "trip_id", td.TripID, "error", err)
			return
		}
		timeOffset = offset
	} else {
		td.StartTime = ""
	}

	boardEdges, alightEdges, err := u.tripEdges(td)
	if err != nil {
		u.log.Warn("trip not found", "error", err)
		return
	}
	for _, stu := range tu.GetStopTimeUpdate() {
		if stu.GetScheduleRelationship() == gtfsrt.TripUpdate_StopTimeUpdate_SKIPPED {
			seq := stopSequenceOf(u.staticFeed, td.TripID, stu)
			u.block(boardEdges, seq)
			u.block(alightEdges, seq)
		}
	}

	trip, err := toTripWithStopTimes(u.staticFeed, tu)
	if err != nil {
		u.log.Warn("trip update not applicable", "feed", u.feedID, "trip_id", td.TripID, "error", err)
		return
	}
	for _, stopTime := range trip.StopTimes {
		if stopTime.StopSequence > len(alightEdges)-1 {
			u.log.Warn("stop sequence number too high", "trip_id", td.TripID, "stop_sequence", stopTime.StopSequence, "edges", len(alightEdges))
			continue
		}
		original, ok := u.staticFeed.StopTime(td.TripID, stopTime.StopSequence)
		if !ok {
			continue
		}
		arrivalDelay := stopTime.ArrivalTime - original.ArrivalTime
		if alightEdges[stopTime.StopSequence] != -1 {
			u.feed.delaysForAlightEdges[alightEdges[stopTime.StopSequence]] = int64(arrivalDelay) * 1000
		}
		departureDelay := stopTime.DepartureTime - original.DepartureTime
		if departureDelay <= 0 || boardEdges[stopTime.StopSequence] == -1 {
			continue
		}
		boardEdge, err := u.feed.graph.Edge(boardEdges[stopTime.StopSequence])
		if err != nil {
			u.log.Error("board edge out of range", "edge", boardEdges[stopTime.StopSequence], "error", err)
			continue
		}
		delayedBoardEdge, err := u.reader.AddDelayedBoardEdge(u.zone, td, stopTime.StopSequence,
			stopTime.DepartureTime+timeOffset, boardEdge.AdjNode, u.validOnDay)
		if err != nil {
			u.log.Warn("adding delayed board edge", "trip_id", td.TripID, "error", err)
			continue
		}
		u.feed.delaysForBoardEdges[delayedBoardEdge] = int64(departureDelay) * 1000
	}
}

func (u *updater) cancelTrip(tu *gtfsrt.TripUpdate) {
	td := descriptorOf(tu.GetTrip())
	if len(u.staticFeed.Frequencies[td.TripID]) == 0 {
		td.StartTime = ""
	}
	boardEdges, alightEdges, err := u.tripEdges(td)
	if err != nil {
		u.log.Warn("trip not found", "error", err)
		return
	}
	for seq := range boardEdges {
		u.block(boardEdges, seq)
	}
	for seq := range alightEdges {
		u.block(alightEdges, seq)
	}
}

func (u *updater) addExtraTrip(tu *gtfsrt.TripUpdate) {
	td := descriptorOf(tu.GetTrip())
	trip := gtfs.Trip{ID: td.TripID}
	if existing, ok := u.staticFeed.Trips[td.TripID]; ok {
		trip.RouteID = existing.RouteID
	} else if _, ok := u.staticFeed.Routes[td.RouteID]; ok && td.RouteID != "" {
		trip.RouteID = td.RouteID
	} else {
		u.log.Error("added trip needs a known route", "feed", u.feedID, "trip_id", td.TripID, "route_id", td.RouteID)
		return
	}
	td.RouteID = trip.RouteID

	stopTimes := make([]gtfs.StopTime, 0, len(tu.GetStopTimeUpdate()))
	for _, stu := range tu.GetStopTimeUpdate() {
		if _, ok := u.staticFeed.Stops[stu.GetStopId()]; !ok {
			u.log.Error("added trip contains unknown stop id", "feed", u.feedID, "trip_id", td.TripID, "stop_id", stu.GetStopId())
			return
		}
		stopTimes = append(stopTimes, addedStopTime(trip.ID, stu, u.zone))
	}

	u.reader.AddTrip(u.zone, 0, nil, builder.TripWithStopTimes{
		Trip:       trip,
		StopTimes:  stopTimes,
		ValidOnDay: u.validOnDay,
	}, td, false)
}

// addedStopTime takes both times of an added stop from the absolute arrival time.
func addedStopTime(tripID string, stu *gtfsrt.TripUpdate_StopTimeUpdate, zone *time.Location) gtfs.StopTime {
	sec := secondsSinceMidnight(stu.GetArrival().GetTime(), zone)
	return gtfs.StopTime{
		TripID:        tripID,
		StopID:        stu.GetStopId(),
		StopSequence:  int(stu.GetStopSequence()),
		ArrivalTime:   sec,
		DepartureTime: sec,
	}
}

func secondsSinceMidnight(unix int64, zone *time.Location) int {
	t := time.Unix(unix, 0).In(zone)
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// stopSequenceOf resolves an update without stop_sequence by its stop_id.
func stopSequenceOf(feed *gtfs.Feed, tripID string, stu *gtfsrt.TripUpdate_StopTimeUpdate) int {
	if stu.StopSequence != nil {
		return int(stu.GetStopSequence())
	}
	for _, st := range feed.StopTimes[tripID] {
		if st.StopID == stu.GetStopId() {
			return st.StopSequence
		}
	}
	return -1
}

type stopUpdate struct {
	stopSequence int
	stopID       string
	relationship gtfsrt.TripUpdate_StopTimeUpdate_ScheduleRelationship
	arrival      *gtfsrt.TripUpdate_StopTimeEvent
	departure    *gtfsrt.TripUpdate_StopTimeEvent
}

// toTripWithStopTimes applies the stop time updates to the scheduled stop times. A delay carries
// over to the following stops until an update replaces it or NO_DATA resets it, and times never
// go backwards along the trip.
func toTripWithStopTimes(feed *gtfs.Feed, tu *gtfsrt.TripUpdate) (builder.TripWithStopTimes, error) {
	tripID := tu.GetTrip().GetTripId()
	zone := feed.Timezone()
	trip := gtfs.Trip{ID: tripID, RouteID: tu.GetTrip().GetRouteId()}
	if original, ok := feed.Trips[tripID]; ok {
		trip = *original
	}
	result := builder.TripWithStopTimes{
		Trip:                trip,
		StopTimes:           make([]gtfs.StopTime, 0),
		ValidOnDay:          bitset.New(0),
		CancelledArrivals:   make(map[int]struct{}),
		CancelledDepartures: make(map[int]struct{}),
	}

	updates := make([]stopUpdate, 0, len(tu.GetStopTimeUpdate())+1)
	for _, stu := range tu.GetStopTimeUpdate() {
		updates = append(updates, stopUpdate{
			stopSequence: stopSequenceOf(feed, tripID, stu),
			stopID:       stu.GetStopId(),
			relationship: stu.GetScheduleRelationship(),
			arrival:      stu.GetArrival(),
			departure:    stu.GetDeparture(),
		})
	}
	ceiling := 0
	if len(updates) > 0 {
		ceiling = updates[len(updates)-1].stopSequence
	}
	if scheduled := feed.StopTimes[tripID]; len(scheduled) > 0 {
		ceiling = max(ceiling, scheduled[len(scheduled)-1].StopSequence)
	}
	// sentinel, fills in the stops after the last update
	updates = append(updates, stopUpdate{stopSequence: ceiling + 1, relationship: gtfsrt.TripUpdate_StopTimeUpdate_NO_DATA})

	added := tu.GetTrip().GetScheduleRelationship() == gtfsrt.TripDescriptor_ADDED
	delay := 0
	t := -1
	for _, update := range updates {
		if update.stopSequence < 0 {
			return result, fmt.Errorf("stop %s is not on trip %s: %w", update.stopID, tripID, gtfs.ErrUnknownTrip)
		}
		next := 1
		if len(result.StopTimes) > 0 {
			next = result.StopTimes[len(result.StopTimes)-1].StopSequence + 1
		}
		for i := next; i < update.stopSequence; i++ {
			original, ok := feed.StopTime(tripID, i)
			if !ok {
				// stop sequences may have gaps
				continue
			}
			updated := original
			updated.ArrivalTime = max(original.ArrivalTime+delay, t)
			t = updated.ArrivalTime
			updated.DepartureTime = max(original.DepartureTime+delay, t)
			t = updated.DepartureTime
			result.StopTimes = append(result.StopTimes, updated)
		}

		original, ok := feed.StopTime(tripID, update.stopSequence)
		switch {
		case ok:
			updated := original
			if update.relationship == gtfsrt.TripUpdate_StopTimeUpdate_NO_DATA {
				delay = 0
			}
			if update.arrival != nil {
				delay = int(update.arrival.GetDelay())
			}
			updated.ArrivalTime = max(original.ArrivalTime+delay, t)
			t = updated.ArrivalTime
			if update.departure != nil {
				delay = int(update.departure.GetDelay())
			}
			updated.DepartureTime = max(original.DepartureTime+delay, t)
			t = updated.DepartureTime
			result.StopTimes = append(result.StopTimes, updated)
			if update.relationship == gtfsrt.TripUpdate_StopTimeUpdate_SKIPPED {
				result.CancelledArrivals[update.stopSequence] = struct{}{}
				result.CancelledDepartures[update.stopSequence] = struct{}{}
			}
		case update.relationship == gtfsrt.TripUpdate_StopTimeUpdate_NO_DATA:
		case added:
			sec := secondsSinceMidnight(update.arrival.GetTime(), zone)
			result.StopTimes = append(result.StopTimes, gtfs.StopTime{
				TripID:        tripID,
				StopID:        update.stopID,
				StopSequence:  update.stopSequence,
				ArrivalTime:   sec,
				DepartureTime: sec,
			})
		default:
			return result, fmt.Errorf("trip %s has no stop_sequence %d: %w", tripID, update.stopSequence, gtfs.ErrUnknownTrip)
		}
	}
	return result, nil
}
