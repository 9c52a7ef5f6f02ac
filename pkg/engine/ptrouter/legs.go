package ptrouter

import (
	"slices"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/mcls"
	"github.com/lintang-b-s/navigatorx-pt/pkg/geo"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/guidance"
	"github.com/lintang-b-s/navigatorx-pt/pkg/realtime"
	"github.com/lintang-b-s/navigatorx-pt/pkg/util"
)

// tripBuilder turns the path of a label into legs.
type tripBuilder struct {
	r   *Router
	ex  *explorer.GraphExplorer
	rt  *realtime.Feed
	loc *time.Location
}

func (b *tripBuilder) tripFromLabel(label *mcls.Label, reverse bool) Trip {
	path := mcls.Transitions(label, reverse)
	legs := make([]Leg, 0)
	for _, partition := range partitions(path) {
		legs = append(legs, b.partitionToLegs(partition)...)
	}
	trip := Trip{
		Legs:          legs,
		DepartureTime: millisToTime(path[0].Label.CurrentTime, b.loc),
		ArrivalTime:   millisToTime(path[len(path)-1].Label.CurrentTime, b.loc),
		WalkTime:      time.Duration(label.StreetTime) * time.Millisecond,
		Impossible:    label.Impossible,
	}
	summarize(&trip)
	return trip
}

// summarize counts the vehicle changes and finds the first pt departure.
func summarize(trip *Trip) {
	rides := 0
	for i := range trip.Legs {
		leg := &trip.Legs[i]
		if leg.Type != LegPt {
			continue
		}
		if !leg.IsInSameVehicleAsPrevious {
			rides++
		}
		if trip.FirstPtDepartureTime == nil && len(leg.Stops) > 0 {
			first := leg.Stops[0]
			if first.PredictedDepartureTime != nil {
				trip.FirstPtDepartureTime = first.PredictedDepartureTime
			} else {
				trip.FirstPtDepartureTime = first.DepartureTime
			}
		}
	}
	trip.NumTransfers = max(0, rides-1)
}

// partitions splits the path where it enters or leaves the transit network. Each partition
// after the first starts with the last label of the previous one.
func partitions(path []mcls.Transition) [][]mcls.Transition {
	result := [][]mcls.Transition{{path[0]}}
	for _, tr := range path[1:] {
		current := result[len(result)-1]
		last := current[len(current)-1]
		if last.Edge != nil && (tr.Edge.Type() == datastructure.EdgeEnterPt || last.Edge.Type() == datastructure.EdgeExitPt) {
			result = append(result, []mcls.Transition{{Label: last.Label}})
		}
		result[len(result)-1] = append(result[len(result)-1], tr)
	}
	return result
}

func (b *tripBuilder) partitionToLegs(partition []mcls.Transition) []Leg {
	if len(partition) < 2 {
		return nil
	}
	if partition[1].Edge.IsStreet() {
		return []Leg{b.walkLeg(partition)}
	}
	return b.ptLegs(partition)
}

func (b *tripBuilder) walkLeg(path []mcls.Transition) Leg {
	coords := make([]datastructure.Coordinate, 0, len(path)+1)
	steps := make([]guidance.Step, 0, len(path)-1)
	dist := 0.0
	for i := 1; i < len(path); i++ {
		e := path[i].Edge.StreetEdge()
		if e == nil {
			continue
		}
		from := path[i-1].Label.Node.StreetNode
		to := e.To
		if from == e.To {
			to = e.From
		}
		points := b.streetGeometry(*e, from)
		coords = appendCoordinates(coords, points)
		dist += e.DistMeters
		steps = append(steps, guidance.Step{
			From:       from,
			To:         to,
			Name:       e.StreetName,
			Points:     points,
			DistMeters: e.DistMeters,
			TimeMillis: util.AbsInt64(path[i].Label.CurrentTime - path[i-1].Label.CurrentTime),
		})
	}
	leg := Leg{
		Type:           LegWalk,
		DepartureTime:  millisToTime(path[0].Label.CurrentTime, b.loc),
		ArrivalTime:    millisToTime(path[len(path)-1].Label.CurrentTime, b.loc),
		DistanceMeters: dist,
		Geometry:       datastructure.CreatePolyline(geo.SimplifyWalk(coords, geo.WalkSimplifyTolerance)),
	}
	if instructions, err := guidance.NewInstructionsFromSteps(b.r.street).Instructions(steps); err == nil {
		leg.Instructions = instructions
	}
	return leg
}

// streetGeometry is the geometry of e walked away from node from.
func (b *tripBuilder) streetGeometry(e datastructure.StreetEdge, from int32) []datastructure.Coordinate {
	points := make([]datastructure.Coordinate, 0, len(e.Geometry)+2)
	points = append(points, streetCoordinate(b.r.street, e.From))
	points = append(points, e.Geometry...)
	points = append(points, streetCoordinate(b.r.street, e.To))
	if from == e.To && e.From != e.To {
		slices.Reverse(points)
	}
	return points
}

func appendCoordinates(coords []datastructure.Coordinate, more []datastructure.Coordinate) []datastructure.Coordinate {
	for _, c := range more {
		if len(coords) > 0 && coords[len(coords)-1] == c {
			continue
		}
		coords = append(coords, c)
	}
	return coords
}

type routedStop struct {
	seq int
	// millis as routed, nil when not reached or left on the trip
	arrival   *int64
	departure *int64
}

type ptLegBuilder struct {
	feedID      string
	td          datastructure.TripDescriptor
	routeType   int
	board       explorer.MultiModalEdge
	alight      *explorer.MultiModalEdge
	boardTime   int64
	stops       []routedStop
	sameVehicle bool
}

// ptLegs rides the trips of a partition: BOARD opens a leg, HOP reaches the next stop, DWELL leaves
// it and ALIGHT closes the leg. A BOARD while a leg is open is a stay seated block transfer.
func (b *tripBuilder) ptLegs(path []mcls.Transition) []Leg {
	legs := make([]Leg, 0)
	var cur *ptLegBuilder
	for i := 1; i < len(path); i++ {
		tr := path[i]
		t := tr.Label.CurrentTime
		switch tr.Edge.Type() {
		case datastructure.EdgeBoard:
			sameVehicle := false
			if cur != nil {
				legs = append(legs, b.ptLeg(cur))
				sameVehicle = true
			}
			cur = b.startLeg(*tr.Edge, t)
			cur.sameVehicle = sameVehicle
		case datastructure.EdgeHop:
			if cur != nil {
				cur.stops = append(cur.stops, routedStop{seq: tr.Edge.StopSequence(), arrival: &t})
			}
		case datastructure.EdgeDwell:
			if cur != nil && len(cur.stops) > 0 {
				cur.stops[len(cur.stops)-1].departure = &t
			}
		case datastructure.EdgeAlight:
			if cur != nil {
				alight := *tr.Edge
				cur.alight = &alight
				legs = append(legs, b.ptLeg(cur))
				cur = nil
			}
		case datastructure.EdgeTransfer:
			skipped := b.r.st.SkippedEdgesForTransfer[tr.Edge.ID()]
			if len(skipped) == 0 || b.r.street == nil {
				continue
			}
			if walk := mcls.WalkPath(b.ex, skipped, path[i-1].Label.CurrentTime); len(walk) > 1 {
				legs = append(legs, b.walkLeg(walk))
			}
		}
	}
	if cur != nil {
		legs = append(legs, b.ptLeg(cur))
	}
	return legs
}

func (b *tripBuilder) startLeg(board explorer.MultiModalEdge, t int64) *ptLegBuilder {
	leg := &ptLegBuilder{
		routeType: board.RouteType(),
		board:     board,
		boardTime: t,
		stops:     []routedStop{{seq: board.StopSequence(), departure: &t}},
	}
	if td := board.TripDescriptor(); td != nil {
		leg.td = *td
	}
	if fz := board.FeedIDWithTimezone(); fz != nil {
		leg.feedID = fz.FeedID
	} else if p := board.Platform(); p != nil {
		leg.feedID = p.FeedID
	}
	return leg
}

func (b *tripBuilder) ptLeg(cur *ptLegBuilder) Leg {
	feed := b.r.st.Feeds[cur.feedID]
	boardTime := time.UnixMilli(cur.boardTime)
	update, hasUpdate := b.rt.TripUpdate(cur.feedID, cur.td, boardTime)
	// boarding a delayed board edge puts the whole ride on the predicted times
	routedIsPredicted := b.rt.DelayForBoardEdge(cur.board.ID(), boardTime) > 0

	leg := Leg{
		Type:                      LegPt,
		FeedID:                    cur.feedID,
		RouteID:                   cur.td.RouteID,
		TripID:                    cur.td.TripID,
		RouteType:                 cur.routeType,
		Stops:                     make([]Stop, 0, len(cur.stops)),
		IsInSameVehicleAsPrevious: cur.sameVehicle,
		Cancelled:                 b.rt.IsBlocked(cur.board.ID()),
	}
	if cur.alight != nil && b.rt.IsBlocked(cur.alight.ID()) {
		leg.Cancelled = true
	}
	if feed != nil {
		if trip, ok := feed.Trips[cur.td.TripID]; ok {
			leg.Headsign = trip.Headsign
			if leg.RouteID == "" {
				leg.RouteID = trip.RouteID
			}
		}
	}

	coords := make([]datastructure.Coordinate, 0, len(cur.stops))
	for i, rs := range cur.stops {
		var scheduled gtfs.StopTime
		hasScheduled := false
		if feed != nil {
			scheduled, hasScheduled = feed.StopTime(cur.td.TripID, rs.seq)
		}
		updated, hasUpdated := stopTimeOf(update, hasUpdate, rs.seq)

		stop := Stop{StopSequence: rs.seq, StopID: scheduled.StopID}
		if !hasScheduled {
			stop.StopID = updated.StopID
		}
		if stop.StopID == "" && i == 0 && cur.board.Platform() != nil {
			stop.StopID = cur.board.Platform().StopID
		}
		if feed != nil {
			if s, ok := feed.Stops[stop.StopID]; ok {
				stop.Name, stop.Lat, stop.Lon = s.Name, s.Lat, s.Lon
			}
		}

		withDelay := hasScheduled && hasUpdated
		if rs.arrival != nil {
			var delay int64
			if withDelay {
				delay = int64(updated.ArrivalTime-scheduled.ArrivalTime) * 1000
			}
			stop.ArrivalTime, stop.PredictedArrivalTime = b.stopTimes(*rs.arrival, delay, routedIsPredicted, withDelay)
			_, stop.ArrivalCancelled = update.CancelledArrivals[rs.seq]
		}
		if rs.departure != nil && (i < len(cur.stops)-1 || cur.alight == nil) {
			var delay int64
			if withDelay {
				delay = int64(updated.DepartureTime-scheduled.DepartureTime) * 1000
			}
			stop.DepartureTime, stop.PredictedDepartureTime = b.stopTimes(*rs.departure, delay, routedIsPredicted, withDelay)
			_, stop.DepartureCancelled = update.CancelledDepartures[rs.seq]
		}
		leg.Stops = append(leg.Stops, stop)
		if i > 0 {
			prev := leg.Stops[i-1]
			leg.DistanceMeters += geo.DistanceMeters(prev.Lat, prev.Lon, stop.Lat, stop.Lon)
		}
		coords = append(coords, datastructure.Coordinate{Lat: stop.Lat, Lon: stop.Lon})
	}
	leg.Geometry = datastructure.CreatePolyline(coords)

	leg.DepartureTime = millisToTime(cur.boardTime, b.loc)
	leg.ArrivalTime = leg.DepartureTime
	last := cur.stops[len(cur.stops)-1]
	if last.arrival != nil {
		leg.ArrivalTime = millisToTime(*last.arrival, b.loc)
	}
	return leg
}

// stopTimes derives the scheduled and the predicted time from the routed one.
func (b *tripBuilder) stopTimes(routed, delay int64, routedIsPredicted, withDelay bool) (*time.Time, *time.Time) {
	if !withDelay {
		t := millisToTime(routed, b.loc)
		return &t, nil
	}
	if routedIsPredicted {
		scheduled, predicted := millisToTime(routed-delay, b.loc), millisToTime(routed, b.loc)
		return &scheduled, &predicted
	}
	scheduled, predicted := millisToTime(routed, b.loc), millisToTime(routed+delay, b.loc)
	return &scheduled, &predicted
}

func stopTimeOf(trip builder.TripWithStopTimes, ok bool, seq int) (gtfs.StopTime, bool) {
	if !ok {
		return gtfs.StopTime{}, false
	}
	for _, st := range trip.StopTimes {
		if st.StopSequence == seq {
			return st, true
		}
	}
	return gtfs.StopTime{}, false
}
