package ptrouter

import (
	"context"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/mcls"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/tripbased"
	"github.com/lintang-b-s/navigatorx-pt/pkg/geo"
)

// stationWalks are the stations reachable on foot with the label of the walk to (or from) each.
type stationWalks struct {
	ex      *explorer.GraphExplorer
	labels  map[datastructure.FeedIDWithStopID]*mcls.Label
	order   []datastructure.FeedIDWithStopID
	visited int
}

func (w stationWalks) withTimeDeltas(start int64) []tripbased.StopWithTimeDelta {
	result := make([]tripbased.StopWithTimeDelta, 0, len(w.order))
	for _, stop := range w.order {
		delta := w.labels[stop].CurrentTime - start
		if delta < 0 {
			delta = -delta
		}
		result = append(result, tripbased.StopWithTimeDelta{Stop: stop, TimeDelta: delta})
	}
	return result
}

// RouteTripBased walks to the access stations and from the egress stations, then runs the trip
// based search between them. It works on the static schedule.
func (r *Router) RouteTripBased(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	if r.trips == nil || r.transfers == nil {
		return Response{}, ErrTripBasedDisabled
	}
	if err := validate(req); err != nil {
		return Response{}, err
	}
	if req.ArriveBy {
		return Response{}, ErrArriveByUnsupported
	}
	from, to, err := r.snap(req)
	if err != nil {
		return Response{}, err
	}

	startMillis := req.EarliestDepartureTime.UnixMilli()
	access := r.walkToStations(req, from, startMillis, false)
	egress := r.walkToStations(req, to, startMillis, true)
	resp := Response{
		Trips:        make([]Trip, 0),
		VisitedNodes: access.visited + egress.visited,
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	router := tripbased.NewRouter(r.trips, r.transfers, tripbased.RouterOptions{
		MaxRounds:         r.cfg.MaxTripBasedRounds,
		BlockedRouteTypes: int64(req.BlockedRouteTypes),
	})
	var results []*tripbased.ResultLabel
	if req.ProfileQuery {
		results, err = router.RouteProfile(access.withTimeDeltas(startMillis), egress.withTimeDeltas(startMillis),
			req.EarliestDepartureTime, r.maxProfileDuration(req))
	} else {
		results, err = router.Route(access.withTimeDeltas(startMillis), egress.withTimeDeltas(startMillis),
			req.EarliestDepartureTime)
	}
	if err != nil {
		return Response{}, err
	}

	loc := req.EarliestDepartureTime.Location()
	for _, result := range results {
		resp.Trips = append(resp.Trips, r.tripFromResultLabel(result, access, egress, loc))
		if req.LimitSolutions > 0 && len(resp.Trips) >= req.LimitSolutions {
			break
		}
	}
	if len(resp.Trips) == 0 {
		resp.NoPathReason = mcls.ReasonDisconnected.String()
	}
	r.observe("trip_based", resp, time.Since(start))
	return resp, nil
}

// walkToStations settles a walk only search from node and keeps the quickest walk per station.
// In reverse the walks lead from the stations to node.
func (r *Router) walkToStations(req Request, node int32, startMillis int64, reverse bool) stationWalks {
	ex := explorer.NewGraphExplorer(r.street, r.pt, r.st, nil, explorer.Options{
		Reverse:           reverse,
		WalkOnly:          true,
		BlockedRouteTypes: req.BlockedRouteTypes,
		WalkSpeedKmh:      r.walkSpeed(req),
	})
	opts := mcls.DefaultOptions()
	if limit := r.limitStreetTime(req); limit > 0 {
		opts.LimitStreetTime = limit.Milliseconds()
	}
	if r.cfg.MaxVisitedNodes > 0 {
		opts.MaxVisitedNodes = r.cfg.MaxVisitedNodes
	}
	m := mcls.New(ex, opts)

	want := datastructure.EdgeEnterPt
	if reverse {
		want = datastructure.EdgeExitPt
	}
	walks := stationWalks{ex: ex, labels: make(map[datastructure.FeedIDWithStopID]*mcls.Label)}
	for label := range m.Calc(ex.StreetNodeID(node), startMillis) {
		if label.Edge == nil || label.Edge.Type() != want || label.Edge.Platform() == nil {
			continue
		}
		p := label.Edge.Platform()
		stop := datastructure.FeedIDWithStopID{FeedID: p.FeedID, StopID: p.StopID}
		if _, ok := walks.labels[stop]; ok {
			continue
		}
		walks.labels[stop] = label
		walks.order = append(walks.order, stop)
	}
	walks.visited = m.VisitedNodes()
	return walks
}

func (r *Router) tripFromResultLabel(result *tripbased.ResultLabel, access, egress stationWalks, loc *time.Location) Trip {
	legs := make([]Leg, 0)
	segments := result.Segment.Segments()
	root := result.Segment.Root()
	at := func(seconds int) time.Time {
		return result.ServiceDay.Add(time.Duration(seconds) * time.Second).In(loc)
	}

	boardTime := at(result.DepartureTime)
	if label, ok := access.labels[root.Access.Stop]; ok && label.Parent != nil {
		b := &tripBuilder{r: r, ex: access.ex, loc: loc}
		if walk := mcls.Transitions(label.Parent, false); len(walk) > 1 {
			legs = append(legs, shiftLeg(b.walkLeg(walk), boardTime.Add(-time.Duration(root.Access.TimeDelta)*time.Millisecond)))
		}
	}

	var prev *tripbased.TripRun
	for i, segment := range segments {
		alightSeq := result.T.StopSequence
		if i+1 < len(segments) {
			alightSeq = segments[i+1].TransferOrigin.StopSequence
		}
		run := r.trips.Run(segment.TripAtStopTime.TripIdx)
		leg := r.runLeg(run, int(segment.TripAtStopTime.StopSequence), int(alightSeq), at)
		if prev != nil {
			leg.IsInSameVehicleAsPrevious = prev.Trip.BlockID != "" && prev.Trip.BlockID == run.Trip.BlockID
			previous := legs[len(legs)-1]
			if !leg.IsInSameVehicleAsPrevious && len(previous.Stops) > 0 && len(leg.Stops) > 0 {
				if walk, ok := r.transferWalk(previous, leg, loc); ok {
					legs = append(legs, walk)
				}
			}
		}
		legs = append(legs, leg)
		prev = run
	}

	arrival := at(result.ArrivalTime)
	if label, ok := egress.labels[result.Destination.Stop]; ok && label.Parent != nil {
		b := &tripBuilder{r: r, ex: egress.ex, loc: loc}
		if walk := mcls.Transitions(label.Parent, true); len(walk) > 1 {
			walkLeg := b.walkLeg(walk)
			legs = append(legs, shiftLeg(walkLeg, arrival.Add(-walkLeg.ArrivalTime.Sub(walkLeg.DepartureTime))))
		}
	}

	trip := Trip{
		Legs:          legs,
		DepartureTime: boardTime.Add(-time.Duration(root.Access.TimeDelta) * time.Millisecond),
		ArrivalTime:   arrival,
	}
	for _, leg := range legs {
		if leg.Type == LegWalk {
			trip.WalkTime += leg.ArrivalTime.Sub(leg.DepartureTime)
		}
	}
	summarize(&trip)
	trip.NumTransfers = result.RealTransfers
	return trip
}

// runLeg rides run from stop sequence board to alight on the static schedule.
func (r *Router) runLeg(run *tripbased.TripRun, board, alight int, at func(int) time.Time) Leg {
	feed := r.st.Feeds[run.FeedID]
	leg := Leg{
		Type:      LegPt,
		FeedID:    run.FeedID,
		RouteID:   run.Trip.RouteID,
		TripID:    run.Trip.ID,
		Headsign:  run.Trip.Headsign,
		RouteType: run.RouteType,
		Stops:     make([]Stop, 0, alight-board+1),
	}
	coords := make([]datastructure.Coordinate, 0, alight-board+1)
	for seq := board; seq <= alight; seq++ {
		st, ok := run.StopTime(int32(seq))
		if !ok {
			continue
		}
		stop := Stop{StopID: st.StopID, StopSequence: seq}
		if s, ok := feed.Stops[st.StopID]; ok {
			stop.Name, stop.Lat, stop.Lon = s.Name, s.Lat, s.Lon
		}
		if seq != board {
			arrival := at(st.ArrivalTime)
			stop.ArrivalTime = &arrival
		}
		if seq != alight {
			departure := at(st.DepartureTime)
			stop.DepartureTime = &departure
		}
		if n := len(leg.Stops); n > 0 {
			leg.DistanceMeters += geo.DistanceMeters(leg.Stops[n-1].Lat, leg.Stops[n-1].Lon, stop.Lat, stop.Lon)
		}
		leg.Stops = append(leg.Stops, stop)
		coords = append(coords, datastructure.Coordinate{Lat: stop.Lat, Lon: stop.Lon})
	}
	leg.Geometry = datastructure.CreatePolyline(coords)
	if len(leg.Stops) > 0 {
		if d := leg.Stops[0].DepartureTime; d != nil {
			leg.DepartureTime = *d
		}
		if a := leg.Stops[len(leg.Stops)-1].ArrivalTime; a != nil {
			leg.ArrivalTime = *a
		}
	}
	return leg
}

// transferWalk is the walk between the alighting stop of from and the boarding stop of to, nothing
// when both are the same stop. An interpolated transfer gives the street geometry and time.
func (r *Router) transferWalk(from, to Leg, loc *time.Location) (Leg, bool) {
	alight, board := from.Stops[len(from.Stops)-1], to.Stops[0]
	if alight.StopID == board.StopID && from.FeedID == to.FeedID {
		return Leg{}, false
	}
	walk := Leg{
		Type:           LegWalk,
		DepartureTime:  from.ArrivalTime,
		ArrivalTime:    from.ArrivalTime,
		DistanceMeters: geo.DistanceMeters(alight.Lat, alight.Lon, board.Lat, board.Lon),
		Geometry: datastructure.CreatePolyline([]datastructure.Coordinate{
			{Lat: alight.Lat, Lon: alight.Lon}, {Lat: board.Lat, Lon: board.Lon},
		}),
	}
	key := datastructure.FeedIDWithStopID{FeedID: from.FeedID, StopID: alight.StopID}
	for _, it := range r.st.InterpolatedTransfers[key] {
		if it.ToPlatform.FeedID != to.FeedID || it.ToPlatform.StopID != board.StopID {
			continue
		}
		walk.ArrivalTime = walk.DepartureTime.Add(time.Duration(it.StreetTime) * time.Second)
		if len(it.SkippedEdges) > 0 && r.street != nil {
			ex := explorer.NewGraphExplorer(r.street, r.pt, r.st, nil, explorer.Options{})
			b := &tripBuilder{r: r, ex: ex, loc: loc}
			path := mcls.WalkPath(ex, it.SkippedEdges, walk.DepartureTime.UnixMilli())
			if len(path) > 1 {
				street := b.walkLeg(path)
				walk.Geometry, walk.DistanceMeters = street.Geometry, street.DistanceMeters
			}
		}
		break
	}
	return walk, true
}

func shiftLeg(leg Leg, departure time.Time) Leg {
	d := departure.Sub(leg.DepartureTime)
	leg.DepartureTime = leg.DepartureTime.Add(d)
	leg.ArrivalTime = leg.ArrivalTime.Add(d)
	return leg
}
