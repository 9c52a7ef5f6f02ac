package builder

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

type Snapper interface {
	SnapToStreetNode(lat, lon float64) (int32, float64, error)
}

type StationIndexer interface {
	Insert(st snap.Station)
}

// TransferTimeFunc gives the minimum transfer time in seconds of a transfer rule.
type TransferTimeFunc func(feedID string, rule gtfs.Transfer) int

// TripWithStopTimes is a trip run to expand, static or from a realtime update.
type TripWithStopTimes struct {
	Trip                gtfs.Trip
	StopTimes           []gtfs.StopTime
	ValidOnDay          *bitset.BitSet
	CancelledArrivals   map[int]struct{}
	CancelledDepartures map[int]struct{}
}

// TripArrival is the last arrival of an expanded trip, the source of block transfers.
type TripArrival struct {
	Trip        TripWithStopTimes
	ArrivalNode int32
	ArrivalTime int
}

type platformTimelines map[string]map[datastructure.PlatformDescriptor]*timeline

// GtfsReader expands one feed into the time expanded transit network.
type GtfsReader struct {
	id        string
	feed      *gtfs.Feed
	transfers *gtfs.Transfers
	graph     PtGraphReader
	out       PtGraphOut
	storage   *storage.GtfsStorage
	snapper   Snapper
	stations  StationIndexer
	log       logger.Logger

	transferTime TransferTimeFunc
	startDate    time.Time
	numDays      int

	departureTimelinesByStop platformTimelines
	arrivalTimelinesByStop   platformTimelines
}

// NewGtfsReader creates a reader of a feed already registered in st.
// snapper & stations may be nil when the reader only expands realtime trips.
func NewGtfsReader(id string, graph PtGraphReader, out PtGraphOut, st *storage.GtfsStorage, snapper Snapper,
	stations StationIndexer, log logger.Logger) (*GtfsReader, error) {
	feed, ok := st.Feeds[id]
	if !ok {
		return nil, fmt.Errorf("feed %s is not loaded", id)
	}
	return &GtfsReader{
		id:                       id,
		feed:                     feed,
		transfers:                st.Transfers[id],
		graph:                    graph,
		out:                      out,
		storage:                  st,
		snapper:                  snapper,
		stations:                 stations,
		log:                      log,
		transferTime:             ruleTransferTime,
		startDate:                feed.StartDate,
		numDays:                  feed.NumDays(),
		departureTimelinesByStop: make(platformTimelines),
		arrivalTimelinesByStop:   make(platformTimelines),
	}, nil
}

func ruleTransferTime(_ string, rule gtfs.Transfer) int {
	return rule.MinTransferTime
}

// SetTransferTimeFunc replaces the min_transfer_time lookup of transfer rules.
func (r *GtfsReader) SetTransferTimeFunc(fn TransferTimeFunc) {
	r.transferTime = fn
}

func (r *GtfsReader) FeedID() string {
	return r.id
}

// ConnectStopsToStreetNetwork creates a station node per stop and snaps stops to the foot network.
func (r *GtfsReader) ConnectStopsToStreetNetwork() {
	for _, stopID := range r.feed.StopIDs() {
		stop := r.feed.Stops[stopID]
		stopNode := r.out.CreateNode()
		r.storage.StationNodes[datastructure.FeedIDWithStopID{FeedID: r.id, StopID: stop.ID}] = stopNode
		if stop.LocationType != gtfs.LocationTypeStop {
			// parent stations only group their platforms
			continue
		}
		if r.snapper != nil {
			streetNode, dist, err := r.snapper.SnapToStreetNode(stop.Lat, stop.Lon)
			if err != nil {
				r.log.Warn("unmatched stop", "feed", r.id, "stop_id", stop.ID, "error", err)
			} else {
				r.storage.PtToStreet[stopNode] = streetNode
				r.storage.StreetToPt[streetNode] = stopNode
				r.log.Debug("associate pt stop node with street node", "stop_node", stopNode, "street_node", streetNode, "distance", dist)
			}
		}
		if r.stations != nil {
			r.stations.Insert(snap.Station{Node: stopNode, FeedID: r.id, StopID: stop.ID, Name: stop.Name, Lat: stop.Lat, Lon: stop.Lon})
		}
	}
}

// BuildPtNetwork expands trips, wires the timelines and inserts the GTFS transfers.
func (r *GtfsReader) BuildPtNetwork() error {
	if err := r.createTrips(); err != nil {
		return err
	}
	r.wireUpStops()
	r.insertGtfsTransfers()
	return nil
}

func (r *GtfsReader) createTrips() error {
	blockTrips := make(map[string][]TripWithStopTimes)
	for _, tripID := range r.feed.TripIDs() {
		trip := r.feed.Trips[tripID]
		stopTimes := r.feed.StopTimes[tripID]
		if len(stopTimes) == 0 {
			r.log.Warn("trip without stop times", "feed", r.id, "trip_id", tripID)
			continue
		}
		key := trip.BlockID
		if key == "" {
			key = "non-block-trip" + trip.ID
		}
		blockTrips[key] = append(blockTrips[key], TripWithStopTimes{
			Trip:       *trip,
			StopTimes:  stopTimes,
			ValidOnDay: r.serviceValidity(trip.ServiceID),
		})
	}

	blocks := make([]string, 0, len(blockTrips))
	for k := range blockTrips {
		blocks = append(blocks, k)
	}
	sort.Strings(blocks)

	for _, block := range blocks {
		trips := blockTrips[block]
		sort.SliceStable(trips, func(i, j int) bool {
			return trips[i].StopTimes[0].DepartureTime < trips[j].StopTimes[0].DepartureTime
		})

		frequencies := r.feed.Frequencies[trips[0].Trip.ID]
		for _, trip := range trips[1:] {
			if !sameFrequencies(frequencies, r.feed.Frequencies[trip.Trip.ID]) {
				return fmt.Errorf("block %s mixes frequency based and scheduled trips: %w", block, gtfs.ErrMalformedSchedule)
			}
		}

		zone := r.feed.RouteTimezone(trips[0].Trip.RouteID)
		if len(frequencies) == 0 {
			r.addTrips(zone, trips, 0, false)
			continue
		}
		for _, frequency := range frequencies {
			if frequency.HeadwaySecs <= 0 {
				return fmt.Errorf("trip %s has headway %d: %w", frequency.TripID, frequency.HeadwaySecs, gtfs.ErrMalformedSchedule)
			}
			for t := frequency.StartTime; t < frequency.EndTime; t += frequency.HeadwaySecs {
				r.addTrips(zone, trips, t, true)
			}
		}
	}
	return nil
}

func sameFrequencies(a, b []gtfs.Frequency) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(f gtfs.Frequency) string {
		return fmt.Sprintf("%d-%d-%d-%t", f.StartTime, f.EndTime, f.HeadwaySecs, f.ExactTimes)
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = key(a[i])
		bs[i] = key(b[i])
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// serviceValidity has bit d set when the service runs d days after the feed start.
func (r *GtfsReader) serviceValidity(serviceID string) *bitset.BitSet {
	validOnDay := bitset.New(uint(r.numDays))
	service, ok := r.feed.Services[serviceID]
	if !ok {
		r.log.Warn("trip with unknown service", "feed", r.id, "service_id", serviceID)
		return validOnDay
	}
	for d := 0; d < r.numDays; d++ {
		if service.ActiveOn(r.startDate.AddDate(0, 0, d)) {
			validOnDay.Set(uint(d))
		}
	}
	return validOnDay
}

func (r *GtfsReader) addTrips(zone *time.Location, trips []TripWithStopTimes, t int, frequencyBased bool) {
	arrivalNodes := make([]TripArrival, 0, len(trips))
	for _, trip := range trips {
		td := datastructure.TripDescriptor{TripID: trip.Trip.ID, RouteID: trip.Trip.RouteID}
		if frequencyBased {
			td.StartTime = datastructure.FormatSecondsOfDay(t)
		}
		arrivalNodes = r.AddTrip(zone, t, arrivalNodes, trip, td, frequencyBased)
	}
}

// departurePlatformFor picks the platform a trip of route departs from at stop.
func (r *GtfsReader) departurePlatformFor(stopID string, route *gtfs.Route) datastructure.PlatformDescriptor {
	if r.transfers.HasNoRouteSpecificDepartureTransferRules(stopID) {
		return datastructure.NewRouteTypePlatform(r.id, stopID, route.Type)
	}
	return datastructure.NewRoutePlatform(r.id, stopID, route.ID, route.Type)
}

// arrivalPlatformFor picks the platform a trip of route arrives at. Rules with a from_route
// only match Route platforms, so a stop with such rules gets one arrival platform per route.
func (r *GtfsReader) arrivalPlatformFor(stopID string, route *gtfs.Route) datastructure.PlatformDescriptor {
	if r.transfers.HasNoRouteSpecificArrivalTransferRules(stopID) {
		return datastructure.NewRouteTypePlatform(r.id, stopID, route.Type)
	}
	return datastructure.NewRoutePlatform(r.id, stopID, route.ID, route.Type)
}

func (r *GtfsReader) route(routeID string) *gtfs.Route {
	if route, ok := r.feed.Routes[routeID]; ok {
		return route
	}
	return &gtfs.Route{ID: routeID, Type: 3}
}

// validity interns the trip validity shifted by the day rollovers of the stop time.
func (r *GtfsReader) validity(days *bitset.BitSet, dayShift int, zone *time.Location) *datastructure.Validity {
	shifted := datastructure.ShiftDays(days, uint(dayShift))
	if r.numDays > 0 && shifted.Len() > uint(r.numDays) {
		// days after the feed end are never queried
		shifted.Shrink(uint(r.numDays - 1))
	}
	return r.out.InternValidity(datastructure.NewValidity(shifted, zone, r.startDate))
}

func (r *GtfsReader) feedZone(zone *time.Location) *datastructure.FeedIDWithTimezone {
	return r.out.InternFeedZone(datastructure.FeedIDWithTimezone{FeedID: r.id, Zone: zone})
}

func timelineFor(timelines platformTimelines, stopID string, platform datastructure.PlatformDescriptor) *timeline {
	byPlatform, ok := timelines[stopID]
	if !ok {
		byPlatform = make(map[datastructure.PlatformDescriptor]*timeline)
		timelines[stopID] = byPlatform
	}
	tl, ok := byPlatform[platform]
	if !ok {
		tl = newTimeline()
		byPlatform[platform] = tl
	}
	return tl
}

func padTo(edges []int32, stopSequence int) []int32 {
	for len(edges) < stopSequence {
		edges = append(edges, -1) // index == stop_sequence
	}
	return edges
}

// AddTrip expands one run of a trip starting t seconds after its scheduled times.
func (r *GtfsReader) AddTrip(zone *time.Location, t int, arrivalNodes []TripArrival, trip TripWithStopTimes,
	td datastructure.TripDescriptor, frequencyBased bool) []TripArrival {
	route := r.route(trip.Trip.RouteID)
	tdRef := r.out.InternTripDescriptor(td)
	feedZone := r.feedZone(zone)

	boardEdges := make([]int32, 0, len(trip.StopTimes)+1)
	alightEdges := make([]int32, 0, len(trip.StopTimes)+1)
	var prev *gtfs.StopTime
	arrivalNode := int32(-1)
	arrivalTime := -1
	departureNode := int32(-1)
	for i := range trip.StopTimes {
		stopTime := trip.StopTimes[i]
		arrivalNode = r.out.CreateNode()
		arrivalTime = stopTime.ArrivalTime + t
		if prev != nil {
			r.out.CreateEdge(departureNode, arrivalNode, datastructure.PtEdgeAttributes{
				Type:         datastructure.EdgeHop,
				Time:         int32(stopTime.ArrivalTime - prev.DepartureTime),
				StopSequence: int32(stopTime.StopSequence),
			})
		}

		platform := r.departurePlatformFor(stopTime.StopID, route)
		platformRef := r.out.InternPlatform(platform)
		arrivalPlatformRef := r.out.InternPlatform(r.arrivalPlatformFor(stopTime.StopID, route))
		departureTimeline := timelineFor(r.departureTimelinesByStop, stopTime.StopID, platform)
		departureTimelineNode := departureTimeline.getOrCreate(int32((stopTime.DepartureTime+t)%datastructure.SecondsPerDay), r.out.CreateNode)
		arrivalTimeline := timelineFor(r.arrivalTimelinesByStop, stopTime.StopID, *arrivalPlatformRef)
		arrivalTimelineNode := arrivalTimeline.getOrCreate(int32((stopTime.ArrivalTime+t)%datastructure.SecondsPerDay), r.out.CreateNode)
		departureNode = r.out.CreateNode()

		dayShift := stopTime.DepartureTime / datastructure.SecondsPerDay
		validOn := r.validity(trip.ValidOnDay, dayShift, zone)

		boardEdges = padTo(boardEdges, stopTime.StopSequence)
		if _, cancelled := trip.CancelledDepartures[stopTime.StopSequence]; cancelled {
			boardEdges = append(boardEdges, -1)
		} else {
			boardEdge := r.out.CreateEdge(departureTimelineNode, departureNode, datastructure.PtEdgeAttributes{
				Type:               datastructure.EdgeBoard,
				Transfers:          1,
				RouteType:          int32(route.Type),
				StopSequence:       int32(stopTime.StopSequence),
				Validity:           validOn,
				FeedIDWithTimezone: feedZone,
				TripDescriptor:     tdRef,
				Platform:           platformRef,
			})
			boardEdges = append(boardEdges, boardEdge)
		}

		alightEdges = padTo(alightEdges, stopTime.StopSequence)
		if _, cancelled := trip.CancelledArrivals[stopTime.StopSequence]; cancelled {
			alightEdges = append(alightEdges, -1)
		} else {
			alightEdge := r.out.CreateEdge(arrivalNode, arrivalTimelineNode, datastructure.PtEdgeAttributes{
				Type:               datastructure.EdgeAlight,
				RouteType:          int32(route.Type),
				StopSequence:       int32(stopTime.StopSequence),
				Validity:           validOn,
				FeedIDWithTimezone: feedZone,
				TripDescriptor:     tdRef,
				Platform:           arrivalPlatformRef,
			})
			alightEdges = append(alightEdges, alightEdge)
		}

		r.out.CreateEdge(arrivalNode, departureNode, datastructure.PtEdgeAttributes{
			Type: datastructure.EdgeDwell,
			Time: int32(stopTime.DepartureTime - stopTime.ArrivalTime),
		})

		if prev == nil {
			r.insertInboundBlockTransfers(arrivalNodes, tdRef, feedZone, departureNode, stopTime.DepartureTime+t,
				stopTime, validOn, zone, platformRef, route)
		}
		prev = &trip.StopTimes[i]
	}
	r.out.PutTripEdges(r.id, td, boardEdges, alightEdges)
	return append(arrivalNodes, TripArrival{Trip: trip, ArrivalNode: arrivalNode, ArrivalTime: arrivalTime})
}

// insertInboundBlockTransfers lets the vehicle continue from earlier trips of the block, latest first,
// on the days not yet covered by a later one.
func (r *GtfsReader) insertInboundBlockTransfers(arrivalNodes []TripArrival, td *datastructure.TripDescriptor,
	feedZone *datastructure.FeedIDWithTimezone, departureNode int32, departureTime int, stopTime gtfs.StopTime,
	validOn *datastructure.Validity, zone *time.Location, platform *datastructure.PlatformDescriptor, route *gtfs.Route) {
	accumulatorValidity := validOn.Days.Clone()
	for i := len(arrivalNodes) - 1; i >= 0 && accumulatorValidity.Any(); i-- {
		lastTrip := arrivalNodes[i]
		dwellTime := departureTime - lastTrip.ArrivalTime
		if dwellTime < 0 || accumulatorValidity.IntersectionCardinality(lastTrip.Trip.ValidOnDay) == 0 {
			continue
		}
		blockTransferValidity := validOn.Days.Intersection(accumulatorValidity)
		blockTransferValidOn := r.out.InternValidity(datastructure.NewValidity(blockTransferValidity, zone, r.startDate))

		node := r.out.CreateNode()
		r.out.CreateEdge(lastTrip.ArrivalNode, node, datastructure.PtEdgeAttributes{
			Type:      datastructure.EdgeTransfer,
			Time:      int32(dwellTime),
			RouteType: int32(route.Type),
			Platform:  platform,
		})
		r.out.CreateEdge(node, departureNode, datastructure.PtEdgeAttributes{
			Type:               datastructure.EdgeBoard,
			Transfers:          0,
			RouteType:          int32(route.Type),
			StopSequence:       int32(stopTime.StopSequence),
			Validity:           blockTransferValidOn,
			FeedIDWithTimezone: feedZone,
			TripDescriptor:     td,
			Platform:           platform,
		})
		accumulatorValidity = accumulatorValidity.Difference(lastTrip.Trip.ValidOnDay)
	}
}

func sortedStops(timelines platformTimelines) []string {
	stops := make([]string, 0, len(timelines))
	for s := range timelines {
		stops = append(stops, s)
	}
	sort.Strings(stops)
	return stops
}

func sortedPlatforms(byPlatform map[datastructure.PlatformDescriptor]*timeline) []datastructure.PlatformDescriptor {
	platforms := make([]datastructure.PlatformDescriptor, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i].String() < platforms[j].String() })
	return platforms
}

func (r *GtfsReader) wireUpStops() {
	for _, stopID := range sortedStops(r.arrivalTimelinesByStop) {
		byPlatform := r.arrivalTimelinesByStop[stopID]
		for _, platform := range sortedPlatforms(byPlatform) {
			r.wireUpArrivalTimeline(byPlatform[platform], platform)
		}
	}
	for _, stopID := range sortedStops(r.departureTimelinesByStop) {
		byPlatform := r.departureTimelinesByStop[stopID]
		for _, platform := range sortedPlatforms(byPlatform) {
			r.wireUpDepartureTimeline(byPlatform[platform], platform)
		}
	}
}

func (r *GtfsReader) stationNode(platform datastructure.PlatformDescriptor) int32 {
	node, ok := r.storage.StationNode(platform.FeedID, platform.StopID)
	if !ok {
		// stop_times referencing a stop missing from stops.txt
		node = r.out.CreateNode()
		r.log.Warn("stop without station node", "feed", platform.FeedID, "stop_id", platform.StopID)
	}
	return node
}

func (r *GtfsReader) wireUpDepartureTimeline(departureTimeline *timeline, platform datastructure.PlatformDescriptor) {
	r.log.Debug("creating departure timeline", "stop_id", platform.StopID, "platform", platform.String())
	platformEnterNode := r.out.CreateNode()
	stationNode := r.stationNode(platform)
	r.out.CreateEdge(stationNode, platformEnterNode, datastructure.PtEdgeAttributes{
		Type:      datastructure.EdgeEnterPt,
		RouteType: int32(platform.RouteType),
		Platform:  r.out.InternPlatform(platform),
	})
	r.out.PutPlatformNode(platformEnterNode, platform)
	r.wireUpAndConnectTimeline(platformEnterNode, departureTimeline, datastructure.EdgeEnterNetwork, datastructure.EdgeWait)
}

func (r *GtfsReader) wireUpArrivalTimeline(arrivalTimeline *timeline, platform datastructure.PlatformDescriptor) {
	r.log.Debug("creating arrival timeline", "stop_id", platform.StopID, "platform", platform.String())
	platformExitNode := r.out.CreateNode()
	stationNode := r.stationNode(platform)
	r.out.CreateEdge(platformExitNode, stationNode, datastructure.PtEdgeAttributes{
		Type:      datastructure.EdgeExitPt,
		RouteType: int32(platform.RouteType),
		Platform:  r.out.InternPlatform(platform),
	})
	r.out.PutPlatformNode(platformExitNode, platform)
	r.wireUpAndConnectTimeline(platformExitNode, arrivalTimeline, datastructure.EdgeLeaveNetwork, datastructure.EdgeWaitArrival)
}

// wireUpAndConnectTimeline links the platform to every timeline node, chains the nodes
// latest first with wait edges and closes the day with an overnight edge.
func (r *GtfsReader) wireUpAndConnectTimeline(platformNode int32, timeNodes *timeline, networkEdgeType, waitEdgeType datastructure.EdgeType) {
	feedZone := r.feedZone(r.feed.Timezone())
	prevTime := int32(0)
	prev := int32(-1)
	timeNodes.descending(func(sec, node int32) {
		attrs := datastructure.PtEdgeAttributes{Type: networkEdgeType, Time: sec, FeedIDWithTimezone: feedZone}
		if networkEdgeType == datastructure.EdgeLeaveNetwork {
			r.out.CreateEdge(node, platformNode, attrs)
		} else {
			r.out.CreateEdge(platformNode, node, attrs)
		}
		if prev != -1 {
			r.out.CreateEdge(node, prev, datastructure.PtEdgeAttributes{Type: waitEdgeType, Time: prevTime - sec})
		}
		prevTime = sec
		prev = node
	})
	if timeNodes.len() > 0 {
		firstTime, firstNode := timeNodes.first()
		lastTime, lastNode := timeNodes.last()
		r.out.CreateEdge(lastNode, firstNode, datastructure.PtEdgeAttributes{
			Type: datastructure.EdgeOvernight,
			Time: datastructure.SecondsPerDay - lastTime + firstTime,
		})
	}
}

func (r *GtfsReader) insertGtfsTransfers() {
	for _, stopID := range sortedStops(r.departureTimelinesByStop) {
		byPlatform := r.departureTimelinesByStop[stopID]
		for _, platform := range sortedPlatforms(byPlatform) {
			r.insertInboundTransfers(platform, byPlatform[platform])
		}
	}
}

func (r *GtfsReader) insertInboundTransfers(toPlatform datastructure.PlatformDescriptor, departureTimeline *timeline) {
	r.log.Debug("creating transfers to platform", "stop_id", toPlatform.StopID, "platform", toPlatform.String())
	for _, transfer := range r.transfers.TransfersToStop(toPlatform.StopID, toPlatform.RouteIDOrEmpty()) {
		minTransferTime := r.transferTime(r.id, transfer)
		for _, from := range r.storage.Platforms(r.id, transfer.FromStopID) {
			if !ruleMatchesPlatform(transfer.FromRouteID, from.Platform) {
				continue
			}
			r.insertTransferEdges(from.Node, minTransferTime, departureTimeline, toPlatform)
		}
	}
}

// a rule without a from_route only covers the RouteType platforms of its stop
func ruleMatchesPlatform(routeID string, platform datastructure.PlatformDescriptor) bool {
	if routeID == "" {
		return platform.Kind == datastructure.RouteTypePlatform
	}
	return platform.Kind == datastructure.RoutePlatform && platform.RouteID == routeID
}

// InsertTransferEdges connects every arrival at the exit platform to the first departure of
// departurePlatform at least minTransferTime later.
func (r *GtfsReader) InsertTransferEdges(arrivalPlatformNode int32, minTransferTime int, departurePlatform datastructure.PlatformDescriptor) ([]int32, error) {
	byPlatform, ok := r.departureTimelinesByStop[departurePlatform.StopID]
	if !ok {
		return nil, fmt.Errorf("no departures at %s", departurePlatform)
	}
	departureTimeline, ok := byPlatform[departurePlatform]
	if !ok {
		return nil, fmt.Errorf("no departures at %s", departurePlatform)
	}
	return r.insertTransferEdges(arrivalPlatformNode, minTransferTime, departureTimeline, departurePlatform), nil
}

func (r *GtfsReader) insertTransferEdges(arrivalPlatformNode int32, minTransferTime int, departureTimeline *timeline,
	departurePlatform datastructure.PlatformDescriptor) []int32 {
	created := make([]int32, 0)
	backEdges, err := r.graph.BackEdgesAround(arrivalPlatformNode)
	if err != nil {
		r.log.Error("arrival platform out of range", "node", arrivalPlatformNode, "error", err)
		return created
	}
	platformRef := r.out.InternPlatform(departurePlatform)
	for e := range backEdges {
		if e.Attrs.Type != datastructure.EdgeLeaveNetwork {
			continue
		}
		arrivalTime := e.Attrs.Time
		departureTime, departureNode, ok := departureTimeline.ceiling(arrivalTime + int32(minTransferTime))
		if !ok {
			continue
		}
		edge := r.out.CreateEdge(e.AdjNode, departureNode, datastructure.PtEdgeAttributes{
			Type:      datastructure.EdgeTransfer,
			Time:      departureTime - arrivalTime,
			RouteType: int32(departurePlatform.RouteType),
			Platform:  platformRef,
		})
		created = append(created, edge)
	}
	return created
}

// DepartureTimelineNodes returns the departure timeline of a platform as second of day to node.
func (r *GtfsReader) DepartureTimelineNodes(platform datastructure.PlatformDescriptor) map[int32]int32 {
	if byPlatform, ok := r.departureTimelinesByStop[platform.StopID]; ok {
		if tl, ok := byPlatform[platform]; ok {
			return tl.nodes
		}
	}
	return nil
}

var errNoPlatformNode = errors.New("no platform node")

// findPlatformNode finds the static enter (or exit) node of the platform.
func (r *GtfsReader) findPlatformNode(platform datastructure.PlatformDescriptor, enter bool) (int32, error) {
	for _, pn := range r.storage.Platforms(platform.FeedID, platform.StopID) {
		if pn.Platform != platform {
			continue
		}
		if enter && r.hasBackEdge(pn.Node, datastructure.EdgeEnterPt) {
			return pn.Node, nil
		}
		if !enter && r.hasEdge(pn.Node, datastructure.EdgeExitPt) {
			return pn.Node, nil
		}
	}
	return -1, errNoPlatformNode
}

func (r *GtfsReader) hasEdge(node int32, edgeType datastructure.EdgeType) bool {
	edges, err := r.graph.EdgesAround(node)
	if err != nil {
		return false
	}
	for e := range edges {
		if e.Attrs.Type == edgeType {
			return true
		}
	}
	return false
}

func (r *GtfsReader) hasBackEdge(node int32, edgeType datastructure.EdgeType) bool {
	edges, err := r.graph.BackEdgesAround(node)
	if err != nil {
		return false
	}
	for e := range edges {
		if e.Attrs.Type == edgeType {
			return true
		}
	}
	return false
}

// staticDepartureTimeline reads the departure timeline of a static platform back from its ENTER edges.
func (r *GtfsReader) staticDepartureTimeline(platformEnterNode int32) *timeline {
	result := newTimeline()
	edges, err := r.graph.EdgesAround(platformEnterNode)
	if err != nil {
		return result
	}
	for e := range edges {
		if e.Attrs.Type == datastructure.EdgeEnterNetwork {
			result.put(e.Attrs.Time, e.AdjNode)
		}
	}
	return result
}

var _ PtGraphReader = (*ptgraph.PtGraph)(nil)
var _ PtGraphOut = (*StaticGraphOut)(nil)
