package builder

import (
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
)

// AddDelayedBoardEdge adds a board edge for a delayed departure of a static trip.
// departureTime is the updated departure in seconds after midnight of the service day.
func (r *GtfsReader) AddDelayedBoardEdge(zone *time.Location, td datastructure.TripDescriptor, stopSequence int,
	departureTime int, departureNode int32, validOnDay *bitset.BitSet) (int32, error) {
	stopTime, ok := r.feed.StopTime(td.TripID, stopSequence)
	if !ok {
		return -1, fmt.Errorf("trip %s has no stop_sequence %d: %w", td.TripID, stopSequence, gtfs.ErrUnknownTrip)
	}
	trip, ok := r.feed.Trips[td.TripID]
	if !ok {
		return -1, fmt.Errorf("trip %s: %w", td.TripID, gtfs.ErrUnknownTrip)
	}
	route := r.route(trip.RouteID)
	platform := r.departurePlatformFor(stopTime.StopID, route)
	departureTimeline := timelineFor(r.departureTimelinesByStop, stopTime.StopID, platform)
	departureTimelineNode := departureTimeline.getOrCreate(int32(departureTime%datastructure.SecondsPerDay), r.out.CreateNode)

	validOn := r.validity(validOnDay, departureTime/datastructure.SecondsPerDay, zone)
	return r.out.CreateEdge(departureTimelineNode, departureNode, datastructure.PtEdgeAttributes{
		Type:               datastructure.EdgeBoard,
		Transfers:          1,
		RouteType:          int32(route.Type),
		StopSequence:       int32(stopSequence),
		Validity:           validOn,
		FeedIDWithTimezone: r.feedZone(zone),
		TripDescriptor:     r.out.InternTripDescriptor(td),
		Platform:           r.out.InternPlatform(platform),
	}), nil
}

// WireUpAdditionalDeparturesAndArrivals connects the timeline nodes created by realtime trips
// to the static platforms, or to fresh platforms when the static graph has none.
func (r *GtfsReader) WireUpAdditionalDeparturesAndArrivals(zone *time.Location) {
	for _, stopID := range sortedStops(r.departureTimelinesByStop) {
		byPlatform := r.departureTimelinesByStop[stopID]
		for _, platform := range sortedPlatforms(byPlatform) {
			departureTimeline := byPlatform[platform]
			platformEnterNode, err := r.findPlatformNode(platform, true)
			if err != nil {
				r.wireUpDepartureTimeline(departureTimeline, platform)
				continue
			}
			r.patchDepartureTimeline(zone, platformEnterNode, departureTimeline)
		}
	}

	for _, stopID := range sortedStops(r.arrivalTimelinesByStop) {
		byPlatform := r.arrivalTimelinesByStop[stopID]
		for _, platform := range sortedPlatforms(byPlatform) {
			arrivalTimeline := byPlatform[platform]
			platformExitNode, err := r.findPlatformNode(platform, false)
			if err != nil {
				r.wireUpArrivalTimeline(arrivalTimeline, platform)
			} else {
				feedZone := r.feedZone(zone)
				arrivalTimeline.ascending(func(sec, node int32) {
					r.out.CreateEdge(node, platformExitNode, datastructure.PtEdgeAttributes{
						Type:               datastructure.EdgeLeaveNetwork,
						Time:               sec,
						FeedIDWithTimezone: feedZone,
					})
				})
			}

			for _, transfer := range r.transfers.TransfersFromStop(platform.StopID, platform.RouteIDOrEmpty()) {
				r.insertOutboundTransfers(transfer.ToStopID, transfer.ToRouteID, r.transferTime(r.id, transfer), arrivalTimeline)
			}
		}
	}
}

// patchDepartureTimeline splices new departures into the wait chain of a static platform.
func (r *GtfsReader) patchDepartureTimeline(zone *time.Location, platformEnterNode int32, departureTimeline *timeline) {
	staticTimeline := r.staticDepartureTimeline(platformEnterNode)
	feedZone := r.feedZone(zone)
	departureTimeline.ascending(func(sec, node int32) {
		if prevSec, prevNode, ok := staticTimeline.lower(sec); ok {
			r.out.CreateEdge(prevNode, node, datastructure.PtEdgeAttributes{
				Type: datastructure.EdgeWait,
				Time: sec - prevSec,
			})
		}
		if nextSec, nextNode, ok := staticTimeline.ceiling(sec); ok {
			r.out.CreateEdge(node, nextNode, datastructure.PtEdgeAttributes{
				Type: datastructure.EdgeWait,
				Time: nextSec - sec,
			})
		}
		r.out.CreateEdge(platformEnterNode, node, datastructure.PtEdgeAttributes{
			Type:               datastructure.EdgeEnterNetwork,
			Time:               sec,
			FeedIDWithTimezone: feedZone,
		})
	})
}

// insertOutboundTransfers connects new arrivals to the static departures of toStopID.
func (r *GtfsReader) insertOutboundTransfers(toStopID, toRouteID string, minTransferTime int, arrivalTimeline *timeline) {
	for _, to := range r.storage.Platforms(r.id, toStopID) {
		if toRouteID != "" && to.Platform.Kind == datastructure.RoutePlatform && to.Platform.RouteID != toRouteID {
			continue
		}
		if !r.hasBackEdge(to.Node, datastructure.EdgeEnterPt) {
			continue
		}
		staticTimeline := r.staticDepartureTimeline(to.Node)
		platformRef := r.out.InternPlatform(to.Platform)
		arrivalTimeline.ascending(func(sec, node int32) {
			departureSec, departureNode, ok := staticTimeline.ceiling(sec + int32(minTransferTime))
			if !ok {
				return
			}
			r.out.CreateEdge(node, departureNode, datastructure.PtEdgeAttributes{
				Type:      datastructure.EdgeTransfer,
				Time:      departureSec - sec,
				RouteType: int32(to.Platform.RouteType),
				Platform:  platformRef,
			})
		})
	}
}
