package service

import (
	"context"
	"errors"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/ptrouter"
	"github.com/lintang-b-s/navigatorx-pt/pkg/realtime"
	"github.com/lintang-b-s/navigatorx-pt/pkg/server"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"
)

type Router interface {
	Route(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error)
	RouteTripBased(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error)
}

type StationIndex interface {
	Nearest(lat, lon float64, k int) []snap.Station
	WithinRadius(lat, lon, radiusKm float64) []snap.Station
}

type RealtimePublisher interface {
	Update(feedID string, message *gtfsrt.FeedMessage) *realtime.Feed
	Load() *realtime.Feed
}

type RealtimeSnapshot struct {
	ID              string
	Timestamp       time.Time
	AdditionalEdges int
}

// PtService sits between the rest handlers and the router, it turns engine errors into server errors.
type PtService struct {
	router    Router
	stations  StationIndex
	publisher RealtimePublisher
	// feeds that accept realtime uploads
	feedIDs map[string]struct{}
}

func NewPtService(router Router, stations StationIndex, publisher RealtimePublisher, feedIDs []string) *PtService {
	known := make(map[string]struct{}, len(feedIDs))
	for _, id := range feedIDs {
		known[id] = struct{}{}
	}
	return &PtService{router: router, stations: stations, publisher: publisher, feedIDs: known}
}

func (s *PtService) Route(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error) {
	resp, err := s.router.Route(ctx, req)
	if err != nil {
		return ptrouter.Response{}, routeError(err)
	}
	return resp, nil
}

func (s *PtService) RouteTripBased(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error) {
	resp, err := s.router.RouteTripBased(ctx, req)
	if err != nil {
		return ptrouter.Response{}, routeError(err)
	}
	return resp, nil
}

func routeError(err error) error {
	switch {
	case errors.Is(err, snap.ErrNoStreetNode):
		return server.WrapErrorf(err, server.ErrNotFound, "sorry!! the location you entered is not covered on my map :(, please use a point near a walkable street")
	case errors.Is(err, ptrouter.ErrInvalidRequest), errors.Is(err, ptrouter.ErrArriveByUnsupported):
		return server.WrapErrorf(err, server.ErrBadParamInput, "invalid request")
	case errors.Is(err, ptrouter.ErrTripBasedDisabled):
		return server.WrapErrorf(err, server.ErrUnavailable, "trip based routing is not enabled on this server")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return server.WrapErrorf(err, server.ErrUnavailable, "request cancelled")
	default:
		return server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
	}
}

// NearestStations returns up to k stations, only those within radiusKm when it is positive.
func (s *PtService) NearestStations(ctx context.Context, lat, lon, radiusKm float64, k int) ([]snap.Station, error) {
	if s.stations == nil {
		return nil, server.NewErrorf(server.ErrUnavailable, "station index is not loaded")
	}
	var stations []snap.Station
	if radiusKm > 0 {
		stations = s.stations.WithinRadius(lat, lon, radiusKm)
		if len(stations) > k {
			stations = stations[:k]
		}
	} else {
		stations = s.stations.Nearest(lat, lon, k)
	}
	if len(stations) == 0 {
		return nil, server.NewErrorf(server.ErrNotFound, "no station near %f,%f", lat, lon)
	}
	return stations, nil
}

// UpdateRealtime decodes a GTFS-RT FeedMessage and publishes it as the latest message of feedID.
func (s *PtService) UpdateRealtime(ctx context.Context, feedID string, body []byte) (RealtimeSnapshot, error) {
	if s.publisher == nil {
		return RealtimeSnapshot{}, server.NewErrorf(server.ErrUnavailable, "realtime updates are disabled")
	}
	if _, ok := s.feedIDs[feedID]; !ok {
		return RealtimeSnapshot{}, server.NewErrorf(server.ErrNotFound, "unknown feed %q", feedID)
	}
	message, err := realtime.Decode(body)
	if err != nil {
		return RealtimeSnapshot{}, server.WrapErrorf(err, server.ErrBadParamInput, "body is not a gtfs-realtime feed message")
	}
	if err := ctx.Err(); err != nil {
		return RealtimeSnapshot{}, server.WrapErrorf(err, server.ErrUnavailable, "request cancelled")
	}
	return snapshotOf(s.publisher.Update(feedID, message)), nil
}

func (s *PtService) CurrentRealtime(ctx context.Context) (RealtimeSnapshot, error) {
	if s.publisher == nil {
		return RealtimeSnapshot{}, server.NewErrorf(server.ErrUnavailable, "realtime updates are disabled")
	}
	return snapshotOf(s.publisher.Load()), nil
}

func snapshotOf(feed *realtime.Feed) RealtimeSnapshot {
	return RealtimeSnapshot{
		ID:              feed.ID(),
		Timestamp:       feed.Timestamp(),
		AdditionalEdges: feed.AdditionalEdgeCount(),
	}
}
