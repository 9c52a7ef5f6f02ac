package ptrouter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/mcls"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/tripbased"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/realtime"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

type StreetGraph interface {
	explorer.StreetGraph
}

type Snapper interface {
	SnapToStreetNode(lat, lon float64) (int32, float64, error)
}

// RealtimeSource hands out the current realtime snapshot, *realtime.Publisher implements it.
type RealtimeSource interface {
	Load() *realtime.Feed
}

type QueryMetrics interface {
	ObserveQuery(algorithm string, found bool, visitedNodes int, elapsed time.Duration)
}

type Config struct {
	WalkSpeedKmh    float64
	MaxVisitedNodes int
	// used when a request sets none
	LimitStreetTime    time.Duration
	MaxProfileDuration time.Duration
	LimitSolutions     int
	BetaTransfers      float64
	BetaStreetTime     float64
	// millis
	BoardingPenaltyByRouteType map[int]int64
	MaxTripBasedRounds         int
	LeastWaitEnter             bool
}

// DefaultProfileLimitSolutions caps a profile query that sets no limit of its own.
const DefaultProfileLimitSolutions = 50

func DefaultConfig() Config {
	return Config{
		WalkSpeedKmh:       explorer.DefaultWalkSpeedKmh,
		MaxVisitedNodes:    mcls.DefaultMaxVisitedNodes,
		LimitStreetTime:    30 * time.Minute,
		MaxProfileDuration: time.Hour,
		MaxTripBasedRounds: tripbased.DefaultMaxRounds,
	}
}

// Router answers itinerary queries between two coordinates over the foot network and the
// time expanded transit network, with the realtime snapshot current at query time.
type Router struct {
	street    StreetGraph
	pt        explorer.PtGraph
	st        *storage.GtfsStorage
	snapper   Snapper
	realtime  RealtimeSource
	trips     *tripbased.Trips
	transfers *tripbased.TripTransferIndex
	cfg       Config
	metrics   QueryMetrics
	log       logger.Logger
}

type Option func(*Router)

// WithTripBased enables RouteTripBased.
func WithTripBased(trips *tripbased.Trips, transfers *tripbased.TripTransferIndex) Option {
	return func(r *Router) {
		r.trips = trips
		r.transfers = transfers
	}
}

func WithMetrics(m QueryMetrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

func WithRealtime(rt RealtimeSource) Option {
	return func(r *Router) {
		r.realtime = rt
	}
}

func NewRouter(street StreetGraph, pt explorer.PtGraph, st *storage.GtfsStorage, snapper Snapper, cfg Config,
	log logger.Logger, opts ...Option) *Router {
	r := &Router{
		street:  street,
		pt:      pt,
		st:      st,
		snapper: snapper,
		cfg:     cfg,
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) currentFeed() *realtime.Feed {
	if r.realtime == nil {
		return nil
	}
	return r.realtime.Load()
}

// Route runs the multi criteria search between the snapped request points.
// Not finding a path is not an error, the response then has no trips and a reason.
func (r *Router) Route(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	if err := validate(req); err != nil {
		return Response{}, err
	}
	from, to, err := r.snap(req)
	if err != nil {
		return Response{}, err
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	rt := r.currentFeed()
	ex := explorer.NewGraphExplorer(r.street, r.pt, r.st, rt, explorer.Options{
		Reverse:           req.ArriveBy,
		BlockedRouteTypes: req.BlockedRouteTypes,
		WalkSpeedKmh:      r.walkSpeed(req),
		LeastWaitEnter:    r.cfg.LeastWaitEnter,
	})
	m := mcls.New(ex, r.searchOptions(req))
	origin, target := ex.StreetNodeID(from), ex.StreetNodeID(to)
	if req.ArriveBy {
		origin, target = target, origin
	}
	m.Targets(target)
	result := m.Search(origin, req.EarliestDepartureTime.UnixMilli())

	tb := &tripBuilder{r: r, ex: ex, rt: rt, loc: req.EarliestDepartureTime.Location()}
	resp := Response{
		Trips:        make([]Trip, 0, len(result.Labels)),
		VisitedNodes: result.VisitedNodes,
	}
	for _, label := range result.Labels {
		resp.Trips = append(resp.Trips, tb.tripFromLabel(label, req.ArriveBy))
	}
	if result.Reason != mcls.ReasonNone {
		resp.NoPathReason = result.Reason.String()
	}
	r.observe("mcls", resp, time.Since(start))
	r.log.Debug("pt route", "from", from, "to", to, "trips", len(resp.Trips), "visited", resp.VisitedNodes,
		"realtime_feed", rt.ID())
	return resp, nil
}

func (r *Router) searchOptions(req Request) mcls.Options {
	opts := mcls.DefaultOptions()
	opts.MindTransfers = !req.IgnoreTransfers
	opts.ProfileQuery = req.ProfileQuery
	opts.MaxProfileDuration = r.maxProfileDuration(req).Milliseconds()
	switch {
	case req.LimitSolutions > 0:
		opts.LimitSolutions = req.LimitSolutions
	case r.cfg.LimitSolutions > 0:
		opts.LimitSolutions = r.cfg.LimitSolutions
	case req.ProfileQuery:
		opts.LimitSolutions = DefaultProfileLimitSolutions
	case req.IgnoreTransfers:
		// single criterion, the first settled target is optimal
		opts.LimitSolutions = 1
	}
	if limit := r.limitStreetTime(req); limit > 0 {
		opts.LimitStreetTime = limit.Milliseconds()
	}
	opts.BetaTransfers = r.cfg.BetaTransfers
	if req.BetaTransfers > 0 {
		opts.BetaTransfers = req.BetaTransfers
	}
	if r.cfg.BetaStreetTime > 0 {
		opts.BetaStreetTime = r.cfg.BetaStreetTime
	}
	if req.BetaStreetTime > 0 {
		opts.BetaStreetTime = req.BetaStreetTime
	}
	opts.BoardingPenaltyByRouteType = r.cfg.BoardingPenaltyByRouteType
	if r.cfg.MaxVisitedNodes > 0 {
		opts.MaxVisitedNodes = r.cfg.MaxVisitedNodes
	}
	return opts
}

func (r *Router) walkSpeed(req Request) float64 {
	if req.WalkSpeedKmh > 0 {
		return req.WalkSpeedKmh
	}
	return r.cfg.WalkSpeedKmh
}

func (r *Router) limitStreetTime(req Request) time.Duration {
	if req.LimitStreetTime > 0 {
		return req.LimitStreetTime
	}
	return r.cfg.LimitStreetTime
}

func (r *Router) maxProfileDuration(req Request) time.Duration {
	if req.MaxProfileDuration > 0 {
		return req.MaxProfileDuration
	}
	return r.cfg.MaxProfileDuration
}

func (r *Router) snap(req Request) (int32, int32, error) {
	from, _, err := r.snapper.SnapToStreetNode(req.FromLat, req.FromLon)
	if err != nil {
		return -1, -1, fmt.Errorf("origin: %w", err)
	}
	to, _, err := r.snapper.SnapToStreetNode(req.ToLat, req.ToLon)
	if err != nil {
		return -1, -1, fmt.Errorf("destination: %w", err)
	}
	return from, to, nil
}

func (r *Router) observe(algorithm string, resp Response, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveQuery(algorithm, len(resp.Trips) > 0, resp.VisitedNodes, elapsed)
}

func validate(req Request) error {
	if math.Abs(req.FromLat) > 90 || math.Abs(req.ToLat) > 90 || math.Abs(req.FromLon) > 180 || math.Abs(req.ToLon) > 180 {
		return fmt.Errorf("%w: coordinate out of range", ErrInvalidRequest)
	}
	if req.EarliestDepartureTime.IsZero() {
		return fmt.Errorf("%w: missing departure time", ErrInvalidRequest)
	}
	if req.LimitSolutions < 0 || req.LimitStreetTime < 0 || req.MaxProfileDuration < 0 || req.WalkSpeedKmh < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidRequest)
	}
	return nil
}

func millisToTime(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

func streetCoordinate(g StreetGraph, node int32) datastructure.Coordinate {
	n := g.Node(node)
	return datastructure.Coordinate{Lat: n.Lat, Lon: n.Lon}
}
