package ptrouter

import (
	"errors"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/guidance"
)

var (
	ErrInvalidRequest      = errors.New("invalid routing request")
	ErrTripBasedDisabled   = errors.New("trip based routing is not enabled")
	ErrArriveByUnsupported = errors.New("trip based routing only supports departure time queries")
)

type Request struct {
	FromLat float64
	FromLon float64
	ToLat   float64
	ToLon   float64

	EarliestDepartureTime time.Time
	// EarliestDepartureTime is the latest arrival time when set
	ArriveBy bool

	ProfileQuery       bool
	MaxProfileDuration time.Duration

	IgnoreTransfers bool
	LimitSolutions  int
	LimitStreetTime time.Duration
	// millis of travel time one transfer is worth
	BetaTransfers  float64
	BetaStreetTime float64
	// bit i set excludes route type i
	BlockedRouteTypes int
	WalkSpeedKmh      float64
}

type LegType string

const (
	LegWalk LegType = "walk"
	LegPt   LegType = "pt"
)

// Stop is a stop of a pt leg. Arrival is unset on the boarding stop, departure on the alighting stop.
// Predicted times are set when the realtime feed has an update for the trip.
type Stop struct {
	StopID       string  `json:"stop_id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	StopSequence int     `json:"stop_sequence"`

	ArrivalTime            *time.Time `json:"arrival_time,omitempty"`
	PredictedArrivalTime   *time.Time `json:"predicted_arrival_time,omitempty"`
	ArrivalCancelled       bool       `json:"arrival_cancelled,omitempty"`
	DepartureTime          *time.Time `json:"departure_time,omitempty"`
	PredictedDepartureTime *time.Time `json:"predicted_departure_time,omitempty"`
	DepartureCancelled     bool       `json:"departure_cancelled,omitempty"`
}

type Leg struct {
	Type           LegType   `json:"type"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	DistanceMeters float64   `json:"distance"`
	// encoded polyline
	Geometry string `json:"geometry"`
	// turn by turn, walk legs only
	Instructions []guidance.Instruction `json:"instructions,omitempty"`

	FeedID                    string `json:"feed_id,omitempty"`
	RouteID                   string `json:"route_id,omitempty"`
	TripID                    string `json:"trip_id,omitempty"`
	Headsign                  string `json:"headsign,omitempty"`
	RouteType                 int    `json:"route_type,omitempty"`
	Stops                     []Stop `json:"stops,omitempty"`
	IsInSameVehicleAsPrevious bool   `json:"is_in_same_vehicle_as_previous,omitempty"`
	Cancelled                 bool   `json:"cancelled,omitempty"`
}

type Trip struct {
	Legs          []Leg     `json:"legs"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	// departure of the first pt leg, the predicted one when there is a realtime update
	FirstPtDepartureTime *time.Time    `json:"first_pt_departure_time,omitempty"`
	NumTransfers         int           `json:"transfers"`
	WalkTime             time.Duration `json:"walk_time"`
	// a connection on it is missed because of a realtime delay
	Impossible bool `json:"impossible"`
}

func (t Trip) Duration() time.Duration {
	return t.ArrivalTime.Sub(t.DepartureTime)
}

type Response struct {
	Trips        []Trip `json:"trips"`
	VisitedNodes int    `json:"visited_nodes"`
	// empty when a trip was found
	NoPathReason string `json:"no_path_reason,omitempty"`
}
