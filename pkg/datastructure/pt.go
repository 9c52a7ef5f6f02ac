package datastructure

import (
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
)

// EdgeType is the role of an edge in the time-expanded transit network.
type EdgeType uint8

const (
	EdgeHighway EdgeType = iota
	EdgeEnterNetwork
	EdgeLeaveNetwork
	EdgeEnterPt
	EdgeExitPt
	EdgeHop
	EdgeDwell
	EdgeBoard
	EdgeAlight
	EdgeOvernight
	EdgeTransfer
	EdgeWait
	EdgeWaitArrival
)

var edgeTypeNames = [...]string{
	"HIGHWAY",
	"ENTER_TIME_EXPANDED_NETWORK",
	"LEAVE_TIME_EXPANDED_NETWORK",
	"ENTER_PT",
	"EXIT_PT",
	"HOP",
	"DWELL",
	"BOARD",
	"ALIGHT",
	"OVERNIGHT",
	"TRANSFER",
	"WAIT",
	"WAIT_ARRIVAL",
}

func (t EdgeType) String() string {
	if int(t) < len(edgeTypeNames) {
		return edgeTypeNames[t]
	}
	return fmt.Sprintf("EdgeType(%d)", t)
}

const (
	SecondsPerDay = 86400
	MillisPerDay  = SecondsPerDay * 1000
)

// Validity is the set of service days of a trip, counted from Start in Zone.
type Validity struct {
	Days  *bitset.BitSet
	Zone  *time.Location
	Start time.Time
}

func NewValidity(days *bitset.BitSet, zone *time.Location, start time.Time) *Validity {
	return &Validity{
		Days:  days,
		Zone:  zone,
		Start: CivilDate(start),
	}
}

// IsValidOn reports whether the service day of the instant (epoch millis) is a set bit.
func (v *Validity) IsValidOn(instantMillis int64) bool {
	if v == nil || v.Days == nil {
		return false
	}
	day := time.UnixMilli(instantMillis).In(v.Zone)
	trafficDay := DaysBetween(v.Start, day)
	return trafficDay >= 0 && v.Days.Test(uint(trafficDay))
}

// Key is the interning key of the validity, equal validities give equal keys.
func (v *Validity) Key() string {
	return fmt.Sprintf("%s|%s|%s", v.Start.Format("20060102"), v.Zone.String(), v.Days.String())
}

func (v *Validity) Equal(other *Validity) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.Start.Equal(other.Start) && v.Zone.String() == other.Zone.String() && v.Days.Equal(other.Days)
}

// CivilDate drops the clock part of t, keeping its calendar date in t's location.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from the date of from to the date of to.
func DaysBetween(from, to time.Time) int {
	a := CivilDate(from)
	b := CivilDate(to)
	return int(b.Sub(a).Hours() / 24)
}

// ShiftDays moves every set bit n positions up.
func ShiftDays(days *bitset.BitSet, n uint) *bitset.BitSet {
	if n == 0 {
		return days.Clone()
	}
	shifted := bitset.New(days.Len() + n)
	for i, ok := days.NextSet(0); ok; i, ok = days.NextSet(i + 1) {
		shifted.Set(i + n)
	}
	return shifted
}

// MillisOfDay returns the wall clock time of the instant in zone, in milliseconds since midnight.
func MillisOfDay(instantMillis int64, zone *time.Location) int64 {
	t := time.UnixMilli(instantMillis).In(zone)
	return int64(t.Hour()*3600+t.Minute()*60+t.Second())*1000 + int64(t.Nanosecond()/1e6)
}

type PlatformKind uint8

const (
	RouteTypePlatform PlatformKind = iota
	RoutePlatform
)

// PlatformDescriptor identifies a platform: all departures of one route type at a stop,
// or all departures of one route at a stop when route specific transfer rules exist there.
type PlatformDescriptor struct {
	Kind      PlatformKind `json:"kind"`
	FeedID    string       `json:"feed_id"`
	StopID    string       `json:"stop_id"`
	RouteType int          `json:"route_type"`
	RouteID   string       `json:"route_id,omitempty"`
}

func NewRouteTypePlatform(feedID, stopID string, routeType int) PlatformDescriptor {
	return PlatformDescriptor{Kind: RouteTypePlatform, FeedID: feedID, StopID: stopID, RouteType: routeType}
}

func NewRoutePlatform(feedID, stopID, routeID string, routeType int) PlatformDescriptor {
	return PlatformDescriptor{Kind: RoutePlatform, FeedID: feedID, StopID: stopID, RouteID: routeID, RouteType: routeType}
}

// RouteIDOrEmpty is the route of a route platform, or "" for a route type platform.
func (p PlatformDescriptor) RouteIDOrEmpty() string {
	if p.Kind == RoutePlatform {
		return p.RouteID
	}
	return ""
}

func (p PlatformDescriptor) String() string {
	if p.Kind == RoutePlatform {
		return fmt.Sprintf("RoutePlatform{%s %s %s}", p.FeedID, p.StopID, p.RouteID)
	}
	return fmt.Sprintf("RouteTypePlatform{%s %s %d}", p.FeedID, p.StopID, p.RouteType)
}

type FeedIDWithTimezone struct {
	FeedID string
	Zone   *time.Location
}

type FeedIDWithStopID struct {
	FeedID string
	StopID string
}

// TripDescriptor identifies one run of a trip. StartTime is set for frequency based runs.
type TripDescriptor struct {
	TripID    string `json:"trip_id"`
	RouteID   string `json:"route_id"`
	StartTime string `json:"start_time,omitempty"`
}

// PtEdgeAttributes are the immutable attributes of a transit edge.
// Time is a second of day for ENTER/LEAVE network edges and a duration in seconds otherwise.
type PtEdgeAttributes struct {
	Type               EdgeType
	Time               int32
	RouteType          int32
	Transfers          int32
	StopSequence       int32
	Validity           *Validity
	FeedIDWithTimezone *FeedIDWithTimezone
	TripDescriptor     *TripDescriptor
	Platform           *PlatformDescriptor
}

// NodeID is a node of the multimodal graph. A station connected to the street network has both
// a street node and a transit node, -1 marks the missing side.
type NodeID struct {
	StreetNode int32
	PtNode     int32
}

func StreetNodeID(id int32) NodeID {
	return NodeID{StreetNode: id, PtNode: -1}
}

func TransitNodeID(id int32) NodeID {
	return NodeID{StreetNode: -1, PtNode: id}
}

func (n NodeID) String() string {
	return fmt.Sprintf("NodeID{street:%d pt:%d}", n.StreetNode, n.PtNode)
}

// FormatSecondsOfDay renders seconds since midnight as HH:MM:SS, hours may exceed 23.
func FormatSecondsOfDay(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}

// ParseSecondsOfDay parses HH:MM:SS into seconds since midnight.
func ParseSecondsOfDay(s string) (int, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return h*3600 + m*60 + sec, nil
}
