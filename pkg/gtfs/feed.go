package gtfs

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
)

var (
	ErrMalformedSchedule = errors.New("malformed schedule")
	ErrUnknownTrip       = errors.New("unknown trip")
)

const (
	LocationTypeStop    = 0
	LocationTypeStation = 1
)

// transfer_type values
const (
	TransferRecommended = 0
	TransferTimed       = 1
	TransferMinTime     = 2
	TransferNotPossible = 3
)

type Agency struct {
	ID       string
	Name     string
	Timezone *time.Location
}

type Route struct {
	ID        string
	AgencyID  string
	Type      int
	ShortName string
	LongName  string
}

type Stop struct {
	ID            string
	Name          string
	Lat           float64
	Lon           float64
	LocationType  int
	ParentStation string
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	BlockID   string
	Headsign  string
}

// StopTime times are seconds after midnight of the service day and may exceed 24h.
type StopTime struct {
	TripID        string
	StopID        string
	ArrivalTime   int
	DepartureTime int
	StopSequence  int
	PickupType    int
	DropOffType   int
}

type Frequency struct {
	TripID      string
	StartTime   int
	EndTime     int
	HeadwaySecs int
	ExactTimes  bool
}

type Transfer struct {
	FromStopID         string
	ToStopID           string
	FromRouteID        string
	ToRouteID          string
	FromTripID         string
	ToTripID           string
	Type               int
	MinTransferTime    int
	HasMinTransferTime bool
}

type Service struct {
	ID       string
	Weekdays [7]bool // indexed by time.Weekday
	Start    time.Time
	End      time.Time
	Added    map[string]struct{}
	Removed  map[string]struct{}
}

const dateKey = "20060102"

// ActiveOn reports whether the service runs on the calendar date of day.
func (s *Service) ActiveOn(day time.Time) bool {
	key := day.Format(dateKey)
	if _, ok := s.Removed[key]; ok {
		return false
	}
	if _, ok := s.Added[key]; ok {
		return true
	}
	if s.Start.IsZero() {
		return false
	}
	d := datastructure.CivilDate(day)
	if d.Before(s.Start) || d.After(s.End) {
		return false
	}
	return s.Weekdays[day.Weekday()]
}

// Feed is one static GTFS feed.
type Feed struct {
	ID          string
	Agencies    map[string]*Agency
	Routes      map[string]*Route
	Stops       map[string]*Stop
	Trips       map[string]*Trip
	StopTimes   map[string][]StopTime
	Services    map[string]*Service
	Frequencies map[string][]Frequency
	Transfers   []Transfer
	StartDate   time.Time
	EndDate     time.Time

	agencyOrder []string
}

func NewFeed(id string) *Feed {
	return &Feed{
		ID:          id,
		Agencies:    make(map[string]*Agency),
		Routes:      make(map[string]*Route),
		Stops:       make(map[string]*Stop),
		Trips:       make(map[string]*Trip),
		StopTimes:   make(map[string][]StopTime),
		Services:    make(map[string]*Service),
		Frequencies: make(map[string][]Frequency),
		Transfers:   make([]Transfer, 0),
	}
}

func (f *Feed) AddAgency(a Agency) {
	if _, ok := f.Agencies[a.ID]; !ok {
		f.agencyOrder = append(f.agencyOrder, a.ID)
	}
	f.Agencies[a.ID] = &a
}

func (f *Feed) AddRoute(r Route) {
	f.Routes[r.ID] = &r
}

func (f *Feed) AddStop(s Stop) {
	f.Stops[s.ID] = &s
}

func (f *Feed) AddService(s Service) {
	if s.Added == nil {
		s.Added = make(map[string]struct{})
	}
	if s.Removed == nil {
		s.Removed = make(map[string]struct{})
	}
	if !s.Start.IsZero() {
		s.Start = datastructure.CivilDate(s.Start)
		s.End = datastructure.CivilDate(s.End)
	}
	f.Services[s.ID] = &s
}

func (f *Feed) AddTrip(t Trip, stopTimes ...StopTime) {
	f.Trips[t.ID] = &t
	for i := range stopTimes {
		stopTimes[i].TripID = t.ID
	}
	f.StopTimes[t.ID] = append(f.StopTimes[t.ID], stopTimes...)
}

func (f *Feed) AddFrequency(fr Frequency) {
	f.Frequencies[fr.TripID] = append(f.Frequencies[fr.TripID], fr)
}

func (f *Feed) AddTransfer(t Transfer) {
	f.Transfers = append(f.Transfers, t)
}

// Finalize sorts stop times by stop_sequence and computes the feed date range.
func (f *Feed) Finalize() error {
	if len(f.agencyOrder) == 0 {
		return fmt.Errorf("feed %s has no agency: %w", f.ID, ErrMalformedSchedule)
	}
	for tripID, sts := range f.StopTimes {
		sort.SliceStable(sts, func(i, j int) bool {
			return sts[i].StopSequence < sts[j].StopSequence
		})
		f.StopTimes[tripID] = sts
	}

	var start, end time.Time
	widen := func(d time.Time) {
		d = datastructure.CivilDate(d)
		if start.IsZero() || d.Before(start) {
			start = d
		}
		if end.IsZero() || d.After(end) {
			end = d
		}
	}
	for _, s := range f.Services {
		if !s.Start.IsZero() {
			widen(s.Start)
			widen(s.End)
		}
		for key := range s.Added {
			d, err := time.Parse(dateKey, key)
			if err != nil {
				return fmt.Errorf("service %s date %s: %w", s.ID, key, ErrMalformedSchedule)
			}
			widen(d)
		}
	}
	if start.IsZero() {
		return fmt.Errorf("feed %s has no service dates: %w", f.ID, ErrMalformedSchedule)
	}
	f.StartDate = start
	f.EndDate = end
	return nil
}

// Timezone is the timezone of the first agency.
func (f *Feed) Timezone() *time.Location {
	if len(f.agencyOrder) == 0 {
		return time.UTC
	}
	return f.Agencies[f.agencyOrder[0]].Timezone
}

// RouteTimezone is the timezone of the agency operating the route.
func (f *Feed) RouteTimezone(routeID string) *time.Location {
	r, ok := f.Routes[routeID]
	if !ok {
		return f.Timezone()
	}
	a, ok := f.Agencies[r.AgencyID]
	if !ok {
		return f.Timezone()
	}
	return a.Timezone
}

// StopTime looks up the stop time of a trip by stop_sequence.
func (f *Feed) StopTime(tripID string, stopSequence int) (StopTime, bool) {
	sts := f.StopTimes[tripID]
	i := sort.Search(len(sts), func(i int) bool {
		return sts[i].StopSequence >= stopSequence
	})
	if i < len(sts) && sts[i].StopSequence == stopSequence {
		return sts[i], true
	}
	return StopTime{}, false
}

func (f *Feed) TripIDs() []string {
	return sortedKeys(f.Trips)
}

func (f *Feed) StopIDs() []string {
	return sortedKeys(f.Stops)
}

// NumDays is the number of days from StartDate to EndDate inclusive.
func (f *Feed) NumDays() int {
	return datastructure.DaysBetween(f.StartDate, f.EndDate) + 1
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
