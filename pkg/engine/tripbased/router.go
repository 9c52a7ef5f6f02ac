package tripbased

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
)

const DefaultMaxRounds = 3

// StopWithTimeDelta is an access or egress stop with the walking time to or from it, in milliseconds.
type StopWithTimeDelta struct {
	Stop      datastructure.FeedIDWithStopID
	TimeDelta int64
}

// EnqueuedTripSegment is a ride on a trip from TripAtStopTime up to (excluding) ToStopSequence.
type EnqueuedTripSegment struct {
	TripAtStopTime TripAtStopTime
	ToStopSequence int32
	PlusDays       int
	// nil for the first ride, boarded from Access
	TransferOrigin *TripAtStopTime
	Access         StopWithTimeDelta
	Parent         *EnqueuedTripSegment
}

// Root is the first ride of the journey.
func (s *EnqueuedTripSegment) Root() *EnqueuedTripSegment {
	i := s
	for i.Parent != nil {
		i = i.Parent
	}
	return i
}

// Segments are the rides of the journey in travel order.
func (s *EnqueuedTripSegment) Segments() []*EnqueuedTripSegment {
	segments := make([]*EnqueuedTripSegment, 0)
	for i := s; i != nil; i = i.Parent {
		segments = append(segments, i)
	}
	slices.Reverse(segments)
	return segments
}

// ResultLabel is a journey alighting at T and walking to Destination. Times are seconds of ServiceDay.
type ResultLabel struct {
	Round         int
	Destination   StopWithTimeDelta
	T             TripAtStopTime
	Segment       *EnqueuedTripSegment
	ArrivalTime   int
	DepartureTime int
	RealTransfers int
	ServiceDay    time.Time // midnight, in the timezone of the access feed
}

func (l *ResultLabel) Arrival() time.Time {
	return l.ServiceDay.Add(time.Duration(l.ArrivalTime) * time.Second)
}

func (l *ResultLabel) Departure() time.Time {
	return l.ServiceDay.Add(time.Duration(l.DepartureTime) * time.Second)
}

func (l *ResultLabel) String() string {
	return fmt.Sprintf("%s+%d %s", datastructure.FormatSecondsOfDay(l.ArrivalTime%datastructure.SecondsPerDay),
		l.ArrivalTime/datastructure.SecondsPerDay, l.Destination.Stop.StopID)
}

type RouterOptions struct {
	MaxRounds int
	// bit i set excludes trips of route type i
	BlockedRouteTypes int64
}

// Router is a round based search over trips and trip transfers. Round n rides n+1 trips.
// A Router is not safe for concurrent use, create one per request.
type Router struct {
	trips     *Trips
	transfers *TripTransferIndex
	opts      RouterOptions

	earliestArrivalTime int
	tripDoneFromIndex   map[int32]int32
	result              []*ResultLabel
	egress              []StopWithTimeDelta
	trafficDay          time.Time
	serviceDay          time.Time
	tripTransfers       TripTransfers
}

func NewRouter(trips *Trips, transfers *TripTransferIndex, opts RouterOptions) *Router {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	return &Router{
		trips:     trips,
		transfers: transfers,
		opts:      opts,
	}
}

func (r *Router) reset() {
	r.earliestArrivalTime = math.MaxInt
	r.tripDoneFromIndex = make(map[int32]int32)
	r.result = make([]*ResultLabel, 0)
}

// Route finds the journeys from the access stops to the egress stops departing at or after earliest.
// Results are Pareto optimal on arrival time, real transfers and departure time.
func (r *Router) Route(access, egress []StopWithTimeDelta, earliest time.Time) ([]*ResultLabel, error) {
	r.reset()
	if err := r.route(access, egress, earliest); err != nil {
		return nil, err
	}
	return r.sortedResult(), nil
}

// RouteProfile repeats the search for departures from start+length back to start, one minute apart.
// The earliest arrival carries over, so an earlier departure is only reported if it arrives earlier.
func (r *Router) RouteProfile(access, egress []StopWithTimeDelta, start time.Time, length time.Duration) ([]*ResultLabel, error) {
	r.reset()
	for ; length >= 0; length -= time.Minute {
		if err := r.route(access, egress, start.Add(length)); err != nil {
			return nil, err
		}
	}
	return r.sortedResult(), nil
}

func (r *Router) route(access, egress []StopWithTimeDelta, earliest time.Time) error {
	if len(access) == 0 {
		return nil
	}
	r.egress = egress
	zone := r.zone(access[0].Stop.FeedID)
	local := earliest.In(zone)
	y, m, d := local.Date()
	r.serviceDay = time.Date(y, m, d, 0, 0, 0, 0, zone)
	r.trafficDay = datastructure.CivilDate(local)

	tt, err := r.transfers.TripTransfers(r.trafficDay)
	if err != nil {
		return err
	}
	r.tripTransfers = tt

	queue0 := make([]*EnqueuedTripSegment, 0)
	for _, accessStation := range access {
		departureMillis := earliest.Add(time.Duration(accessStation.TimeDelta) * time.Millisecond).Sub(r.serviceDay).Milliseconds()
		earliestDeparture := int((departureMillis + 999) / 1000)
		for _, pb := range r.trips.PatternBoardings(accessStation.Stop) {
			boardings := pb.Boardings
			first := sort.Search(len(boardings), func(i int) bool {
				st, _ := r.trips.StopTime(boardings[i])
				return st.DepartureTime >= earliestDeparture
			})
			for _, boarding := range boardings[first:] {
				run := r.trips.Run(boarding.TripIdx)
				st, _ := r.trips.StopTime(boarding)
				if st.DepartureTime < earliestDeparture || !run.ActiveOn(r.trafficDay) || !r.allowed(run) {
					continue
				}
				queue0 = r.enqueue(queue0, boarding, nil, nil, accessStation, 0)
				break
			}
		}
	}

	for round := 0; len(queue0) > 0 && round < r.opts.MaxRounds; round++ {
		queue0 = r.round(queue0, round)
	}
	return nil
}

func (r *Router) round(queue0 []*EnqueuedTripSegment, round int) []*EnqueuedTripSegment {
	for _, segment := range queue0 {
		at := segment.TripAtStopTime
		run := r.trips.Run(at.TripIdx)
		toStopSequence := min(int(segment.ToStopSequence), len(run.StopTimes))
		for i := int(at.StopSequence) + 1; i < toStopSequence; i++ {
			stopTime := run.StopTimes[i]
			if stopTime == nil {
				continue
			}
			if stopTime.ArrivalTime >= r.earliestArrivalTime {
				break
			}
			for _, destination := range r.egress {
				newArrivalTime := stopTime.ArrivalTime + int(destination.TimeDelta/1000)
				if destination.Stop.FeedID != at.FeedID || destination.Stop.StopID != stopTime.StopID ||
					newArrivalTime >= r.earliestArrivalTime {
					continue
				}
				r.earliestArrivalTime = newArrivalTime
				r.addResult(&ResultLabel{
					Round:         round,
					Destination:   destination,
					T:             TripAtStopTime{FeedID: at.FeedID, TripIdx: at.TripIdx, StopSequence: int32(i)},
					Segment:       segment,
					ArrivalTime:   newArrivalTime,
					DepartureTime: r.departureTime(segment),
					RealTransfers: r.realTransfers(segment),
					ServiceDay:    r.serviceDay,
				})
			}
		}
	}

	queue1 := make([]*EnqueuedTripSegment, 0)
	for _, segment := range queue0 {
		at := segment.TripAtStopTime
		run := r.trips.Run(at.TripIdx)
		toStopSequence := min(int(segment.ToStopSequence), len(run.StopTimes))
		for i := int(at.StopSequence) + 1; i < toStopSequence; i++ {
			stopTime := run.StopTimes[i]
			if stopTime == nil {
				continue
			}
			if stopTime.ArrivalTime >= r.earliestArrivalTime {
				break
			}
			transferOrigin := TripAtStopTime{FeedID: at.FeedID, TripIdx: at.TripIdx, StopSequence: int32(i)}
			for _, transferDestination := range r.tripTransfers[transferOrigin] {
				destinationRun := r.trips.Run(transferDestination.TripIdx)
				if !destinationRun.ActiveOn(r.trafficDay) || !r.allowed(destinationRun) {
					continue
				}
				transferStopTime, _ := r.trips.StopTime(transferDestination)
				plusDays := 0
				if transferStopTime.DepartureTime < stopTime.ArrivalTime {
					plusDays = 1
				}
				origin := transferOrigin
				queue1 = r.enqueue(queue1, transferDestination, &origin, segment, segment.Root().Access, plusDays)
			}
		}
	}
	return queue1
}

// enqueue boards a trip unless the trip, or an earlier trip of its pattern, was already boarded
// at or before this stop.
func (r *Router) enqueue(queue []*EnqueuedTripSegment, destination TripAtStopTime, transferOrigin *TripAtStopTime,
	parent *EnqueuedTripSegment, access StopWithTimeDelta, plusDays int) []*EnqueuedTripSegment {
	if plusDays > 0 {
		return queue
	}
	doneFrom, ok := r.tripDoneFromIndex[destination.TripIdx]
	if !ok {
		doneFrom = math.MaxInt32
	}
	if destination.StopSequence >= doneFrom {
		return queue
	}
	queue = append(queue, &EnqueuedTripSegment{
		TripAtStopTime: destination,
		ToStopSequence: doneFrom,
		PlusDays:       plusDays,
		TransferOrigin: transferOrigin,
		Access:         access,
		Parent:         parent,
	})
	r.markAsDone(destination)
	return queue
}

// markAsDone marks the trip and all later trips of its pattern as done from the stop.
func (r *Router) markAsDone(destination TripAtStopTime) {
	run := r.trips.Run(destination.TripIdx)
	for idx := run.Idx; idx < run.EndIdxOfPattern; idx++ {
		if cur, ok := r.tripDoneFromIndex[idx]; !ok || destination.StopSequence < cur {
			r.tripDoneFromIndex[idx] = destination.StopSequence
		}
	}
}

func (r *Router) addResult(newResult *ResultLabel) {
	kept := r.result[:0]
	for _, old := range r.result {
		if old.ArrivalTime >= newResult.ArrivalTime && old.RealTransfers >= newResult.RealTransfers &&
			old.DepartureTime <= newResult.DepartureTime {
			continue
		}
		kept = append(kept, old)
	}
	r.result = append(kept, newResult)
}

func (r *Router) departureTime(segment *EnqueuedTripSegment) int {
	st, _ := r.trips.StopTime(segment.Root().TripAtStopTime)
	return st.DepartureTime
}

// realTransfers counts the changes of vehicle, staying seated on a trip of the same block is not one.
func (r *Router) realTransfers(segment *EnqueuedTripSegment) int {
	result := 0
	for i := segment; i.Parent != nil; i = i.Parent {
		trip1 := r.trips.Run(i.TripAtStopTime.TripIdx).Trip
		trip2 := r.trips.Run(i.TransferOrigin.TripIdx).Trip
		if trip1.BlockID == "" || trip2.BlockID == "" || trip1.BlockID != trip2.BlockID {
			result++
		}
	}
	return result
}

func (r *Router) allowed(run *TripRun) bool {
	if run.RouteType < 0 || run.RouteType > 62 {
		return true
	}
	return r.opts.BlockedRouteTypes&(1<<run.RouteType) == 0
}

func (r *Router) zone(feedID string) *time.Location {
	feed, ok := r.trips.st.Feeds[feedID]
	if !ok {
		return time.UTC
	}
	return feed.Timezone()
}

func (r *Router) sortedResult() []*ResultLabel {
	result := slices.Clone(r.result)
	slices.SortStableFunc(result, func(a, b *ResultLabel) int {
		if a.ArrivalTime != b.ArrivalTime {
			return a.ArrivalTime - b.ArrivalTime
		}
		return a.RealTransfers - b.RealTransfers
	})
	return result
}
