package tripbased

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

// TripAtStopTime is a trip run at one of its stops. TripIdx indexes Trips.Runs.
type TripAtStopTime struct {
	FeedID       string
	TripIdx      int32
	StopSequence int32
}

func (t TripAtStopTime) String() string {
	return fmt.Sprintf("TripAtStopTime{%s %d @ %d}", t.FeedID, t.TripIdx, t.StopSequence)
}

// TripRun is one run of a trip. Frequency based trips have one run per headway.
type TripRun struct {
	Idx             int32
	EndIdxOfPattern int32 // exclusive
	FeedID          string
	PatternID       string
	Trip            *gtfs.Trip
	Service         *gtfs.Service
	RouteType       int
	Descriptor      datastructure.TripDescriptor
	Zone            *time.Location
	// index == stop_sequence, nil where the trip has no stop
	StopTimes []*gtfs.StopTime
}

// DepartureTime is the departure at the first stop.
func (r *TripRun) DepartureTime() int {
	for _, st := range r.StopTimes {
		if st != nil {
			return st.DepartureTime
		}
	}
	return 0
}

func (r *TripRun) StopTime(seq int32) (*gtfs.StopTime, bool) {
	if seq < 0 || int(seq) >= len(r.StopTimes) || r.StopTimes[seq] == nil {
		return nil, false
	}
	return r.StopTimes[seq], true
}

func (r *TripRun) ActiveOn(day time.Time) bool {
	return r.Service != nil && r.Service.ActiveOn(day)
}

// PatternBoardings are the boardings of one pattern at one stop, in departure order.
type PatternBoardings struct {
	PatternID string
	Boardings []TripAtStopTime
}

// Trips holds every trip run of every feed, grouped into patterns.
// Runs of a pattern are contiguous and sorted by departure.
type Trips struct {
	Runs []*TripRun

	st                        *storage.GtfsStorage
	boardingsForStopByPattern map[datastructure.FeedIDWithStopID][]PatternBoardings
	stopsForStation           map[int32][]datastructure.FeedIDWithStopID
}

type pattern struct {
	id   string
	runs []*TripRun
}

func NewTrips(st *storage.GtfsStorage) *Trips {
	t := &Trips{
		Runs:                      make([]*TripRun, 0),
		st:                        st,
		boardingsForStopByPattern: make(map[datastructure.FeedIDWithStopID][]PatternBoardings),
		stopsForStation:           make(map[int32][]datastructure.FeedIDWithStopID),
	}

	for _, feedID := range st.FeedIDs() {
		feed := st.Feeds[feedID]
		patterns := make([]*pattern, 0)
		patternByKey := make(map[string]*pattern)
		for _, tripID := range feed.TripIDs() {
			trip := feed.Trips[tripID]
			stopTimes := feed.StopTimes[tripID]
			if len(stopTimes) == 0 {
				continue
			}
			padded := make([]*gtfs.StopTime, 0, len(stopTimes)+1)
			for i := range stopTimes {
				for len(padded) < stopTimes[i].StopSequence {
					padded = append(padded, nil)
				}
				padded = append(padded, &stopTimes[i])
			}
			key := patternKey(stopTimes)
			p, ok := patternByKey[key]
			if !ok {
				p = &pattern{id: feedID + " " + strconv.Itoa(len(patterns)+1)}
				patternByKey[key] = p
				patterns = append(patterns, p)
			}

			routeType := 0
			if route, ok := feed.Routes[trip.RouteID]; ok {
				routeType = route.Type
			}
			newRun := func(stopTimes []*gtfs.StopTime, startTime string) *TripRun {
				return &TripRun{
					FeedID:     feedID,
					PatternID:  p.id,
					Trip:       trip,
					Service:    feed.Services[trip.ServiceID],
					RouteType:  routeType,
					Descriptor: datastructure.TripDescriptor{TripID: trip.ID, RouteID: trip.RouteID, StartTime: startTime},
					Zone:       feed.RouteTimezone(trip.RouteID),
					StopTimes:  stopTimes,
				}
			}

			frequencies := feed.Frequencies[tripID]
			if len(frequencies) == 0 {
				p.runs = append(p.runs, newRun(padded, ""))
				continue
			}
			for _, freq := range frequencies {
				if freq.HeadwaySecs <= 0 {
					continue
				}
				for start := freq.StartTime; start < freq.EndTime; start += freq.HeadwaySecs {
					p.runs = append(p.runs, newRun(shift(padded, start), datastructure.FormatSecondsOfDay(start)))
				}
			}
		}

		for _, p := range patterns {
			sort.SliceStable(p.runs, func(i, j int) bool {
				return p.runs[i].DepartureTime() < p.runs[j].DepartureTime()
			})
			end := int32(len(t.Runs) + len(p.runs))
			for _, run := range p.runs {
				run.Idx = int32(len(t.Runs))
				run.EndIdxOfPattern = end
				t.Runs = append(t.Runs, run)
			}
		}
	}

	patternIndex := make(map[datastructure.FeedIDWithStopID]map[string]int)
	for _, run := range t.Runs {
		for seq, stopTime := range run.StopTimes {
			if stopTime == nil {
				continue
			}
			stop := datastructure.FeedIDWithStopID{FeedID: run.FeedID, StopID: stopTime.StopID}
			if patternIndex[stop] == nil {
				patternIndex[stop] = make(map[string]int)
			}
			i, ok := patternIndex[stop][run.PatternID]
			if !ok {
				i = len(t.boardingsForStopByPattern[stop])
				patternIndex[stop][run.PatternID] = i
				t.boardingsForStopByPattern[stop] = append(t.boardingsForStopByPattern[stop], PatternBoardings{PatternID: run.PatternID})
			}
			pb := &t.boardingsForStopByPattern[stop][i]
			pb.Boardings = append(pb.Boardings, TripAtStopTime{FeedID: run.FeedID, TripIdx: run.Idx, StopSequence: int32(seq)})
		}
	}

	for stop, node := range st.StationNodes {
		t.stopsForStation[node] = append(t.stopsForStation[node], stop)
	}
	for node := range t.stopsForStation {
		stops := t.stopsForStation[node]
		sort.Slice(stops, func(i, j int) bool {
			if stops[i].FeedID != stops[j].FeedID {
				return stops[i].FeedID < stops[j].FeedID
			}
			return stops[i].StopID < stops[j].StopID
		})
	}
	return t
}

// patternKey groups trips visiting the same stops with the same pickup and drop off types.
func patternKey(stopTimes []gtfs.StopTime) string {
	var sb strings.Builder
	for _, st := range stopTimes {
		sb.WriteString(st.StopID)
		sb.WriteByte(0)
		sb.WriteString(strconv.Itoa(st.PickupType))
		sb.WriteByte(0)
		sb.WriteString(strconv.Itoa(st.DropOffType))
		sb.WriteByte(1)
	}
	return sb.String()
}

func shift(stopTimes []*gtfs.StopTime, seconds int) []*gtfs.StopTime {
	shifted := make([]*gtfs.StopTime, len(stopTimes))
	for i, st := range stopTimes {
		if st == nil {
			continue
		}
		c := *st
		c.ArrivalTime += seconds
		c.DepartureTime += seconds
		shifted[i] = &c
	}
	return shifted
}

func (t *Trips) Run(idx int32) *TripRun {
	return t.Runs[idx]
}

// PatternBoardings returns the boardings at a stop, one entry per pattern serving it.
func (t *Trips) PatternBoardings(stop datastructure.FeedIDWithStopID) []PatternBoardings {
	return t.boardingsForStopByPattern[stop]
}

// StopTime resolves a TripAtStopTime to its (possibly frequency shifted) stop time.
func (t *Trips) StopTime(at TripAtStopTime) (*gtfs.StopTime, bool) {
	if at.TripIdx < 0 || int(at.TripIdx) >= len(t.Runs) {
		return nil, false
	}
	return t.Runs[at.TripIdx].StopTime(at.StopSequence)
}

// otherStopsOfStation are the stops sharing a station node with stop, stop itself excluded.
func (t *Trips) otherStopsOfStation(stop datastructure.FeedIDWithStopID) []datastructure.FeedIDWithStopID {
	node, ok := t.st.StationNodes[stop]
	if !ok {
		return nil
	}
	others := make([]datastructure.FeedIDWithStopID, 0)
	for _, s := range t.stopsForStation[node] {
		if s != stop {
			others = append(others, s)
		}
	}
	return others
}
