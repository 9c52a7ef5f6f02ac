package tripbased

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"time"

	"github.com/bluele/gcache"
	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/concurrent"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
)

const (
	// a transfer waits at most this long for the next departure of a pattern
	DefaultMaxTransferTime = 24 * 60 * 60
	DefaultCacheSize       = 7

	dateLayout = "20060102"
)

// TripTransfers maps an arrival of a trip to the departures worth transferring to.
type TripTransfers map[TripAtStopTime][]TripAtStopTime

type TransferConfig struct {
	MaxTransferTime int // seconds
	// number of service days kept in memory
	CacheSize int
	Workers   int
	// min transfer time of a GTFS rule, rule.MinTransferTime when nil
	TransferTime builder.TransferTimeFunc
}

func (c TransferConfig) withDefaults() TransferConfig {
	if c.MaxTransferTime <= 0 {
		c.MaxTransferTime = DefaultMaxTransferTime
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.TransferTime == nil {
		c.TransferTime = func(_ string, rule gtfs.Transfer) int {
			return rule.MinTransferTime
		}
	}
	return c
}

// TripTransferIndex computes trip transfers per service day. Days are cached in an LRU
// and, when a store is given, persisted so that a restarted engine does not recompute them.
type TripTransferIndex struct {
	trips *Trips
	cfg   TransferConfig
	store *TransferStore
	cache gcache.Cache
	log   logger.Logger
}

func NewTripTransferIndex(trips *Trips, cfg TransferConfig, store *TransferStore, log logger.Logger) *TripTransferIndex {
	idx := &TripTransferIndex{
		trips: trips,
		cfg:   cfg.withDefaults(),
		store: store,
		log:   log,
	}
	idx.cache = gcache.New(idx.cfg.CacheSize).
		LRU().
		LoaderFunc(idx.load).
		Build()
	return idx
}

// TripTransfers returns the trip transfers of the service day containing day.
func (idx *TripTransferIndex) TripTransfers(day time.Time) (TripTransfers, error) {
	v, err := idx.cache.Get(datastructure.CivilDate(day).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("trip transfers of %s: %w", day.Format(time.DateOnly), err)
	}
	return v.(TripTransfers), nil
}

func (idx *TripTransferIndex) load(key interface{}) (interface{}, error) {
	date := key.(string)
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, err
	}
	if idx.store != nil {
		tt, err := idx.store.Load(date)
		if err == nil {
			idx.log.Debug("trip transfers loaded", "date", date, "origins", len(tt))
			return tt, nil
		}
		if !errors.Is(err, ErrNotFound) {
			idx.log.Warn("load trip transfers", "date", date, "error", err)
		}
	}

	start := time.Now()
	tt := idx.FindAllTripTransfers(day)
	idx.log.Info("trip transfers computed", "date", date, "origins", len(tt), "took", time.Since(start).String())
	if idx.store != nil {
		if err := idx.store.Save(date, tt); err != nil {
			idx.log.Warn("save trip transfers", "date", date, "error", err)
		}
	}
	return tt, nil
}

// FindAllTripTransfers computes the transfers of every trip running on day, one worker job per trip.
func (idx *TripTransferIndex) FindAllTripTransfers(day time.Time) TripTransfers {
	active := make([]*TripRun, 0)
	for _, run := range idx.trips.Runs {
		if run.ActiveOn(day) {
			active = append(active, run)
		}
	}

	workers := concurrent.NewWorkerPool[concurrent.TripTransfersJobItem, TripTransfers](idx.cfg.Workers, len(active))
	for _, run := range active {
		workers.AddJob(concurrent.NewTripTransfersJobItem(run.FeedID, int(run.Idx)))
	}
	workers.Close()
	workers.Start(func(job concurrent.TripTransfersJobItem) TripTransfers {
		return idx.findTripTransfers(idx.trips.Run(int32(job.TripIdx)), day)
	})
	workers.Wait()

	result := make(TripTransfers)
	for tt := range workers.CollectResults() {
		maps.Copy(result, tt)
	}
	return result
}

// findTripTransfers walks the trip backwards. arrivalTimes holds the earliest known arrival per stop,
// a transfer is kept only if the departure it leads to improves one of them.
func (idx *TripTransferIndex) findTripTransfers(run *TripRun, day time.Time) TripTransfers {
	st := idx.trips.st
	result := make(TripTransfers)
	first := firstStopSequence(run)

	arrivalTimes := make(map[datastructure.FeedIDWithStopID]int)
	for seq := len(run.StopTimes) - 1; seq > first; seq-- {
		stopTime := run.StopTimes[seq]
		if stopTime == nil {
			continue
		}
		stop := datastructure.FeedIDWithStopID{FeedID: run.FeedID, StopID: stopTime.StopID}
		improve(arrivalTimes, stop, stopTime.ArrivalTime)
		for _, it := range st.InterpolatedTransfers[stop] {
			improve(arrivalTimes, platformStop(it.ToPlatform), stopTime.ArrivalTime+int(it.StreetTime))
		}
	}

	transfers := st.Transfers[run.FeedID]
	for seq := len(run.StopTimes) - 1; seq > first; seq-- {
		stopTime := run.StopTimes[seq]
		if stopTime == nil {
			continue
		}
		origin := TripAtStopTime{FeedID: run.FeedID, TripIdx: run.Idx, StopSequence: int32(seq)}
		destinations := make([]TripAtStopTime, 0)
		stop := datastructure.FeedIDWithStopID{FeedID: run.FeedID, StopID: stopTime.StopID}

		rulesByToStop := make(map[string][]gtfs.Transfer)
		toStops := make([]string, 0)
		if transfers != nil {
			for _, rule := range transfers.TransfersFromStop(stopTime.StopID, run.Trip.RouteID) {
				if _, ok := rulesByToStop[rule.ToStopID]; !ok {
					toStops = append(toStops, rule.ToStopID)
				}
				rulesByToStop[rule.ToStopID] = append(rulesByToStop[rule.ToStopID], rule)
			}
		}
		if _, ok := rulesByToStop[stopTime.StopID]; !ok {
			destinations = idx.insertTripTransfers(day, arrivalTimes, run, stopTime, destinations, stop, 0, nil)
		}
		for _, toStop := range toStops {
			destinations = idx.insertTripTransfers(day, arrivalTimes, run, stopTime, destinations,
				datastructure.FeedIDWithStopID{FeedID: run.FeedID, StopID: toStop}, 0, rulesByToStop[toStop])
		}
		for _, other := range idx.trips.otherStopsOfStation(stop) {
			destinations = idx.insertTripTransfers(day, arrivalTimes, run, stopTime, destinations, other, 0, nil)
		}
		for _, it := range st.InterpolatedTransfers[stop] {
			destinations = idx.insertTripTransfers(day, arrivalTimes, run, stopTime, destinations,
				platformStop(it.ToPlatform), int(it.StreetTime), nil)
		}
		result[origin] = destinations
	}
	return result
}

// insertTripTransfers takes, per pattern serving boardingStop, the first departure reachable after the arrival.
func (idx *TripTransferIndex) insertTripTransfers(day time.Time, arrivalTimes map[datastructure.FeedIDWithStopID]int,
	run *TripRun, arrival *gtfs.StopTime, destinations []TripAtStopTime, boardingStop datastructure.FeedIDWithStopID,
	streetTime int, rules []gtfs.Transfer) []TripAtStopTime {
	offset := zoneOffset(day, arrival.ArrivalTime, run.Zone, idx.feedZone(boardingStop.FeedID))
	earliestDepartureTime := arrival.ArrivalTime + streetTime

	for _, pb := range idx.trips.PatternBoardings(boardingStop) {
		for _, candidate := range pb.Boardings {
			trip := idx.trips.Run(candidate.TripIdx)
			earliestForThisDestination := earliestDepartureTime
			for _, rule := range rules {
				if rule.ToRouteID == "" || rule.ToRouteID == trip.Trip.RouteID {
					earliestForThisDestination = max(earliestForThisDestination,
						earliestDepartureTime+idx.cfg.TransferTime(run.FeedID, rule))
				}
			}
			departure := trip.StopTimes[candidate.StopSequence]
			if departure.DepartureTime-offset >= arrival.ArrivalTime+idx.cfg.MaxTransferTime {
				break
			}
			if !trip.ActiveOn(day) || departure.DepartureTime-offset < earliestForThisDestination {
				continue
			}

			keep := false
			overnight := false
			for i := int(candidate.StopSequence); i < len(trip.StopTimes); i++ {
				destination := trip.StopTimes[i]
				if destination == nil {
					continue
				}
				destinationArrivalTime := destination.ArrivalTime - offset
				if i == int(candidate.StopSequence) {
					if destinationArrivalTime < earliestDepartureTime {
						overnight = true
					}
					continue
				}
				if overnight {
					destinationArrivalTime += datastructure.SecondsPerDay
				}
				stop := datastructure.FeedIDWithStopID{FeedID: trip.FeedID, StopID: destination.StopID}
				if improve(arrivalTimes, stop, destinationArrivalTime) {
					keep = true
				}
			}
			if keep {
				destinations = append(destinations, candidate)
			}
			// next pattern
			break
		}
	}
	return destinations
}

func (idx *TripTransferIndex) feedZone(feedID string) *time.Location {
	feed, ok := idx.trips.st.Feeds[feedID]
	if !ok {
		return time.UTC
	}
	return feed.Timezone()
}

// improve lowers arrivalTimes[stop] to t and reports whether it did.
func improve(arrivalTimes map[datastructure.FeedIDWithStopID]int, stop datastructure.FeedIDWithStopID, t int) bool {
	if cur, ok := arrivalTimes[stop]; ok && cur <= t {
		return false
	}
	arrivalTimes[stop] = t
	return true
}

func platformStop(p datastructure.PlatformDescriptor) datastructure.FeedIDWithStopID {
	return datastructure.FeedIDWithStopID{FeedID: p.FeedID, StopID: p.StopID}
}

func firstStopSequence(run *TripRun) int {
	for seq, st := range run.StopTimes {
		if st != nil {
			return seq
		}
	}
	return len(run.StopTimes)
}

// zoneOffset is the difference in seconds between the same wall clock time of day in the two zones.
func zoneOffset(day time.Time, seconds int, from, to *time.Location) int {
	if from == nil || to == nil || from == to {
		return 0
	}
	y, m, d := day.Date()
	a := time.Date(y, m, d, 0, 0, seconds, 0, from)
	b := time.Date(y, m, d, 0, 0, seconds, 0, to)
	return int(a.Unix() - b.Unix())
}
