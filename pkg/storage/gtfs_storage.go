package storage

import (
	"sort"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
)

// TripKey identifies one run of a trip within a feed.
type TripKey struct {
	FeedID string
	datastructure.TripDescriptor
}

type PlatformNode struct {
	Node     int32
	Platform datastructure.PlatformDescriptor
}

// InterpolatedTransfer is a walking transfer found on the street network between two platforms.
type InterpolatedTransfer struct {
	FromPlatform datastructure.PlatformDescriptor
	ToPlatform   datastructure.PlatformDescriptor
	StreetTime   int32 // seconds
	SkippedEdges []int32
}

// GtfsStorage is the side information produced next to the transit graph.
type GtfsStorage struct {
	Feeds     map[string]*gtfs.Feed
	Transfers map[string]*gtfs.Transfers

	StationNodes map[datastructure.FeedIDWithStopID]int32
	PtToStreet   map[int32]int32
	StreetToPt   map[int32]int32

	// platform nodes per stop, the getPlatforms lookup
	PlatformsByStop map[datastructure.FeedIDWithStopID][]PlatformNode

	// indexed by stop_sequence, -1 where the trip has no stop
	BoardEdgesForTrip  map[TripKey][]int32
	AlightEdgesForTrip map[TripKey][]int32

	InterpolatedTransfers   map[datastructure.FeedIDWithStopID][]InterpolatedTransfer
	SkippedEdgesForTransfer map[int32][]int32

	validities  map[string]*datastructure.Validity
	feedZones   map[datastructure.FeedIDWithTimezone]*datastructure.FeedIDWithTimezone
	platforms   map[datastructure.PlatformDescriptor]*datastructure.PlatformDescriptor
	descriptors map[datastructure.TripDescriptor]*datastructure.TripDescriptor
}

func NewGtfsStorage() *GtfsStorage {
	return &GtfsStorage{
		Feeds:                   make(map[string]*gtfs.Feed),
		Transfers:               make(map[string]*gtfs.Transfers),
		StationNodes:            make(map[datastructure.FeedIDWithStopID]int32),
		PtToStreet:              make(map[int32]int32),
		StreetToPt:              make(map[int32]int32),
		PlatformsByStop:         make(map[datastructure.FeedIDWithStopID][]PlatformNode),
		BoardEdgesForTrip:       make(map[TripKey][]int32),
		AlightEdgesForTrip:      make(map[TripKey][]int32),
		InterpolatedTransfers:   make(map[datastructure.FeedIDWithStopID][]InterpolatedTransfer),
		SkippedEdgesForTransfer: make(map[int32][]int32),
		validities:              make(map[string]*datastructure.Validity),
		feedZones:               make(map[datastructure.FeedIDWithTimezone]*datastructure.FeedIDWithTimezone),
		platforms:               make(map[datastructure.PlatformDescriptor]*datastructure.PlatformDescriptor),
		descriptors:             make(map[datastructure.TripDescriptor]*datastructure.TripDescriptor),
	}
}

// AddFeed registers a feed and builds its transfer index.
func (s *GtfsStorage) AddFeed(feed *gtfs.Feed) {
	s.Feeds[feed.ID] = feed
	s.Transfers[feed.ID] = gtfs.NewTransfers(feed)
}

func (s *GtfsStorage) FeedIDs() []string {
	ids := make([]string, 0, len(s.Feeds))
	for id := range s.Feeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InternValidity returns the shared instance of an equal validity.
func (s *GtfsStorage) InternValidity(v *datastructure.Validity) *datastructure.Validity {
	key := v.Key()
	if existing, ok := s.validities[key]; ok {
		return existing
	}
	s.validities[key] = v
	return v
}

func (s *GtfsStorage) InternFeedZone(v datastructure.FeedIDWithTimezone) *datastructure.FeedIDWithTimezone {
	if existing, ok := s.feedZones[v]; ok {
		return existing
	}
	p := &v
	s.feedZones[v] = p
	return p
}

func (s *GtfsStorage) InternPlatform(v datastructure.PlatformDescriptor) *datastructure.PlatformDescriptor {
	if existing, ok := s.platforms[v]; ok {
		return existing
	}
	p := &v
	s.platforms[v] = p
	return p
}

func (s *GtfsStorage) InternTripDescriptor(v datastructure.TripDescriptor) *datastructure.TripDescriptor {
	if existing, ok := s.descriptors[v]; ok {
		return existing
	}
	p := &v
	s.descriptors[v] = p
	return p
}

// PutPlatformNode records a platform node of a stop.
func (s *GtfsStorage) PutPlatformNode(node int32, platform datastructure.PlatformDescriptor) {
	key := datastructure.FeedIDWithStopID{FeedID: platform.FeedID, StopID: platform.StopID}
	s.PlatformsByStop[key] = append(s.PlatformsByStop[key], PlatformNode{Node: node, Platform: platform})
}

// Platforms returns the platform nodes of a stop in creation order.
func (s *GtfsStorage) Platforms(feedID, stopID string) []PlatformNode {
	return s.PlatformsByStop[datastructure.FeedIDWithStopID{FeedID: feedID, StopID: stopID}]
}

func (s *GtfsStorage) StationNode(feedID, stopID string) (int32, bool) {
	n, ok := s.StationNodes[datastructure.FeedIDWithStopID{FeedID: feedID, StopID: stopID}]
	return n, ok
}

// StationNodeList returns the distinct station nodes in ascending order.
func (s *GtfsStorage) StationNodeList() []int32 {
	seen := make(map[int32]struct{}, len(s.StationNodes))
	nodes := make([]int32, 0, len(s.StationNodes))
	for _, n := range s.StationNodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// StopsOfStation returns the stops mapped to the station node.
func (s *GtfsStorage) StopsOfStation(node int32) []datastructure.FeedIDWithStopID {
	stops := make([]datastructure.FeedIDWithStopID, 0, 1)
	for k, n := range s.StationNodes {
		if n == node {
			stops = append(stops, k)
		}
	}
	sort.Slice(stops, func(i, j int) bool {
		if stops[i].FeedID != stops[j].FeedID {
			return stops[i].FeedID < stops[j].FeedID
		}
		return stops[i].StopID < stops[j].StopID
	})
	return stops
}

func (s *GtfsStorage) BoardEdges(feedID string, td datastructure.TripDescriptor) []int32 {
	return s.BoardEdgesForTrip[TripKey{FeedID: feedID, TripDescriptor: tripKeyDescriptor(td)}]
}

func (s *GtfsStorage) AlightEdges(feedID string, td datastructure.TripDescriptor) []int32 {
	return s.AlightEdgesForTrip[TripKey{FeedID: feedID, TripDescriptor: tripKeyDescriptor(td)}]
}

// PutTripEdges stores board & alight edges of a trip run.
func (s *GtfsStorage) PutTripEdges(feedID string, td datastructure.TripDescriptor, board, alight []int32) {
	key := TripKey{FeedID: feedID, TripDescriptor: tripKeyDescriptor(td)}
	s.BoardEdgesForTrip[key] = board
	s.AlightEdgesForTrip[key] = alight
}

// trip runs are keyed by trip id & start time only, realtime feeds may omit the route.
func tripKeyDescriptor(td datastructure.TripDescriptor) datastructure.TripDescriptor {
	return datastructure.TripDescriptor{TripID: td.TripID, StartTime: td.StartTime}
}
