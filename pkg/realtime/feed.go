package realtime

import (
	"fmt"
	"sort"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"
	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

const DefaultStaleAfter = 24 * time.Hour

// Feed is an immutable realtime snapshot layered over the static transit graph.
// Edges and nodes it adds are numbered after the static ones. A nil Feed behaves like an empty one.
type Feed struct {
	id         string
	static     *storage.GtfsStorage
	graph      *ptgraph.PtGraph
	messages   map[string]*gtfsrt.FeedMessage
	timestamp  time.Time
	staleAfter time.Duration

	blockedEdges         map[int32]struct{}
	delaysForBoardEdges  map[int32]int64 // millis
	delaysForAlightEdges map[int32]int64

	additionalEdges       map[int32]ptgraph.PtEdge
	additionalEdgesByBase []ptgraph.PtEdge // sorted by (BaseNode, ID)
	additionalEdgesByAdj  []ptgraph.PtEdge // sorted by (AdjNode, ID)
	nodeCount             int32
}

type Option func(*Feed)

// WithStaleAfter sets how long after the feed timestamp its delays still apply.
func WithStaleAfter(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.staleAfter = d
		}
	}
}

// Empty is a snapshot without updates.
func Empty(static *storage.GtfsStorage, graph *ptgraph.PtGraph) *Feed {
	return newFeed(static, graph, map[string]*gtfsrt.FeedMessage{}, time.Now())
}

func newFeed(static *storage.GtfsStorage, graph *ptgraph.PtGraph, messages map[string]*gtfsrt.FeedMessage, timestamp time.Time) *Feed {
	return &Feed{
		id:                   uuid.NewString(),
		static:               static,
		graph:                graph,
		messages:             messages,
		timestamp:            timestamp,
		staleAfter:           DefaultStaleAfter,
		blockedEdges:         make(map[int32]struct{}),
		delaysForBoardEdges:  make(map[int32]int64),
		delaysForAlightEdges: make(map[int32]int64),
		additionalEdges:      make(map[int32]ptgraph.PtEdge),
		nodeCount:            graph.NodeCount(),
	}
}

// FromProtobuf applies the trip updates of every feed message, keyed by static feed id, to
// an overlay of the static graph. Neither graph nor static is modified.
func FromProtobuf(static *storage.GtfsStorage, graph *ptgraph.PtGraph, feeds map[string]*gtfsrt.FeedMessage,
	log logger.Logger, opts ...Option) *Feed {
	f := newFeed(static, graph, feeds, feedTimestampOrNow(feeds))
	for _, opt := range opts {
		opt(f)
	}
	overlay := newOverlayGraph(graph)

	feedIDs := make([]string, 0, len(feeds))
	for id := range feeds {
		feedIDs = append(feedIDs, id)
	}
	sort.Strings(feedIDs)

	for _, feedID := range feedIDs {
		message := feeds[feedID]
		staticFeed, ok := static.Feeds[feedID]
		if !ok {
			log.Warn("realtime feed without static feed", "feed", feedID)
			continue
		}
		zone := staticFeed.Timezone()
		reader, err := builder.NewGtfsReader(feedID, graph, overlay, static, nil, nil, log)
		if err != nil {
			log.Error("creating realtime reader", "feed", feedID, "error", err)
			continue
		}

		timestamp := time.Unix(int64(message.GetHeader().GetTimestamp()), 0)
		if message.GetHeader().Timestamp == nil {
			timestamp = time.Now()
		}
		day := datastructure.DaysBetween(staticFeed.StartDate, timestamp.In(zone))
		if day < 0 {
			log.Warn("realtime feed before static feed start", "feed", feedID, "timestamp", timestamp)
			continue
		}
		validOnDay := bitset.New(uint(staticFeed.NumDays()))
		validOnDay.Set(uint(day))

		u := updater{feed: f, feedID: feedID, staticFeed: staticFeed, reader: reader, zone: zone, validOnDay: validOnDay, log: log}
		for _, entity := range message.GetEntity() {
			tu := entity.GetTripUpdate()
			if tu == nil {
				continue
			}
			switch tu.GetTrip().GetScheduleRelationship() {
			case gtfsrt.TripDescriptor_SCHEDULED:
				u.updateScheduledTrip(tu)
			case gtfsrt.TripDescriptor_CANCELED:
				u.cancelTrip(tu)
			}
		}
		for _, entity := range message.GetEntity() {
			tu := entity.GetTripUpdate()
			if tu != nil && tu.GetTrip().GetScheduleRelationship() == gtfsrt.TripDescriptor_ADDED {
				u.addExtraTrip(tu)
			}
		}
		reader.WireUpAdditionalDeparturesAndArrivals(zone)
	}

	f.setAdditionalEdges(overlay.edges, overlay.nextNode)
	return f
}

func feedTimestampOrNow(feeds map[string]*gtfsrt.FeedMessage) time.Time {
	ids := make([]string, 0, len(feeds))
	for id := range feeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if ts := feeds[id].GetHeader().Timestamp; ts != nil {
			return time.Unix(int64(*ts), 0)
		}
	}
	return time.Now()
}

func (f *Feed) setAdditionalEdges(edges []ptgraph.PtEdge, nodeCount int32) {
	f.nodeCount = nodeCount
	f.additionalEdgesByBase = make([]ptgraph.PtEdge, len(edges))
	copy(f.additionalEdgesByBase, edges)
	sort.Slice(f.additionalEdgesByBase, func(i, j int) bool {
		a, b := f.additionalEdgesByBase[i], f.additionalEdgesByBase[j]
		if a.BaseNode != b.BaseNode {
			return a.BaseNode < b.BaseNode
		}
		return a.ID < b.ID
	})
	f.additionalEdgesByAdj = make([]ptgraph.PtEdge, len(edges))
	copy(f.additionalEdgesByAdj, edges)
	sort.Slice(f.additionalEdgesByAdj, func(i, j int) bool {
		a, b := f.additionalEdgesByAdj[i], f.additionalEdgesByAdj[j]
		if a.AdjNode != b.AdjNode {
			return a.AdjNode < b.AdjNode
		}
		return a.ID < b.ID
	})
	for _, e := range edges {
		f.additionalEdges[e.ID] = e
	}
}

// ID identifies the snapshot.
func (f *Feed) ID() string {
	if f == nil {
		return ""
	}
	return f.id
}

func (f *Feed) Timestamp() time.Time {
	if f == nil {
		return time.Time{}
	}
	return f.timestamp
}

func (f *Feed) IsBlocked(edgeID int32) bool {
	if f == nil {
		return false
	}
	_, ok := f.blockedEdges[edgeID]
	return ok
}

// DelayForBoardEdge is the departure delay in millis, 0 once the snapshot is stale at now.
func (f *Feed) DelayForBoardEdge(edgeID int32, now time.Time) int64 {
	if f == nil || !f.isAboutThisLineRun(now) {
		return 0
	}
	return f.delaysForBoardEdges[edgeID]
}

// DelayForAlightEdge is the arrival delay in millis, 0 once the snapshot is stale at now.
func (f *Feed) DelayForAlightEdge(edgeID int32, now time.Time) int64 {
	if f == nil || !f.isAboutThisLineRun(now) {
		return 0
	}
	return f.delaysForAlightEdges[edgeID]
}

func (f *Feed) isAboutThisLineRun(now time.Time) bool {
	return now.Sub(f.timestamp) <= f.staleAfter
}

// AdditionalEdgesFrom returns the overlay edges leaving node, ordered by id.
func (f *Feed) AdditionalEdgesFrom(node int32) []ptgraph.PtEdge {
	if f == nil {
		return nil
	}
	lo := sort.Search(len(f.additionalEdgesByBase), func(i int) bool { return f.additionalEdgesByBase[i].BaseNode >= node })
	hi := sort.Search(len(f.additionalEdgesByBase), func(i int) bool { return f.additionalEdgesByBase[i].BaseNode > node })
	return f.additionalEdgesByBase[lo:hi]
}

// AdditionalEdgesTo returns the overlay edges entering node, ordered by id, with base and adj
// swapped like ptgraph.PtGraph.BackEdgesAround.
func (f *Feed) AdditionalEdgesTo(node int32) []ptgraph.PtEdge {
	if f == nil {
		return nil
	}
	lo := sort.Search(len(f.additionalEdgesByAdj), func(i int) bool { return f.additionalEdgesByAdj[i].AdjNode >= node })
	hi := sort.Search(len(f.additionalEdgesByAdj), func(i int) bool { return f.additionalEdgesByAdj[i].AdjNode > node })
	edges := make([]ptgraph.PtEdge, 0, hi-lo)
	for _, e := range f.additionalEdgesByAdj[lo:hi] {
		e.BaseNode, e.AdjNode = e.AdjNode, e.BaseNode
		edges = append(edges, e)
	}
	return edges
}

func (f *Feed) AdditionalEdgeCount() int {
	if f == nil {
		return 0
	}
	return len(f.additionalEdgesByBase)
}

// Edge looks an edge up in the overlay first, then in the static graph.
func (f *Feed) Edge(id int32) (ptgraph.PtEdge, error) {
	if f == nil {
		return ptgraph.PtEdge{}, fmt.Errorf("edge %d: %w", id, ptgraph.ErrOutOfRange)
	}
	if e, ok := f.additionalEdges[id]; ok {
		return e, nil
	}
	return f.graph.Edge(id)
}

// NodeCount is the number of static plus overlay nodes.
func (f *Feed) NodeCount() int32 {
	if f == nil {
		return 0
	}
	return f.nodeCount
}

// TripUpdate returns the realtime stop times of the trip run, if the snapshot has any for boardTime.
func (f *Feed) TripUpdate(feedID string, td datastructure.TripDescriptor, boardTime time.Time) (builder.TripWithStopTimes, bool) {
	if f == nil || !f.isAboutThisLineRun(boardTime) {
		return builder.TripWithStopTimes{}, false
	}
	message, ok := f.messages[feedID]
	if !ok {
		return builder.TripWithStopTimes{}, false
	}
	staticFeed, ok := f.static.Feeds[feedID]
	if !ok {
		return builder.TripWithStopTimes{}, false
	}
	for _, entity := range message.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil || !isDescribedBy(td, tu.GetTrip()) {
			continue
		}
		trip, err := toTripWithStopTimes(staticFeed, tu)
		if err != nil {
			return builder.TripWithStopTimes{}, false
		}
		return trip, true
	}
	return builder.TripWithStopTimes{}, false
}

// StopTime is the realtime stop time of the trip run when the snapshot has one, else the scheduled one.
func (f *Feed) StopTime(feedID string, td datastructure.TripDescriptor, boardTime time.Time, stopSequence int) (gtfs.StopTime, bool) {
	if trip, ok := f.TripUpdate(feedID, td, boardTime); ok {
		for _, st := range trip.StopTimes {
			if st.StopSequence == stopSequence {
				return st, true
			}
		}
	}
	if f == nil {
		return gtfs.StopTime{}, false
	}
	staticFeed, ok := f.static.Feeds[feedID]
	if !ok {
		return gtfs.StopTime{}, false
	}
	return staticFeed.StopTime(td.TripID, stopSequence)
}

// isDescribedBy matches a trip run of the graph with the descriptor of an update.
func isDescribedBy(td datastructure.TripDescriptor, update *gtfsrt.TripDescriptor) bool {
	if td.TripID != "" && td.TripID != update.GetTripId() {
		return false
	}
	if td.StartTime != "" && td.StartTime != update.GetStartTime() {
		return false
	}
	return true
}
