package concurrent

// InterpolateStationJobItem is one station node whose walking transfers are searched.
type InterpolateStationJobItem struct {
	StationNode int32
}

func NewInterpolateStationJobItem(stationNode int32) InterpolateStationJobItem {
	return InterpolateStationJobItem{StationNode: stationNode}
}

// TripTransfersJobItem is one trip of a feed whose trip transfers are computed for a service day.
type TripTransfersJobItem struct {
	FeedID  string
	TripIdx int
}

func NewTripTransfersJobItem(feedID string, tripIdx int) TripTransfersJobItem {
	return TripTransfersJobItem{FeedID: feedID, TripIdx: tripIdx}
}

type JobI interface {
	[]int32 | InterpolateStationJobItem | TripTransfersJobItem
}

type Job[T JobI] struct {
	ID      int
	JobItem T
}
type JobFunc[T JobI, G any] func(job T) G
