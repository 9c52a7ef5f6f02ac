package transfers

import (
	"math"

	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

// ShortestWalk is the street search behind rule walk times. eta is in seconds at 5 km/h, -1 when unreachable.
type ShortestWalk interface {
	ShortestPathBiDijkstra(from, to int32) ([]datastructure.Coordinate, []datastructure.StreetEdge, float64, float64)
}

// StreetTransferTime gives min_transfer_time rules (type 2) that lack a time the walking time between
// the street nodes of their stops. Every other rule keeps its own min_transfer_time.
func StreetTransferTime(walk ShortestWalk, st *storage.GtfsStorage, walkSpeedKmh float64) builder.TransferTimeFunc {
	if walkSpeedKmh <= 0 {
		walkSpeedKmh = explorer.DefaultWalkSpeedKmh
	}
	return func(feedID string, rule gtfs.Transfer) int {
		if rule.HasMinTransferTime || rule.Type != gtfs.TransferMinTime || rule.FromStopID == rule.ToStopID {
			return rule.MinTransferTime
		}
		from, ok := streetNodeOfStop(st, feedID, rule.FromStopID)
		if !ok {
			return rule.MinTransferTime
		}
		to, ok := streetNodeOfStop(st, feedID, rule.ToStopID)
		if !ok {
			return rule.MinTransferTime
		}
		_, _, eta, _ := walk.ShortestPathBiDijkstra(from, to)
		if eta < 0 {
			return rule.MinTransferTime
		}
		return int(math.Ceil(eta * explorer.DefaultWalkSpeedKmh / walkSpeedKmh))
	}
}

func streetNodeOfStop(st *storage.GtfsStorage, feedID, stopID string) (int32, bool) {
	station, ok := st.StationNode(feedID, stopID)
	if !ok {
		return -1, false
	}
	node, ok := st.PtToStreet[station]
	return node, ok
}
