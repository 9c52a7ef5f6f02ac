package routingalgorithm

import (
	"math"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/util"
)

const (
	defaultMaxVisitedNodes = 200_000
)

type cameFromPair struct {
	Edge   datastructure.StreetEdge
	NodeID int32
}

// ShortestPathBiDijkstra finds the fastest walk from -> to on foot edges. eta is in seconds and dist in meters,
// both are -1 when to is unreachable within the visit budget.
func (rt *RouteAlgorithm) ShortestPathBiDijkstra(from, to int32) ([]datastructure.Coordinate, []datastructure.StreetEdge,
	float64, float64) {
	if from == to {
		return []datastructure.Coordinate{}, []datastructure.StreetEdge{}, 0, 0
	}
	forwQ := datastructure.NewRankedMinHeap[int32]()
	backQ := datastructure.NewRankedMinHeap[int32]()

	df := make(map[int32]float64)
	db := make(map[int32]float64)
	df[from] = 0.0
	db[to] = 0.0

	forwQ.Insert(datastructure.PriorityQueueNode[int32]{Rank: 0, Item: from})
	backQ.Insert(datastructure.PriorityQueueNode[int32]{Rank: 0, Item: to})

	estimate := math.MaxFloat64
	bestCommonVertex := int32(-1)

	cameFromf := make(map[int32]cameFromPair)
	cameFromf[from] = cameFromPair{datastructure.StreetEdge{}, -1}
	cameFromb := make(map[int32]cameFromPair)
	cameFromb[to] = cameFromPair{datastructure.StreetEdge{}, -1}

	visitedCount := 0
	turnF := true
	for visitedCount < rt.maxVisitedNodes {
		minF, okF := forwQ.GetMin()
		minB, okB := backQ.GetMin()
		if !okF && !okB {
			break
		}
		if okF && okB && minF.Rank+minB.Rank >= estimate {
			// path yang belum ditemukan costnya >= top forward + top backward
			break
		}
		if !okF {
			turnF = false
		} else if !okB {
			turnF = true
		}

		frontier, dist, otherDist, cameFrom := forwQ, df, db, cameFromf
		if !turnF {
			frontier, dist, otherDist, cameFrom = backQ, db, df, cameFromb
		}
		backward := !turnF
		turnF = !turnF

		node, _ := frontier.ExtractMin()
		if node.Rank >= estimate {
			continue
		}
		if node.Rank > dist[node.Item] {
			// stale entry, the node was settled with a smaller cost
			continue
		}
		visitedCount++

		for edge := range rt.graph.EdgesAround(node.Item, backward) {
			if !edge.Foot {
				continue
			}
			toNID := edge.To
			if backward {
				toNID = edge.From
			}
			newCost := dist[node.Item] + float64(edge.WeightMillis)
			if cur, ok := dist[toNID]; !ok || newCost < cur {
				dist[toNID] = newCost
				frontier.Insert(datastructure.PriorityQueueNode[int32]{Rank: newCost, Item: toNID})
				cameFrom[toNID] = cameFromPair{edge, node.Item}
			}
			if other, ok := otherDist[toNID]; ok {
				if pathDistance := dist[toNID] + other; pathDistance < estimate {
					// jika toNID visited di search arah lain & d(s,toNID) + d(t,toNID) < cost best candidate path, update
					estimate = pathDistance
					bestCommonVertex = toNID
				}
			}
		}
	}

	if bestCommonVertex == -1 {
		return []datastructure.Coordinate{}, []datastructure.StreetEdge{}, -1, -1
	}
	return rt.createPath(bestCommonVertex, from, to, cameFromf, cameFromb)
}

func (rt *RouteAlgorithm) createPath(commonVertex, from, to int32, cameFromf, cameFromb map[int32]cameFromPair) ([]datastructure.Coordinate,
	[]datastructure.StreetEdge, float64, float64) {
	edgePath := make([]datastructure.StreetEdge, 0)
	v := commonVertex
	for cameFromf[v].NodeID != -1 {
		edgePath = append(edgePath, cameFromf[v].Edge)
		v = cameFromf[v].NodeID
	}
	edgePath = util.ReverseG(edgePath)

	v = commonVertex
	for cameFromb[v].NodeID != -1 {
		edgePath = append(edgePath, cameFromb[v].Edge)
		v = cameFromb[v].NodeID
	}

	eta := 0.0
	dist := 0.0
	node := rt.graph.Node(from)
	path := []datastructure.Coordinate{datastructure.NewCoordinate(node.Lat, node.Lon)}
	for _, e := range edgePath {
		eta += float64(e.WeightMillis) / 1000
		dist += e.DistMeters
		path = append(path, e.Geometry...)
		node = rt.graph.Node(e.To)
		path = append(path, datastructure.NewCoordinate(node.Lat, node.Lon))
	}
	return path, edgePath, eta, dist
}
