package guidance

import (
	"math"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/geo"
)

const (
	DEGREE_TO_RADIANS = 0.017453292519943295
)

/*
alternativeTurns. belokan lain yang bisa dilakukan pejalan kaki dari baseNode & bukan ke prevNode/adjNode. Misalkan:

		 |
		 |
	 alternative
		 |
--prev-- B --current---
		 |
		 |
	alternative
		 |

ada 3 belokan yang bisa dilakukan dari baseNode B (current + 2 alternative).
*/ // nolint: gofmt
func (ifs *InstructionsFromSteps) alternativeTurns(baseNode, adjNode, prevNode int32) (int, []datastructure.StreetEdge) {
	alternatives := make([]datastructure.StreetEdge, 0)
	for e := range ifs.graph.EdgesAround(baseNode, false) {
		if !e.Foot || e.To == prevNode || e.To == adjNode {
			continue
		}
		alternatives = append(alternatives, e)
	}
	return 1 + len(alternatives), alternatives
}

// firstPointAfter is the first point of e after its from node, the geometry bends before the next junction.
func (ifs *InstructionsFromSteps) firstPointAfter(e datastructure.StreetEdge) (float64, float64) {
	if len(e.Geometry) > 0 {
		return e.Geometry[0].Lat, e.Geometry[0].Lon
	}
	node := ifs.graph.Node(e.To)
	return node.Lat, node.Lon
}

/*
otherContinueEdge. edge lain dari baseNode yang arahnya continue. Misalkan

				---- current-----

--prev-- baseNode

				----alternative-----

delta bearing antara current dan alternative mendekati 0°
*/ // nolint: gofmt
func (ifs *InstructionsFromSteps) otherContinueEdge(baseLat, baseLon, prevOrientation float64,
	alternatives []datastructure.StreetEdge) (datastructure.StreetEdge, bool) {
	for _, e := range alternatives {
		lat, lon := ifs.firstPointAfter(e)
		if math.Abs(float64(getTurnDirection(baseLat, baseLon, lat, lon, prevOrientation))) <= 1 {
			return e, true
		}
	}
	return datastructure.StreetEdge{}, false
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func toRadians(degrees float64) float64 {
	return degrees * DEGREE_TO_RADIANS
}

func alignOrientation(baseOrientation, orientation float64) float64 {
	var resultOrientation float64
	if baseOrientation >= 0 {
		if orientation < -math.Pi+baseOrientation {
			resultOrientation = orientation + 2*math.Pi
		} else {
			resultOrientation = orientation
		}
	} else if orientation > math.Pi+baseOrientation {
		resultOrientation = orientation - 2*math.Pi
	} else {
		resultOrientation = orientation
	}
	return resultOrientation
}

func isSameName(name1, name2 string) bool {
	if name1 == "" || name2 == "" {
		// footway di osm sering tanpa nama, dianggap beda
		return false
	}
	return name1 == name2
}

func calcOrientation(lat1, lon1, lat2, lon2 float64) float64 {
	return toRadians(geo.BearingTo(lat1, lon1, lat2, lon2))
}

func calculateOrientationDelta(prevLatitude, prevLongitude, latitude, longitude, prevOrientation float64) float64 {
	orientation := calcOrientation(prevLatitude, prevLongitude, latitude, longitude)
	orientation = alignOrientation(prevOrientation, orientation)
	return orientation - prevOrientation
}

func getTurnDirection(prevLatitude, prevLongitude, latitude, longitude, prevOrientation float64) int {
	delta := calculateOrientationDelta(prevLatitude, prevLongitude, latitude, longitude, prevOrientation)
	deltaDegree := math.Abs(delta) * (180 / math.Pi)
	if deltaDegree < 12 {
		return CONTINUE_ON_STREET
	} else if deltaDegree < 40 {
		if delta < 0 {
			return TURN_SLIGHT_LEFT
		}
		return TURN_SLIGHT_RIGHT
	} else if deltaDegree < 105 {
		if delta < 0 {
			return TURN_LEFT
		}
		return TURN_RIGHT
	} else if delta < 0 {
		return TURN_SHARP_LEFT
	}
	return TURN_SHARP_RIGHT
}
