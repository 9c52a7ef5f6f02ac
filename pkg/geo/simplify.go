package geo

import (
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
)

// WalkSimplifyTolerance is the default tolerance in meters for SimplifyWalk.
const WalkSimplifyTolerance = 7.0

// SimplifyWalk drops the points of a walk geometry lying within toleranceMeters of the
// line through their kept neighbours (Douglas-Peucker). Both ends are always kept.
func SimplifyWalk(coords []datastructure.Coordinate, toleranceMeters float64) []datastructure.Coordinate {
	if len(coords) < 3 {
		return coords
	}

	keep := make([]bool, len(coords))
	keep[0], keep[len(coords)-1] = true, true

	spans := [][2]int{{0, len(coords) - 1}}
	for len(spans) > 0 {
		span := spans[len(spans)-1]
		spans = spans[:len(spans)-1]

		split, farthest := -1, toleranceMeters
		for i := span[0] + 1; i < span[1]; i++ {
			if d := PointLinePerpendicularDistance(coords[span[0]], coords[span[1]], coords[i]); d > farthest {
				split, farthest = i, d
			}
		}
		if split == -1 {
			continue
		}
		keep[split] = true
		spans = append(spans, [2]int{span[0], split}, [2]int{split, span[1]})
	}

	simplified := make([]datastructure.Coordinate, 0, len(coords))
	for i, c := range coords {
		if keep[i] {
			simplified = append(simplified, c)
		}
	}
	return simplified
}
