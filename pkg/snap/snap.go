package snap

import (
	"errors"
	"fmt"
	"math"

	"github.com/lintang-b-s/navigatorx-pt/pkg/geo"
	"github.com/lintang-b-s/navigatorx-pt/pkg/kv"
)

var (
	ErrNoStreetNode = errors.New("no street node near the point")
)

type StreetNodeIndex interface {
	GetNearestStreetNodes(lat, lon float64) ([]kv.KVStreetNode, error)
}

// StreetSnapper finds the closest foot street node of a coordinate.
type StreetSnapper struct {
	index       StreetNodeIndex
	maxDistance float64 // meters, 0 for no limit
}

func NewStreetSnapper(index StreetNodeIndex, maxDistanceMeters float64) *StreetSnapper {
	return &StreetSnapper{index: index, maxDistance: maxDistanceMeters}
}

// SnapToStreetNode returns the closest indexed street node and its distance in meters.
func (s *StreetSnapper) SnapToStreetNode(lat, lon float64) (int32, float64, error) {
	candidates, err := s.index.GetNearestStreetNodes(lat, lon)
	if errors.Is(err, kv.ErrNotFound) {
		return -1, 0, fmt.Errorf("%f,%f: %w", lat, lon, ErrNoStreetNode)
	}
	if err != nil {
		return -1, 0, err
	}

	best := int32(-1)
	bestDist := math.MaxFloat64
	for _, c := range candidates {
		d := geo.DistanceMeters(lat, lon, c.Lat, c.Lon)
		if d < bestDist || (d == bestDist && c.ID < best) {
			best = c.ID
			bestDist = d
		}
	}
	if best == -1 || (s.maxDistance > 0 && bestDist > s.maxDistance) {
		return -1, 0, fmt.Errorf("%f,%f: %w", lat, lon, ErrNoStreetNode)
	}
	return best, bestDist, nil
}
