package snap

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/lintang-b-s/navigatorx-pt/pkg/geo"
)

const pointTolerance = 1e-9

// Station is a stop indexed by location.
type Station struct {
	Node   int32   `json:"node"`
	FeedID string  `json:"feed_id"`
	StopID string  `json:"stop_id"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

type stationLeaf struct {
	station Station
	rect    rtreego.Rect
}

func (l *stationLeaf) Bounds() rtreego.Rect {
	return l.rect
}

// StationIndex is an r-tree over the stops of all feeds.
type StationIndex struct {
	tree  *rtreego.Rtree
	count int
}

func NewStationIndex() *StationIndex {
	return &StationIndex{tree: rtreego.NewTree(2, 25, 50)}
}

func (si *StationIndex) Insert(st Station) {
	si.tree.Insert(&stationLeaf{station: st, rect: rtreego.Point{st.Lat, st.Lon}.ToRect(pointTolerance)})
	si.count++
}

func (si *StationIndex) Size() int {
	return si.count
}

// Nearest returns up to k stations ordered by distance.
func (si *StationIndex) Nearest(lat, lon float64, k int) []Station {
	if si.count == 0 || k <= 0 {
		return []Station{}
	}
	found := si.tree.NearestNeighbors(k, rtreego.Point{lat, lon})
	stations := make([]Station, 0, len(found))
	for _, s := range found {
		if s == nil {
			continue
		}
		stations = append(stations, s.(*stationLeaf).station)
	}
	sortByDistance(stations, lat, lon)
	return stations
}

// WithinRadius returns the stations at most radiusKm away, nearest first.
func (si *StationIndex) WithinRadius(lat, lon, radiusKm float64) []Station {
	upperRightLat, upperRightLon := geo.GetDestinationPoint(lat, lon, 45, radiusKm*1.5)
	lowerLeftLat, lowerLeftLon := geo.GetDestinationPoint(lat, lon, 225, radiusKm*1.5)
	bound, err := rtreego.NewRectFromPoints(rtreego.Point{lowerLeftLat, lowerLeftLon}, rtreego.Point{upperRightLat, upperRightLon})
	if err != nil {
		return []Station{}
	}

	stations := make([]Station, 0)
	for _, s := range si.tree.SearchIntersect(bound) {
		st := s.(*stationLeaf).station
		if geo.CalculateHaversineDistance(lat, lon, st.Lat, st.Lon) <= radiusKm {
			stations = append(stations, st)
		}
	}
	sortByDistance(stations, lat, lon)
	return stations
}

func sortByDistance(stations []Station, lat, lon float64) {
	sort.SliceStable(stations, func(i, j int) bool {
		di := geo.DistanceMeters(lat, lon, stations[i].Lat, stations[i].Lon)
		dj := geo.DistanceMeters(lat, lon, stations[j].Lat, stations[j].Lon)
		if di != dj {
			return di < dj
		}
		return stations[i].Node < stations[j].Node
	})
}
