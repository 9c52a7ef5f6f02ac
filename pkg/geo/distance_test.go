package geo_test

import (
	"testing"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/geo"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	cases := []struct {
		latOne, longOne, latTwo, longTwo float64
		expectedDist                     float64
	}{
		{
			latOne:       -7.557155997491524,
			longOne:      110.77170252731288,
			latTwo:       -7.550209300671982,
			longTwo:      110.78942094938256,
			expectedDist: 2.1,
		},
		{
			latOne:  -7.546196863318374,
			longOne: 110.7775170972345,

			latTwo:       -7.550209300671982,
			longTwo:      110.78942094938256,
			expectedDist: 1.38,
		},
		{
			latOne:       -7.759889166547908,
			longOne:      110.36689459108496,
			latTwo:       -7.760335932763678,
			longTwo:      110.37671195413539,
			expectedDist: 1.08,
		},
		{
			latOne:       -7.700002453207869,
			longOne:      110.37712514761436,
			latTwo:       -7.760335932763678,
			longTwo:      110.37671195413539,
			expectedDist: 6.7,
		},
	}

	t.Run("success haversine distance", func(t *testing.T) {
		for _, c := range cases {
			dist := geo.CalculateHaversineDistance(c.latOne, c.longOne, c.latTwo, c.longTwo)
			assert.InDelta(t, c.expectedDist, dist, 0.1)
		}
	})
}

func TestDistanceMetersAgreesWithHaversine(t *testing.T) {
	lat1, lon1 := -7.759889166547908, 110.36689459108496
	lat2, lon2 := -7.760335932763678, 110.37671195413539
	km := geo.CalculateHaversineDistance(lat1, lon1, lat2, lon2)
	assert.InDelta(t, km*1000, geo.DistanceMeters(lat1, lon1, lat2, lon2), 5)
}

func TestGetDestinationPoint(t *testing.T) {
	lat, lon := geo.GetDestinationPoint(-7.7956, 110.3695, 90, 1)
	assert.InDelta(t, 1.0, geo.CalculateHaversineDistance(-7.7956, 110.3695, lat, lon), 0.01)
	assert.Greater(t, lon, 110.3695)
}

func TestPointLinePerpendicularDistance(t *testing.T) {
	a := datastructure.NewCoordinate(0, 0)
	b := datastructure.NewCoordinate(0, 0.01)
	p := datastructure.NewCoordinate(0.001, 0.005)
	// 0.001 degree of latitude is about 111 m
	assert.InDelta(t, 111.2, geo.PointLinePerpendicularDistance(a, b, p), 1)
	proj := geo.ProjectPointToLineCoord(a, b, p)
	assert.InDelta(t, 0, proj.Lat, 1e-9)
	assert.InDelta(t, 0.005, proj.Lon, 1e-9)
}

func TestBearingTo(t *testing.T) {
	assert.InDelta(t, 0, geo.BearingTo(-7.80, 110.36, -7.79, 110.36), 1e-6)
	assert.InDelta(t, 90, geo.BearingTo(-7.80, 110.36, -7.80, 110.37), 0.1)
	assert.InDelta(t, 180, geo.BearingTo(-7.79, 110.36, -7.80, 110.36), 1e-6)
	assert.InDelta(t, -90, geo.BearingTo(-7.80, 110.37, -7.80, 110.36), 0.1)
}
