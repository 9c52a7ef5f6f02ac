package geo

import (
	"testing"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/stretchr/testify/assert"
)

func TestSimplifyWalk(t *testing.T) {
	t.Run("almost straight walk keeps its ends", func(t *testing.T) {
		walk := []datastructure.Coordinate{
			{Lat: -7.565837, Lon: 110.831586},
			{Lat: -7.566063, Lon: 110.832379},
			{Lat: -7.566406, Lon: 110.833232},
		}
		assert.Equal(t, []datastructure.Coordinate{walk[0], walk[2]}, SimplifyWalk(walk, WalkSimplifyTolerance))
	})

	t.Run("corner is kept", func(t *testing.T) {
		walk := []datastructure.Coordinate{
			{Lat: 0, Lon: 0},
			{Lat: 0, Lon: 0.001},
			{Lat: 0.001, Lon: 0.001},
		}
		assert.Equal(t, walk, SimplifyWalk(walk, WalkSimplifyTolerance))
	})

	t.Run("zero tolerance keeps every bend", func(t *testing.T) {
		walk := []datastructure.Coordinate{
			{Lat: 0, Lon: 0},
			{Lat: 0.00001, Lon: 0.001},
			{Lat: 0, Lon: 0.002},
			{Lat: 0, Lon: 0.003},
		}
		assert.Equal(t, walk, SimplifyWalk(walk, 0))
		assert.Equal(t, []datastructure.Coordinate{walk[0], walk[3]}, SimplifyWalk(walk, 5))
	})

	t.Run("short walks are returned unchanged", func(t *testing.T) {
		single := []datastructure.Coordinate{{Lat: 1, Lon: 2}}
		assert.Equal(t, single, SimplifyWalk(single, WalkSimplifyTolerance))
		pair := []datastructure.Coordinate{{Lat: 1, Lon: 2}, {Lat: 1, Lon: 2.001}}
		assert.Equal(t, pair, SimplifyWalk(pair, WalkSimplifyTolerance))
	})
}
