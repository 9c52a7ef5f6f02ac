package routingalgorithm

import (
	"testing"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
dari https://jlazarsfeld.github.io/ch.150.project/sections/8-contraction/
p=0, v=1, q=2, w=3, r=4, f=5

	 p
	  \
	   \
	    10
	     \
		  v -----3----- r
		 /            /
		6            5
	   /    		/
	  q ---5----- w ----15---- f

semua edge bidirectional, weight dalam detik
*/
func newStreetGraph() *datastructure.StreetGraph {
	g := datastructure.NewStreetGraph()
	for i := 0; i < 6; i++ {
		// lat nya ku samain sama id nodenya
		g.AddNode(float64(i), 0, int64(i))
	}
	add := func(a, b int32, seconds int64) {
		for _, pair := range [][2]int32{{a, b}, {b, a}} {
			e := g.AddEdge(pair[0], pair[1], float64(seconds), true, "", nil)
			g.Edges[e].WeightMillis = seconds * 1000
		}
	}
	add(0, 1, 10)
	add(1, 4, 3)
	add(1, 2, 6)
	add(2, 3, 5)
	add(4, 3, 5)
	add(3, 5, 15)
	return g
}

func TestShortestPathBidirectionalDijkstra(t *testing.T) {
	rt := NewRouteAlgorithm(newStreetGraph())

	path, edgePath, eta, dist := rt.ShortestPathBiDijkstra(0, 5)
	assert.Equal(t, 33.0, eta)
	assert.Equal(t, 33.0, dist)

	// shortest path nya:  P(0) -> V(1) -> R(4) -> W(3) -> F(5)
	require.Len(t, path, 5)
	assert.Equal(t, float64(0), path[0].Lat)
	assert.Equal(t, float64(1), path[1].Lat)
	assert.Equal(t, float64(4), path[2].Lat)
	assert.Equal(t, float64(3), path[3].Lat)
	assert.Equal(t, float64(5), path[4].Lat)

	require.Len(t, edgePath, 4)
	assert.Equal(t, int32(0), edgePath[0].From)
	assert.Equal(t, int32(1), edgePath[0].To)
	assert.Equal(t, int32(4), edgePath[1].To)
	assert.Equal(t, int32(3), edgePath[2].To)
	assert.Equal(t, int32(5), edgePath[3].To)
}

func TestShortestPathSkipsNonFootEdges(t *testing.T) {
	g := newStreetGraph()
	for i := range g.Edges {
		if (g.Edges[i].From == 1 && g.Edges[i].To == 4) || (g.Edges[i].From == 4 && g.Edges[i].To == 1) {
			g.Edges[i].Foot = false
		}
	}
	rt := NewRouteAlgorithm(g)

	_, edgePath, eta, _ := rt.ShortestPathBiDijkstra(0, 5)
	assert.Equal(t, 36.0, eta)
	require.Len(t, edgePath, 4)
	assert.Equal(t, int32(2), edgePath[1].To)
}

func TestShortestPathUnreachable(t *testing.T) {
	g := newStreetGraph()
	isolated := g.AddNode(9, 9, 9)
	rt := NewRouteAlgorithm(g)

	path, edgePath, eta, dist := rt.ShortestPathBiDijkstra(0, isolated)
	assert.Empty(t, path)
	assert.Empty(t, edgePath)
	assert.Equal(t, -1.0, eta)
	assert.Equal(t, -1.0, dist)

	_, _, eta, _ = rt.ShortestPathBiDijkstra(3, 3)
	assert.Equal(t, 0.0, eta)
}
