package datastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallStreetGraph() *StreetGraph {
	g := NewStreetGraph()
	a := g.AddNode(-7.55, 110.82, 1)
	b := g.AddNode(-7.551, 110.82, 2)
	c := g.AddNode(-7.552, 110.82, 3)
	g.AddEdge(a, b, 100, true, "Jalan Slamet Riyadi", nil)
	g.AddEdge(b, a, 100, true, "Jalan Slamet Riyadi", nil)
	g.AddEdge(b, c, 50, false, "Tol", nil)
	return g
}

func TestStreetGraphEdgesAround(t *testing.T) {
	g := smallStreetGraph()

	out := []int32{}
	for e := range g.EdgesAround(1, false) {
		out = append(out, e.To)
	}
	assert.ElementsMatch(t, []int32{0, 2}, out)

	in := []int32{}
	for e := range g.EdgesAround(1, true) {
		in = append(in, e.From)
	}
	assert.Equal(t, []int32{0}, in)

	assert.Equal(t, int64(72000), g.Edge(0).WeightMillis)

	count := 0
	for range g.EdgesAround(42, false) {
		count++
	}
	assert.Equal(t, 0, count)
}

func TestStreetGraphSaveLoad(t *testing.T) {
	g := smallStreetGraph()
	path := filepath.Join(t.TempDir(), "street.graph")
	require.NoError(t, g.SaveToFile(path))

	loaded, err := LoadStreetGraph(path)
	require.NoError(t, err)
	assert.Equal(t, g.NodeCount(), loaded.NodeCount())
	assert.Equal(t, g.EdgeCount(), loaded.EdgeCount())
	assert.Equal(t, g.OutEdges[1], loaded.OutEdges[1])
	assert.Equal(t, g.Edge(2).StreetName, loaded.Edge(2).StreetName)
	assert.False(t, loaded.Edge(2).Foot)
}
