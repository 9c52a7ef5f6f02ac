package datastructure

import (
	"fmt"
	"iter"
	"os"

	"github.com/kelindar/binary"
)

// walking time per meter at 5 km/h
const millisPerMeterAt5Kmh = 720.0

type StreetNode struct {
	Lat   float64
	Lon   float64
	OsmID int64
}

// StreetEdge is a directed foot edge. WeightMillis is the walking time at 5 km/h.
type StreetEdge struct {
	ID           int32
	From         int32
	To           int32
	DistMeters   float64
	WeightMillis int64
	Foot         bool
	StreetName   string
	Geometry     []Coordinate
}

// StreetGraph is the foot network: flat node & edge arrays with per node adjacency lists.
type StreetGraph struct {
	Nodes    []StreetNode
	Edges    []StreetEdge
	OutEdges [][]int32
	InEdges  [][]int32
}

func NewStreetGraph() *StreetGraph {
	return &StreetGraph{
		Nodes:    make([]StreetNode, 0),
		Edges:    make([]StreetEdge, 0),
		OutEdges: make([][]int32, 0),
		InEdges:  make([][]int32, 0),
	}
}

func (g *StreetGraph) AddNode(lat, lon float64, osmID int64) int32 {
	g.Nodes = append(g.Nodes, StreetNode{Lat: lat, Lon: lon, OsmID: osmID})
	g.OutEdges = append(g.OutEdges, nil)
	g.InEdges = append(g.InEdges, nil)
	return int32(len(g.Nodes) - 1)
}

// AddEdge appends a directed edge. Walking is allowed in both directions of every way,
// so callers add the reverse edge themselves.
func (g *StreetGraph) AddEdge(from, to int32, distMeters float64, foot bool, streetName string, geometry []Coordinate) int32 {
	id := int32(len(g.Edges))
	g.Edges = append(g.Edges, StreetEdge{
		ID:           id,
		From:         from,
		To:           to,
		DistMeters:   distMeters,
		WeightMillis: int64(distMeters * millisPerMeterAt5Kmh),
		Foot:         foot,
		StreetName:   streetName,
		Geometry:     geometry,
	})
	g.OutEdges[from] = append(g.OutEdges[from], id)
	g.InEdges[to] = append(g.InEdges[to], id)
	return id
}

func (g *StreetGraph) NodeCount() int32 {
	return int32(len(g.Nodes))
}

func (g *StreetGraph) EdgeCount() int32 {
	return int32(len(g.Edges))
}

func (g *StreetGraph) Node(id int32) StreetNode {
	return g.Nodes[id]
}

func (g *StreetGraph) Edge(id int32) StreetEdge {
	return g.Edges[id]
}

// EdgesAround yields the out edges of node, or its in edges when reverse.
func (g *StreetGraph) EdgesAround(node int32, reverse bool) iter.Seq[StreetEdge] {
	return func(yield func(StreetEdge) bool) {
		if node < 0 || int(node) >= len(g.Nodes) {
			return
		}
		adj := g.OutEdges[node]
		if reverse {
			adj = g.InEdges[node]
		}
		for _, e := range adj {
			if !yield(g.Edges[e]) {
				return
			}
		}
	}
}

type streetGraphFile struct {
	Nodes []StreetNode
	Edges []StreetEdge
}

// SaveToFile writes the graph as zstd compressed kelindar/binary.
func (g *StreetGraph) SaveToFile(path string) error {
	bb, err := binary.Marshal(streetGraphFile{Nodes: g.Nodes, Edges: g.Edges})
	if err != nil {
		return fmt.Errorf("encode street graph: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := CompressTo(f, bb); err != nil {
		return fmt.Errorf("compress street graph: %w", err)
	}
	return f.Sync()
}

func LoadStreetGraph(path string) (*StreetGraph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	bb, err := DecompressFrom(file)
	if err != nil {
		return nil, fmt.Errorf("decompress street graph: %w", err)
	}
	var f streetGraphFile
	if err := binary.Unmarshal(bb, &f); err != nil {
		return nil, fmt.Errorf("decode street graph: %w", err)
	}

	g := NewStreetGraph()
	g.Nodes = f.Nodes
	g.Edges = f.Edges
	g.OutEdges = make([][]int32, len(f.Nodes))
	g.InEdges = make([][]int32, len(f.Nodes))
	for _, e := range f.Edges {
		g.OutEdges[e.From] = append(g.OutEdges[e.From], e.ID)
		g.InEdges[e.To] = append(g.InEdges[e.To], e.ID)
	}
	return g, nil
}
