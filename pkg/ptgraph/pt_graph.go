package ptgraph

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
)

var (
	ErrOutOfRange = errors.New("id out of range")
)

const (
	nodeSlots = 2 // outHead, inHead
	edgeSlots = 4 // nodeA, nodeB, linkA, linkB
	noEdge    = int32(-1)
)

// PtEdge is an edge as seen from BaseNode.
type PtEdge struct {
	ID       int32
	BaseNode int32
	AdjNode  int32
	Attrs    datastructure.PtEdgeAttributes
}

// PtGraph is the append only transit graph. Nodes and edges are kept in flat int32 arrays,
// each edge is threaded on the out list of nodeA and the in list of nodeB.
type PtGraph struct {
	nodes []int32
	edges []int32
	attrs []datastructure.PtEdgeAttributes
}

func NewPtGraph() *PtGraph {
	return &PtGraph{
		nodes: make([]int32, 0),
		edges: make([]int32, 0),
		attrs: make([]datastructure.PtEdgeAttributes, 0),
	}
}

func (g *PtGraph) NodeCount() int32 {
	return int32(len(g.nodes) / nodeSlots)
}

func (g *PtGraph) EdgeCount() int32 {
	return int32(len(g.edges) / edgeSlots)
}

func (g *PtGraph) CreateNode() int32 {
	g.nodes = append(g.nodes, noEdge, noEdge)
	return g.NodeCount() - 1
}

// CreateEdge prepends the edge to from's out list and, unless it is a loop, to to's in list.
// It panics with ErrOutOfRange if either node does not exist yet.
func (g *PtGraph) CreateEdge(from, to int32, attrs datastructure.PtEdgeAttributes) int32 {
	if err := g.checkNode(from); err != nil {
		panic(err)
	}
	if err := g.checkNode(to); err != nil {
		panic(err)
	}
	id := g.EdgeCount()
	g.edges = append(g.edges, from, to, g.nodes[from*nodeSlots], noEdge)
	g.nodes[from*nodeSlots] = id
	if from != to {
		g.edges[id*edgeSlots+3] = g.nodes[to*nodeSlots+1]
		g.nodes[to*nodeSlots+1] = id
	}
	g.attrs = append(g.attrs, attrs)
	return id
}

func (g *PtGraph) checkNode(node int32) error {
	if node < 0 || node >= g.NodeCount() {
		return fmt.Errorf("node %d: %w", node, ErrOutOfRange)
	}
	return nil
}

func (g *PtGraph) checkEdge(edge int32) error {
	if edge < 0 || edge >= g.EdgeCount() {
		return fmt.Errorf("edge %d: %w", edge, ErrOutOfRange)
	}
	return nil
}

// EdgesAround yields the out edges of node, newest first.
func (g *PtGraph) EdgesAround(node int32) (iter.Seq[PtEdge], error) {
	if err := g.checkNode(node); err != nil {
		return nil, err
	}
	return func(yield func(PtEdge) bool) {
		for e := g.nodes[node*nodeSlots]; e != noEdge; e = g.edges[e*edgeSlots+2] {
			if !yield(g.edgeFrom(e, false)) {
				return
			}
		}
	}, nil
}

// BackEdgesAround yields the in edges of node with base and adj swapped, so BaseNode is node.
func (g *PtGraph) BackEdgesAround(node int32) (iter.Seq[PtEdge], error) {
	if err := g.checkNode(node); err != nil {
		return nil, err
	}
	return func(yield func(PtEdge) bool) {
		for e := g.nodes[node*nodeSlots+1]; e != noEdge; e = g.edges[e*edgeSlots+3] {
			if !yield(g.edgeFrom(e, true)) {
				return
			}
		}
	}, nil
}

func (g *PtGraph) Edge(id int32) (PtEdge, error) {
	if err := g.checkEdge(id); err != nil {
		return PtEdge{}, err
	}
	return g.edgeFrom(id, false), nil
}

func (g *PtGraph) edgeFrom(id int32, reverse bool) PtEdge {
	a, b := g.edges[id*edgeSlots], g.edges[id*edgeSlots+1]
	if reverse {
		a, b = b, a
	}
	return PtEdge{ID: id, BaseNode: a, AdjNode: b, Attrs: g.attrs[id]}
}

// Attributes returns the side table, indexed by edge id.
func (g *PtGraph) Attributes() []datastructure.PtEdgeAttributes {
	return g.attrs
}

// SetAttributes replaces the side table after Deserialize.
func (g *PtGraph) SetAttributes(attrs []datastructure.PtEdgeAttributes) error {
	if int32(len(attrs)) != g.EdgeCount() {
		return fmt.Errorf("got %d attributes for %d edges: %w", len(attrs), g.EdgeCount(), ErrOutOfRange)
	}
	g.attrs = attrs
	return nil
}

// Serialize writes node & edge arrays as little endian int32 records, zstd compressed.
// The attribute side table is persisted separately.
func (g *PtGraph) Serialize(w io.Writer) error {
	var raw bytes.Buffer
	header := []int32{g.NodeCount(), g.EdgeCount()}
	for _, part := range [][]int32{header, g.nodes, g.edges} {
		if err := binary.Write(&raw, binary.LittleEndian, part); err != nil {
			return err
		}
	}
	return datastructure.CompressTo(w, raw.Bytes())
}

func Deserialize(r io.Reader) (*PtGraph, error) {
	data, err := datastructure.DecompressFrom(r)
	if err != nil {
		return nil, fmt.Errorf("decompress pt graph: %w", err)
	}
	raw := bytes.NewReader(data)

	header := make([]int32, 2)
	if err := binary.Read(raw, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("read pt graph header: %w", err)
	}
	nodeCount, edgeCount := int64(header[0]), int64(header[1])
	if nodeCount < 0 || edgeCount < 0 {
		return nil, fmt.Errorf("pt graph header %d nodes %d edges: %w", nodeCount, edgeCount, ErrOutOfRange)
	}
	// 4 bytes per slot
	if need := (nodeCount*nodeSlots + edgeCount*edgeSlots) * 4; need > int64(raw.Len()) {
		return nil, fmt.Errorf("pt graph header needs %d bytes, %d left: %w", need, raw.Len(), ErrOutOfRange)
	}
	g := &PtGraph{
		nodes: make([]int32, int(header[0])*nodeSlots),
		edges: make([]int32, int(header[1])*edgeSlots),
		attrs: make([]datastructure.PtEdgeAttributes, header[1]),
	}
	if err := binary.Read(raw, binary.LittleEndian, g.nodes); err != nil {
		return nil, fmt.Errorf("read pt graph nodes: %w", err)
	}
	if err := binary.Read(raw, binary.LittleEndian, g.edges); err != nil {
		return nil, fmt.Errorf("read pt graph edges: %w", err)
	}
	return g, nil
}
