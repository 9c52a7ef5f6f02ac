package osmparser

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/geo"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/util"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

const progressEvery = 50000

type node struct {
	id    osm.NodeID
	coord nodeCoord
}

type nodeCoord struct {
	lat float64
	lon float64
}

// OpenScanner returns a fresh scanner positioned at the start of the data. Parse reads the data twice.
type OpenScanner func(ctx context.Context) (osm.Scanner, error)

// OsmParser builds the foot network from openstreetmap data. Ways are split into edges at junctions,
// every edge is walkable in both directions and blocking barriers cut the way.
type OsmParser struct {
	wayNodeMap      map[osm.NodeID]NodeType
	acceptedNodeMap map[osm.NodeID]nodeCoord
	barrierNodes    map[osm.NodeID]struct{}
	nodeIDMap       map[osm.NodeID]int32
	graph           *datastructure.StreetGraph
	minNetworkSize  int
	log             logger.Logger
}

func NewOSMParser(minNetworkSize int, log logger.Logger) *OsmParser {
	return &OsmParser{
		wayNodeMap:      make(map[osm.NodeID]NodeType),
		acceptedNodeMap: make(map[osm.NodeID]nodeCoord),
		barrierNodes:    make(map[osm.NodeID]struct{}),
		nodeIDMap:       make(map[osm.NodeID]int32),
		graph:           datastructure.NewStreetGraph(),
		minNetworkSize:  minNetworkSize,
		log:             log,
	}
}

// Parse reads an .osm.pbf file.
func (p *OsmParser) Parse(ctx context.Context, mapFile string) (*datastructure.StreetGraph, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, fmt.Errorf("open osm file: %w", err)
	}
	defer f.Close()

	return p.ParseScanner(ctx, func(ctx context.Context) (osm.Scanner, error) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		// must not be parallel
		return osmpbf.New(ctx, f, 0), nil
	})
}

// ParseScanner runs both passes over the objects of open. Nodes must come before the ways that use them.
func (p *OsmParser) ParseScanner(ctx context.Context, open OpenScanner) (*datastructure.StreetGraph, error) {
	if err := p.scanWays(ctx, open); err != nil {
		return nil, err
	}
	if err := p.buildEdges(ctx, open); err != nil {
		return nil, err
	}

	removed := MarkSmallSubnetworks(p.graph, p.minNetworkSize)
	p.log.Info("street network built",
		"nodes", p.graph.NodeCount(),
		"edges", p.graph.EdgeCount(),
		"blocked_subnetwork_edges", removed)
	return p.graph, nil
}

// scanWays counts how often each node is used by a walkable way.
func (p *OsmParser) scanWays(ctx context.Context, open OpenScanner) error {
	scanner, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open osm scanner: %w", err)
	}
	defer scanner.Close()

	countWays := 0
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok || !acceptFootWay(way) {
			continue
		}
		if (countWays+1)%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.log.Info("reading openstreetmap ways", "ways", countWays+1)
		}
		countWays++

		for i, wn := range way.Nodes {
			if _, ok := p.wayNodeMap[wn.ID]; !ok {
				if i == 0 || i == len(way.Nodes)-1 {
					p.wayNodeMap[wn.ID] = END_NODE
				} else {
					p.wayNodeMap[wn.ID] = BETWEEN_NODE
				}
			} else {
				p.wayNodeMap[wn.ID] = JUNCTION_NODE
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan osm ways: %w", err)
	}
	p.log.Info("walkable ways found", "ways", countWays, "way_nodes", len(p.wayNodeMap))
	return nil
}

func (p *OsmParser) buildEdges(ctx context.Context, open OpenScanner) error {
	scanner, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open osm scanner: %w", err)
	}
	defer scanner.Close()

	countObjects := 0
	for scanner.Scan() {
		if (countObjects+1)%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		countObjects++

		switch o := scanner.Object().(type) {
		case *osm.Node:
			if _, ok := p.wayNodeMap[o.ID]; !ok {
				continue
			}
			p.acceptedNodeMap[o.ID] = nodeCoord{lat: o.Lat, lon: o.Lon}
			if blocksFoot(o) {
				p.barrierNodes[o.ID] = struct{}{}
			}
		case *osm.Way:
			if !acceptFootWay(o) {
				continue
			}
			p.processWay(o)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan osm objects: %w", err)
	}
	return nil
}

func (p *OsmParser) isSplitNode(id osm.NodeID) bool {
	t, ok := p.wayNodeMap[id]
	return ok && t != BETWEEN_NODE
}

func (p *OsmParser) processWay(way *osm.Way) {
	name := wayName(way)

	waySegment := []node{}
	for i, wn := range way.Nodes {
		coord, ok := p.acceptedNodeMap[wn.ID]
		_, barrier := p.barrierNodes[wn.ID]
		if !ok || barrier {
			// node outside the extract or a barrier: nothing passes through it
			p.processSegment(waySegment, name)
			waySegment = []node{}
			continue
		}

		waySegment = append(waySegment, node{id: wn.ID, coord: coord})
		if len(waySegment) > 1 && (p.isSplitNode(wn.ID) || i == len(way.Nodes)-1) {
			p.processSegment(waySegment, name)
			waySegment = []node{waySegment[len(waySegment)-1]}
		}
	}
	p.processSegment(waySegment, name)
}

func (p *OsmParser) processSegment(segment []node, name string) {
	if len(segment) < 2 {
		return
	}
	if segment[0].id != segment[len(segment)-1].id {
		p.addEdge(segment, name)
		return
	}
	if len(segment) < 3 {
		return
	}
	// loop, split it so both halves connect two different nodes
	mid := len(segment) / 2
	p.addEdge(segment[:mid+1], name)
	p.addEdge(segment[mid:], name)
}

func (p *OsmParser) streetNode(n node) int32 {
	if id, ok := p.nodeIDMap[n.id]; ok {
		return id
	}
	id := p.graph.AddNode(n.coord.lat, n.coord.lon, int64(n.id))
	p.nodeIDMap[n.id] = id
	return id
}

// addEdge adds segment in both directions. Geometry holds only the points between the two end nodes.
func (p *OsmParser) addEdge(segment []node, name string) {
	from := p.streetNode(segment[0])
	to := p.streetNode(segment[len(segment)-1])

	distance := 0.0
	pointsInBetween := make([]datastructure.Coordinate, 0, len(segment)-2)
	for i := 1; i < len(segment); i++ {
		prev, curr := segment[i-1].coord, segment[i].coord
		distance += geo.DistanceMeters(prev.lat, prev.lon, curr.lat, curr.lon)
		if i < len(segment)-1 {
			pointsInBetween = append(pointsInBetween, datastructure.NewCoordinate(curr.lat, curr.lon))
		}
	}

	p.graph.AddEdge(from, to, distance, true, name, pointsInBetween)
	p.graph.AddEdge(to, from, distance, true, name, util.ReverseG(pointsInBetween))
}
