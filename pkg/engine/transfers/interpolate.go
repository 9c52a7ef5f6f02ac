package transfers

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/concurrent"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/mcls"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

const DefaultMaxTransferWalkTime = 120 * time.Second

type Config struct {
	MaxTransferWalkTime time.Duration
	// walk speed of the profile used between platforms
	WalkSpeedKmh float64
	Workers      int
}

func (c Config) withDefaults() Config {
	if c.MaxTransferWalkTime <= 0 {
		c.MaxTransferWalkTime = DefaultMaxTransferWalkTime
	}
	if c.WalkSpeedKmh <= 0 {
		c.WalkSpeedKmh = explorer.DefaultWalkSpeedKmh
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c
}

// candidate is a walk from an arrival platform to a station, found by the street search.
type candidate struct {
	arrivalPlatformNode int32
	fromPlatform        datastructure.PlatformDescriptor
	toPlatform          datastructure.PlatformDescriptor
	streetTimeMillis    int64
	skippedEdges        []int32
}

type stationResult struct {
	station    int32
	candidates []candidate
}

// Interpolate inserts walking transfers between platforms that no GTFS transfer rule connects.
// The street searches run in parallel, the graph writes happen afterwards on the calling goroutine.
// readers must be the readers that built the graph, keyed by feed id.
func Interpolate(ctx context.Context, readers map[string]*builder.GtfsReader, st *storage.GtfsStorage, graph *ptgraph.PtGraph,
	street explorer.StreetGraph, cfg Config, log logger.Logger) (int, error) {
	cfg = cfg.withDefaults()
	stations := st.StationNodeList()
	log.Info("interpolating transfers", "stations", len(stations), "max_walk_seconds", cfg.MaxTransferWalkTime.Seconds())

	workers := concurrent.NewWorkerPool[concurrent.InterpolateStationJobItem, stationResult](cfg.Workers, len(stations))
	for _, station := range stations {
		workers.AddJob(concurrent.NewInterpolateStationJobItem(station))
	}
	workers.Close()
	workers.Start(func(job concurrent.InterpolateStationJobItem) stationResult {
		if ctx.Err() != nil {
			return stationResult{station: job.StationNode}
		}
		return stationResult{station: job.StationNode, candidates: findCandidates(job.StationNode, st, graph, street, cfg)}
	})
	workers.Wait()

	results := make(map[int32][]candidate, len(stations))
	for r := range workers.CollectResults() {
		results[r.station] = r.candidates
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("interpolate transfers: %w", err)
	}

	inserted := 0
	for _, station := range stations {
		for _, c := range results[station] {
			reader, ok := readers[c.toPlatform.FeedID]
			if !ok {
				log.Warn("no reader for feed", "feed", c.toPlatform.FeedID)
				continue
			}
			transferEdges, err := reader.InsertTransferEdges(c.arrivalPlatformNode, int(c.streetTimeMillis/1000), c.toPlatform)
			if err != nil {
				log.Debug("skip interpolated transfer", "from", c.fromPlatform.String(), "to", c.toPlatform.String(), "error", err)
				continue
			}
			fromStop := datastructure.FeedIDWithStopID{FeedID: c.fromPlatform.FeedID, StopID: c.fromPlatform.StopID}
			st.InterpolatedTransfers[fromStop] = append(st.InterpolatedTransfers[fromStop], storage.InterpolatedTransfer{
				FromPlatform: c.fromPlatform,
				ToPlatform:   c.toPlatform,
				StreetTime:   int32(c.streetTimeMillis / 1000),
				SkippedEdges: c.skippedEdges,
			})
			if len(c.skippedEdges) > 0 {
				for _, id := range transferEdges {
					st.SkippedEdgesForTransfer[id] = c.skippedEdges
				}
			}
			inserted += len(transferEdges)
		}
	}
	log.Info("interpolated transfers inserted", "edges", inserted)
	return inserted, nil
}

// findCandidates walks backwards from the station and pairs every arrival platform reached
// with every departure platform of the station.
func findCandidates(station int32, st *storage.GtfsStorage, graph *ptgraph.PtGraph, street explorer.StreetGraph, cfg Config) []candidate {
	ex := explorer.NewGraphExplorer(street, graph, st, nil, explorer.Options{
		Reverse:      true,
		WalkOnly:     true,
		WalkSpeedKmh: cfg.WalkSpeedKmh,
	})
	opts := mcls.DefaultOptions()
	opts.LimitStreetTime = cfg.MaxTransferWalkTime.Milliseconds()
	router := mcls.New(ex, opts)

	toPlatforms := enterPlatforms(graph, station)
	if len(toPlatforms) == 0 {
		return nil
	}

	candidates := make([]candidate, 0)
	for label := range router.Calc(ex.PtNodeID(station), 0) {
		if label.Parent == nil || label.Edge.Type() != datastructure.EdgeExitPt {
			continue
		}
		fromPlatform := *label.Edge.Platform()
		for _, toPlatform := range toPlatforms {
			if toPlatform.FeedID == fromPlatform.FeedID && coveredByRule(st, fromPlatform, toPlatform) {
				continue
			}
			candidates = append(candidates, candidate{
				arrivalPlatformNode: label.Node.PtNode,
				fromPlatform:        fromPlatform,
				toPlatform:          toPlatform,
				streetTimeMillis:    label.StreetTime,
				skippedEdges:        skippedEdges(label),
			})
		}
	}
	return candidates
}

func enterPlatforms(graph *ptgraph.PtGraph, station int32) []datastructure.PlatformDescriptor {
	edges, err := graph.EdgesAround(station)
	if err != nil {
		return nil
	}
	platforms := make([]datastructure.PlatformDescriptor, 0)
	for e := range edges {
		if e.Attrs.Type == datastructure.EdgeEnterPt && e.Attrs.Platform != nil {
			platforms = append(platforms, *e.Attrs.Platform)
		}
	}
	return platforms
}

func coveredByRule(st *storage.GtfsStorage, from, to datastructure.PlatformDescriptor) bool {
	transfers, ok := st.Transfers[to.FeedID]
	if !ok {
		return false
	}
	for _, rule := range transfers.TransfersToStop(to.StopID, to.RouteIDOrEmpty()) {
		if rule.FromStopID == from.StopID {
			return true
		}
	}
	return false
}

// skippedEdges are the street edges of the walk in travel order, from the arrival platform's station.
func skippedEdges(label *mcls.Label) []int32 {
	edges := make([]int32, 0)
	for _, tr := range mcls.Transitions(label.Parent, true) {
		if tr.Edge != nil && tr.Edge.IsStreet() {
			edges = append(edges, tr.Edge.ID())
		}
	}
	return edges
}
