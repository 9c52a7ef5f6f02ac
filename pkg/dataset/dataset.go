package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/builder"
	"github.com/lintang-b-s/navigatorx-pt/pkg/config"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/routingalgorithm"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/transfers"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/tripbased"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/kv"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/osmparser"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

// Paths are the files preprocessing writes below the data dir.
type Paths struct {
	StreetGraph   string
	PtGraph       string
	KV            string
	TripTransfers string
}

func NewPaths(dir string) Paths {
	return Paths{
		StreetGraph:   filepath.Join(dir, storage.STREET_GRAPH_FILE_NAME),
		PtGraph:       filepath.Join(dir, storage.PT_GRAPH_FILE_NAME),
		KV:            filepath.Join(dir, storage.KV_DIR),
		TripTransfers: filepath.Join(dir, storage.TRIP_TRANSFERS_DIR),
	}
}

// Dataset is everything the engine routes on.
type Dataset struct {
	Street        *datastructure.StreetGraph
	Pt            *ptgraph.PtGraph
	Storage       *storage.GtfsStorage
	KV            *kv.KVDB
	Stations      *snap.StationIndex
	TransferStore *tripbased.TransferStore
}

func (d *Dataset) Close() error {
	var firstErr error
	if d.TransferStore != nil {
		firstErr = d.TransferStore.Close()
	}
	if d.KV != nil {
		if err := d.KV.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LoadFeeds reads every GTFS zip of feeds into st.
func LoadFeeds(st *storage.GtfsStorage, feeds map[string]string, log logger.Logger) error {
	for id, path := range feeds {
		start := time.Now()
		feed, err := gtfs.LoadZip(id, path)
		if err != nil {
			return fmt.Errorf("load gtfs feed %s: %w", id, err)
		}
		st.AddFeed(feed)
		log.Info("gtfs feed loaded", "feed", id, "stops", len(feed.Stops), "trips", len(feed.Trips),
			"took", time.Since(start).String())
	}
	return nil
}

// BuildStationIndex indexes the station node of every stop that was connected to the street network.
func BuildStationIndex(st *storage.GtfsStorage) *snap.StationIndex {
	index := snap.NewStationIndex()
	for key, node := range st.StationNodes {
		if _, connected := st.PtToStreet[node]; !connected {
			continue
		}
		feed, ok := st.Feeds[key.FeedID]
		if !ok {
			continue
		}
		stop, ok := feed.Stops[key.StopID]
		if !ok || stop.LocationType != gtfs.LocationTypeStop {
			continue
		}
		index.Insert(snap.Station{Node: node, FeedID: key.FeedID, StopID: stop.ID, Name: stop.Name, Lat: stop.Lat, Lon: stop.Lon})
	}
	return index
}

// Build runs the whole preprocessing: foot network from osm, h3 street node index, the time expanded
// network of every feed, interpolated transfers & trip transfers of the first service days.
func Build(ctx context.Context, cfg config.Config, log logger.Logger) error {
	paths := NewPaths(cfg.Data.Dir)
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	log.Info("reading osm file", "file", cfg.Data.OsmFile)
	street, err := osmparser.NewOSMParser(cfg.Data.MinNetworkSize, log).Parse(ctx, cfg.Data.OsmFile)
	if err != nil {
		return err
	}
	if err := street.SaveToFile(paths.StreetGraph); err != nil {
		return fmt.Errorf("save street graph: %w", err)
	}

	kvDB, err := kv.Open(paths.KV, log)
	if err != nil {
		return err
	}
	defer kvDB.Close()
	if err := kvDB.BuildH3IndexedStreetNodes(ctx, street); err != nil {
		return fmt.Errorf("build h3 index: %w", err)
	}
	snapper := snap.NewStreetSnapper(kvDB, cfg.Routing.SnapMaxDistanceMeters)

	st := storage.NewGtfsStorage()
	if err := LoadFeeds(st, cfg.Data.GtfsFeeds, log); err != nil {
		return err
	}

	graph := ptgraph.NewPtGraph()
	out := builder.NewStaticGraphOut(graph, st)
	stations := snap.NewStationIndex()
	transferTime := TransferTime(cfg.Routing, street, st)

	readers := make(map[string]*builder.GtfsReader, len(st.Feeds))
	for _, id := range st.FeedIDs() {
		reader, err := builder.NewGtfsReader(id, graph, out, st, snapper, stations, log)
		if err != nil {
			return err
		}
		reader.ConnectStopsToStreetNetwork()
		readers[id] = reader
	}
	for _, id := range st.FeedIDs() {
		start := time.Now()
		readers[id].SetTransferTimeFunc(transferTime)
		if err := readers[id].BuildPtNetwork(); err != nil {
			return fmt.Errorf("build pt network of %s: %w", id, err)
		}
		log.Info("pt network built", "feed", id, "nodes", graph.NodeCount(), "edges", graph.EdgeCount(),
			"took", time.Since(start).String())
	}
	log.Info("stations connected to the street network", "stations", stations.Size())

	if _, err := transfers.Interpolate(ctx, readers, st, graph, street, cfg.Routing.InterpolationConfig(), log); err != nil {
		return err
	}

	if err := savePtGraph(paths.PtGraph, graph); err != nil {
		return err
	}
	if err := kvDB.SaveStorage(ctx, st, graph.Attributes()); err != nil {
		return err
	}

	return precomputeTripTransfers(ctx, cfg, st, transferTime, paths.TripTransfers, log)
}

// TransferTime gives GTFS transfer rules without a min_transfer_time the street walking time between their stops.
func TransferTime(cfg config.RoutingConfig, street *datastructure.StreetGraph, st *storage.GtfsStorage) builder.TransferTimeFunc {
	walk := routingalgorithm.NewRouteAlgorithm(street).WithMaxVisitedNodes(cfg.MaxVisitedNodes)
	return transfers.StreetTransferTime(walk, st, cfg.TransferWalkSpeedKmh)
}

func savePtGraph(path string, graph *ptgraph.PtGraph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pt graph file: %w", err)
	}
	defer f.Close()
	if err := graph.Serialize(f); err != nil {
		return fmt.Errorf("save pt graph: %w", err)
	}
	return f.Sync()
}

// precomputeTripTransfers fills the transfer store for the next days so the first trip based
// queries of the engine do not pay for it.
func precomputeTripTransfers(ctx context.Context, cfg config.Config, st *storage.GtfsStorage,
	transferTime builder.TransferTimeFunc, dir string, log logger.Logger) error {
	days := cfg.Routing.TripTransferCacheDays
	if days <= 0 {
		return nil
	}
	store, err := tripbased.OpenTransferStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	ttCfg := cfg.Routing.TripTransferConfig()
	ttCfg.TransferTime = transferTime
	index := tripbased.NewTripTransferIndex(tripbased.NewTrips(st), ttCfg, store, log)

	today := time.Now()
	if ids := st.FeedIDs(); len(ids) > 0 {
		today = today.In(st.Feeds[ids[0]].Timezone())
	}
	for d := 0; d < days; d++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := index.TripTransfers(today.AddDate(0, 0, d)); err != nil {
			return err
		}
	}
	return nil
}

// Load opens what Build wrote. The GTFS zips are read again, the storage snapshot refers to them.
func Load(ctx context.Context, cfg config.Config, log logger.Logger) (*Dataset, error) {
	paths := NewPaths(cfg.Data.Dir)
	ds := &Dataset{}

	street, err := datastructure.LoadStreetGraph(paths.StreetGraph)
	if err != nil {
		return nil, fmt.Errorf("load street graph: %w", err)
	}
	ds.Street = street

	st := storage.NewGtfsStorage()
	if err := LoadFeeds(st, cfg.Data.GtfsFeeds, log); err != nil {
		return nil, err
	}
	ds.Storage = st

	f, err := os.Open(paths.PtGraph)
	if err != nil {
		return nil, fmt.Errorf("open pt graph: %w", err)
	}
	defer f.Close()
	pt, err := ptgraph.Deserialize(f)
	if err != nil {
		return nil, err
	}
	ds.Pt = pt

	if ds.KV, err = kv.Open(paths.KV, log); err != nil {
		return nil, err
	}
	attrs, err := ds.KV.LoadStorage(st)
	if err != nil {
		ds.Close()
		return nil, err
	}
	if err := pt.SetAttributes(attrs); err != nil {
		ds.Close()
		return nil, fmt.Errorf("pt graph & storage do not match: %w", err)
	}
	if err := ctx.Err(); err != nil {
		ds.Close()
		return nil, err
	}

	if ds.TransferStore, err = tripbased.OpenTransferStore(paths.TripTransfers); err != nil {
		ds.Close()
		return nil, err
	}
	ds.Stations = BuildStationIndex(st)

	log.Info("dataset loaded",
		"street_nodes", street.NodeCount(),
		"pt_nodes", pt.NodeCount(),
		"pt_edges", pt.EdgeCount(),
		"stations", ds.Stations.Size())
	return ds, nil
}
