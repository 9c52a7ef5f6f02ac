package kv

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/uber/h3-go/v4"
)

var (
	ErrNotFound = errors.New("kv: not found")
)

const (
	h3Resolution = 9
	batchSize    = 1000
	h3KeyPrefix  = "h3/"
)

// KVStreetNode is a street node stored under the h3 cell containing it.
type KVStreetNode struct {
	ID  int32
	Lat float64
	Lon float64
}

type KVDB struct {
	db  *badger.DB
	log logger.Logger
}

func NewKVDB(db *badger.DB, log logger.Logger) *KVDB {
	return &KVDB{db: db, log: log}
}

// Open opens a badger database in dir.
func Open(dir string, log logger.Logger) (*KVDB, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dir, err)
	}
	return NewKVDB(db, log), nil
}

// OpenInMemory opens a badger database that lives in memory only.
func OpenInMemory(log logger.Logger) (*KVDB, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return NewKVDB(db, log), nil
}

// BuildH3IndexedStreetNodes indexes every street node that has a foot edge by its h3 cell.
func (k *KVDB) BuildH3IndexedStreetNodes(ctx context.Context, graph *datastructure.StreetGraph) error {
	k.log.Info("creating & saving h3 indexed street nodes to key-value db...")
	cells := make(map[string][]KVStreetNode)
	for i := range graph.Nodes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		id := int32(i)
		if !hasFootEdge(graph, id) {
			continue
		}
		node := graph.Nodes[i]
		cell := h3.LatLngToCell(h3.NewLatLng(node.Lat, node.Lon), h3Resolution)
		key := h3KeyPrefix + cell.String()
		cells[key] = append(cells[key], KVStreetNode{ID: id, Lat: node.Lat, Lon: node.Lon})
	}

	batches := make([]batchData, 0, batchSize)
	for key, nodes := range cells {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		val, err := encode(nodes)
		if err != nil {
			return fmt.Errorf("encode h3 cell %s: %w", key, err)
		}
		batches = append(batches, batchData{key: key, value: val})
		if len(batches) == batchSize {
			if err := k.saveBatch(ctx, batches); err != nil {
				return err
			}
			batches = make([]batchData, 0, batchSize)
		}
	}
	if len(batches) > 0 {
		if err := k.saveBatch(ctx, batches); err != nil {
			return err
		}
	}
	k.log.Info("creating & saving h3 indexed street nodes done", "cells", len(cells))
	return nil
}

func hasFootEdge(graph *datastructure.StreetGraph, node int32) bool {
	for _, e := range graph.OutEdges[node] {
		if graph.Edges[e].Foot {
			return true
		}
	}
	return false
}

type batchData struct {
	key   string
	value []byte
}

func (k *KVDB) saveBatch(ctx context.Context, batchData []batchData) error {
	batch := k.db.NewWriteBatch()
	defer batch.Cancel()

	for _, data := range batchData {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := batch.Set([]byte(data.key), data.value); err != nil {
			return err
		}
	}

	if err := batch.Flush(); err != nil {
		k.log.Error("error saving batch", "error", err)
		return err
	}
	k.log.Debug("saved batch", "keys", len(batchData))
	return nil
}

// get returns ErrNotFound for a missing key.
func (k *KVDB) get(key []byte) ([]byte, error) {
	var val []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("key %s: %w", key, ErrNotFound)
	}
	return val, err
}

func (k *KVDB) streetNodesInCell(cell h3.Cell) ([]KVStreetNode, error) {
	val, err := k.get([]byte(h3KeyPrefix + cell.String()))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode[[]KVStreetNode](val)
}

// GetNearestStreetNodes returns the street nodes of the cell containing the point.
// When that cell is empty the search widens ring by ring.
func (k *KVDB) GetNearestStreetNodes(lat, lon float64) ([]KVStreetNode, error) {
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution)

	nodes, err := k.streetNodesInCell(cell)
	if err != nil {
		return nil, err
	}

	if len(nodes) == 0 {
		for _, currCell := range kRingIndexesArea(lat, lon, 0.5) {
			if currCell == cell {
				continue
			}
			streets, err := k.streetNodesInCell(currCell)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, streets...)
		}
	}

	for lev := 1; lev <= 10 && len(nodes) == 0; lev++ {
		for _, currCell := range h3.GridDisk(cell, lev) {
			if currCell == cell {
				continue
			}
			streets, err := k.streetNodesInCell(currCell)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, streets...)
		}
	}

	if len(nodes) == 0 {
		return nil, fmt.Errorf("street nodes near %f,%f: %w", lat, lon, ErrNotFound)
	}
	return nodes, nil
}

// kRingIndexesArea returns the disk of cells covering a circle of searchRadiusKm.
func kRingIndexesArea(lat, lon, searchRadiusKm float64) []h3.Cell {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution)
	originArea := h3.CellAreaKm2(origin)
	searchArea := math.Pi * searchRadiusKm * searchRadiusKm

	radius := 0
	diskArea := originArea
	for diskArea < searchArea {
		radius++
		cellCount := float64(3*radius*(radius+1) + 1)
		diskArea = cellCount * originArea
	}
	return h3.GridDisk(origin, radius)
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
