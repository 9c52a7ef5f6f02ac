package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

const (
	storageSnapshotKey = "pt/storage"
	attrTablesKey      = "pt/attr-tables"
	attrChunkPrefix    = "pt/attrs/"

	// edge attributes per value
	attrChunkSize = 4096
	// badger rejects single entries close to the write batch limit
	blobChunkSize = 1 << 20
)

// SaveStorage persists the storage snapshot & the edge attribute side table.
func (k *KVDB) SaveStorage(ctx context.Context, s *storage.GtfsStorage, attrs []datastructure.PtEdgeAttributes) error {
	k.log.Info("saving gtfs storage to key-value db...")

	snapshot, err := encode(s.ToSnapshot())
	if err != nil {
		return fmt.Errorf("encode storage snapshot: %w", err)
	}
	if err := k.putBlob(ctx, storageSnapshotKey, snapshot); err != nil {
		return err
	}

	tables, persisted := storage.EncodeAttributes(attrs)
	tablesVal, err := encode(tables)
	if err != nil {
		return fmt.Errorf("encode attribute tables: %w", err)
	}
	if err := k.putBlob(ctx, attrTablesKey, tablesVal); err != nil {
		return err
	}

	countVal, err := encode(int64(len(persisted)))
	if err != nil {
		return err
	}
	batches := []batchData{{key: attrChunkPrefix + "n", value: countVal}}
	for start := 0; start < len(persisted); start += attrChunkSize {
		end := min(start+attrChunkSize, len(persisted))
		val, err := encode(persisted[start:end])
		if err != nil {
			return fmt.Errorf("encode edge attributes %d: %w", start, err)
		}
		batches = append(batches, batchData{key: chunkKey(attrChunkPrefix, start/attrChunkSize), value: val})
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
	k.log.Info("saving gtfs storage done", "edges", len(persisted), "validities", len(tables.Validities))
	return nil
}

// LoadStorage restores what SaveStorage wrote. The feeds must be registered in s beforehand.
func (k *KVDB) LoadStorage(s *storage.GtfsStorage) ([]datastructure.PtEdgeAttributes, error) {
	snapshotVal, err := k.getBlob(storageSnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("load storage snapshot: %w", err)
	}
	snapshot, err := decode[storage.Snapshot](snapshotVal)
	if err != nil {
		return nil, fmt.Errorf("decode storage snapshot: %w", err)
	}
	s.ApplySnapshot(snapshot)

	tablesVal, err := k.getBlob(attrTablesKey)
	if err != nil {
		return nil, fmt.Errorf("load attribute tables: %w", err)
	}
	tables, err := decode[storage.AttributeTables](tablesVal)
	if err != nil {
		return nil, fmt.Errorf("decode attribute tables: %w", err)
	}

	countVal, err := k.get([]byte(attrChunkPrefix + "n"))
	if err != nil {
		return nil, err
	}
	count, err := decode[int64](countVal)
	if err != nil {
		return nil, err
	}
	persisted := make([]storage.PersistedEdgeAttributes, 0, count)
	for i := 0; int64(len(persisted)) < count; i++ {
		val, err := k.get([]byte(chunkKey(attrChunkPrefix, i)))
		if err != nil {
			return nil, fmt.Errorf("load edge attributes chunk %d: %w", i, err)
		}
		chunk, err := decode[[]storage.PersistedEdgeAttributes](val)
		if err != nil {
			return nil, fmt.Errorf("decode edge attributes chunk %d: %w", i, err)
		}
		if len(chunk) == 0 {
			return nil, fmt.Errorf("empty edge attributes chunk %d", i)
		}
		persisted = append(persisted, chunk...)
	}
	return s.DecodeAttributes(tables, persisted)
}

// putBlob splits data over several keys below prefix.
func (k *KVDB) putBlob(ctx context.Context, prefix string, data []byte) error {
	parts := (len(data) + blobChunkSize - 1) / blobChunkSize
	countVal, err := encode(int64(parts))
	if err != nil {
		return err
	}
	batches := make([]batchData, 0, parts+1)
	batches = append(batches, batchData{key: prefix + "/n", value: countVal})
	for i := 0; i < parts; i++ {
		end := min((i+1)*blobChunkSize, len(data))
		batches = append(batches, batchData{key: chunkKey(prefix+"/", i), value: data[i*blobChunkSize : end]})
		if len(batches) == batchSize {
			if err := k.saveBatch(ctx, batches); err != nil {
				return err
			}
			batches = make([]batchData, 0, batchSize)
		}
	}
	if len(batches) > 0 {
		return k.saveBatch(ctx, batches)
	}
	return nil
}

func (k *KVDB) getBlob(prefix string) ([]byte, error) {
	countVal, err := k.get([]byte(prefix + "/n"))
	if err != nil {
		return nil, err
	}
	parts, err := decode[int64](countVal)
	if err != nil {
		return nil, err
	}
	var data []byte
	for i := 0; i < int(parts); i++ {
		part, err := k.get([]byte(chunkKey(prefix+"/", i)))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("blob %s is missing part %d: %w", prefix, i, err)
			}
			return nil, err
		}
		data = append(data, part...)
	}
	return data, nil
}

func chunkKey(prefix string, i int) string {
	return fmt.Sprintf("%s%08d", prefix, i)
}
