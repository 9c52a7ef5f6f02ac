package kv

import (
	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
)

// encode marshals v with kelindar/binary and compresses it.
func encode[T any](v T) ([]byte, error) {
	bb, err := binary.Marshal(v)
	if err != nil {
		return nil, err
	}
	return compress(bb)
}

func decode[T any](bbCompressed []byte) (T, error) {
	var v T
	bb, err := decompress(bbCompressed)
	if err != nil {
		return v, err
	}
	err = binary.Unmarshal(bb, &v)
	return v, err
}

func compress(bb []byte) ([]byte, error) {
	var bbCompressed []byte
	bbCompressed, err := zstd.Compress(bbCompressed, bb)
	if err != nil {
		return []byte{}, err
	}
	return bbCompressed, nil
}

func decompress(bbCompressed []byte) ([]byte, error) {
	var bb []byte
	bb, err := zstd.Decompress(bb, bbCompressed)
	if err != nil {
		return []byte{}, err
	}
	return bb, nil
}
