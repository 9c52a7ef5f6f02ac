package datastructure

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressTo writes data to w as one zstd frame.
func CompressTo(w io.Writer, data []byte) error {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}

func DecompressFrom(r io.Reader) ([]byte, error) {
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return io.ReadAll(d)
}
