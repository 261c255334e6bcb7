package objectstore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Compress returns data zstd-compressed.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := CompressTo(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CompressTo streams src into dst as zstd.
func CompressTo(dst io.Writer, src io.Reader) error {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("compress: create encoder: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		_ = enc.Close()
		return fmt.Errorf("compress: copy: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress: close encoder: %w", err)
	}
	return nil
}

// Decompress reads a whole zstd stream, stopping with an error once more
// than limit bytes are produced (limit <= 0 means no limit).
func Decompress(r io.Reader, limit int64) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer dec.Close()

	var src io.Reader = dec
	if limit > 0 {
		src = io.LimitReader(dec, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("decompress: read: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("decompress: output exceeds %d bytes", limit)
	}
	return data, nil
}
