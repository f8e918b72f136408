package compresscache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

func brotliCompressor(level int) (func([]byte) ([]byte, error), error) {
	if level == 0 {
		level = 6
	}
	if level < 0 || level > 11 {
		return nil, fmt.Errorf("compresscache: invalid brotli compression level: %d", level)
	}
	return func(data []byte) ([]byte, error) {
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, level)
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("brotli write failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("brotli close failed: %w", err)
		}
		return buf.Bytes(), nil
	}, nil
}

func brotliDecompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("brotli read failed: %w", err)
	}
	return decompressed, nil
}
