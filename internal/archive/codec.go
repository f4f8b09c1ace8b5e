package archive

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/JakeFAU/crawlhub/internal/batch"
)

// Encode serializes doc as JSON and gzip-compresses it.
func Encode(doc batch.ArchivedBatch) ([]byte, error) {
	if doc.Items == nil {
		doc.Items = []batch.Item{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		closeErr := zw.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("compress batch: %w (close writer: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("compress batch: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (batch.ArchivedBatch, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return batch.ArchivedBatch{}, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close() //nolint:errcheck // read-only
	raw, err := io.ReadAll(zr)
	if err != nil {
		return batch.ArchivedBatch{}, fmt.Errorf("decompress batch: %w", err)
	}
	var doc batch.ArchivedBatch
	if err := json.Unmarshal(raw, &doc); err != nil {
		return batch.ArchivedBatch{}, fmt.Errorf("unmarshal batch: %w", err)
	}
	return doc, nil
}
