package batch

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/klauspost/compress/zip"
)

const manifestName = "manifest.csv"

type archiveEntry struct {
	name string
	data []byte
}

// buildArchive zips entries in order, followed by a manifest of every item.
// Entry timestamps are fixed to stamp so identical runs produce identical
// archives.
func buildArchive(entries []archiveEntry, items []ItemResult, stamp time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, data []byte, method uint16) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   method,
			Modified: stamp,
		})
		if err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	for _, e := range entries {
		// rendered images are already compressed, except svg
		method := zip.Store
		if bytes.HasPrefix(e.data, []byte("<?xml")) {
			method = zip.Deflate
		}
		if err := add(e.name, e.data, method); err != nil {
			return nil, err
		}
	}

	manifest, err := buildManifest(items)
	if err != nil {
		return nil, err
	}
	if err := add(manifestName, manifest, zip.Deflate); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func buildManifest(items []ItemResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"index", "label", "filename", "status", "error"})
	for _, it := range items {
		status := "ok"
		if !it.Success {
			status = "failed"
		}
		_ = w.Write([]string{strconv.Itoa(it.Index + 1), it.Label, it.Filename, status, it.Error})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return buf.Bytes(), nil
}
