// internal/storage/memory/files.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	jsonExt = ".json"
	gzExt   = ".json.gz"
)

func (b *Backend) recordPath(rec *RouteRecord) string {
	name := sanitizeFilename(rec.Route.Key.String())
	if b.cfg.CompressOutput {
		return filepath.Join(b.cfg.OutputDir, name+gzExt)
	}
	return filepath.Join(b.cfg.OutputDir, name+jsonExt)
}

// writeRecord writes to a temp file and renames it over the old copy.
func (b *Backend) writeRecord(rec *RouteRecord) error {
	path := b.recordPath(rec)
	tmp := path + ".tmp"

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(tmp, rec)
	} else {
		err = writeJSON(tmp, rec)
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	// a route saved with the other compression setting would shadow this one on reload
	other := strings.TrimSuffix(strings.TrimSuffix(path, gzExt), jsonExt)
	if b.cfg.CompressOutput {
		other += jsonExt
	} else {
		other += gzExt
	}
	os.Remove(other)
	return nil
}

func (b *Backend) readDir() ([]*RouteRecord, error) {
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var out []*RouteRecord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, jsonExt) && !strings.HasSuffix(name, gzExt) {
			continue
		}
		rec, err := readRecord(filepath.Join(b.cfg.OutputDir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func readRecord(path string) (*RouteRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, gzExt) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var rec RouteRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &rec, nil
}

func writeJSON(path string, data *RouteRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data *RouteRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

// sanitizeFilename replaces characters that are not valid in filenames.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(name)
}
