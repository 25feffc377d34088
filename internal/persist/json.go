// Package persist holds the durable catalog sinks. Each one saves and loads
// the whole catalog as an ordered list of tracks and reports
// library.ErrNoCatalog when nothing was ever saved.
package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"catalog-service/internal/catalog"
	"catalog-service/internal/library"
)

// JSONFile keeps the catalog in a single indented JSON array, the format
// external tooling reads.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (f *JSONFile) Load(ctx context.Context) ([]catalog.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", f.path, library.ErrNoCatalog)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	tracks := []catalog.Track{}
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return tracks, nil
}

// Save writes to a temp file in the same directory and renames it over the
// old one, so readers never see a half-written catalog.
func (f *JSONFile) Save(ctx context.Context, tracks []catalog.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tracks == nil {
		tracks = []catalog.Track{}
	}
	data, err := json.MarshalIndent(tracks, "", "    ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	// CreateTemp makes the file 0600; the catalog stays readable by other users.
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("rename to %s: %w", f.path, err)
	}
	return nil
}
