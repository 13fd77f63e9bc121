package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"sector_dashboard/internal/models"
)

// DefaultDataFile is where the hierarchy lives unless configured otherwise.
const DefaultDataFile = "sectors.json"

// indent matches the hand-edited files the dashboard grew up with.
const indent = "    "

// Document persists the hierarchy as a single JSON file.
type Document struct {
	Path string
}

// NewDocument returns a Document for path, falling back to DefaultDataFile.
func NewDocument(path string) *Document {
	if path == "" {
		path = DefaultDataFile
	}
	return &Document{Path: path}
}

// Load reads the hierarchy from disk. A missing file is an empty hierarchy.
func (d *Document) Load() (*models.Hierarchy, error) {
	b, err := os.ReadFile(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("INFO: %s not found, starting with an empty hierarchy", d.Path)
		return models.NewHierarchy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrPersistence, d.Path, err)
	}

	h := models.NewHierarchy()
	if err := json.Unmarshal(b, h); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrParse, d.Path, err)
	}
	return h, nil
}

// Save writes the hierarchy using an atomic write pattern.
// 1. Write to a temporary file in the same directory.
// 2. Sync to ensure data is on disk.
// 3. Rename the temporary file over the destination.
func (d *Document) Save(h *models.Hierarchy) error {
	b, err := json.MarshalIndent(h, "", indent)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", models.ErrPersistence, err)
	}
	if err := writeAtomic(d.Path, b); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return nil
}

// writeAtomic replaces path with data. Rename within one directory is atomic,
// so readers see either the old or the new document.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	// The temp file only survives a failure below.
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	// Close explicitly before renaming (essential on Windows)
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic exposes the temp-file-and-rename write for other file
// backed stores. Failures wrap models.ErrPersistence.
func WriteFileAtomic(path string, data []byte) error {
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return nil
}
