package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"sector_dashboard/internal/models"
	"sector_dashboard/internal/storage"
)

// DefaultDir is where the filesystem archive keeps snapshots.
const DefaultDir = "saved_reports"

// Archive stores report snapshots by key.
type Archive interface {
	// Save writes the snapshot and returns its key.
	Save(ctx context.Context, r *Report) (string, error)
	Load(ctx context.Context, key string) (*Report, error)
	// List returns the keys, newest name first.
	List(ctx context.Context) ([]string, error)
}

func encode(r *Report) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode report: %v", models.ErrPersistence, err)
	}
	return append(data, '\n'), nil
}

func decode(key string, data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		if errors.Is(err, models.ErrParse) {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", models.ErrParse, key, err)
	}
	return &r, nil
}

// checkKey rejects keys that could leave the archive.
func checkKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty report key", models.ErrInvalidArgument)
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: invalid report key %q", models.ErrInvalidArgument, key)
	}
	if !strings.HasSuffix(key, ".json") {
		return "", fmt.Errorf("%w: report key %q must end in .json", models.ErrInvalidArgument, key)
	}
	return key, nil
}

func sortKeys(keys []string) []string {
	slices.Sort(keys)
	slices.Reverse(keys)
	return keys
}

// FSArchive keeps one JSON file per report in a directory.
type FSArchive struct {
	dir string
}

// NewFSArchive returns an archive rooted at dir, creating it if needed.
func NewFSArchive(dir string) (*FSArchive, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", models.ErrPersistence, dir, err)
	}
	return &FSArchive{dir: dir}, nil
}

func (a *FSArchive) Save(_ context.Context, r *Report) (string, error) {
	data, err := encode(r)
	if err != nil {
		return "", err
	}
	key, err := checkKey(r.Key())
	if err != nil {
		return "", err
	}
	if err := storage.WriteFileAtomic(filepath.Join(a.dir, key), data); err != nil {
		return "", err
	}
	log.Printf("INFO: report saved: %s", key)
	return key, nil
}

func (a *FSArchive) Load(_ context.Context, key string) (*Report, error) {
	key, err := checkKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(a.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: report %q", models.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrPersistence, key, err)
	}
	return decode(key, data)
}

func (a *FSArchive) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", models.ErrPersistence, a.dir, err)
	}
	var keys []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".json") {
			keys = append(keys, e.Name())
		}
	}
	return sortKeys(keys), nil
}
