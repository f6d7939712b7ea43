package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
)

const ext = ".json"

// Store implements ports.TimelineStore using the local filesystem.
// It stores one indented JSON file per run in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".waypoint/runs".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".waypoint", "runs")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(run domain.RunID) (string, error) {
	id := string(run)
	if id == "" {
		return "", errors.New("run id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("run id %q is not a valid file name", id)
	}
	return filepath.Join(s.BasePath, id+ext), nil
}

// Save persists the timeline to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, run domain.RunID, tl *domain.Timeline) error {
	destPath, err := s.path(run)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure run directory: %w", err)
	}

	data, err := json.MarshalIndent(tl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}

	// Same directory as the destination, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+string(run)+"-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing timeline for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Load retrieves the timeline from its JSON file.
func (s *Store) Load(ctx context.Context, run domain.RunID) (*domain.Timeline, error) {
	filePath, err := s.path(run)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrTimelineNotFound
		}
		return nil, fmt.Errorf("failed to read timeline file: %w", err)
	}

	var tl domain.Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
	}
	if err := tl.Validate(); err != nil {
		return nil, fmt.Errorf("timeline file %s: %w", filePath, err)
	}
	return &tl, nil
}

// Delete removes the timeline file.
func (s *Store) Delete(ctx context.Context, run domain.RunID) error {
	filePath, err := s.path(run)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete timeline file: %w", err)
	}
	return nil
}

// List returns all runs with a timeline file, sorted. Leftover temp files are skipped.
func (s *Store) List(ctx context.Context) ([]domain.RunID, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.RunID{}, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := []domain.RunID{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		runs = append(runs, domain.RunID(strings.TrimSuffix(name, ext)))
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i] < runs[j] })
	return runs, nil
}
