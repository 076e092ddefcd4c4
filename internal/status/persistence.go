// Package status provides per-source fetch status tracking and persistence.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ukstats/sourcefetch/internal/logger"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// StatusPersistence defines the interface for fetch status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the fetch status to persistent storage for a specific source
	SaveStatus(ctx context.Context, sourceName string, status *FetchStatus) error

	// LoadStatus loads the fetch status from persistent storage for a specific source
	// Returns an empty FetchStatus if the file doesn't exist (first run)
	LoadStatus(ctx context.Context, sourceName string) (*FetchStatus, error)

	// LoadAllStatus loads fetch status for all sources
	LoadAllStatus(ctx context.Context) (map[string]*FetchStatus, error)

	// DeleteStatus removes the stored status of a source
	DeleteStatus(ctx context.Context, sourceName string) error
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence
// basePath is the base directory where per-source status files will be stored
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

// SaveStatus saves the fetch status to a JSON file in a source-specific directory
func (f *fileStatusPersistence) SaveStatus(_ context.Context, sourceName string, status *FetchStatus) error {
	sourceDir := filepath.Join(f.basePath, sourceName)
	if err := os.MkdirAll(sourceDir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for source '%s': %w", sourceName, err)
	}

	filePath := filepath.Join(sourceDir, StatusFileName)

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data for source '%s': %w", sourceName, err)
	}

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for source '%s': %w", sourceName, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for source '%s': %w", sourceName, err)
	}

	return nil
}

// LoadStatus loads the fetch status from a JSON file for a specific source
// Returns an empty FetchStatus if the file doesn't exist
func (f *fileStatusPersistence) LoadStatus(_ context.Context, sourceName string) (*FetchStatus, error) {
	filePath := filepath.Join(f.basePath, sourceName, StatusFileName)

	// #nosec G304 -- filePath is built from basePath and a validated source name
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FetchStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for source '%s': %w", sourceName, err)
	}

	var status FetchStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for source '%s': %w", sourceName, err)
	}

	return &status, nil
}

// LoadAllStatus loads fetch status for all sources with a status directory
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*FetchStatus, error) {
	result := make(map[string]*FetchStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		sourceName := entry.Name()
		status, err := f.LoadStatus(ctx, sourceName)
		if err != nil {
			// Partial results are preferable to none
			logger.Warnf("Skipping unreadable status for source %s: %v", sourceName, err)
			continue
		}

		result[sourceName] = status
	}

	return result, nil
}

// DeleteStatus removes the source's status directory
func (f *fileStatusPersistence) DeleteStatus(_ context.Context, sourceName string) error {
	if err := os.RemoveAll(filepath.Join(f.basePath, sourceName)); err != nil {
		return fmt.Errorf("failed to delete status for source '%s': %w", sourceName, err)
	}
	return nil
}
