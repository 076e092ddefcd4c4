package sources

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ukstats/sourcefetch/internal/tabular"
)

//go:generate mockgen -destination=mocks/mock_storage_manager.go -package=mocks -source=storage_manager.go StorageManager

// StorageManager defines the interface for normalized CSV persistence
type StorageManager interface {
	// Store writes the table as CSV to path, replacing any existing file
	Store(ctx context.Context, path string, table *tabular.Table) (*StoreResult, error)

	// Delete removes the file at path. A missing file is not an error.
	Delete(ctx context.Context, path string) error
}

// StoreResult describes a written CSV file
type StoreResult struct {
	Path string
	Rows int
	// Size is the file size in bytes
	Size int64
	// Hash is the SHA256 hash of the file content
	Hash string
}

// fileStorageManager implements StorageManager using local filesystem
type fileStorageManager struct{}

// NewFileStorageManager creates a new file-based storage manager
func NewFileStorageManager() StorageManager {
	return &fileStorageManager{}
}

// Store serializes the table and writes it atomically via a temporary file in
// the destination directory
func (*fileStorageManager) Store(_ context.Context, path string, table *tabular.Table) (*StoreResult, error) {
	data, err := table.EncodeCSV()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}
	//nolint:gosec // output files are meant to be readable by downstream tools
	if err := os.Chmod(tempPath, 0644); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("failed to set file mode: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("failed to rename output file: %w", err)
	}

	return &StoreResult{
		Path: path,
		Rows: table.Len(),
		Size: int64(len(data)),
		Hash: fmt.Sprintf("%x", sha256.Sum256(data)),
	}, nil
}

// Delete removes the output file
func (*fileStorageManager) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, nothing to delete
			return nil
		}
		return fmt.Errorf("failed to delete output file: %w", err)
	}
	return nil
}
