package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/logger"
	"github.com/ukstats/sourcefetch/internal/sources"
)

// Result contains the result of a successful fetch of one source
type Result struct {
	OutputFile  string
	Hash        string
	RowCount    int
	Bytes       int64
	ResolvedURL string
	Member      string
}

// Manager performs the fetch pipeline for a single source
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/ukstats/sourcefetch/internal/fetcher Manager
type Manager interface {
	// PerformFetch fetches the source and writes its CSV to outputFile.
	// Failures are returned as *sources.Error where the kind is known.
	PerformFetch(ctx context.Context, source *config.SourceConfig, outputFile string) (*Result, error)
}

// defaultManager is the default implementation of Manager
type defaultManager struct {
	handlerFactory sources.SourceHandlerFactory
	storageManager sources.StorageManager
}

// NewDefaultManager creates a new defaultManager
func NewDefaultManager(handlerFactory sources.SourceHandlerFactory, storageManager sources.StorageManager) Manager {
	return &defaultManager{
		handlerFactory: handlerFactory,
		storageManager: storageManager,
	}
}

// PerformFetch performs the complete fetch operation for a specific source
func (m *defaultManager) PerformFetch(
	ctx context.Context, source *config.SourceConfig, outputFile string,
) (*Result, error) {
	log := logger.FromContext(ctx)

	handler, err := m.handlerFactory.CreateHandler(source.Type)
	if err != nil {
		log.Error(err, "Failed to create source handler")
		return nil, fmt.Errorf("failed to create source handler: %w", err)
	}

	if err := handler.Validate(source); err != nil {
		log.Error(err, "Source validation failed")
		return nil, fmt.Errorf("source validation failed: %w", err)
	}

	fetchResult, err := handler.Fetch(ctx, source)
	if err != nil {
		var srcErr *sources.Error
		if !errors.As(err, &srcErr) {
			err = sources.NewError(sources.ErrFetch, source.Name, err)
		}
		return nil, err
	}

	log.V(1).Info("Source data fetched",
		"rows", fetchResult.RowCount(),
		"bytes", fetchResult.Bytes,
		"url", fetchResult.ResolvedURL)

	stored, err := m.storageManager.Store(ctx, outputFile, fetchResult.Table)
	if err != nil {
		log.Error(err, "Failed to store CSV", "path", outputFile)
		return nil, sources.NewError(sources.ErrWrite, source.Name, err)
	}

	return &Result{
		OutputFile:  stored.Path,
		Hash:        stored.Hash,
		RowCount:    stored.Rows,
		Bytes:       fetchResult.Bytes,
		ResolvedURL: fetchResult.ResolvedURL,
		Member:      fetchResult.Member,
	}, nil
}
