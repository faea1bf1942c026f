package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// MultiBlobStore implements interfaces.BlobStore across multiple backends
// with redundancy: Put writes to every available backend, Get returns from
// the first backend that has the content.
type MultiBlobStore struct {
	backends []interfaces.BlobStore
	log      *slog.Logger
}

// NewMultiBlobStore creates a redundant blob store over the given backends.
func NewMultiBlobStore(backends []interfaces.BlobStore, log *slog.Logger) *MultiBlobStore {
	if log == nil {
		log = slog.Default()
	}
	return &MultiBlobStore{
		backends: backends,
		log:      log,
	}
}

// Put stores envelope bytes to all available backends. It succeeds if at
// least one backend accepted the blob; per-backend failures are logged and
// aggregated into the error when all fail.
func (m *MultiBlobStore) Put(ctx context.Context, data []byte) (interfaces.BlobPointer, error) {
	start := time.Now()
	ptr := interfaces.ComputeBlobPointer(data)

	var success bool
	var errs []error
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if _, err := backend.Put(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store blob in backend",
				slog.String("backend_name", backend.Name()),
				slog.String("blobPointer", ptr.String()),
				"err", err)
			continue
		}
		success = true
	}

	if !success {
		m.log.Error("All backends failed to store blob",
			slog.String("blobPointer", ptr.String()),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return ptr, fmt.Errorf("%w: all backends failed to store %s: %v", interfaces.ErrBackendUnavailable, ptr, errs)
	}

	m.log.Debug("Stored envelope",
		slog.String("blobPointer", ptr.String()),
		slog.Duration("duration", time.Since(start)))
	return ptr, nil
}

// Get retrieves envelope bytes from the first backend that has them.
func (m *MultiBlobStore) Get(ctx context.Context, ptr interfaces.BlobPointer) ([]byte, error) {
	start := time.Now()

	var errs []error
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("blobPointer", ptr.String()))
			continue
		}

		data, err := backend.Get(ctx, ptr)
		if err == nil {
			m.log.Debug("Fetched envelope",
				slog.String("backend_name", backend.Name()),
				slog.String("blobPointer", ptr.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
	}

	m.log.Error("All backends failed to fetch blob",
		slog.String("blobPointer", ptr.String()),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))
	return nil, fmt.Errorf("%w: all backends failed to fetch %s: %v", interfaces.ErrContentNotFound, ptr, errs)
}

// Available reports whether any backend is reachable.
func (m *MultiBlobStore) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns a unique identifier for this backend aggregation.
func (m *MultiBlobStore) Name() string {
	names := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		names = append(names, backend.Name())
	}
	return fmt.Sprintf("multi(%s)", strings.Join(names, ","))
}

// LocationURI returns the URIs of all aggregated backends.
func (m *MultiBlobStore) LocationURI() string {
	uris := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		uris = append(uris, backend.LocationURI())
	}
	return strings.Join(uris, ",")
}
