package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// FileBackend implements a blob store backend using the local file system.
// Envelopes are stored under their content address in a single directory.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file blob store backend using the specified
// base directory, creating it if necessary.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	envelopeDir := filepath.Join(baseDir, "envelopes")
	if err := os.MkdirAll(envelopeDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create envelopes directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Put writes envelope bytes to disk under their content address.
func (b *FileBackend) Put(ctx context.Context, data []byte) (interfaces.BlobPointer, error) {
	ptr := interfaces.ComputeBlobPointer(data)

	if err := os.WriteFile(b.blobPath(ptr), data, 0600); err != nil {
		return ptr, fmt.Errorf("failed to write blob: %w", err)
	}

	b.log.Debug("Stored envelope on disk",
		slog.String("blobPointer", ptr.String()),
		slog.Int("size", len(data)))

	return ptr, nil
}

// Get reads envelope bytes from disk by their content address. Returns
// ErrContentNotFound if the file doesn't exist.
func (b *FileBackend) Get(ctx context.Context, ptr interfaces.BlobPointer) ([]byte, error) {
	data, err := os.ReadFile(b.blobPath(ptr))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	if got := interfaces.ComputeBlobPointer(data); got != ptr {
		return nil, fmt.Errorf("%w: blob content does not match pointer %s", interfaces.ErrIntegrity, ptr)
	}

	return data, nil
}

// Available checks if the base directory is accessible.
func (b *FileBackend) Available(ctx context.Context) bool {
	info, err := os.Stat(b.baseDir)
	return err == nil && info.IsDir()
}

// Name returns a unique identifier for this backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", b.baseDir)
}

// LocationURI returns the URI that identifies this backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) blobPath(ptr interfaces.BlobPointer) string {
	return filepath.Join(b.baseDir, "envelopes", ptr.String())
}
