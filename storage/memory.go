package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// MemoryBackend implements an in-memory blob store for tests and
// development. Safe for concurrent use.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[interfaces.BlobPointer][]byte
	log   *slog.Logger

	// FailPuts makes Put fail with ErrBackendUnavailable, for exercising
	// partial-write paths in tests.
	FailPuts bool
}

// NewMemoryBackend creates an empty in-memory blob store.
func NewMemoryBackend(log *slog.Logger) *MemoryBackend {
	return &MemoryBackend{
		blobs: make(map[interfaces.BlobPointer][]byte),
		log:   log,
	}
}

// Put stores envelope bytes under their content address.
func (b *MemoryBackend) Put(ctx context.Context, data []byte) (interfaces.BlobPointer, error) {
	ptr := interfaces.ComputeBlobPointer(data)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailPuts {
		return ptr, interfaces.ErrBackendUnavailable
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	b.blobs[ptr] = stored
	return ptr, nil
}

// Get retrieves envelope bytes by content address.
func (b *MemoryBackend) Get(ctx context.Context, ptr interfaces.BlobPointer) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.blobs[ptr]
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Available always reports true.
func (b *MemoryBackend) Available(ctx context.Context) bool {
	return !b.FailPuts
}

// Name returns a unique identifier for this backend.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// LocationURI returns the URI that identifies this backend.
func (b *MemoryBackend) LocationURI() string {
	return "mem://"
}

// Corrupt overwrites a stored blob in place, for tests that need a blob
// whose content no longer matches its pointer.
func (b *MemoryBackend) Corrupt(ptr interfaces.BlobPointer, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[ptr] = data
}
