package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestMemoryBackendRoundTrip(t *testing.T) {
	backend := NewMemoryBackend(testLogger())
	ctx := context.Background()

	data := []byte("envelope bytes")
	ptr, err := backend.Put(ctx, data)
	require.NoError(t, err)
	require.Equal(t, interfaces.ComputeBlobPointer(data), ptr)

	fetched, err := backend.Get(ctx, ptr)
	require.NoError(t, err)
	require.Equal(t, data, fetched)

	_, err = backend.Get(ctx, interfaces.BlobPointer{0x01})
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackendRoundTrip(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("on-disk envelope")
	ptr, err := backend.Put(ctx, data)
	require.NoError(t, err)
	require.True(t, backend.Available(ctx))

	fetched, err := backend.Get(ctx, ptr)
	require.NoError(t, err)
	require.Equal(t, data, fetched)

	_, err = backend.Get(ctx, interfaces.BlobPointer{0x02})
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestMultiBlobStoreFailover(t *testing.T) {
	ctx := context.Background()
	healthy := NewMemoryBackend(testLogger())
	broken := NewMemoryBackend(testLogger())
	broken.FailPuts = true

	multi := NewMultiBlobStore([]interfaces.BlobStore{broken, healthy}, testLogger())

	data := []byte("redundant envelope")
	ptr, err := multi.Put(ctx, data)
	require.NoError(t, err)

	// Only the healthy backend holds the blob; Get falls through to it.
	fetched, err := multi.Get(ctx, ptr)
	require.NoError(t, err)
	require.Equal(t, data, fetched)
}

func TestMultiBlobStoreAllBackendsFail(t *testing.T) {
	ctx := context.Background()
	broken := NewMemoryBackend(testLogger())
	broken.FailPuts = true

	multi := NewMultiBlobStore([]interfaces.BlobStore{broken}, testLogger())

	_, err := multi.Put(ctx, []byte("data"))
	require.ErrorIs(t, err, interfaces.ErrBackendUnavailable)

	_, err = multi.Get(ctx, interfaces.BlobPointer{0x03})
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackendDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	ptr, err := backend.Put(ctx, []byte("original"))
	require.NoError(t, err)

	// Overwrite the blob file with different content.
	corrupted, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	writeErr := writeBlobFile(t, dir, ptr, []byte("tampered"))
	require.NoError(t, writeErr)

	_, err = corrupted.Get(ctx, ptr)
	require.ErrorIs(t, err, interfaces.ErrIntegrity)
}
