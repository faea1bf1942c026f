package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

func writeBlobFile(t *testing.T, baseDir string, ptr interfaces.BlobPointer, data []byte) error {
	t.Helper()
	return os.WriteFile(filepath.Join(baseDir, "envelopes", ptr.String()), data, 0600)
}

func TestFactoryDispatch(t *testing.T) {
	factory := NewBlobStoreFactory(testLogger())

	testCases := []struct {
		name     string
		uri      string
		wantName string
	}{
		{
			name:     "memory",
			uri:      "mem://",
			wantName: "memory",
		},
		{
			name:     "file",
			uri:      "file://" + t.TempDir(),
			wantName: "file-",
		},
		{
			name:     "ipfs",
			uri:      "ipfs://127.0.0.1:5001",
			wantName: "ipfs-127.0.0.1-5001",
		},
		{
			name:     "s3",
			uri:      "s3://my-bucket/envelopes?region=us-east-1",
			wantName: "s3-my-bucket",
		},
		{
			name:     "vault",
			uri:      "vault://127.0.0.1:8200/secret/vault-envelopes",
			wantName: "vault-secret",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			backend, err := factory.BlobStoreFor(tc.uri)
			require.NoError(t, err)
			require.Contains(t, backend.Name(), tc.wantName)
		})
	}
}

func TestFactoryRejectsUnsupportedScheme(t *testing.T) {
	factory := NewBlobStoreFactory(testLogger())

	_, err := factory.BlobStoreFor("ftp://example.com/blobs")
	require.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestFactoryMultiStore(t *testing.T) {
	factory := NewBlobStoreFactory(testLogger())

	store, err := factory.CreateMultiStore([]string{"mem://", "file://" + t.TempDir()})
	require.NoError(t, err)
	require.Contains(t, store.Name(), "multi(")

	// A single valid location returns the bare backend rather than a
	// one-element aggregate.
	single, err := factory.CreateMultiStore([]string{"mem://"})
	require.NoError(t, err)
	require.Equal(t, "memory", single.Name())

	_, err = factory.CreateMultiStore([]string{"ftp://nope"})
	require.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}
