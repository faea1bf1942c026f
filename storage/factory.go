package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// BlobStoreFactory creates blob store backends from URI strings and manages
// multi-backend configurations for redundant storage.
type BlobStoreFactory struct {
	log *slog.Logger
}

// NewBlobStoreFactory creates a new factory instance.
func NewBlobStoreFactory(log *slog.Logger) *BlobStoreFactory {
	return &BlobStoreFactory{log: log}
}

// BlobStoreFor creates a blob store backend from a location URI.
// The URI format is [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - ipfs:// - IPFS node or gateway
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2
//   - file:// - local filesystem
//   - mem:// - in-memory (tests and development)
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *BlobStoreFactory) BlobStoreFor(locationURI string) (interfaces.BlobStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ipfs":
		return f.createIPFSBackend(u)
	case "s3":
		return f.createS3Backend(u)
	case "vault":
		return f.createVaultBackend(u)
	case "file":
		return NewFileBackend(u.Path, f.log)
	case "mem":
		return NewMemoryBackend(f.log), nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiStore creates a redundant blob store from a list of location
// URIs. Invalid URIs are skipped with a warning; at least one backend must
// be constructible.
func (f *BlobStoreFactory) CreateMultiStore(locationURIs []string) (interfaces.BlobStore, error) {
	backends := make([]interfaces.BlobStore, 0, len(locationURIs))
	for _, uri := range locationURIs {
		backend, err := f.BlobStoreFor(uri)
		if err != nil {
			f.log.Warn("Skipping invalid blob store location",
				slog.String("uri", uri),
				"err", err)
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: no valid blob store locations", interfaces.ErrInvalidLocationURI)
	}
	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiBlobStore(backends, f.log), nil
}

func (f *BlobStoreFactory) createIPFSBackend(u *url.URL) (interfaces.BlobStore, error) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5001"
	}
	useGateway := u.Query().Get("gateway") == "true"
	return NewIPFSBackend(host, port, useGateway, f.log)
}

func (f *BlobStoreFactory) createS3Backend(u *url.URL) (interfaces.BlobStore, error) {
	bucket := u.Host
	prefix := strings.TrimPrefix(u.Path, "/")
	region := u.Query().Get("region")
	endpoint := u.Query().Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}
	return NewS3Backend(bucket, prefix, region, endpoint, accessKey, secretKey, f.log)
}

func (f *BlobStoreFactory) createVaultBackend(u *url.URL) (interfaces.BlobStore, error) {
	scheme := "https"
	if u.Query().Get("insecure") == "true" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: vault URI requires /mount/path", interfaces.ErrInvalidLocationURI)
	}

	var token string
	if u.User != nil {
		token = u.User.Username()
	}
	return NewVaultBackend(address, parts[0], parts[1], token, f.log)
}
