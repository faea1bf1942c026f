package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// IPFSBackend implements a blob store backend using the InterPlanetary File
// System. It can connect to either an IPFS node or a gateway.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	useGateway  bool
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS blob store backend connected to the
// specified host and port. When useGateway is true, it uses the IPFS HTTP
// gateway instead of the IPFS API.
func NewIPFSBackend(host, port string, useGateway bool, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	var uri string
	if useGateway {
		uri = fmt.Sprintf("ipfs://%s/?gateway=true", apiURL)
	} else {
		uri = fmt.Sprintf("ipfs://%s/", apiURL)
	}

	return &IPFSBackend{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		useGateway:  useGateway,
		log:         log,
		locationURI: uri,
	}, nil
}

// Put adds envelope bytes to IPFS and returns their content address.
// Returns ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Put(ctx context.Context, data []byte) (interfaces.BlobPointer, error) {
	ptr := interfaces.ComputeBlobPointer(data)

	if !b.shell.IsUp() {
		return ptr, interfaces.ErrBackendUnavailable
	}

	cid, err := b.shell.Add(bytes.NewReader(data))
	if err != nil {
		return ptr, fmt.Errorf("failed to add data to IPFS: %w", err)
	}

	// Pin under a deterministic name so the blob is findable by pointer,
	// not only by IPFS CID.
	if err := b.shell.FilesWrite(ctx, b.blobPath(ptr), bytes.NewReader(data), shell.FilesWrite.Create(true), shell.FilesWrite.Parents(true)); err != nil {
		return ptr, fmt.Errorf("failed to write blob path: %w", err)
	}

	b.log.Debug("Stored envelope in IPFS",
		slog.String("ipfsCID", cid),
		slog.String("blobPointer", ptr.String()),
		slog.Int("size", len(data)))

	return ptr, nil
}

// Get retrieves envelope bytes from IPFS by their content address. Returns
// ErrContentNotFound if the blob doesn't exist or ErrBackendUnavailable if
// the IPFS node is not accessible.
func (b *IPFSBackend) Get(ctx context.Context, ptr interfaces.BlobPointer) ([]byte, error) {
	start := time.Now()

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, b.blobPath(ptr))
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "no link named") {
			b.log.Debug("Blob not found in IPFS",
				slog.String("blobPointer", ptr.String()),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrContentNotFound
		}

		b.log.Error("Failed to fetch blob from IPFS",
			slog.String("blobPointer", ptr.String()),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch blob from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob from IPFS: %w", err)
	}

	if got := interfaces.ComputeBlobPointer(data); got != ptr {
		return nil, fmt.Errorf("%w: blob content does not match pointer %s", interfaces.ErrIntegrity, ptr)
	}

	b.log.Debug("Fetched envelope from IPFS",
		slog.String("blobPointer", ptr.String()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) blobPath(ptr interfaces.BlobPointer) string {
	return fmt.Sprintf("/vault-envelopes/%s", ptr)
}
