package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// VaultBackend implements a blob store backend using HashiCorp Vault's
// KV v2 secrets engine. Envelope bytes are base64-encoded into the secret
// payload since KV values are JSON.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault blob store backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path within the mount (e.g. "vault-envelopes")
//   - token: Vault token; taken from the environment when empty
//   - log: structured logger for operational insights
func NewVaultBackend(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Put stores envelope bytes in Vault under their content address.
func (b *VaultBackend) Put(ctx context.Context, data []byte) (interfaces.BlobPointer, error) {
	start := time.Now()
	ptr := interfaces.ComputeBlobPointer(data)
	path := b.secretPath(ptr)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"envelope": base64.StdEncoding.EncodeToString(data),
		},
	}

	if _, err := b.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			slog.String("blobPointer", ptr.String()),
			"err", err)
		return ptr, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored envelope in Vault",
		slog.String("blobPointer", ptr.String()),
		slog.Duration("duration", time.Since(start)))

	return ptr, nil
}

// Get retrieves envelope bytes from Vault by their content address.
func (b *VaultBackend) Get(ctx context.Context, ptr interfaces.BlobPointer) ([]byte, error) {
	start := time.Now()
	path := b.secretPath(ptr)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			slog.String("blobPointer", ptr.String()),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrContentNotFound
	}

	// KV v2 wraps the payload in a "data" map.
	payload, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}
	encoded, ok := payload["envelope"].(string)
	if !ok {
		return nil, fmt.Errorf("envelope key not found in Vault data")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope from Vault: %w", err)
	}

	if got := interfaces.ComputeBlobPointer(data); got != ptr {
		return nil, fmt.Errorf("%w: blob content does not match pointer %s", interfaces.ErrIntegrity, ptr)
	}

	b.log.Debug("Fetched envelope from Vault",
		slog.String("blobPointer", ptr.String()),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Available checks if the Vault server is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	health, err := b.client.Sys().HealthWithContext(ctx)
	if err != nil {
		b.log.Debug("Vault backend unavailable", "err", err)
		return false
	}
	return health.Initialized && !health.Sealed
}

// Name returns a unique identifier for this backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s", b.mountPath)
}

// LocationURI returns the URI that identifies this backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

func (b *VaultBackend) secretPath(ptr interfaces.BlobPointer) string {
	return fmt.Sprintf("%s/data/%s/%s", b.mountPath, b.dataPath, ptr)
}
