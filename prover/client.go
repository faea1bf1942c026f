package prover

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

const (
	// maxAttempts bounds proof generation retries. Only transport and
	// server-side failures are retried; witness rejections are not.
	maxAttempts = 3

	// initialBackoff is doubled after each failed attempt.
	initialBackoff = 500 * time.Millisecond
)

// GenerateRequest is the wire format of a proof generation request. The
// witness travels base64-encoded; public inputs are hex words.
type GenerateRequest struct {
	Witness      string   `json:"witness"`
	PublicInputs []string `json:"publicInputs"`
}

// GenerateResponse is the wire format of a successful proof generation.
type GenerateResponse struct {
	Proof        string   `json:"proof"`
	PublicInputs []string `json:"publicInputs"`
}

// Client implements interfaces.ProofBackend over HTTP. The backend is
// treated as untrusted: returned proofs are re-verified by the caller
// regardless of what the backend reports.
type Client struct {
	// ServerAddr is the base URL of the proof backend.
	ServerAddr string

	// HTTPClient is used for requests; http.DefaultClient when nil.
	HTTPClient *http.Client

	// Log receives retry diagnostics. Never logs witness material.
	Log *slog.Logger
}

// NewClient creates a proof backend client for the given base URL.
func NewClient(serverAddr string, log *slog.Logger) *Client {
	return &Client{
		ServerAddr: strings.TrimSuffix(serverAddr, "/"),
		HTTPClient: &http.Client{},
		Log:        log,
	}
}

// GenerateProof requests a zero-knowledge proof from the backend. Proof
// generation is the one externally slow step of verification, so transient
// failures are retried up to maxAttempts with exponential backoff while
// honoring ctx cancellation; a backend that rejects the witness fails
// immediately with ErrProofGeneration.
func (c *Client) GenerateProof(ctx context.Context, witness interfaces.PrivateWitness, publicInputs [][32]byte) (*interfaces.Proof, error) {
	if len(witness.CanonicalPassword) == 0 {
		return nil, fmt.Errorf("%w: empty witness", interfaces.ErrProofGeneration)
	}

	reqBody := GenerateRequest{
		Witness:      base64.StdEncoding.EncodeToString(witness.CanonicalPassword),
		PublicInputs: encodeWords(publicInputs),
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrProofGeneration, err)
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		proof, retryable, err := c.generateOnce(ctx, payload)
		if err == nil {
			return proof, nil
		}
		lastErr = err

		if !retryable || attempt == maxAttempts {
			break
		}

		if c.Log != nil {
			c.Log.Warn("Proof generation attempt failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				"err", err)
		}

		select {
		case <-ctx.Done():
			return nil, mapCtxErr(ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

// generateOnce performs a single request. The second return value reports
// whether the failure is worth retrying.
func (c *Client) generateOnce(ctx context.Context, payload []byte) (*interfaces.Proof, bool, error) {
	url := c.ServerAddr + "/api/proof/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", interfaces.ErrProofGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, mapCtxErr(ctx.Err())
		}
		return nil, true, fmt.Errorf("%w: backend unreachable: %v", interfaces.ErrProofGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := ""
		if readErr == nil {
			detail = ": " + string(bodyBytes)
		}

		// Server-side trouble is transient; witness or input rejections
		// are not.
		retryable := resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("%w: backend returned %d%s", interfaces.ErrProofGeneration, resp.StatusCode, detail)
	}

	var parsed GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, true, fmt.Errorf("%w: could not parse response: %v", interfaces.ErrProofGeneration, err)
	}

	proofBytes, err := base64.StdEncoding.DecodeString(parsed.Proof)
	if err != nil {
		return nil, false, fmt.Errorf("%w: malformed proof encoding: %v", interfaces.ErrProofGeneration, err)
	}
	inputs, err := decodeWords(parsed.PublicInputs)
	if err != nil {
		return nil, false, fmt.Errorf("%w: malformed public inputs: %v", interfaces.ErrProofGeneration, err)
	}

	return &interfaces.Proof{ProofBytes: proofBytes, PublicInputs: inputs}, false, nil
}

func mapCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: proof generation: %v", interfaces.ErrTimeout, err)
	}
	return err
}

func encodeWords(words [][32]byte) []string {
	out := make([]string, len(words))
	for i, word := range words {
		out[i] = "0x" + hex.EncodeToString(word[:])
	}
	return out
}

func decodeWords(encoded []string) ([][32]byte, error) {
	out := make([][32]byte, len(encoded))
	for i, word := range encoded {
		raw, err := hex.DecodeString(strings.TrimPrefix(word, "0x"))
		if err != nil {
			return nil, err
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("word %d has length %d, want 32", i, len(raw))
		}
		copy(out[i][:], raw)
	}
	return out, nil
}
