package prover

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/atomic"
)

// DevServerConfig configures the development proof backend.
type DevServerConfig struct {
	// Log is the structured logger for request handling.
	Log *slog.Logger

	// ProvingDelay simulates real proof generation latency. Zero means
	// respond immediately.
	ProvingDelay time.Duration
}

// DevServer is a development proof backend speaking the Client wire
// protocol. It checks the one relation the production circuit proves (the
// witness hashes to publicInputs[0]) and emits dev proofs bound to the
// public inputs. Never deploy it where a real prover is expected.
type DevServer struct {
	cfg     *DevServerConfig
	log     *slog.Logger
	isReady atomic.Bool
}

// NewDevServer creates a development proof backend.
func NewDevServer(cfg *DevServerConfig) *DevServer {
	srv := &DevServer{
		cfg: cfg,
		log: cfg.Log,
	}
	srv.isReady.Store(true)
	return srv
}

// Router returns the HTTP handler for the dev server.
func (s *DevServer) Router() http.Handler {
	mux := chi.NewRouter()
	mux.With(s.httpLogger).Post("/api/proof/generate", s.handleGenerate)
	mux.With(s.httpLogger).Get("/livez", s.handleLiveness)
	mux.With(s.httpLogger).Get("/readyz", s.handleReadiness)
	return mux
}

// SetReady flips the readiness state, letting tests exercise client
// retries against a temporarily unavailable backend.
func (s *DevServer) SetReady(ready bool) {
	s.isReady.Store(ready)
}

func (s *DevServer) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(s.log, next)
}

func (s *DevServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.isReady.Load() {
		http.Error(w, "prover not ready", http.StatusServiceUnavailable)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	witness, err := base64.StdEncoding.DecodeString(req.Witness)
	if err != nil || len(witness) == 0 {
		http.Error(w, "malformed witness", http.StatusBadRequest)
		return
	}

	inputs, err := decodeWords(req.PublicInputs)
	if err != nil || len(inputs) == 0 {
		http.Error(w, "malformed public inputs", http.StatusBadRequest)
		return
	}

	// The relation the production circuit proves: the private witness
	// hashes to the committed digest.
	digest := ethcrypto.Keccak256Hash(witness)
	if digest != common.Hash(inputs[0]) {
		s.log.Debug("Witness does not satisfy relation",
			slog.String("expected", digest.Hex()[:10]))
		http.Error(w, "witness does not match committed digest", http.StatusUnprocessableEntity)
		return
	}

	if s.cfg.ProvingDelay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(s.cfg.ProvingDelay):
		}
	}

	resp := GenerateResponse{
		Proof:        base64.StdEncoding.EncodeToString(BuildDevProof(inputs)),
		PublicInputs: req.PublicInputs,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("Failed to encode proof response", "err", err)
	}
}

func (s *DevServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *DevServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !s.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
