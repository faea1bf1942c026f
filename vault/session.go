package vault

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/atomic"

	"github.com/walletvault/vault-integrity-engine/cryptoutils"
	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// SessionConfig configures a vault session.
type SessionConfig struct {
	Signer interfaces.WalletSigner

	// AllowInsecureKeyExport switches derivation from the signature path
	// to raw private key export. The signer must implement
	// interfaces.PrivateKeyExporter. Development only.
	AllowInsecureKeyExport bool

	Log *slog.Logger
}

// Session holds the derived session key for one signed-in wallet. The key
// is derived at most once per session: concurrent callers collapse onto a
// single wallet interaction and share the cached key. SignOut zeroes the
// key; a new derivation requires a fresh wallet round trip.
type Session struct {
	signer   interfaces.WalletSigner
	insecure bool
	log      *slog.Logger

	mu       sync.Mutex
	key      *cryptoutils.SessionKey
	isActive atomic.Bool
}

// NewSession creates a session for the given wallet. No wallet interaction
// happens until the first Key call.
func NewSession(cfg *SessionConfig) (*Session, error) {
	if cfg.Signer == nil {
		return nil, interfaces.ErrNoSigner
	}
	if cfg.AllowInsecureKeyExport {
		if _, ok := cfg.Signer.(interfaces.PrivateKeyExporter); !ok {
			return nil, fmt.Errorf("%w: signer does not support private key export", interfaces.ErrDerivation)
		}
		cfg.Log.Warn("Session configured for insecure private key export derivation",
			slog.String("address", cfg.Signer.Address().Hex()))
	}
	return &Session{
		signer:   cfg.Signer,
		insecure: cfg.AllowInsecureKeyExport,
		log:      cfg.Log,
	}, nil
}

// Address returns the wallet address this session belongs to.
func (s *Session) Address() common.Address {
	return s.signer.Address()
}

// Active reports whether a session key is currently derived.
func (s *Session) Active() bool {
	return s.isActive.Load()
}

// Key returns the session key, deriving it on first use. The derivation
// lock doubles as in-flight de-duplication: callers arriving while a
// derivation is underway block and receive the same key rather than
// triggering a second wallet prompt.
func (s *Session) Key(ctx context.Context) (*cryptoutils.SessionKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	material, err := s.secretMaterial(ctx)
	if err != nil {
		return nil, err
	}

	key, err := cryptoutils.DeriveSessionKey(material, s.signer.Address())
	if err != nil {
		return nil, err
	}

	s.key = key
	s.isActive.Store(true)
	s.log.Info("Session key derived",
		slog.String("address", s.signer.Address().Hex()),
		slog.String("keyPreview", key.Preview()))
	return key, nil
}

// SignOut zeroes and drops the session key. Idempotent.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return
	}
	s.key.Zero()
	s.key = nil
	s.isActive.Store(false)
	s.log.Info("Session signed out", slog.String("address", s.signer.Address().Hex()))
}

func (s *Session) secretMaterial(ctx context.Context) (cryptoutils.SecretMaterial, error) {
	if s.insecure {
		exporter := s.signer.(interfaces.PrivateKeyExporter)
		keyHex, err := exporter.ExportPrivateKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: key export failed: %v", interfaces.ErrDerivation, err)
		}
		return cryptoutils.PrivateKeyMaterial{KeyHex: keyHex, AllowInsecure: true}, nil
	}

	signature, err := s.signer.SignMessage(ctx, cryptoutils.KeyDerivationMessageV1)
	if err != nil {
		return nil, fmt.Errorf("%w: wallet signing failed: %v", interfaces.ErrDerivation, err)
	}
	return cryptoutils.SignatureMaterial{Signature: signature}, nil
}
