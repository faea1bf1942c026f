package cryptoutils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// KeyDerivationMessageV1 is the fixed, versioned message a wallet signs to
// produce derivation secret material. Changing this string changes every
// derived key, so it is only ever extended with a new version constant.
const KeyDerivationMessageV1 = "vault-integrity-engine key derivation v1"

// sessionKeyInfo is the HKDF expand context for session keys.
const sessionKeyInfo = "vault/session-key/v1"

// SessionKeySize is the size of a derived session key in bytes.
const SessionKeySize = 32

// SecretMaterial is wallet-controlled input to session key derivation.
// Either a deterministic signature over KeyDerivationMessageV1 or, on the
// explicitly insecure development path, a raw exported private key.
type SecretMaterial interface {
	// ikm returns the input key material fed into HKDF extract.
	ikm() ([]byte, error)
}

// SignatureMaterial wraps a deterministic wallet signature over
// KeyDerivationMessageV1. This is the production derivation path.
type SignatureMaterial struct {
	Signature []byte
}

func (m SignatureMaterial) ikm() ([]byte, error) {
	if len(m.Signature) == 0 {
		return nil, fmt.Errorf("%w: empty signature", interfaces.ErrDerivation)
	}
	return m.Signature, nil
}

// PrivateKeyMaterial wraps a raw exported private key hex string. This is a
// higher-trust path intended for development only; constructing it without
// AllowInsecure fails derivation.
type PrivateKeyMaterial struct {
	KeyHex        string
	AllowInsecure bool
}

func (m PrivateKeyMaterial) ikm() ([]byte, error) {
	if !m.AllowInsecure {
		return nil, fmt.Errorf("%w: private key derivation requires explicit insecure acknowledgment", interfaces.ErrDerivation)
	}

	clean := strings.TrimPrefix(m.KeyHex, "0x")
	if clean == "" {
		return nil, fmt.Errorf("%w: empty private key", interfaces.ErrDerivation)
	}

	priv, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed private key: %v", interfaces.ErrDerivation, err)
	}
	return crypto.FromECDSA(priv), nil
}

// SessionKey is a derived 256-bit symmetric key tagged with the address it
// was derived for. It lives only in memory for the duration of a session
// and must be zeroed on sign-out.
type SessionKey struct {
	key     [SessionKeySize]byte
	address common.Address
}

// DeriveSessionKey derives the session encryption key from wallet secret
// material using HKDF-SHA256 with the wallet address as salt. The function
// is pure: identical (secret, address) inputs always yield a byte-identical
// key, and different addresses with the same secret yield unrelated keys.
func DeriveSessionKey(secret SecretMaterial, address common.Address) (*SessionKey, error) {
	if secret == nil {
		return nil, fmt.Errorf("%w: missing secret material", interfaces.ErrDerivation)
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("%w: missing address", interfaces.ErrDerivation)
	}

	ikm, err := secret.ikm()
	if err != nil {
		return nil, err
	}

	sk := &SessionKey{address: address}
	stream := hkdf.New(sha256.New, ikm, address.Bytes(), []byte(sessionKeyInfo))
	if _, err := io.ReadFull(stream, sk.key[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrDerivation, err)
	}
	return sk, nil
}

// Bytes returns the raw key. Callers must not log or persist it.
func (k *SessionKey) Bytes() []byte {
	return k.key[:]
}

// Address returns the address the key was derived for.
func (k *SessionKey) Address() common.Address {
	return k.address
}

// Preview returns the first 8 hex characters of the key, the only
// representation permitted in logs and error messages.
func (k *SessionKey) Preview() string {
	return hex.EncodeToString(k.key[:4])
}

// Zero overwrites the key material. The key is unusable afterwards.
func (k *SessionKey) Zero() {
	for i := range k.key {
		k.key[i] = 0
	}
}
