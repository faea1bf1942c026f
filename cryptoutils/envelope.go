package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// EnvelopeVersion1 is the only envelope version currently produced:
// AES-256-GCM with the session key, versioned binary layout.
const EnvelopeVersion1 uint8 = 1

const (
	envelopeSaltSize = 32
	envelopeIVSize   = 12
	envelopeTagSize  = 16

	// version(1) || salt(32) || iv(12) || ctLen(4)
	envelopeHeaderSize = 1 + envelopeSaltSize + envelopeIVSize + 4
)

// EntryPlaintext is the structured content of one vault entry. It is owned
// exclusively by the caller during a seal/open call and never cached by the
// codec.
type EntryPlaintext struct {
	Service   string    `json:"service"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Category  string    `json:"category,omitempty"`
	Network   string    `json:"network,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Envelope is the versioned at-rest form of an encrypted entry. All byte
// fields are fixed-length per version so the binary layout parses strictly.
type Envelope struct {
	Version    uint8
	Salt       [envelopeSaltSize]byte
	IV         [envelopeIVSize]byte
	Ciphertext []byte
	AuthTag    [envelopeTagSize]byte
}

// SealEntry encrypts a vault entry under the session key using AES-256-GCM
// with a freshly generated random nonce. A per-envelope random salt is
// recorded for forward compatibility with per-envelope key derivation; in
// version 1 it is authenticated alongside the version byte as associated
// data but does not alter the key.
func SealEntry(pt *EntryPlaintext, key *SessionKey) (*Envelope, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: missing session key", interfaces.ErrDerivation)
	}

	plaintext, err := json.Marshal(pt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}

	env := &Envelope{Version: EnvelopeVersion1}
	if _, err := io.ReadFull(rand.Reader, env.Salt[:]); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, env.IV[:]); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	aead, err := newEnvelopeAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, env.IV[:], plaintext, envelopeAAD(env.Version, env.Salt))
	tagStart := len(sealed) - envelopeTagSize
	env.Ciphertext = sealed[:tagStart]
	copy(env.AuthTag[:], sealed[tagStart:])
	return env, nil
}

// OpenEntry authenticates and decrypts an envelope. It fails with
// ErrIntegrity on tag mismatch and ErrFormat for unsupported versions, and
// never returns partially decrypted data.
func OpenEntry(env *Envelope, key *SessionKey) (*EntryPlaintext, error) {
	if env.Version != EnvelopeVersion1 {
		return nil, fmt.Errorf("%w: unsupported version %d", interfaces.ErrFormat, env.Version)
	}

	aead, err := newEnvelopeAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+envelopeTagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag[:]...)

	plaintext, err := aead.Open(nil, env.IV[:], sealed, envelopeAAD(env.Version, env.Salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrIntegrity, err)
	}

	var pt EntryPlaintext
	if err := json.Unmarshal(plaintext, &pt); err != nil {
		return nil, fmt.Errorf("%w: invalid entry encoding: %v", interfaces.ErrFormat, err)
	}
	return &pt, nil
}

// Marshal serializes the envelope into its strict binary layout:
// version(1) || salt(32) || iv(12) || ctLen(u32 BE) || ciphertext || tag(16).
func (env *Envelope) Marshal() []byte {
	out := make([]byte, envelopeHeaderSize+len(env.Ciphertext)+envelopeTagSize)
	out[0] = env.Version
	copy(out[1:], env.Salt[:])
	copy(out[1+envelopeSaltSize:], env.IV[:])
	binary.BigEndian.PutUint32(out[1+envelopeSaltSize+envelopeIVSize:], uint32(len(env.Ciphertext)))
	copy(out[envelopeHeaderSize:], env.Ciphertext)
	copy(out[envelopeHeaderSize+len(env.Ciphertext):], env.AuthTag[:])
	return out
}

// ParseEnvelope parses the binary layout produced by Marshal. Unknown
// versions, truncated input, and trailing bytes all fail with ErrFormat
// rather than being tolerated.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) < envelopeHeaderSize+envelopeTagSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than minimum envelope", interfaces.ErrFormat, len(data))
	}
	if data[0] != EnvelopeVersion1 {
		return nil, fmt.Errorf("%w: unsupported version %d", interfaces.ErrFormat, data[0])
	}

	env := &Envelope{Version: data[0]}
	copy(env.Salt[:], data[1:])
	copy(env.IV[:], data[1+envelopeSaltSize:])

	ctLen := binary.BigEndian.Uint32(data[1+envelopeSaltSize+envelopeIVSize:])
	if len(data) != envelopeHeaderSize+int(ctLen)+envelopeTagSize {
		return nil, fmt.Errorf("%w: ciphertext length %d does not match envelope size %d", interfaces.ErrFormat, ctLen, len(data))
	}

	env.Ciphertext = make([]byte, ctLen)
	copy(env.Ciphertext, data[envelopeHeaderSize:])
	copy(env.AuthTag[:], data[envelopeHeaderSize+int(ctLen):])
	return env, nil
}

func newEnvelopeAEAD(key *SessionKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// envelopeAAD binds version and salt into the authentication tag so neither
// can be swapped without failing decryption.
func envelopeAAD(version uint8, salt [envelopeSaltSize]byte) []byte {
	aad := make([]byte, 1+envelopeSaltSize)
	aad[0] = version
	copy(aad[1:], salt[:])
	return aad
}
