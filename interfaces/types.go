package interfaces

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// EntryID uniquely identifies one vault entry across its whole history.
// Updates and soft deletes reuse the EntryID; only new entries mint one.
type EntryID [32]byte

// NewEntryID mints a fresh entry identifier. IDs are derived from a random
// UUID so they are unguessable and uniformly distributed, which keeps them
// usable as bytes32 contract keys.
func NewEntryID() EntryID {
	id := uuid.Must(uuid.NewRandom())
	return EntryID(crypto.Keccak256Hash(id[:]))
}

// NewEntryIDFromHex parses a 64-character hex string into an EntryID.
func NewEntryIDFromHex(source string) (EntryID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return EntryID{}, errors.New("invalid entry ID length: hex string must be 64 characters")
	}

	idBytes, err := hex.DecodeString(clean)
	if err != nil {
		return EntryID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var id EntryID
	copy(id[:], idBytes)
	return id, nil
}

// String returns the hex representation.
func (id EntryID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte identifier.
func (id EntryID) Bytes() []byte {
	return id[:]
}

// Less orders entry IDs lexicographically, used for deterministic
// tie-breaking in listings.
func (id EntryID) Less(other EntryID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// BlobPointer is the content address of an encrypted envelope in the blob
// store: the SHA-256 hash of the envelope bytes.
type BlobPointer [32]byte

// ComputeBlobPointer calculates the content address for envelope bytes.
func ComputeBlobPointer(data []byte) BlobPointer {
	return BlobPointer(sha256.Sum256(data))
}

// NewBlobPointerFromHex parses a 64-character hex string into a BlobPointer.
func NewBlobPointerFromHex(source string) (BlobPointer, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return BlobPointer{}, errors.New("invalid blob pointer length: hex string must be 64 characters")
	}

	ptrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return BlobPointer{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var ptr BlobPointer
	copy(ptr[:], ptrBytes)
	return ptr, nil
}

// String returns the hex representation.
func (p BlobPointer) String() string {
	return hex.EncodeToString(p[:])
}

// Bytes returns the raw 32-byte pointer.
func (p BlobPointer) Bytes() []byte {
	return p[:]
}

// IsZero reports whether the pointer is unset.
func (p BlobPointer) IsZero() bool {
	return p == BlobPointer{}
}

// PasswordDigest is the 32-byte keccak-256 digest of a canonically encoded
// password, as recorded on chain.
type PasswordDigest [32]byte

// String returns the hex representation.
func (d PasswordDigest) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns the raw 32-byte digest.
func (d PasswordDigest) Bytes() []byte {
	return d[:]
}

// IsZero reports whether the digest is unset.
func (d PasswordDigest) IsZero() bool {
	return d == PasswordDigest{}
}

// CommitmentRecord is one entry's on-chain state as returned by the vault
// contract: the committed password digest, the content address of the
// encrypted envelope, and lifecycle metadata. Records are never mutated on
// chain; updates emit a superseding record under the same entry ID.
type CommitmentRecord struct {
	StoredHash  PasswordDigest
	BlobPointer BlobPointer
	Timestamp   time.Time
	IsActive    bool
}

// Proof is a zero-knowledge proof together with the ordered public inputs it
// was generated against. PublicInputs[0] must equal the on-chain stored hash
// for a verification attempt to be meaningful.
type Proof struct {
	ProofBytes   []byte
	PublicInputs [][32]byte
}
