package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WalletSigner is the narrow capability the engine requires from a wallet:
// a deterministic signature over a fixed message for a fixed address. The
// engine never sees the wallet's key material through this interface.
type WalletSigner interface {
	// SignMessage signs an arbitrary message string. For key derivation
	// the signature must be deterministic for a given (message, address)
	// pair; wallets using randomized ECDSA must not be used for
	// derivation without session caching.
	SignMessage(ctx context.Context, message string) ([]byte, error)

	// Address returns the wallet's account address.
	Address() common.Address
}

// PrivateKeyExporter is an optional, higher-trust wallet capability used
// only by the explicitly insecure development derivation path. Callers
// assert for it explicitly; absence is not an error, it simply disables
// the dev path.
type PrivateKeyExporter interface {
	// ExportPrivateKey returns the wallet's private key as a hex string.
	ExportPrivateKey(ctx context.Context) (string, error)
}

// BlobStore persists opaque encrypted envelope bytes under their content
// address. Implementations must not interpret the bytes.
type BlobStore interface {
	// Put stores data and returns its content address.
	Put(ctx context.Context, data []byte) (BlobPointer, error)

	// Get retrieves data by content address. Returns ErrContentNotFound
	// if the blob does not exist.
	Get(ctx context.Context, ptr BlobPointer) ([]byte, error)

	// Available reports whether the backend is reachable.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for this backend.
	Name() string

	// LocationURI returns the URI that identifies this backend.
	LocationURI() string
}

// VaultContract is the on-chain commitment registry and proof verifier. The
// write methods require a non-empty hash and pointer and emit an auditable
// event; the contract enforces both.
type VaultContract interface {
	// GetEntry reads the commitment record for (user, entryID). Returns
	// ErrEntryNotFound if no record exists.
	GetEntry(ctx context.Context, user common.Address, entryID EntryID) (CommitmentRecord, error)

	// EntryIDs lists all entry IDs ever recorded for the user, including
	// soft-deleted ones.
	EntryIDs(ctx context.Context, user common.Address) ([]EntryID, error)

	// StoreEntry records a new commitment.
	StoreEntry(ctx context.Context, entryID EntryID, storedHash PasswordDigest, ptr BlobPointer) (*types.Transaction, error)

	// UpdateEntry records a superseding commitment under an existing
	// entry ID.
	UpdateEntry(ctx context.Context, entryID EntryID, storedHash PasswordDigest, ptr BlobPointer) (*types.Transaction, error)

	// DeleteEntry soft-deletes an entry. History remains readable via
	// GetEntry.
	DeleteEntry(ctx context.Context, entryID EntryID) (*types.Transaction, error)

	// Verify runs the verifier contract's view call against a proof and
	// its public inputs. A false return is a legitimate negative result,
	// not an error.
	Verify(ctx context.Context, proof []byte, publicInputs [][32]byte) (bool, error)

	// Address returns the contract address.
	Address() common.Address

	// ChainID returns the chain the contract is deployed on.
	ChainID() *big.Int
}

// PrivateWitness is the secret input to proof generation. It never leaves
// the process boundary except toward the proof backend, which is why the
// backend's output is re-verified on chain regardless of what it reports.
type PrivateWitness struct {
	// CanonicalPassword is the canonical encoding of the password.
	CanonicalPassword []byte
}

// ProofBackend generates zero-knowledge proofs out of process. The engine
// treats it as untrusted input: every returned proof goes through on-chain
// (or local pre-check) verification regardless of backend-reported success.
type ProofBackend interface {
	// GenerateProof produces a proof that the private witness hashes to
	// publicInputs[0]. May take seconds; must honor ctx cancellation.
	GenerateProof(ctx context.Context, witness PrivateWitness, publicInputs [][32]byte) (*Proof, error)
}
