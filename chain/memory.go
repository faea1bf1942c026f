package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// VerifyFunc decides whether a proof is valid for the given public inputs.
// The in-memory registry delegates to it so tests and the dev stack can
// plug in the proof scheme of their proof backend.
type VerifyFunc func(proof []byte, publicInputs [][32]byte) bool

// MemoryVaultRegistry provides an in-memory implementation of the
// VaultContract interface for testing and development without a blockchain
// connection. It preserves the contract's append-only semantics: updates
// supersede records, deletes flip the active flag, history is kept.
type MemoryVaultRegistry struct {
	mutex    sync.RWMutex
	records  map[common.Address]map[interfaces.EntryID][]interfaces.CommitmentRecord
	order    map[common.Address][]interfaces.EntryID
	verifyFn VerifyFunc
	address  common.Address
	chainID  *big.Int
	writer   common.Address

	// StoreErr, when set, makes commitment writes fail. Used by tests to
	// exercise partial-write handling.
	StoreErr error
}

// ErrEmptyCommitment is returned for writes with a zero hash or pointer,
// mirroring the contract-side revert.
var ErrEmptyCommitment = errors.New("commitment requires non-empty hash and pointer")

// NewMemoryVaultRegistry creates an empty in-memory vault registry. Writes
// are attributed to writer; change it with SetWriter.
func NewMemoryVaultRegistry(address common.Address, chainID *big.Int, writer common.Address, verifyFn VerifyFunc) *MemoryVaultRegistry {
	return &MemoryVaultRegistry{
		records:  make(map[common.Address]map[interfaces.EntryID][]interfaces.CommitmentRecord),
		order:    make(map[common.Address][]interfaces.EntryID),
		verifyFn: verifyFn,
		address:  address,
		chainID:  chainID,
		writer:   writer,
	}
}

// SetWriter changes the address write operations are attributed to.
func (m *MemoryVaultRegistry) SetWriter(addr common.Address) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.writer = addr
}

// GetEntry returns the latest commitment record for (user, entryID).
func (m *MemoryVaultRegistry) GetEntry(ctx context.Context, user common.Address, entryID interfaces.EntryID) (interfaces.CommitmentRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	history := m.records[user][entryID]
	if len(history) == 0 {
		return interfaces.CommitmentRecord{}, interfaces.ErrEntryNotFound
	}
	return history[len(history)-1], nil
}

// EntryIDs lists all entry IDs ever recorded for the user.
func (m *MemoryVaultRegistry) EntryIDs(ctx context.Context, user common.Address) ([]interfaces.EntryID, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]interfaces.EntryID(nil), m.order[user]...), nil
}

// StoreEntry records a new commitment for the writer address.
func (m *MemoryVaultRegistry) StoreEntry(ctx context.Context, entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*types.Transaction, error) {
	return m.appendRecord(entryID, storedHash, ptr)
}

// UpdateEntry records a superseding commitment.
func (m *MemoryVaultRegistry) UpdateEntry(ctx context.Context, entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*types.Transaction, error) {
	return m.appendRecord(entryID, storedHash, ptr)
}

// DeleteEntry appends an inactive record, preserving history.
func (m *MemoryVaultRegistry) DeleteEntry(ctx context.Context, entryID interfaces.EntryID) (*types.Transaction, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.StoreErr != nil {
		return nil, m.StoreErr
	}

	history := m.records[m.writer][entryID]
	if len(history) == 0 {
		return nil, interfaces.ErrEntryNotFound
	}

	last := history[len(history)-1]
	last.IsActive = false
	last.Timestamp = time.Now().UTC()
	m.records[m.writer][entryID] = append(history, last)
	return nil, nil
}

// Verify delegates to the configured verify function.
func (m *MemoryVaultRegistry) Verify(ctx context.Context, proof []byte, publicInputs [][32]byte) (bool, error) {
	if m.verifyFn == nil {
		return false, nil
	}
	return m.verifyFn(proof, publicInputs), nil
}

// Address returns the simulated contract address.
func (m *MemoryVaultRegistry) Address() common.Address {
	return m.address
}

// ChainID returns the simulated chain ID.
func (m *MemoryVaultRegistry) ChainID() *big.Int {
	return m.chainID
}

// OverwriteStoredHash replaces the latest stored hash for an entry, for
// tests that need the on-chain commitment to drift from a previously
// generated proof.
func (m *MemoryVaultRegistry) OverwriteStoredHash(user common.Address, entryID interfaces.EntryID, hash interfaces.PasswordDigest) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	history := m.records[user][entryID]
	if len(history) == 0 {
		return
	}
	history[len(history)-1].StoredHash = hash
}

func (m *MemoryVaultRegistry) appendRecord(entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*types.Transaction, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.StoreErr != nil {
		return nil, m.StoreErr
	}
	if storedHash.IsZero() || ptr.IsZero() {
		return nil, ErrEmptyCommitment
	}

	if m.records[m.writer] == nil {
		m.records[m.writer] = make(map[interfaces.EntryID][]interfaces.CommitmentRecord)
	}
	if len(m.records[m.writer][entryID]) == 0 {
		m.order[m.writer] = append(m.order[m.writer], entryID)
	}

	m.records[m.writer][entryID] = append(m.records[m.writer][entryID], interfaces.CommitmentRecord{
		StoredHash:  storedHash,
		BlobPointer: ptr,
		Timestamp:   time.Now().UTC(),
		IsActive:    true,
	})
	return nil, nil
}
