// Package chain provides the client for the on-chain vault registry and
// verifier contract. The contract stores one commitment record per
// (user, entryId) pair and exposes the zero-knowledge proof verifier as a
// view call.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// ErrNoTransactOpts is returned when a transaction is attempted without
// first setting transaction options.
var ErrNoTransactOpts = errors.New("no authorized transactor available")

// vaultRegistryABI is the ABI of the VaultRegistry contract. Write methods
// revert on empty hashes and pointers and emit EntryStored / EntryUpdated /
// EntryDeleted events for auditability.
const vaultRegistryABI = `[
	{"type":"function","name":"getEntry","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"entryId","type":"bytes32"}],"outputs":[{"name":"storedHash","type":"bytes32"},{"name":"blobPointer","type":"bytes32"},{"name":"timestamp","type":"uint256"},{"name":"isActive","type":"bool"}]},
	{"type":"function","name":"getEntryIds","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bytes32[]"}]},
	{"type":"function","name":"storeEntry","stateMutability":"nonpayable","inputs":[{"name":"entryId","type":"bytes32"},{"name":"storedHash","type":"bytes32"},{"name":"blobPointer","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"updateEntry","stateMutability":"nonpayable","inputs":[{"name":"entryId","type":"bytes32"},{"name":"storedHash","type":"bytes32"},{"name":"blobPointer","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"deleteEntry","stateMutability":"nonpayable","inputs":[{"name":"entryId","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"verify","stateMutability":"view","inputs":[{"name":"proof","type":"bytes"},{"name":"publicInputs","type":"bytes32[]"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"EntryStored","inputs":[{"name":"user","type":"address","indexed":true},{"name":"entryId","type":"bytes32","indexed":true},{"name":"storedHash","type":"bytes32","indexed":false},{"name":"blobPointer","type":"bytes32","indexed":false}],"anonymous":false},
	{"type":"event","name":"EntryUpdated","inputs":[{"name":"user","type":"address","indexed":true},{"name":"entryId","type":"bytes32","indexed":true},{"name":"storedHash","type":"bytes32","indexed":false},{"name":"blobPointer","type":"bytes32","indexed":false}],"anonymous":false},
	{"type":"event","name":"EntryDeleted","inputs":[{"name":"user","type":"address","indexed":true},{"name":"entryId","type":"bytes32","indexed":true}],"anonymous":false}
]`

// VaultRegistryClient implements interfaces.VaultContract against a
// VaultRegistry contract deployed on an Ethereum-compatible chain.
type VaultRegistryClient struct {
	contract *bind.BoundContract
	address  common.Address
	chainID  *big.Int
	auth     *bind.TransactOpts
}

// NewVaultRegistryClient creates a client for the VaultRegistry contract at
// the specified address. The backend is used for both view calls and
// transactions; write methods additionally require SetTransactOpts.
func NewVaultRegistryClient(backend bind.ContractBackend, address common.Address, chainID *big.Int) (*VaultRegistryClient, error) {
	parsed, err := abi.JSON(strings.NewReader(vaultRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse VaultRegistry ABI: %w", err)
	}

	return &VaultRegistryClient{
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		address:  address,
		chainID:  chainID,
	}, nil
}

// SetTransactOpts sets the transaction options required for write methods.
// Must be called before StoreEntry, UpdateEntry, or DeleteEntry.
func (c *VaultRegistryClient) SetTransactOpts(auth *bind.TransactOpts) {
	c.auth = auth
}

// GetEntry reads the commitment record for (user, entryID).
func (c *VaultRegistryClient) GetEntry(ctx context.Context, user common.Address, entryID interfaces.EntryID) (interfaces.CommitmentRecord, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	err := c.contract.Call(opts, &out, "getEntry", user, [32]byte(entryID))
	if err != nil {
		return interfaces.CommitmentRecord{}, mapCallErr("getEntry", err)
	}

	record := interfaces.CommitmentRecord{
		StoredHash:  interfaces.PasswordDigest(out[0].([32]byte)),
		BlobPointer: interfaces.BlobPointer(out[1].([32]byte)),
		Timestamp:   time.Unix(out[2].(*big.Int).Int64(), 0).UTC(),
		IsActive:    out[3].(bool),
	}

	// The contract returns the zero struct for unknown entries.
	if record.StoredHash.IsZero() && record.BlobPointer.IsZero() {
		return interfaces.CommitmentRecord{}, interfaces.ErrEntryNotFound
	}
	return record, nil
}

// EntryIDs lists all entry IDs ever recorded for the user, including
// soft-deleted ones.
func (c *VaultRegistryClient) EntryIDs(ctx context.Context, user common.Address) ([]interfaces.EntryID, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := c.contract.Call(opts, &out, "getEntryIds", user); err != nil {
		return nil, mapCallErr("getEntryIds", err)
	}

	raw := out[0].([][32]byte)
	ids := make([]interfaces.EntryID, len(raw))
	for i, id := range raw {
		ids[i] = interfaces.EntryID(id)
	}
	return ids, nil
}

// StoreEntry records a new commitment. The hash and pointer must be
// non-empty; the contract enforces the same invariant and emits an
// EntryStored event.
func (c *VaultRegistryClient) StoreEntry(ctx context.Context, entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*types.Transaction, error) {
	return c.transactCommitment(ctx, "storeEntry", entryID, storedHash, ptr)
}

// UpdateEntry records a superseding commitment under an existing entry ID
// and emits an EntryUpdated event. History is never mutated in place.
func (c *VaultRegistryClient) UpdateEntry(ctx context.Context, entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*types.Transaction, error) {
	return c.transactCommitment(ctx, "updateEntry", entryID, storedHash, ptr)
}

// DeleteEntry soft-deletes an entry and emits an EntryDeleted event. The
// record remains readable via GetEntry.
func (c *VaultRegistryClient) DeleteEntry(ctx context.Context, entryID interfaces.EntryID) (*types.Transaction, error) {
	if c.auth == nil {
		return nil, ErrNoTransactOpts
	}

	auth := *c.auth
	auth.Context = ctx
	tx, err := c.contract.Transact(&auth, "deleteEntry", [32]byte(entryID))
	if err != nil {
		return nil, mapCallErr("deleteEntry", err)
	}
	return tx, nil
}

// Verify runs the verifier contract's view call. A false return is a
// legitimate negative verification result, not an error.
func (c *VaultRegistryClient) Verify(ctx context.Context, proof []byte, publicInputs [][32]byte) (bool, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := c.contract.Call(opts, &out, "verify", proof, publicInputs); err != nil {
		return false, mapCallErr("verify", err)
	}
	return out[0].(bool), nil
}

// Address returns the contract address.
func (c *VaultRegistryClient) Address() common.Address {
	return c.address
}

// ChainID returns the chain the contract is deployed on.
func (c *VaultRegistryClient) ChainID() *big.Int {
	return c.chainID
}

func (c *VaultRegistryClient) transactCommitment(ctx context.Context, method string, entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*types.Transaction, error) {
	if c.auth == nil {
		return nil, ErrNoTransactOpts
	}
	if storedHash.IsZero() {
		return nil, fmt.Errorf("%s requires a non-empty stored hash", method)
	}
	if ptr.IsZero() {
		return nil, fmt.Errorf("%s requires a non-empty blob pointer", method)
	}

	auth := *c.auth
	auth.Context = ctx
	tx, err := c.contract.Transact(&auth, method, [32]byte(entryID), [32]byte(storedHash), [32]byte(ptr))
	if err != nil {
		return nil, mapCallErr(method, err)
	}
	return tx, nil
}

// mapCallErr wraps RPC failures, surfacing deadline expiry as ErrTimeout so
// callers can distinguish slow collaborators from contract-level failures.
func mapCallErr(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", interfaces.ErrTimeout, method, err)
	}
	return fmt.Errorf("%s failed: %w", method, err)
}
