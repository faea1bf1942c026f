package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// MockVaultContract mocks the interfaces.VaultContract interface.
type MockVaultContract struct {
	mock.Mock
}

// GetEntry mocks the GetEntry method.
func (m *MockVaultContract) GetEntry(ctx context.Context, user common.Address, entryID interfaces.EntryID) (interfaces.CommitmentRecord, error) {
	args := m.Called(ctx, user, entryID)
	return args.Get(0).(interfaces.CommitmentRecord), args.Error(1)
}

// EntryIDs mocks the EntryIDs method.
func (m *MockVaultContract) EntryIDs(ctx context.Context, user common.Address) ([]interfaces.EntryID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]interfaces.EntryID), args.Error(1)
}

// StoreEntry mocks the StoreEntry method.
func (m *MockVaultContract) StoreEntry(ctx context.Context, entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*types.Transaction, error) {
	args := m.Called(ctx, entryID, storedHash, ptr)
	tx, _ := args.Get(0).(*types.Transaction)
	return tx, args.Error(1)
}

// UpdateEntry mocks the UpdateEntry method.
func (m *MockVaultContract) UpdateEntry(ctx context.Context, entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*types.Transaction, error) {
	args := m.Called(ctx, entryID, storedHash, ptr)
	tx, _ := args.Get(0).(*types.Transaction)
	return tx, args.Error(1)
}

// DeleteEntry mocks the DeleteEntry method.
func (m *MockVaultContract) DeleteEntry(ctx context.Context, entryID interfaces.EntryID) (*types.Transaction, error) {
	args := m.Called(ctx, entryID)
	tx, _ := args.Get(0).(*types.Transaction)
	return tx, args.Error(1)
}

// Verify mocks the Verify method.
func (m *MockVaultContract) Verify(ctx context.Context, proof []byte, publicInputs [][32]byte) (bool, error) {
	args := m.Called(ctx, proof, publicInputs)
	return args.Bool(0), args.Error(1)
}

// Address mocks the Address method.
func (m *MockVaultContract) Address() common.Address {
	args := m.Called()
	return args.Get(0).(common.Address)
}

// ChainID mocks the ChainID method.
func (m *MockVaultContract) ChainID() *big.Int {
	args := m.Called()
	return args.Get(0).(*big.Int)
}
