package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

var (
	testUser     = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	testContract = common.HexToAddress("0x00000000000000000000000000000000000000CC")
)

func newTestRegistry() *MemoryVaultRegistry {
	return NewMemoryVaultRegistry(testContract, big.NewInt(31337), testUser, nil)
}

func TestMemoryRegistryHistoryPreserved(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()
	entryID := interfaces.NewEntryID()

	firstHash := interfaces.PasswordDigest{0x01}
	firstPtr := interfaces.BlobPointer{0x0a}
	_, err := registry.StoreEntry(ctx, entryID, firstHash, firstPtr)
	require.NoError(t, err)

	secondHash := interfaces.PasswordDigest{0x02}
	secondPtr := interfaces.BlobPointer{0x0b}
	_, err = registry.UpdateEntry(ctx, entryID, secondHash, secondPtr)
	require.NoError(t, err)

	// The latest record wins, the update superseded rather than mutated.
	record, err := registry.GetEntry(ctx, testUser, entryID)
	require.NoError(t, err)
	require.Equal(t, secondHash, record.StoredHash)
	require.Equal(t, secondPtr, record.BlobPointer)
	require.True(t, record.IsActive)

	ids, err := registry.EntryIDs(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, []interfaces.EntryID{entryID}, ids)
}

func TestMemoryRegistrySoftDelete(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()
	entryID := interfaces.NewEntryID()

	_, err := registry.StoreEntry(ctx, entryID, interfaces.PasswordDigest{0x01}, interfaces.BlobPointer{0x0a})
	require.NoError(t, err)

	_, err = registry.DeleteEntry(ctx, entryID)
	require.NoError(t, err)

	// History preserved: the entry is still addressable, just inactive.
	record, err := registry.GetEntry(ctx, testUser, entryID)
	require.NoError(t, err)
	require.False(t, record.IsActive)
	require.Equal(t, interfaces.PasswordDigest{0x01}, record.StoredHash)

	ids, err := registry.EntryIDs(ctx, testUser)
	require.NoError(t, err)
	require.Contains(t, ids, entryID)
}

func TestMemoryRegistryRejectsEmptyCommitments(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()
	entryID := interfaces.NewEntryID()

	_, err := registry.StoreEntry(ctx, entryID, interfaces.PasswordDigest{}, interfaces.BlobPointer{0x0a})
	require.ErrorIs(t, err, ErrEmptyCommitment)

	_, err = registry.StoreEntry(ctx, entryID, interfaces.PasswordDigest{0x01}, interfaces.BlobPointer{})
	require.ErrorIs(t, err, ErrEmptyCommitment)

	_, err = registry.GetEntry(ctx, testUser, entryID)
	require.ErrorIs(t, err, interfaces.ErrEntryNotFound)

	_, err = registry.DeleteEntry(ctx, entryID)
	require.ErrorIs(t, err, interfaces.ErrEntryNotFound)
}
