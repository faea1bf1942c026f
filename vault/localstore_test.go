package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(":memory:", discardLog())
	require.NoError(t, err)
	return store
}

func TestLocalStoreRevisionsAppend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	entryID := interfaces.NewEntryID()
	ptr := interfaces.ComputeBlobPointer([]byte("blob-v1"))
	digest := interfaces.PasswordDigest{0x01}

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first, err := store.AppendRevision(ctx, entryID, "github", []byte("env-v1"), ptr, digest, true, ts)
	require.NoError(t, err)
	require.Equal(t, 1, first.Revision)

	second, err := store.AppendRevision(ctx, entryID, "github", []byte("env-v2"), ptr, digest, true, ts.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, second.Revision)

	head, err := store.Head(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, 2, head.Revision)
	require.Equal(t, []byte("env-v2"), head.Envelope)

	history, err := store.History(ctx, entryID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, []byte("env-v1"), history[0].Envelope, "earlier revisions must survive updates")
}

func TestLocalStoreHeadUnknownEntry(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Head(context.Background(), interfaces.NewEntryID())
	require.ErrorIs(t, err, interfaces.ErrEntryNotFound)
}

func TestLocalStoreActiveEntriesOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ptr := interfaces.ComputeBlobPointer([]byte("blob"))
	digest := interfaces.PasswordDigest{0x01}

	older := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	idOld := interfaces.NewEntryID()
	idNewA := interfaces.NewEntryID()
	idNewB := interfaces.NewEntryID()
	idDeleted := interfaces.NewEntryID()

	_, err := store.AppendRevision(ctx, idOld, "old", nil, ptr, digest, true, older)
	require.NoError(t, err)
	_, err = store.AppendRevision(ctx, idNewA, "new-a", nil, ptr, digest, true, newer)
	require.NoError(t, err)
	_, err = store.AppendRevision(ctx, idNewB, "new-b", nil, ptr, digest, true, newer)
	require.NoError(t, err)
	_, err = store.AppendRevision(ctx, idDeleted, "gone", nil, ptr, digest, true, newer)
	require.NoError(t, err)
	_, err = store.AppendRevision(ctx, idDeleted, "gone", nil, ptr, interfaces.PasswordDigest{}, false, newer.Add(time.Minute))
	require.NoError(t, err)

	active, err := store.ActiveEntries(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3, "soft-deleted entries must not be listed")

	// Newest first; the tie between the two equal timestamps breaks on
	// entry ID descending.
	require.Equal(t, idOld.String(), active[2].EntryID)
	first, err := interfaces.NewEntryIDFromHex(active[0].EntryID)
	require.NoError(t, err)
	second, err := interfaces.NewEntryIDFromHex(active[1].EntryID)
	require.NoError(t, err)
	require.True(t, second.Less(first), "tied timestamps must order by entry ID descending")

	// The deleted entry stays addressable.
	head, err := store.Head(ctx, idDeleted)
	require.NoError(t, err)
	require.False(t, head.IsActive)
}
