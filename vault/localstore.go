package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// EntryRevision is one append-only revision of a vault entry in the local
// store. Revisions are never updated or deleted; superseding state appends
// a new row with a higher revision number. The on-chain record stays the
// source of truth; this store is the queryable local mirror.
type EntryRevision struct {
	ID          uint   `gorm:"primaryKey"`
	EntryID     string `gorm:"index;size:66"`
	Revision    int
	Service     string
	Envelope    []byte
	BlobPointer string `gorm:"size:66"`
	StoredHash  string `gorm:"size:66"`
	IsActive    bool
	Timestamp   time.Time
}

// LocalStore is the sqlite-backed local entry mirror.
type LocalStore struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewLocalStore opens (or creates) the local entry database at path. Pass
// ":memory:" for an ephemeral store.
func NewLocalStore(path string, log *slog.Logger) (*LocalStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local entry store: %w", err)
	}
	if err := db.AutoMigrate(&EntryRevision{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local entry store: %w", err)
	}
	return &LocalStore{db: db, log: log}, nil
}

// AppendRevision records a new revision for the entry. The revision number
// is assigned here, one past the entry's current head.
func (s *LocalStore) AppendRevision(ctx context.Context, entryID interfaces.EntryID, service string, envelope []byte, ptr interfaces.BlobPointer, storedHash interfaces.PasswordDigest, isActive bool, ts time.Time) (*EntryRevision, error) {
	rev := &EntryRevision{
		EntryID:     entryID.String(),
		Revision:    1,
		Service:     service,
		Envelope:    envelope,
		BlobPointer: ptr.String(),
		StoredHash:  storedHash.String(),
		IsActive:    isActive,
		Timestamp:   ts,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var head EntryRevision
		res := tx.Where("entry_id = ?", rev.EntryID).Order("revision desc").First(&head)
		switch {
		case res.Error == nil:
			rev.Revision = head.Revision + 1
		case errors.Is(res.Error, gorm.ErrRecordNotFound):
			// first revision
		default:
			return res.Error
		}
		return tx.Create(rev).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append entry revision: %w", err)
	}
	return rev, nil
}

// Head returns the entry's latest revision regardless of active state, so
// soft-deleted entries stay addressable for audit and history.
func (s *LocalStore) Head(ctx context.Context, entryID interfaces.EntryID) (*EntryRevision, error) {
	var head EntryRevision
	res := s.db.WithContext(ctx).Where("entry_id = ?", entryID.String()).Order("revision desc").First(&head)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, interfaces.ErrEntryNotFound
	}
	if res.Error != nil {
		return nil, fmt.Errorf("failed to read entry head: %w", res.Error)
	}
	return &head, nil
}

// History returns all revisions of the entry in ascending revision order.
func (s *LocalStore) History(ctx context.Context, entryID interfaces.EntryID) ([]EntryRevision, error) {
	var revs []EntryRevision
	res := s.db.WithContext(ctx).Where("entry_id = ?", entryID.String()).Order("revision asc").Find(&revs)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to read entry history: %w", res.Error)
	}
	if len(revs) == 0 {
		return nil, interfaces.ErrEntryNotFound
	}
	return revs, nil
}

// ActiveEntries returns the head revision of every entry whose head is
// active, newest first; equal timestamps order by entry ID descending so
// the listing is stable.
func (s *LocalStore) ActiveEntries(ctx context.Context) ([]EntryRevision, error) {
	var revs []EntryRevision
	res := s.db.WithContext(ctx).Order("entry_id asc, revision asc").Find(&revs)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to list entries: %w", res.Error)
	}

	heads := make(map[string]EntryRevision)
	for _, rev := range revs {
		heads[rev.EntryID] = rev
	}

	active := make([]EntryRevision, 0, len(heads))
	for _, head := range heads {
		if head.IsActive {
			active = append(active, head)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].Timestamp.Equal(active[j].Timestamp) {
			return active[i].Timestamp.After(active[j].Timestamp)
		}
		idI, errI := interfaces.NewEntryIDFromHex(active[i].EntryID)
		idJ, errJ := interfaces.NewEntryIDFromHex(active[j].EntryID)
		if errI != nil || errJ != nil {
			return active[i].EntryID > active[j].EntryID
		}
		return idJ.Less(idI)
	})
	return active, nil
}
