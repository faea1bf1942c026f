package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/walletvault/vault-integrity-engine/cryptoutils"
	"github.com/walletvault/vault-integrity-engine/interfaces"
	"github.com/walletvault/vault-integrity-engine/verifier"
)

// DefaultCallTimeout bounds individual collaborator calls (blob store,
// contract) within an operation. Proof generation is not subject to it;
// the caller's ctx governs that.
const DefaultCallTimeout = 30 * time.Second

// OrchestratorConfig wires the orchestrator's collaborators.
type OrchestratorConfig struct {
	Session  *Session
	Blob     interfaces.BlobStore
	Contract interfaces.VaultContract
	Store    *LocalStore
	Verifier *verifier.Verifier
	Log      *slog.Logger

	// CallTimeout overrides DefaultCallTimeout when positive.
	CallTimeout time.Duration
}

// Orchestrator coordinates vault entry operations across the session key,
// the blob store, the on-chain registry, and the local mirror. The commit
// order is fixed: encrypt, publish the blob, record on chain, then mirror
// locally; the on-chain record is the source of truth. Operations on
// different entries share no mutable state beyond the read-only session
// key, so they are safe to run concurrently.
type Orchestrator struct {
	session     *Session
	blob        interfaces.BlobStore
	contract    interfaces.VaultContract
	store       *LocalStore
	verifier    *verifier.Verifier
	log         *slog.Logger
	callTimeout time.Duration
}

// NewOrchestrator creates an orchestrator from its collaborators.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Orchestrator{
		session:     cfg.Session,
		blob:        cfg.Blob,
		contract:    cfg.Contract,
		store:       cfg.Store,
		verifier:    cfg.Verifier,
		log:         cfg.Log,
		callTimeout: timeout,
	}
}

// StoreEntry encrypts and commits a new vault entry. On a chain failure
// after the blob was published it returns a PartialWriteError naming the
// orphaned blob pointer; the entry is not considered stored.
func (o *Orchestrator) StoreEntry(ctx context.Context, entry *cryptoutils.EntryPlaintext) (interfaces.EntryID, error) {
	opLog := o.opLog("store", entry.Service)

	key, err := o.session.Key(ctx)
	if err != nil {
		return interfaces.EntryID{}, err
	}

	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	entryID := interfaces.NewEntryID()
	raw, digest, err := sealForCommit(entry, key)
	if err != nil {
		return interfaces.EntryID{}, err
	}

	ptr, err := o.publishAndCommit(ctx, opLog, entryID, raw, digest, o.contract.StoreEntry)
	if err != nil {
		return interfaces.EntryID{}, err
	}

	if _, err := o.store.AppendRevision(ctx, entryID, entry.Service, raw, ptr, digest, true, now); err != nil {
		// The on-chain commit succeeded; the entry exists even though the
		// local mirror is behind.
		opLog.Error("Local mirror write failed after on-chain commit",
			slog.String("entryId", entryID.String()), "err", err)
		return entryID, fmt.Errorf("entry committed on chain but local mirror failed: %w", err)
	}

	opLog.Info("Entry stored",
		slog.String("entryId", entryID.String()),
		slog.String("blobPtr", ptr.String()))
	return entryID, nil
}

// UpdateEntry commits a superseding revision under an existing entry ID.
// The previous commitment and blob are never mutated.
func (o *Orchestrator) UpdateEntry(ctx context.Context, entryID interfaces.EntryID, entry *cryptoutils.EntryPlaintext) error {
	opLog := o.opLog("update", entry.Service)

	key, err := o.session.Key(ctx)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	current, err := o.contract.GetEntry(callCtx, o.session.Address(), entryID)
	cancel()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = o.priorCreatedAt(ctx, entryID, key, current.Timestamp)
	}
	entry.UpdatedAt = now

	raw, digest, err := sealForCommit(entry, key)
	if err != nil {
		return err
	}

	ptr, err := o.publishAndCommit(ctx, opLog, entryID, raw, digest, o.contract.UpdateEntry)
	if err != nil {
		return err
	}

	if _, err := o.store.AppendRevision(ctx, entryID, entry.Service, raw, ptr, digest, true, now); err != nil {
		opLog.Error("Local mirror write failed after on-chain commit",
			slog.String("entryId", entryID.String()), "err", err)
		return fmt.Errorf("entry committed on chain but local mirror failed: %w", err)
	}

	opLog.Info("Entry updated",
		slog.String("entryId", entryID.String()),
		slog.String("blobPtr", ptr.String()))
	return nil
}

// DeleteEntry soft-deletes an entry: the chain records the deletion and the
// local mirror appends an inactive revision. History stays readable.
func (o *Orchestrator) DeleteEntry(ctx context.Context, entryID interfaces.EntryID) error {
	opLog := o.opLog("delete", "")

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	_, err := o.contract.DeleteEntry(callCtx, entryID)
	cancel()
	if err != nil {
		return o.mapCallErr(err)
	}

	now := time.Now().UTC()
	head, err := o.store.Head(ctx, entryID)
	if err != nil {
		// Chain-only entry; mirror the deletion with what we know.
		head = &EntryRevision{}
	}
	ptr, _ := interfaces.NewBlobPointerFromHex(head.BlobPointer)
	digest := interfaces.PasswordDigest{}
	if _, err := o.store.AppendRevision(ctx, entryID, head.Service, head.Envelope, ptr, digest, false, now); err != nil {
		opLog.Error("Local mirror write failed after on-chain delete",
			slog.String("entryId", entryID.String()), "err", err)
		return fmt.Errorf("entry deleted on chain but local mirror failed: %w", err)
	}

	opLog.Info("Entry deleted", slog.String("entryId", entryID.String()))
	return nil
}

// ListActiveEntries returns the head revision of every active entry,
// newest first.
func (o *Orchestrator) ListActiveEntries(ctx context.Context) ([]EntryRevision, error) {
	return o.store.ActiveEntries(ctx)
}

// GetEntry decrypts and returns an entry's head revision regardless of its
// active state, keeping soft-deleted entries addressable for audit.
func (o *Orchestrator) GetEntry(ctx context.Context, entryID interfaces.EntryID) (*cryptoutils.EntryPlaintext, *EntryRevision, error) {
	key, err := o.session.Key(ctx)
	if err != nil {
		return nil, nil, err
	}

	head, err := o.store.Head(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}

	// Tombstones mirrored for chain-only entries carry no envelope; there
	// is nothing to decrypt.
	if len(head.Envelope) == 0 {
		return nil, head, fmt.Errorf("%w: entry %s has no local envelope", interfaces.ErrEntryNotFound, entryID)
	}

	env, err := cryptoutils.ParseEnvelope(head.Envelope)
	if err != nil {
		return nil, nil, err
	}
	entry, err := cryptoutils.OpenEntry(env, key)
	if err != nil {
		return nil, nil, err
	}
	return entry, head, nil
}

// RecoverWithIntegrityVerification recovers an entry through the full
// verification state machine. The password in the result is populated only
// when integrity verification passed.
func (o *Orchestrator) RecoverWithIntegrityVerification(ctx context.Context, entryID interfaces.EntryID) (*verifier.RecoveryResult, error) {
	key, err := o.session.Key(ctx)
	if err != nil {
		return nil, err
	}
	return o.verifier.VerifyEntry(ctx, o.session.Address(), entryID, key)
}

type commitFunc func(ctx context.Context, entryID interfaces.EntryID, storedHash interfaces.PasswordDigest, ptr interfaces.BlobPointer) (*ethtypes.Transaction, error)

// publishAndCommit runs the blob-then-chain half of the fixed commit order.
func (o *Orchestrator) publishAndCommit(ctx context.Context, opLog *slog.Logger, entryID interfaces.EntryID, raw []byte, digest interfaces.PasswordDigest, commit commitFunc) (interfaces.BlobPointer, error) {
	putCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	ptr, err := o.blob.Put(putCtx, raw)
	cancel()
	if err != nil {
		return interfaces.BlobPointer{}, o.mapCallErr(err)
	}

	chainCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	_, err = commit(chainCtx, entryID, digest, ptr)
	cancel()
	if err != nil {
		opLog.Error("On-chain commit failed after blob publish",
			slog.String("entryId", entryID.String()),
			slog.String("orphanedBlob", ptr.String()),
			"err", err)
		return interfaces.BlobPointer{}, &interfaces.PartialWriteError{
			EntryID:      entryID,
			OrphanedBlob: ptr,
			Err:          o.mapCallErr(err),
		}
	}
	return ptr, nil
}

// priorCreatedAt recovers an entry's original creation time from the
// decrypted local head revision. The on-chain record timestamp is the last
// commit time, not the creation time, so it serves only as a fallback for
// entries that were never mirrored locally.
func (o *Orchestrator) priorCreatedAt(ctx context.Context, entryID interfaces.EntryID, key *cryptoutils.SessionKey, fallback time.Time) time.Time {
	head, err := o.store.Head(ctx, entryID)
	if err != nil || len(head.Envelope) == 0 {
		return fallback
	}
	env, err := cryptoutils.ParseEnvelope(head.Envelope)
	if err != nil {
		return fallback
	}
	prior, err := cryptoutils.OpenEntry(env, key)
	if err != nil {
		return fallback
	}
	return prior.CreatedAt
}

func sealForCommit(entry *cryptoutils.EntryPlaintext, key *cryptoutils.SessionKey) ([]byte, interfaces.PasswordDigest, error) {
	env, err := cryptoutils.SealEntry(entry, key)
	if err != nil {
		return nil, interfaces.PasswordDigest{}, err
	}
	return env.Marshal(), cryptoutils.DigestPassword(entry.Password), nil
}

func (o *Orchestrator) mapCallErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", interfaces.ErrTimeout, err)
	}
	return err
}

// opLog tags log lines of one operation with a fresh correlation id. Entry
// secrets never appear here; the service label is the only plaintext field
// logged.
func (o *Orchestrator) opLog(op, service string) *slog.Logger {
	attrs := []any{
		slog.String("op", op),
		slog.String("opId", uuid.New().String()),
	}
	if service != "" {
		attrs = append(attrs, slog.String("service", service))
	}
	return o.log.With(attrs...)
}
