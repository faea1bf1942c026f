package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrDerivation is returned when session key derivation fails due to
	// empty or malformed secret material, or a missing address.
	ErrDerivation = errors.New("key derivation failed")

	// ErrFormat is returned for malformed envelopes and unsupported
	// envelope versions. Never retried.
	ErrFormat = errors.New("malformed envelope")

	// ErrIntegrity is returned when AEAD authentication fails during
	// decryption. The ciphertext or tag has been tampered with.
	ErrIntegrity = errors.New("envelope authentication failed")

	// ErrProofGeneration is returned when the proof backend is unreachable
	// or rejects the witness.
	ErrProofGeneration = errors.New("proof generation failed")

	// ErrVerificationFailed marks a legitimate negative verification
	// result: the contract returned false or the locally recomputed digest
	// does not match the on-chain commitment. Callers rely on
	// distinguishing this from system errors; it is never remapped.
	ErrVerificationFailed = errors.New("integrity verification failed")

	// ErrTimeout is returned when a collaborator call exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrPartialWrite marks a cross-system commit that was interrupted
	// after the blob was published but before the on-chain record landed.
	ErrPartialWrite = errors.New("partial write")

	// ErrEntryNotFound is returned when no record exists for an entry ID.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrContentNotFound is returned when requested content cannot be
	// found in a blob store backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a blob store backend is not
	// accessible.
	ErrBackendUnavailable = errors.New("blob store backend unavailable")

	// ErrInvalidLocationURI is returned when a blob store location URI is
	// malformed or unsupported.
	ErrInvalidLocationURI = errors.New("invalid blob store location URI")

	// ErrNoSigner is returned when no wallet signer capability is
	// available for the requested operation.
	ErrNoSigner = errors.New("wallet signer not available")
)

// PartialWriteError records an interrupted cross-system commit. The blob was
// published but the on-chain write failed, so the pointer names an orphaned
// blob that an out-of-band sweep can reconcile or garbage-collect.
type PartialWriteError struct {
	// EntryID is the entry whose commit was interrupted.
	EntryID EntryID

	// OrphanedBlob points at the published blob that has no on-chain
	// commitment referencing it.
	OrphanedBlob BlobPointer

	// Err is the underlying on-chain write failure.
	Err error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write for entry %s: blob %s published but on-chain commit failed: %v",
		e.EntryID, e.OrphanedBlob, e.Err)
}

// Unwrap exposes both ErrPartialWrite and the underlying cause so callers
// can match either with errors.Is.
func (e *PartialWriteError) Unwrap() []error {
	return []error{ErrPartialWrite, e.Err}
}
