package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/walletvault/vault-integrity-engine/cryptoutils"
	"github.com/walletvault/vault-integrity-engine/interfaces"
)

const (
	// blobFetchAttempts bounds retries of the blob fetch, the one network
	// step of collection. Decryption is deterministic and never retried.
	blobFetchAttempts = 3

	blobFetchBackoff = 250 * time.Millisecond
)

// LocalProofChecker pre-checks a proof against its public inputs before the
// on-chain view call. Optional; a nil checker skips the pre-check.
type LocalProofChecker interface {
	Verify(proof []byte, publicInputs [][32]byte) bool
}

// Config wires the verifier's collaborators.
type Config struct {
	Blob     interfaces.BlobStore
	Contract interfaces.VaultContract
	Prover   interfaces.ProofBackend

	// Local, when set, rejects proofs before the contract sees them.
	Local LocalProofChecker

	Log *slog.Logger
}

// Verifier runs the integrity verification state machine for one entry:
// collect the envelope, recompute the password commitment, obtain a proof,
// and verify it against the on-chain record. Each attempt is independent;
// the verifier holds no state between calls.
type Verifier struct {
	blob     interfaces.BlobStore
	contract interfaces.VaultContract
	prover   interfaces.ProofBackend
	local    LocalProofChecker
	log      *slog.Logger
}

// RecoveryResult is the outcome of a verification attempt. Entry and
// Password are populated only when IntegrityVerified is true; a recovered
// secret that failed verification is never handed to the caller.
type RecoveryResult struct {
	Password          string
	Entry             *cryptoutils.EntryPlaintext
	IntegrityVerified bool
	Proof             []byte
	PublicInputs      [][32]byte
}

// New creates a verifier from its collaborators.
func New(cfg *Config) *Verifier {
	return &Verifier{
		blob:     cfg.Blob,
		contract: cfg.Contract,
		prover:   cfg.Prover,
		local:    cfg.Local,
		log:      cfg.Log,
	}
}

// VerifyEntry recovers the entry committed under (user, entryID) and proves
// its integrity. On a failed verification the result carries the proof
// material for diagnostics, the password stays withheld, and the error is
// ErrVerificationFailed; infrastructure failures keep their own sentinels
// (ErrEntryNotFound, ErrContentNotFound, ErrIntegrity, ErrProofGeneration).
func (v *Verifier) VerifyEntry(ctx context.Context, user common.Address, entryID interfaces.EntryID, key *cryptoutils.SessionKey) (*RecoveryResult, error) {
	// Step 1: collect. The blob fetch is the only step retried here; the
	// envelope decode and decrypt are deterministic, so a failure repeats.
	record, err := v.contract.GetEntry(ctx, user, entryID)
	if err != nil {
		return nil, err
	}

	raw, err := v.fetchBlob(ctx, record.BlobPointer)
	if err != nil {
		return nil, err
	}

	env, err := cryptoutils.ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	entry, err := cryptoutils.OpenEntry(env, key)
	if err != nil {
		return nil, err
	}

	// Step 2: commit. The digest is recomputed from the recovered
	// password, never copied from the chain.
	witness := interfaces.PrivateWitness{CanonicalPassword: cryptoutils.CanonicalPassword(entry.Password)}
	localDigest := cryptoutils.DigestPassword(entry.Password)

	publicInputs := cryptoutils.BuildPublicInputs(record.StoredHash, v.contract.Address(), v.contract.ChainID())

	// A commitment that already contradicts the recovered password cannot
	// produce a valid proof; fail before the prover round trip.
	if record.StoredHash != localDigest {
		return &RecoveryResult{PublicInputs: publicInputs},
			fmt.Errorf("%w: on-chain commitment does not match recovered password", interfaces.ErrVerificationFailed)
	}

	// Step 3: prove. The backend client retries transient failures itself.
	proof, err := v.prover.GenerateProof(ctx, witness, publicInputs)
	if err != nil {
		return nil, err
	}

	// Step 4: verify. Never retried: a failed proof against an unchanged
	// commitment cannot change outcome.
	result := &RecoveryResult{
		Proof:        proof.ProofBytes,
		PublicInputs: proof.PublicInputs,
	}

	if v.local != nil && !v.local.Verify(proof.ProofBytes, proof.PublicInputs) {
		v.log.Warn("Proof rejected by local pre-check",
			slog.String("entryId", entryID.String()))
		return result, fmt.Errorf("%w: local pre-check rejected proof", interfaces.ErrVerificationFailed)
	}

	ok, err := v.contract.Verify(ctx, proof.ProofBytes, proof.PublicInputs)
	if err != nil {
		return result, fmt.Errorf("verifier contract call failed: %w", err)
	}
	if !ok {
		return result, fmt.Errorf("%w: proof rejected by verifier contract", interfaces.ErrVerificationFailed)
	}

	// Independent re-fetch of the on-chain commitment. Catches a record
	// that drifted since collection and a proof generated over tampered
	// public inputs, neither of which the view call alone can rule out.
	if err := v.checkStoredHash(ctx, user, entryID, localDigest, proof.PublicInputs); err != nil {
		return result, err
	}

	result.IntegrityVerified = true
	result.Entry = entry
	result.Password = entry.Password
	v.log.Debug("Entry integrity verified",
		slog.String("entryId", entryID.String()),
		slog.String("storedHash", record.StoredHash.String()))
	return result, nil
}

func (v *Verifier) fetchBlob(ctx context.Context, ptr interfaces.BlobPointer) ([]byte, error) {
	var lastErr error
	backoff := blobFetchBackoff
	for attempt := 1; attempt <= blobFetchAttempts; attempt++ {
		raw, err := v.blob.Get(ctx, ptr)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if errors.Is(err, interfaces.ErrContentNotFound) || attempt == blobFetchAttempts {
			break
		}
		v.log.Warn("Envelope fetch failed, retrying",
			slog.String("blobPtr", ptr.String()),
			slog.Int("attempt", attempt),
			"err", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", interfaces.ErrTimeout, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (v *Verifier) checkStoredHash(ctx context.Context, user common.Address, entryID interfaces.EntryID, localDigest interfaces.PasswordDigest, publicInputs [][32]byte) error {
	if len(publicInputs) == 0 || publicInputs[0] != [32]byte(localDigest) {
		return fmt.Errorf("%w: proven commitment does not match recovered password", interfaces.ErrVerificationFailed)
	}

	fresh, err := v.contract.GetEntry(ctx, user, entryID)
	if err != nil {
		return fmt.Errorf("commitment re-fetch failed: %w", err)
	}
	if fresh.StoredHash != localDigest {
		return fmt.Errorf("%w: on-chain commitment does not match recovered password", interfaces.ErrVerificationFailed)
	}
	return nil
}
