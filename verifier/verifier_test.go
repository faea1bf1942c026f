package verifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/walletvault/vault-integrity-engine/chain"
	"github.com/walletvault/vault-integrity-engine/cryptoutils"
	"github.com/walletvault/vault-integrity-engine/interfaces"
	"github.com/walletvault/vault-integrity-engine/prover"
	"github.com/walletvault/vault-integrity-engine/storage"
)

// devBackend satisfies the proof relation locally, the way the dev proof
// server does, without the HTTP round trip.
type devBackend struct{}

func (devBackend) GenerateProof(ctx context.Context, witness interfaces.PrivateWitness, publicInputs [][32]byte) (*interfaces.Proof, error) {
	if !bytes.Equal(ethcrypto.Keccak256(witness.CanonicalPassword), publicInputs[0][:]) {
		return nil, fmt.Errorf("%w: witness does not satisfy relation", interfaces.ErrProofGeneration)
	}
	return &interfaces.Proof{
		ProofBytes:   prover.BuildDevProof(publicInputs),
		PublicInputs: publicInputs,
	}, nil
}

// flakyBlobStore fails the first N gets to exercise fetch retries.
type flakyBlobStore struct {
	interfaces.BlobStore
	failures int
	gets     int
}

func (f *flakyBlobStore) Get(ctx context.Context, ptr interfaces.BlobPointer) ([]byte, error) {
	f.gets++
	if f.gets <= f.failures {
		return nil, interfaces.ErrBackendUnavailable
	}
	return f.BlobStore.Get(ctx, ptr)
}

type fixture struct {
	verifier *Verifier
	blob     *storage.MemoryBackend
	registry *chain.MemoryVaultRegistry
	key      *cryptoutils.SessionKey
	user     common.Address
	entryID  interfaces.EntryID
	envelope []byte
	password string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	contractAddr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	registry := chain.NewMemoryVaultRegistry(contractAddr, big.NewInt(17000), user, prover.VerifyDevProof)
	blob := storage.NewMemoryBackend(log)

	key, err := cryptoutils.DeriveSessionKey(cryptoutils.SignatureMaterial{Signature: []byte("deterministic-sig")}, user)
	require.NoError(t, err)

	password := "p@ssw0rd!"
	entry := &cryptoutils.EntryPlaintext{
		Service:   "github",
		Username:  "dev",
		Password:  password,
		CreatedAt: time.Now().UTC(),
	}
	env, err := cryptoutils.SealEntry(entry, key)
	require.NoError(t, err)
	raw := env.Marshal()

	ptr, err := blob.Put(context.Background(), raw)
	require.NoError(t, err)

	entryID := interfaces.NewEntryID()
	_, err = registry.StoreEntry(context.Background(), entryID, cryptoutils.DigestPassword(password), ptr)
	require.NoError(t, err)

	return &fixture{
		verifier: New(&Config{
			Blob:     blob,
			Contract: registry,
			Prover:   devBackend{},
			Local:    prover.NewLocalVerifier(),
			Log:      log,
		}),
		blob:     blob,
		registry: registry,
		key:      key,
		user:     user,
		entryID:  entryID,
		envelope: raw,
		password: password,
	}
}

func TestVerifyEntryReleasesPasswordOnlyAfterVerification(t *testing.T) {
	f := newFixture(t)

	result, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.NoError(t, err)
	require.True(t, result.IntegrityVerified)
	require.Equal(t, f.password, result.Password)
	require.Equal(t, "github", result.Entry.Service)
	require.True(t, prover.VerifyDevProof(result.Proof, result.PublicInputs))
}

func TestVerifyEntryPublicInputLayout(t *testing.T) {
	f := newFixture(t)

	result, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.NoError(t, err)
	require.Len(t, result.PublicInputs, 3)

	digest := cryptoutils.DigestPassword(f.password)
	require.Equal(t, [32]byte(digest), result.PublicInputs[0])

	var wantAddr [32]byte
	copy(wantAddr[12:], f.registry.Address().Bytes())
	require.Equal(t, wantAddr, result.PublicInputs[1])

	var wantChain [32]byte
	big.NewInt(17000).FillBytes(wantChain[:])
	require.Equal(t, wantChain, result.PublicInputs[2])
}

func TestVerifyEntryRejectsTamperedStoredHash(t *testing.T) {
	f := newFixture(t)

	tampered := cryptoutils.DigestPassword("not the committed password")
	f.registry.OverwriteStoredHash(f.user, f.entryID, tampered)

	result, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.ErrorIs(t, err, interfaces.ErrVerificationFailed)
	require.False(t, result.IntegrityVerified)
	require.Empty(t, result.Password)
	require.Nil(t, result.Entry)
}

// tamperingBackend models a compromised prover that proves against
// substituted public inputs. The proof itself verifies, so only the
// cross-check against the recomputed digest can catch it.
type tamperingBackend struct{}

func (tamperingBackend) GenerateProof(ctx context.Context, witness interfaces.PrivateWitness, publicInputs [][32]byte) (*interfaces.Proof, error) {
	swapped := make([][32]byte, len(publicInputs))
	copy(swapped, publicInputs)
	swapped[0] = [32]byte(cryptoutils.DigestPassword("attacker digest"))
	return &interfaces.Proof{
		ProofBytes:   prover.BuildDevProof(swapped),
		PublicInputs: swapped,
	}, nil
}

func TestVerifyEntryRejectsTamperedPublicInputs(t *testing.T) {
	f := newFixture(t)
	f.verifier.prover = tamperingBackend{}

	result, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.ErrorIs(t, err, interfaces.ErrVerificationFailed)
	require.False(t, result.IntegrityVerified)
	require.Empty(t, result.Password)
}

func TestVerifyEntryCorruptedEnvelope(t *testing.T) {
	f := newFixture(t)

	corrupted := make([]byte, len(f.envelope))
	copy(corrupted, f.envelope)
	corrupted[len(corrupted)-20] ^= 0x01 // inside the ciphertext
	f.blob.Corrupt(interfaces.ComputeBlobPointer(f.envelope), corrupted)

	_, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.ErrorIs(t, err, interfaces.ErrIntegrity)
}

func TestVerifyEntryWrongSessionKey(t *testing.T) {
	f := newFixture(t)

	wrongKey, err := cryptoutils.DeriveSessionKey(cryptoutils.SignatureMaterial{Signature: []byte("other-sig")}, f.user)
	require.NoError(t, err)

	_, err = f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, wrongKey)
	require.ErrorIs(t, err, interfaces.ErrIntegrity)
}

func TestVerifyEntryRetriesBlobFetch(t *testing.T) {
	f := newFixture(t)
	flaky := &flakyBlobStore{BlobStore: f.blob, failures: 2}
	f.verifier.blob = flaky

	result, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.NoError(t, err)
	require.True(t, result.IntegrityVerified)
	require.Equal(t, 3, flaky.gets)
}

func TestVerifyEntryMissingBlobNotRetried(t *testing.T) {
	f := newFixture(t)

	// An empty backend means the pointer resolves to a definitive miss.
	empty := storage.NewMemoryBackend(slog.New(slog.NewTextHandler(io.Discard, nil)))
	flaky := &flakyBlobStore{BlobStore: empty}
	f.verifier.blob = flaky

	_, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)
	require.Equal(t, 1, flaky.gets, "a definitive miss must not be retried")
}

func TestVerifyEntryUnknownEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.verifier.VerifyEntry(context.Background(), f.user, interfaces.NewEntryID(), f.key)
	require.ErrorIs(t, err, interfaces.ErrEntryNotFound)
}

func TestVerifyEntryProofBackendFailure(t *testing.T) {
	f := newFixture(t)

	backend := new(prover.MockProofBackend)
	backend.On("GenerateProof", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: circuit unavailable", interfaces.ErrProofGeneration)).Once()
	f.verifier.prover = backend

	_, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.ErrorIs(t, err, interfaces.ErrProofGeneration)
	backend.AssertExpectations(t)
}

func TestVerifyEntryCommitmentMismatchSkipsProver(t *testing.T) {
	f := newFixture(t)
	f.registry.OverwriteStoredHash(f.user, f.entryID, cryptoutils.DigestPassword("not the committed password"))

	backend := new(prover.MockProofBackend)
	f.verifier.prover = backend

	_, err := f.verifier.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.ErrorIs(t, err, interfaces.ErrVerificationFailed)
	backend.AssertNotCalled(t, "GenerateProof", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEntryProofRejectedByContract(t *testing.T) {
	f := newFixture(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	record := interfaces.CommitmentRecord{
		StoredHash:  cryptoutils.DigestPassword(f.password),
		BlobPointer: interfaces.ComputeBlobPointer(f.envelope),
		Timestamp:   time.Now().UTC(),
		IsActive:    true,
	}
	contract := new(chain.MockVaultContract)
	contract.On("GetEntry", mock.Anything, f.user, f.entryID).Return(record, nil).Once()
	contract.On("Address").Return(f.registry.Address())
	contract.On("ChainID").Return(big.NewInt(17000))
	contract.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()

	v := New(&Config{Blob: f.blob, Contract: contract, Prover: devBackend{}, Log: log})
	result, err := v.VerifyEntry(context.Background(), f.user, f.entryID, f.key)
	require.ErrorIs(t, err, interfaces.ErrVerificationFailed)
	require.False(t, result.IntegrityVerified)
	require.Empty(t, result.Password)
	contract.AssertExpectations(t)
}
