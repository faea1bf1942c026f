package prover

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/walletvault/vault-integrity-engine/cryptoutils"
	"github.com/walletvault/vault-integrity-engine/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInputs(password string) (interfaces.PrivateWitness, [][32]byte) {
	witness := interfaces.PrivateWitness{CanonicalPassword: cryptoutils.CanonicalPassword(password)}
	inputs := cryptoutils.BuildPublicInputs(
		cryptoutils.DigestPassword(password),
		common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		big.NewInt(17000),
	)
	return witness, inputs
}

func TestClientGeneratesVerifiableProof(t *testing.T) {
	devSrv := NewDevServer(&DevServerConfig{Log: testLogger()})
	srv := httptest.NewServer(devSrv.Router())
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	witness, inputs := testInputs("p@ssw0rd!")

	proof, err := client.GenerateProof(context.Background(), witness, inputs)
	require.NoError(t, err)
	require.Equal(t, inputs, proof.PublicInputs)
	require.True(t, VerifyDevProof(proof.ProofBytes, proof.PublicInputs))
}

func TestClientRejectsEmptyWitness(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", testLogger())
	_, inputs := testInputs("irrelevant")

	_, err := client.GenerateProof(context.Background(), interfaces.PrivateWitness{}, inputs)
	require.ErrorIs(t, err, interfaces.ErrProofGeneration)
}

func TestClientDoesNotRetryWitnessRejection(t *testing.T) {
	devSrv := NewDevServer(&DevServerConfig{Log: testLogger()})
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		devSrv.Router().ServeHTTP(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	witness, _ := testInputs("correct horse")
	_, wrongInputs := testInputs("battery staple")

	_, err := client.GenerateProof(context.Background(), witness, wrongInputs)
	require.ErrorIs(t, err, interfaces.ErrProofGeneration)
	require.Equal(t, 1, requests, "witness rejection must not be retried")
}

func TestClientRetriesServerFailures(t *testing.T) {
	devSrv := NewDevServer(&DevServerConfig{Log: testLogger()})
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			http.Error(w, "transient", http.StatusServiceUnavailable)
			return
		}
		devSrv.Router().ServeHTTP(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	witness, inputs := testInputs("github.com")

	proof, err := client.GenerateProof(context.Background(), witness, inputs)
	require.NoError(t, err)
	require.Equal(t, 3, requests)
	require.True(t, VerifyDevProof(proof.ProofBytes, proof.PublicInputs))
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	witness, inputs := testInputs("pw")

	_, err := client.GenerateProof(context.Background(), witness, inputs)
	require.ErrorIs(t, err, interfaces.ErrProofGeneration)
	require.Equal(t, maxAttempts, requests)
}

func TestClientMapsDeadlineToTimeout(t *testing.T) {
	devSrv := NewDevServer(&DevServerConfig{
		Log:          testLogger(),
		ProvingDelay: 2 * time.Second,
	})
	srv := httptest.NewServer(devSrv.Router())
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	witness, inputs := testInputs("slow")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GenerateProof(ctx, witness, inputs)
	require.ErrorIs(t, err, interfaces.ErrTimeout)
}

func TestDevProofBindsToPublicInputs(t *testing.T) {
	_, inputs := testInputs("secret")
	proof := BuildDevProof(inputs)
	require.True(t, VerifyDevProof(proof, inputs))

	tampered := make([][32]byte, len(inputs))
	copy(tampered, inputs)
	tampered[0][0] ^= 0x01
	require.False(t, VerifyDevProof(proof, tampered))
}
