package prover

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// MockProofBackend implements interfaces.ProofBackend for tests.
type MockProofBackend struct {
	mock.Mock
}

func (m *MockProofBackend) GenerateProof(ctx context.Context, witness interfaces.PrivateWitness, publicInputs [][32]byte) (*interfaces.Proof, error) {
	args := m.Called(ctx, witness, publicInputs)
	proof, _ := args.Get(0).(*interfaces.Proof)
	return proof, args.Error(1)
}
