package prover

import (
	"bytes"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// devProofDomain separates dev proofs from any other keccak use.
const devProofDomain = "vault-dev-proof-v1"

// BuildDevProof constructs the development proof for a set of public
// inputs: the keccak-256 of a domain tag and the ordered input words. It
// binds the proof to the exact public inputs, so any post-generation
// tampering fails verification, which is the property the engine's tests
// and dev stack need. It carries no zero-knowledge weight and must never
// be accepted by a production verifier contract.
func BuildDevProof(publicInputs [][32]byte) []byte {
	material := make([]byte, 0, len(devProofDomain)+32*len(publicInputs))
	material = append(material, devProofDomain...)
	for _, word := range publicInputs {
		material = append(material, word[:]...)
	}
	return ethcrypto.Keccak256(material)
}

// VerifyDevProof checks a development proof against public inputs.
func VerifyDevProof(proof []byte, publicInputs [][32]byte) bool {
	return bytes.Equal(proof, BuildDevProof(publicInputs))
}
