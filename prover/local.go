package prover

// LocalVerifier pre-checks proofs before on-chain submission, mirroring the
// verifier contract's view call for proof schemes it understands. Using it
// avoids a round trip for proofs that would be rejected anyway; it never
// replaces the contract check for positive results.
type LocalVerifier struct{}

// NewLocalVerifier creates a local proof pre-checker.
func NewLocalVerifier() *LocalVerifier {
	return &LocalVerifier{}
}

// Verify reports whether the proof is valid for the public inputs.
func (v *LocalVerifier) Verify(proof []byte, publicInputs [][32]byte) bool {
	if len(proof) == 0 || len(publicInputs) == 0 {
		return false
	}
	return VerifyDevProof(proof, publicInputs)
}
