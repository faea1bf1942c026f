// Package verifier implements integrity verification of recovered vault
// entries: it collects the encrypted envelope behind an on-chain
// commitment, recomputes the password commitment locally, obtains a
// zero-knowledge proof, and verifies it against the live contract state.
// A password is released to the caller only after the full chain of checks
// passes.
package verifier
