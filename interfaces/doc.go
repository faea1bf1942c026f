// Package interfaces defines the shared types, collaborator interfaces, and
// error taxonomy of the vault integrity engine. It is the contract between
// components without implementation details.
//
// The engine talks to four external collaborators, all modeled here as
// narrow interfaces: a wallet signer (secret material for key derivation), a
// content-addressed blob store (encrypted envelope persistence), the vault
// contract (on-chain commitments and proof verification), and a proof
// backend (zero-knowledge proof generation).
//
// Errors form a fixed taxonomy of sentinels so callers can dispatch with
// errors.Is. Two deserve care: ErrVerificationFailed is a legitimate
// negative result rather than a system fault, and PartialWriteError carries
// the orphaned blob pointer of an interrupted cross-system commit.
package interfaces
