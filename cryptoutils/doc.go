// Package cryptoutils implements the cryptographic primitives of the vault
// engine: deterministic session key derivation from wallet secret material,
// the versioned authenticated envelope codec for vault entries, canonical
// password digests matching the on-chain commitment scheme, and the Shamir
// recovery kit.
//
// Key derivation is HKDF-SHA256 keyed on either a deterministic wallet
// signature over a fixed versioned message (production) or a raw exported
// private key (development only, behind an explicit insecure flag), with
// the wallet address as salt. The same (secret, address) pair always yields
// a byte-identical key; the two secret paths yield different keys for the
// same address and are not interoperable.
//
// Envelopes are AES-256-GCM with a fresh random nonce per seal and a strict
// fixed-length binary layout dispatched on a version byte. Decoders reject
// unknown versions and malformed input explicitly; an authentication tag
// mismatch is a hard failure.
//
// Raw secret material and full derived keys must never be logged; only
// SessionKey.Preview is permitted in diagnostics.
package cryptoutils
