package cryptoutils

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// CanonicalPassword returns the canonical byte encoding of a password: its
// exact UTF-8 bytes, with no trimming or normalization. The on-chain
// commitment and the proof witness both use this encoding, so it must never
// change for a given envelope version.
func CanonicalPassword(password string) []byte {
	return []byte(password)
}

// DigestPassword computes the keccak-256 digest of the canonical password
// encoding, matching the contract-side keccak256(abi.encodePacked(password)).
func DigestPassword(password string) interfaces.PasswordDigest {
	return interfaces.PasswordDigest(crypto.Keccak256Hash(CanonicalPassword(password)))
}

// BuildPublicInputs assembles the ordered public input words for a
// verification attempt: [0] the committed digest, [1] the verifier contract
// address left-padded to 32 bytes, [2] the chain ID as a big-endian word.
func BuildPublicInputs(storedHash interfaces.PasswordDigest, contract common.Address, chainID *big.Int) [][32]byte {
	inputs := make([][32]byte, 3)
	inputs[0] = [32]byte(storedHash)

	copy(inputs[1][12:], contract.Bytes())

	chainID.FillBytes(inputs[2][:])
	return inputs
}
