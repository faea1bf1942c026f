package cryptoutils

import (
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

// SplitRecoveryKit splits a session key into Shamir shares for an offline
// recovery kit. Any threshold of the parts reconstructs the key; fewer
// reveal nothing about it. Shares are as sensitive as the key itself and
// must be distributed to independent custodians.
func SplitRecoveryKit(key *SessionKey, parts, threshold int) ([][]byte, error) {
	if key == nil {
		return nil, errors.New("missing session key")
	}
	if threshold < 2 || threshold > parts {
		return nil, fmt.Errorf("invalid recovery kit configuration: %d of %d", threshold, parts)
	}

	shares, err := shamir.Split(key.Bytes(), parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split key: %w", err)
	}
	return shares, nil
}

// CombineRecoveryKit reconstructs raw session key bytes from a threshold of
// recovery kit shares. The caller is responsible for zeroing the result.
func CombineRecoveryKit(shares [][]byte) ([]byte, error) {
	if len(shares) < 2 {
		return nil, errors.New("at least two shares required")
	}

	key, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("failed to combine shares: %w", err)
	}
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("reconstructed key has unexpected size %d", len(key))
	}
	return key, nil
}
