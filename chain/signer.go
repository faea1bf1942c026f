package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

// LocalKeySigner implements the wallet capabilities from a raw private key
// held in process memory. It signs with the deterministic nonce scheme, so
// repeated signatures over the same message are byte-identical, which the
// key derivation path depends on. Intended for CLI and test use; production
// deployments sign through an external wallet.
type LocalKeySigner struct {
	priv *ecdsa.PrivateKey
	addr common.Address
}

// NewLocalKeySigner creates a signer from a hex-encoded private key.
func NewLocalKeySigner(keyHex string) (*LocalKeySigner, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed private key: %v", interfaces.ErrNoSigner, err)
	}
	return &LocalKeySigner{
		priv: priv,
		addr: crypto.PubkeyToAddress(priv.PublicKey),
	}, nil
}

// SignMessage signs the personal-message hash of message.
func (s *LocalKeySigner) SignMessage(ctx context.Context, message string) ([]byte, error) {
	return crypto.Sign(accounts.TextHash([]byte(message)), s.priv)
}

// Address returns the signer's account address.
func (s *LocalKeySigner) Address() common.Address {
	return s.addr
}

// ExportPrivateKey implements the dev-only interfaces.PrivateKeyExporter
// capability.
func (s *LocalKeySigner) ExportPrivateKey(ctx context.Context) (string, error) {
	return hex.EncodeToString(crypto.FromECDSA(s.priv)), nil
}

// TransactOpts builds transaction options for on-chain writes signed with
// this key.
func (s *LocalKeySigner) TransactOpts(chainID *big.Int) (*bind.TransactOpts, error) {
	return bind.NewKeyedTransactorWithChainID(s.priv, chainID)
}
