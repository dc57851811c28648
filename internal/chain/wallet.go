package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeySigner implements internal/payment.Signer over a raw secp256k1
// private key, the same curve every EIP-712/x402 counterparty expects.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewPrivateKeySigner parses hexKey (with or without a "0x" prefix) and
// derives the signer's address from its public key.
func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet private key: %w", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &PrivateKeySigner{key: key, address: strings.ToLower(addr.Hex())}, nil
}

// Address returns the signer's lowercase 0x-prefixed address.
func (s *PrivateKeySigner) Address() string { return s.address }

// SignTypedData signs digest and returns the 65-byte [R || S || V]
// signature with V normalized to the 27/28 convention EIP-712 verifiers
// expect, rather than go-ethereum's native 0/1 recovery id.
func (s *PrivateKeySigner) SignTypedData(digest [32]byte) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("sign typed-data digest: %w", err)
	}
	sig[64] += 27
	return sig, nil
}
