package payment

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Signer abstracts EIP-712 typed-data signing and the payer's address, so
// the payment core stays crypto-agnostic (spec.md §9's explicit interface
// boundary: "Signer { signTypedData(...) -> bytes }").
type Signer interface {
	// Address returns the payer's 40-hex address, lowercase, "0x"-prefixed.
	Address() string
	// SignTypedData signs a 32-byte EIP-712 digest and returns the
	// 65-byte [R || S || V] signature.
	SignTypedData(digest [32]byte) ([]byte, error)
}

// domain is the EIP-712 domain separator input.
type domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// transferWithAuthorizationTypeHash is keccak256 of the exact type
// string from spec.md §6: "TransferWithAuthorization(address from,address
// to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)".
var transferWithAuthorizationTypeHash = keccak256([]byte(
	"TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)",
))

var eip712DomainTypeHash = keccak256([]byte(
	"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
))

func keccak256(data ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// domainSeparator computes the EIP-712 domain separator hash.
func (d domain) separator() ([32]byte, error) {
	verifyingContract, err := parseAddress(d.VerifyingContract)
	if err != nil {
		return [32]byte{}, fmt.Errorf("domain verifyingContract: %w", err)
	}
	chainID := new(big.Int).SetInt64(d.ChainID)

	return keccak256(
		eip712DomainTypeHash[:],
		keccak256([]byte(d.Name))[:],
		keccak256([]byte(d.Version))[:],
		leftPad32(chainID.Bytes()),
		leftPad32(verifyingContract[:]),
	), nil
}

// structHash computes the EIP-712 struct hash of a TransferWithAuthorization
// message.
func structHash(auth Authorization) ([32]byte, error) {
	from, err := parseAddress(auth.From)
	if err != nil {
		return [32]byte{}, fmt.Errorf("authorization.from: %w", err)
	}
	to, err := parseAddress(auth.To)
	if err != nil {
		return [32]byte{}, fmt.Errorf("authorization.to: %w", err)
	}
	value, ok := new(big.Int).SetString(auth.Value, 10)
	if !ok {
		return [32]byte{}, fmt.Errorf("authorization.value is not a decimal integer: %q", auth.Value)
	}
	validAfter, ok := new(big.Int).SetString(auth.ValidAfter, 10)
	if !ok {
		return [32]byte{}, fmt.Errorf("authorization.validAfter is not a decimal integer: %q", auth.ValidAfter)
	}
	validBefore, ok := new(big.Int).SetString(auth.ValidBefore, 10)
	if !ok {
		return [32]byte{}, fmt.Errorf("authorization.validBefore is not a decimal integer: %q", auth.ValidBefore)
	}
	nonce, err := parseBytes32(auth.Nonce)
	if err != nil {
		return [32]byte{}, fmt.Errorf("authorization.nonce: %w", err)
	}

	return keccak256(
		transferWithAuthorizationTypeHash[:],
		leftPad32(from[:]),
		leftPad32(to[:]),
		leftPad32(value.Bytes()),
		leftPad32(validAfter.Bytes()),
		leftPad32(validBefore.Bytes()),
		nonce[:],
	), nil
}

// TypedDataDigest computes the final EIP-712 digest
// keccak256("\x19\x01" || domainSeparator || structHash) that Signer signs.
func TypedDataDigest(d domain, auth Authorization) ([32]byte, error) {
	sep, err := d.separator()
	if err != nil {
		return [32]byte{}, err
	}
	sh, err := structHash(auth)
	if err != nil {
		return [32]byte{}, err
	}
	return keccak256([]byte{0x19, 0x01}, sep[:], sh[:]), nil
}

func leftPad32(b []byte) []byte {
	out := make([]byte, 32)
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

func parseAddress(s string) ([20]byte, error) {
	s = strings.TrimPrefix(stripCAIPPrefix(s), "0x")
	var out [20]byte
	b, err := decodeHex(s)
	if err != nil || len(b) != 20 {
		return out, fmt.Errorf("invalid 40-hex address: %q", s)
	}
	copy(out[:], b)
	return out, nil
}

func parseBytes32(s string) ([32]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	var out [32]byte
	b, err := decodeHex(s)
	if err != nil || len(b) != 32 {
		return out, fmt.Errorf("invalid 32-byte hex value: %q", s)
	}
	copy(out[:], b)
	return out, nil
}

// stripCAIPPrefix accepts a CAIP-style "eip155:8453:0xabc..." suffix form
// for payTo/asset by keeping only the text after the final colon.
func stripCAIPPrefix(s string) string {
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexNibble(s[2*i])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(s[2*i+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex character %q", c)
	}
}

// chainIDFromNetwork parses a CAIP-style "eip155:<n>" network id, falling
// back to the documented bare aliases (spec.md §4.4).
func chainIDFromNetwork(network string) int64 {
	if strings.HasPrefix(network, "eip155:") {
		n := new(big.Int)
		if _, ok := n.SetString(strings.TrimPrefix(network, "eip155:"), 10); ok {
			return n.Int64()
		}
	}
	switch network {
	case "base-sepolia":
		return 84532
	case "base":
		fallthrough
	default:
		return 8453
	}
}

// encodeUint64String renders n as a base-10 string, used for
// validAfter/validBefore fields which are wire-encoded as decimal strings.
func encodeUint64String(n uint64) string {
	return new(big.Int).SetUint64(n).String()
}
