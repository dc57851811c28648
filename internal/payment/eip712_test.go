package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedDataDigestDeterministic(t *testing.T) {
	d := domain{Name: "USD Coin", Version: "2", ChainID: 8453, VerifyingContract: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"}
	auth := Authorization{
		From:        "0x0000000000000000000000000000000000000001",
		To:          "0x0000000000000000000000000000000000000002",
		Value:       "1000000",
		ValidAfter:  "1000",
		ValidBefore: "2000",
		Nonce:       "0x" + "ab" + "00000000000000000000000000000000000000000000000000000000000" + "0",
	}

	a, err := TypedDataDigest(d, auth)
	require.NoError(t, err)
	b, err := TypedDataDigest(d, auth)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTypedDataDigestRejectsBadAddress(t *testing.T) {
	d := domain{Name: "USD Coin", Version: "2", ChainID: 8453, VerifyingContract: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"}
	auth := Authorization{
		From:        "not-an-address",
		To:          "0x0000000000000000000000000000000000000002",
		Value:       "1",
		ValidAfter:  "1",
		ValidBefore: "2",
		Nonce:       "0x0000000000000000000000000000000000000000000000000000000000000a",
	}
	_, err := TypedDataDigest(d, auth)
	assert.Error(t, err)
}

func TestChainIDFromNetwork(t *testing.T) {
	assert.EqualValues(t, 8453, chainIDFromNetwork("eip155:8453"))
	assert.EqualValues(t, 84532, chainIDFromNetwork("base-sepolia"))
	assert.EqualValues(t, 8453, chainIDFromNetwork("base"))
	assert.EqualValues(t, 8453, chainIDFromNetwork("unknown-garbage"))
}

func TestStripCAIPPrefix(t *testing.T) {
	assert.Equal(t, "0xabc", stripCAIPPrefix("eip155:8453:0xabc"))
	assert.Equal(t, "0xabc", stripCAIPPrefix("0xabc"))
}
