package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceOfParsesHexResult(t *testing.T) {
	var gotBody rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rpcResponse{Result: "0x3e8"}) // 1000
	}))
	defer srv.Close()

	client := NewRPCClient(srv.URL, "0xTokenAddress", nil)
	balance, err := client.BalanceOf(context.Background(), "0xabc0000000000000000000000000000000dead")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), balance)
	assert.Equal(t, "eth_call", gotBody.Method)
}

func TestBalanceOfEmptyResultIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rpcResponse{Result: "0x"})
	}))
	defer srv.Close()

	client := NewRPCClient(srv.URL, "0xToken", nil)
	balance, err := client.BalanceOf(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), balance)
}

func TestBalanceOfPropagatesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": -32000, "message": "execution reverted"},
		})
	}))
	defer srv.Close()

	client := NewRPCClient(srv.URL, "0xToken", nil)
	_, err := client.BalanceOf(context.Background(), "0xabc")
	assert.ErrorContains(t, err, "execution reverted")
}

func TestLeftPad32(t *testing.T) {
	padded := leftPad32("0xAbC0000000000000000000000000000000dEaD")
	assert.Len(t, padded, 64)
	assert.Equal(t, "abc0000000000000000000000000000000dead", padded[24:])
}
