// Package chain supplies the two external-collaborator implementations
// spec.md §9 leaves as pluggable interfaces: balance.ErcClient (an
// on-chain ERC-20 balance read) and payment.Signer (EIP-712 typed-data
// signing). Both are thin, dependency-light adapters rather than a full
// web3 client — ClawRouter only ever needs balanceOf and one signature
// per payment.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
)

// RPCClient reads an ERC-20 balance over a plain JSON-RPC eth_call,
// satisfying internal/balance.ErcClient. It deliberately skips a full
// ethclient/abigen dependency: one selector, one address, one uint256
// return value don't need ABI codegen.
type RPCClient struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewRPCClient builds an RPCClient against endpoint (an HTTP(S) JSON-RPC
// URL) for the ERC-20 contract at tokenAddress.
func NewRPCClient(endpoint, tokenAddress string, httpClient *http.Client) *RPCClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RPCClient{endpoint: endpoint, token: tokenAddress, http: httpClient}
}

// balanceOfSelector is the first 4 bytes of keccak256("balanceOf(address)").
const balanceOfSelector = "0x70a08231"

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcCallObject struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// BalanceOf calls balanceOf(address) on the configured token contract and
// returns the raw uint256 result.
func (c *RPCClient) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	data := balanceOfSelector + leftPad32(address)
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params:  []any{rpcCallObject{To: c.token, Data: data}, "latest"},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal eth_call request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build eth_call request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("eth_call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read eth_call response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("parse eth_call response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("eth_call failed: %s", rpcResp.Error.Message)
	}

	hexResult := strings.TrimPrefix(rpcResp.Result, "0x")
	if hexResult == "" {
		return big.NewInt(0), nil
	}

	balance, ok := new(big.Int).SetString(hexResult, 16)
	if !ok {
		return nil, fmt.Errorf("parse eth_call result %q as hex uint256", rpcResp.Result)
	}
	return balance, nil
}

// leftPad32 hex-encodes a 20-byte address into a 32-byte word, as
// eth_call's calldata ABI encoding requires.
func leftPad32(address string) string {
	addr := strings.TrimPrefix(strings.ToLower(address), "0x")
	return strings.Repeat("0", 64-len(addr)) + addr
}
