// Package payment implements the x402 402-Payment-Required handshake
// (spec.md §4.3-4.4, C1/C2): a per-endpoint parameter cache and an
// HTTP client wrapper that signs an EIP-712 TransferWithAuthorization on
// demand. Grounded on the x402/paywall shape surfaced in
// other_examples/CedrosPay's httpserver.go (a real x402 paywall server)
// and on BaSui01/agentflow's config/loader.go cache-with-TTL idiom.
package payment

import "time"

// PaymentOption is one entry of a 402 response's "accepts" array
// (spec.md §6, bit-exact wire shape).
type PaymentOption struct {
	Scheme            string     `json:"scheme"`
	Network           string     `json:"network"`
	Asset             string     `json:"asset"`
	PayTo             string     `json:"payTo"`
	Amount            string     `json:"amount,omitempty"`
	MaxAmountRequired string     `json:"maxAmountRequired,omitempty"`
	MaxTimeoutSeconds int        `json:"maxTimeoutSeconds,omitempty"`
	Extra             *ExtraInfo `json:"extra,omitempty"`
}

// ExtraInfo carries the EIP-712 domain's optional name/version override.
type ExtraInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// amountValue returns Amount, falling back to MaxAmountRequired.
func (o PaymentOption) amountValue() string {
	if o.Amount != "" {
		return o.Amount
	}
	return o.MaxAmountRequired
}

// PaymentRequiredHeader is the decoded shape of the x-payment-required
// header.
type PaymentRequiredHeader struct {
	Accepts  []PaymentOption `json:"accepts"`
	Resource *ResourceInfo   `json:"resource,omitempty"`
}

// ResourceInfo describes the resource being paid for.
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Authorization is the EIP-712 TransferWithAuthorization message.
type Authorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// Payload is the signature + authorization pair sent back to the server.
type Payload struct {
	Signature     string        `json:"signature"`
	Authorization Authorization `json:"authorization"`
}

// OuterPayload is the full payment-signature / x-payment header body
// (spec.md §6, bit-exact).
type OuterPayload struct {
	X402Version int           `json:"x402Version"`
	Resource    ResourceInfo  `json:"resource"`
	Accepted    PaymentOption `json:"accepted"`
	Payload     Payload       `json:"payload"`
	Extensions  struct{}      `json:"extensions"`
}

// CachedParams is one Payment Cache entry: derived payment parameters for
// an endpoint path, plus when they were cached (spec.md §4.3).
type CachedParams struct {
	Option    PaymentOption
	Resource  *ResourceInfo
	CachedAt  time.Time
}

// Expired reports whether the entry is older than ttl.
func (c CachedParams) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(c.CachedAt) > ttl
}
