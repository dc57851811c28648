package payment

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edgeandnode/ClawRouter/internal/rerr"
	"golang.org/x/time/rate"
)

const (
	headerPaymentRequired = "x-payment-required"
	headerPaymentSig      = "payment-signature"
	headerXPayment        = "x-payment"
)

// Fetcher wraps an *http.Client to satisfy upstreams speaking HTTP 402
// Payment Required (spec.md §4.4, C2).
type Fetcher struct {
	client  *http.Client
	cache   *Cache
	signer  Signer
	limiter *rate.Limiter
}

// NewFetcher builds a Fetcher over client, sharing cache across requests
// and signing authorizations with signer.
func NewFetcher(client *http.Client, cache *Cache, signer Signer) *Fetcher {
	return &Fetcher{client: client, cache: cache, signer: signer}
}

// SetLimiter installs a global outbound token-bucket throttle shared by
// every call the Fetcher makes to the upstream aggregator, independent
// of the per-model rate-limit cooldowns tracked in internal/ratelimit
// (spec.md §5 "Back-pressure"). A nil limiter (the default) disables
// throttling.
func (f *Fetcher) SetLimiter(limiter *rate.Limiter) {
	f.limiter = limiter
}

// Do performs the 402-aware request cycle for path. body is the request
// payload to send (re-sent verbatim on retry); estimatedMicroUSD, when
// nonzero, enables the pre-auth fast path using a cached entry for path.
func (f *Fetcher) Do(req *http.Request, path string, body []byte, estimatedMicroUSD uint64) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(req.Context()); err != nil {
			return nil, rerr.New(rerr.ProxyError, "outbound rate limiter wait").WithCause(err)
		}
	}
	if cached, ok := f.cache.Get(path); ok && estimatedMicroUSD > 0 {
		return f.preAuthPath(req, path, body, cached, estimatedMicroUSD)
	}
	return f.normalPath(req, path, body)
}

// normalPath sends a clean request; on 402 it signs and retries once.
func (f *Fetcher) normalPath(req *http.Request, path string, body []byte) (*http.Response, error) {
	resp, err := f.send(req, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}
	defer resp.Body.Close()

	hdr, err := parsePaymentRequired(resp.Header.Get(headerPaymentRequired))
	if err != nil {
		return nil, err
	}
	option := hdr.Accepts[0]
	f.cache.Set(path, option, hdr.Resource)

	payloadB64, err := f.signPayload(option, hdr.Resource)
	if err != nil {
		return nil, err
	}

	retryReq, err := cloneRequest(req, body)
	if err != nil {
		return nil, err
	}
	retryReq.Header.Set(headerPaymentSig, payloadB64)
	retryReq.Header.Set(headerXPayment, payloadB64)

	return f.client.Do(retryReq)
}

// preAuthPath attempts a pre-signed single-round-trip request using
// cached parameters; falls back to the normal path per spec.md §4.4.
func (f *Fetcher) preAuthPath(req *http.Request, path string, body []byte, cached CachedParams, estimatedMicroUSD uint64) (*http.Response, error) {
	option := cached.Option
	option.Amount = fmt.Sprintf("%d", estimatedMicroUSD)

	payloadB64, err := f.signPayload(option, cached.Resource)
	if err != nil {
		return nil, err
	}

	preAuthReq, err := cloneRequest(req, body)
	if err != nil {
		return nil, err
	}
	preAuthReq.Header.Set(headerPaymentSig, payloadB64)
	preAuthReq.Header.Set(headerXPayment, payloadB64)

	resp, err := f.client.Do(preAuthReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	if resp.Header.Get(headerPaymentRequired) != "" {
		defer resp.Body.Close()
		return f.normalPathFromHeader(req, path, body, resp.Header.Get(headerPaymentRequired))
	}

	// Stale cache entry with no fresh challenge: invalidate and retry clean.
	resp.Body.Close()
	f.cache.Invalidate(path)
	return f.normalPath(req, path, body)
}

func (f *Fetcher) normalPathFromHeader(req *http.Request, path string, body []byte, headerValue string) (*http.Response, error) {
	hdr, err := parsePaymentRequired(headerValue)
	if err != nil {
		return nil, err
	}
	option := hdr.Accepts[0]
	f.cache.Set(path, option, hdr.Resource)

	payloadB64, err := f.signPayload(option, hdr.Resource)
	if err != nil {
		return nil, err
	}

	retryReq, err := cloneRequest(req, body)
	if err != nil {
		return nil, err
	}
	retryReq.Header.Set(headerPaymentSig, payloadB64)
	retryReq.Header.Set(headerXPayment, payloadB64)

	return f.client.Do(retryReq)
}

func (f *Fetcher) send(req *http.Request, body []byte) (*http.Response, error) {
	r, err := cloneRequest(req, body)
	if err != nil {
		return nil, err
	}
	return f.client.Do(r)
}

// signPayload builds and signs the EIP-712 authorization for option, then
// base64-encodes the outer payload (spec.md §6, bit-exact wire shape).
// Property P8 requires that payment-signature and x-payment carry the
// identical byte string — callers must set both headers from this one
// return value, never computing it twice.
func (f *Fetcher) signPayload(option PaymentOption, resource *ResourceInfo) (string, error) {
	if option.PayTo == "" || option.Asset == "" {
		return "", rerr.New(rerr.InvalidPayload, "payment option missing payTo or asset")
	}
	amount := option.amountValue()
	if amount == "" {
		return "", rerr.New(rerr.InvalidPayload, "payment option missing amount")
	}

	name, version := "USD Coin", "2"
	if option.Extra != nil {
		if option.Extra.Name != "" {
			name = option.Extra.Name
		}
		if option.Extra.Version != "" {
			version = option.Extra.Version
		}
	}

	now := time.Now().Unix()
	timeout := option.MaxTimeoutSeconds
	if timeout == 0 {
		timeout = 300
	}

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	auth := Authorization{
		From:        f.signer.Address(),
		To:          option.PayTo,
		Value:       amount,
		ValidAfter:  encodeUint64String(uint64(now - 600)),
		ValidBefore: encodeUint64String(uint64(now + int64(timeout))),
		Nonce:       "0x" + hexEncode(nonce),
	}

	d := domain{Name: name, Version: version, ChainID: chainIDFromNetwork(option.Network), VerifyingContract: option.Asset}
	digest, err := TypedDataDigest(d, auth)
	if err != nil {
		return "", rerr.New(rerr.InvalidPayload, "build typed-data digest").WithCause(err)
	}

	sig, err := f.signer.SignTypedData(digest)
	if err != nil {
		return "", rerr.New(rerr.SettlementFailed, "sign typed data").WithCause(err)
	}

	var resourceInfo ResourceInfo
	if resource != nil {
		resourceInfo = *resource
	}
	resourceInfo.MimeType = "application/json"

	outer := OuterPayload{
		X402Version: 2,
		Resource:    resourceInfo,
		Accepted:    option,
		Payload: Payload{
			Signature:     "0x" + hexEncode(sig),
			Authorization: auth,
		},
	}

	raw, err := json.Marshal(outer)
	if err != nil {
		return "", fmt.Errorf("marshal payment payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// parsePaymentRequired decodes the base64url-JSON x-payment-required
// header (spec.md §4.4/§8 property: round-trips losslessly across
// padding variations).
func parsePaymentRequired(headerValue string) (PaymentRequiredHeader, error) {
	if headerValue == "" {
		return PaymentRequiredHeader{}, rerr.New(rerr.InvalidPayload, "missing x-payment-required header")
	}
	raw, err := decodeBase64URLLenient(headerValue)
	if err != nil {
		return PaymentRequiredHeader{}, rerr.New(rerr.InvalidPayload, "decode x-payment-required").WithCause(err)
	}
	var hdr PaymentRequiredHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return PaymentRequiredHeader{}, rerr.New(rerr.InvalidPayload, "parse x-payment-required JSON").WithCause(err)
	}
	if len(hdr.Accepts) == 0 {
		return PaymentRequiredHeader{}, rerr.New(rerr.InvalidPayload, "x-payment-required has no accepts entries")
	}
	return hdr, nil
}

// decodeBase64URLLenient accepts both padded and unpadded base64url,
// tolerating whichever the server sent.
func decodeBase64URLLenient(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0xf]
	}
	return string(out)
}

// cloneRequest builds a fresh *http.Request from req's method/URL/headers
// with body as its (repeatable) payload, so the same *http.Request can be
// replayed across the 402 retry.
func cloneRequest(req *http.Request, body []byte) (*http.Request, error) {
	clone := req.Clone(req.Context())
	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.ContentLength = int64(len(body))
	return clone, nil
}
