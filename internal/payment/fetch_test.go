package payment

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeSigner struct{ addr string }

func (f fakeSigner) Address() string { return f.addr }
func (f fakeSigner) SignTypedData(digest [32]byte) ([]byte, error) {
	sig := make([]byte, 65)
	copy(sig, digest[:])
	return sig, nil
}

func encodePaymentRequired(t *testing.T, hdr PaymentRequiredHeader) string {
	t.Helper()
	raw, err := json.Marshal(hdr)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// TestFetchNormalPathSignsAndRetries covers the bit-exact dual-header
// behavior required by property P8.
func TestFetchNormalPathSignsAndRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			hdr := PaymentRequiredHeader{Accepts: []PaymentOption{{
				Scheme: "exact", Network: "eip155:8453", Asset: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
				PayTo: "0x0000000000000000000000000000000000000002", Amount: "1000",
			}}}
			w.Header().Set(headerPaymentRequired, encodePaymentRequired(t, hdr))
			w.WriteHeader(http.StatusPaymentRequired)
			return
		}
		sig := r.Header.Get(headerPaymentSig)
		xpay := r.Header.Get(headerXPayment)
		assert.Equal(t, sig, xpay, "payment-signature and x-payment must be byte-identical (P8)")
		assert.NotEmpty(t, sig)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), NewCache(time.Hour), fakeSigner{addr: "0x0000000000000000000000000000000000000001"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/chat/completions", nil)
	require.NoError(t, err)

	resp, err := f.Do(req, "/v1/chat/completions", []byte(`{}`), 0)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestFetchReturnsNon402Unmodified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), NewCache(time.Hour), fakeSigner{addr: "0x01"})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := f.Do(req, "/x", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFetchHonorsOutboundLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), NewCache(time.Hour), fakeSigner{addr: "0x01"})
	f.SetLimiter(rate.NewLimiter(rate.Inf, 1))

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := f.Do(req, "/x", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParsePaymentRequiredMissingHeader(t *testing.T) {
	_, err := parsePaymentRequired("")
	assert.Error(t, err)
}

func TestParsePaymentRequiredTolerantOfPadding(t *testing.T) {
	hdr := PaymentRequiredHeader{Accepts: []PaymentOption{{Scheme: "exact"}}}
	raw, _ := json.Marshal(hdr)
	padded := base64.URLEncoding.EncodeToString(raw) // with "=" padding
	parsed, err := parsePaymentRequired(padded)
	require.NoError(t, err)
	assert.Equal(t, "exact", parsed.Accepts[0].Scheme)
}
