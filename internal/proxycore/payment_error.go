package proxycore

import (
	"strings"

	"github.com/edgeandnode/ClawRouter/internal/rerr"
	"github.com/tidwall/gjson"
)

// transformPaymentError maps a raw upstream error body into the stable
// client-facing error taxonomy (spec.md §4.9 step 17). wallet and the
// current/required balances are filled in by the caller, which has
// access to the balance monitor; this function only classifies the body.
func transformPaymentError(status int, body []byte) *rerr.Error {
	text := string(body)
	lower := strings.ToLower(text)

	if strings.Contains(lower, "verification failed") || strings.Contains(lower, "insufficient") {
		return rerr.New(rerr.InsufficientFunds, "payment verification failed: insufficient balance")
	}

	if strings.Contains(lower, "invalid signature") || strings.Contains(lower, "signature") && strings.Contains(lower, "invalid") {
		return rerr.New(rerr.InvalidPayload, "payment signature rejected by verifier")
	}

	if strings.Contains(lower, "settlement") {
		e := rerr.New(rerr.SettlementFailed, "on-chain settlement rejected")
		if strings.Contains(lower, "out of gas") {
			e.Message = "on-chain settlement rejected: out of gas"
		}
		return e
	}

	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = text
	}
	return rerr.New(rerr.ProviderError, msg).WithExtra("upstream_status", status)
}

// withBalanceContext fills in the insufficient_funds extras the client
// needs to display a meaningful message.
func withBalanceContext(e *rerr.Error, wallet string, currentUSD, requiredUSD float64) *rerr.Error {
	if e.Code != rerr.InsufficientFunds {
		return e
	}
	return e.
		WithExtra("wallet", wallet).
		WithExtra("current_balance_usd", currentUSD).
		WithExtra("required_usd", requiredUSD).
		WithExtra("help", "fund the wallet or switch to a free-tier model")
}
