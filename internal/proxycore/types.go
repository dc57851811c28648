// Package proxycore is C9, the proxy orchestrator (spec.md §4.9): the
// HTTP surface, the eighteen-step chat-completion pipeline, SSE
// transcoding, degraded-response detection and the payment-error
// transformer. It wires every other C1-C8 component together the way
// BaSui01/agentflow's api/handlers package wires provider+cache+metrics
// behind a thin http.Handler per route.
package proxycore

import (
	"context"
	"net/http"
	"time"

	"github.com/edgeandnode/ClawRouter/internal/balance"
	"github.com/edgeandnode/ClawRouter/internal/classifier"
	"github.com/edgeandnode/ClawRouter/internal/config"
	"github.com/edgeandnode/ClawRouter/internal/dedup"
	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/edgeandnode/ClawRouter/internal/payment"
	"github.com/edgeandnode/ClawRouter/internal/ratelimit"
	"github.com/edgeandnode/ClawRouter/internal/respcache"
	"github.com/edgeandnode/ClawRouter/internal/selector"
	"github.com/edgeandnode/ClawRouter/internal/session"
	"github.com/edgeandnode/ClawRouter/internal/telemetry"
	"go.uber.org/zap"
)

// Message is one OpenAI-compatible chat message. Content is kept as raw
// JSON text (a plain string in the common case, but some clients send a
// multi-part array) — normalize.go only ever does byte-level
// transformations via gjson/sjson rather than fully unmarshaling arbitrary
// content shapes.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OnLowBalance is invoked when a request's cost estimate exceeds the
// wallet's balance and the proxy downgrades to the free model (spec.md
// §4.9 step 10's "signal low-balance to the external observer").
type OnLowBalance func(wallet string, requiredUSD, currentUSD float64)

// Deps bundles every collaborator the pipeline needs. All fields are
// required except Now and OnLowBalance, which default to sane no-ops.
type Deps struct {
	Config   *config.Config
	Registry *model.Registry
	Profiles model.ProfileTables

	ClassifierConfig classifier.Config
	Selector         *selector.Selector

	Fetcher        *payment.Fetcher
	BalanceMonitor *balance.Monitor
	WalletAddress  string

	Dedup       *dedup.Deduplicator
	RespCache   *respcache.Cache
	Sessions    *session.Store
	RateLimiter *ratelimit.Tracker

	HTTPClient *http.Client
	Metrics    *telemetry.Metrics
	Logger     *zap.Logger

	UsageLogger     UsageLogger
	StatsAggregator StatsAggregator

	Now          func() time.Time
	OnLowBalance OnLowBalance
}

func (d *Deps) usageLogger() UsageLogger {
	if d.UsageLogger != nil {
		return d.UsageLogger
	}
	return noopUsageLogger{}
}

func (d *Deps) statsAggregator() StatsAggregator {
	if d.StatsAggregator != nil {
		return d.StatsAggregator
	}
	return noopStatsAggregator{}
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) onLowBalance(wallet string, requiredUSD, currentUSD float64) {
	if d.OnLowBalance != nil {
		d.OnLowBalance(wallet, requiredUSD, currentUSD)
	}
}

// requestState names the pipeline's state machine (spec.md §4.9 "State
// machine for a request"), kept only for structured logging — it is never
// branched on.
type requestState string

const (
	stateReceived   requestState = "RECEIVED"
	statePARSED     requestState = "PARSED"
	stateResolved   requestState = "RESOLVED"
	stateClassified requestState = "CLASSIFIED"
	stateCandidates requestState = "CANDIDATES"
	stateAttempting requestState = "ATTEMPTING"
	stateCompleted  requestState = "COMPLETED"
	stateErrEmitted requestState = "ERROR_EMITTED"
	stateCancelled  requestState = "CANCELLED"
)

func (d *Deps) logState(ctx context.Context, requestID string, s requestState, fields ...zap.Field) {
	all := append([]zap.Field{zap.String("request_id", requestID), zap.String("state", string(s))}, fields...)
	d.Logger.Debug("request state", all...)
}
