package proxycore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/edgeandnode/ClawRouter/internal/classifier"
	"github.com/edgeandnode/ClawRouter/internal/dedup"
	"github.com/edgeandnode/ClawRouter/internal/jsonvalue"
	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/edgeandnode/ClawRouter/internal/rerr"
	"github.com/edgeandnode/ClawRouter/internal/selector"
	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// pipelineOutcome is what the fallback loop produces on success: a ready
// to serve body plus the bookkeeping the post-success step needs.
type pipelineOutcome struct {
	StatusCode   int
	Body         []byte
	ContentType  string
	Cacheable    bool
	ModelID      string
	Profile      string
	Tier         model.Tier
	Attempts     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	SavingsUSD   float64

	// Routing carries spec.md §3's routing decision (method, reasoning,
	// baseline cost and savings ratio) for the candidate this request was
	// classified into, independent of which fallback attempt succeeded.
	Routing selector.RoutingDecision
}

// handleChatCompletions implements spec.md §4.9's eighteen-step chat
// completion lifecycle for POST /v1/chat/completions and other /v1/*
// paths not claimed by a more specific route.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	d := s.deps
	ctx := r.Context()

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot read body"})
		return
	}

	req := parseChatRequest(rawBody)
	requestID := req.requestID
	if requestID == "" {
		requestID = newRequestID()
	}
	d.logState(ctx, requestID, stateReceived)
	d.logState(ctx, requestID, statePARSED, zap.String("model", req.model), zap.Bool("stream", req.stream))

	sessionID := r.Header.Get(d.Config.Proxy.SessionHeaderName)
	noCache := req.noCache || r.Header.Get("cache-control") == "no-cache"

	if req.stream {
		s.handleStreamingChat(ctx, w, req, requestID, sessionID, noCache)
		return
	}

	if !noCache {
		if entry, ok := d.RespCache.Get(cacheKey(rawBody)); ok {
			d.Metrics.ObserveCacheHit()
			for k, v := range map[string]string{"Content-Type": entry.ContentType} {
				w.Header().Set(k, v)
			}
			w.WriteHeader(entry.StatusCode)
			w.Write(entry.Body)
			return
		}
		d.Metrics.ObserveCacheMiss()
	}

	result, shared, runErr := d.Dedup.Do(dedupKeyFor(rawBody), func() (any, error) {
		return s.runPipeline(ctx, requestID, req, sessionID)
	})
	if shared {
		d.Metrics.ObserveDedupCoalesced()
	}

	if runErr != nil {
		s.emitError(w, requestID, dedupOriginError(shared, runErr), false, nil)
		return
	}

	outcome := result.(pipelineOutcome)
	if !noCache && outcome.Cacheable && d.RespCache.ShouldCache(outcome.StatusCode, false, len(outcome.Body)) {
		d.RespCache.Set(cacheKey(rawBody), outcome.StatusCode, outcome.ContentType, outcome.Body)
	}

	w.Header().Set("Content-Type", outcome.ContentType)
	w.WriteHeader(outcome.StatusCode)
	w.Write(outcome.Body)
	d.logState(ctx, requestID, stateCompleted)
}

// handleStreamingChat covers spec.md §4.9 step 13: SSE headers and a
// heartbeat ticker are emitted immediately, while the actual upstream
// work (always non-streaming internally) runs in the background.
func (s *Server) handleStreamingChat(ctx context.Context, w http.ResponseWriter, req chatRequest, requestID, sessionID string, noCache bool) {
	d := s.deps
	sse := newSSEWriter(w)
	sse.writeHeaders(0, 0)
	sse.writeComment("heartbeat")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		sse.heartbeat(2*time.Second, stop)
		close(done)
	}()

	result, shared, runErr := d.Dedup.Do(dedupKeyFor(req.raw), func() (any, error) {
		return s.runPipeline(ctx, requestID, req, sessionID)
	})

	close(stop)
	<-done

	if runErr != nil {
		s.emitError(w, requestID, dedupOriginError(shared, runErr), true, sse)
		return
	}

	outcome := result.(pipelineOutcome)
	if outcome.StatusCode >= 400 {
		s.emitError(w, requestID, transformPaymentError(outcome.StatusCode, outcome.Body), true, sse)
		return
	}

	if !noCache && outcome.Cacheable && d.RespCache.ShouldCache(outcome.StatusCode, false, len(outcome.Body)) {
		d.RespCache.Set(cacheKey(req.raw), outcome.StatusCode, outcome.ContentType, outcome.Body)
	}

	transcodeToSSE(sse, outcome.Body, outcome.ModelID)
	d.logState(ctx, requestID, stateCompleted)
}

// runPipeline performs steps 3-18 of the chat completion lifecycle
// (resolution through post-success bookkeeping). It is always invoked
// through the deduplicator, so concurrent identical requests share one
// execution.
func (s *Server) runPipeline(ctx context.Context, requestID string, req chatRequest, sessionID string) (pipelineOutcome, error) {
	d := s.deps
	cfg := d.Config

	resolved := resolveModelOrProfile(d.Registry, req.model)
	profileName := string(model.ProfileAuto)
	explicitModelID := ""
	if resolved.isProfile {
		profileName = string(resolved.profile)
	} else if resolved.modelID != "" {
		explicitModelID = resolved.modelID
	}
	d.logState(ctx, requestID, stateResolved, zap.String("profile", profileName), zap.String("explicit_model", explicitModelID))

	// Step 4: free profile shortcut.
	if profileName == string(model.ProfileFree) {
		target, ok := d.Registry.Lookup(d.Registry.ResolveAlias(cfg.Proxy.FreeModel))
		if !ok {
			return pipelineOutcome{}, rerr.New(rerr.ProxyError, "configured free model is not in the registry")
		}
		return s.attemptChain(ctx, requestID, req, []selector.Selection{{Model: target}}, profileName, model.Simple, true, selector.RoutingDecision{})
	}

	// Explicit concrete model request: skip classification, run that one
	// model with no fallback chain.
	if explicitModelID != "" {
		target, ok := d.Registry.Lookup(explicitModelID)
		if !ok {
			return pipelineOutcome{}, rerr.New(rerr.ProxyError, "unknown model: "+explicitModelID).WithHTTPStatus(http.StatusBadRequest)
		}
		return s.runPricedPipeline(ctx, requestID, req, []selector.Selection{{Model: target}}, "", model.Simple, selector.RoutingDecision{})
	}

	// Step 5: session pin.
	var tier model.Tier
	var decision classifier.Decision
	pinnedModel, hasPinned := "", false
	if sessionID != "" {
		pinnedModel, hasPinned = d.Sessions.Get(sessionID)
	}

	if hasPinned {
		if target, ok := d.Registry.Lookup(d.Registry.ResolveAlias(pinnedModel)); ok {
			return s.runPricedPipeline(ctx, requestID, req, []selector.Selection{{Model: target}}, profileName, model.Simple, selector.RoutingDecision{})
		}
	}

	// Step 6: classification. The classifier scores the last user message
	// and the first system message only (spec.md §4.9 step 6), not the
	// full conversation history.
	decision = classifier.Classify(d.ClassifierConfig, lastUserMessage(req.messages), firstSystemMessage(req.messages))
	inputTokensEstimate := d.Selector.CountTokens("estimate", joinTexts(req.messages))
	if cfg.Proxy.MaxTokensForceComplex > 0 && inputTokensEstimate > cfg.Proxy.MaxTokensForceComplex {
		decision.Tier = model.Complex
		decision.Confidence = 0.95
	}
	if containsStructuredOutputHint(firstSystemMessage(req.messages)) {
		if minTier, ok := model.ParseTier(cfg.Proxy.StructuredOutputMinTier); ok {
			decision.Tier = model.Max(decision.Tier, minTier)
		}
	}
	tier = decision.Tier
	d.Metrics.ObserveTierDecision(tier.String())
	d.logState(ctx, requestID, stateClassified, zap.String("tier", tier.String()), zap.Float64("confidence", decision.Confidence))

	if sessionID != "" {
		// Pin happens after a candidate is actually selected below, once
		// we know the concrete model id (spec.md §4.8).
	}

	// Step 7: tier table pick.
	agenticEligible := profileName == string(model.ProfileAuto) && decision.IsAgentic(d.ClassifierConfig)
	table := d.Profiles.TableFor(model.Profile(profileName), agenticEligible)

	requiredContext := int(math.Ceil(1.1 * float64(inputTokensEstimate+req.maxTokens)))
	candidates := d.Selector.FallbackChainFiltered(table, tier, requiredContext)
	if len(candidates) == 0 {
		candidates = d.Selector.FallbackChain(table, tier)
	}
	candidates = reorderSelections(d.RateLimiter, candidates)
	if max := cfg.Proxy.MaxFallbackAttempts; max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}

	routing := s.buildRoutingDecision(table, tier, decision, profileName, inputTokensEstimate, req.maxTokens)
	d.logState(ctx, requestID, stateCandidates,
		zap.Int("count", len(candidates)), zap.String("method", routing.Method), zap.Float64("savings", routing.Savings))

	if sessionID != "" && len(candidates) > 0 {
		d.Sessions.Pin(sessionID, candidates[0].Model.ID)
	}

	return s.runPricedPipeline(ctx, requestID, req, candidates, profileName, tier, routing)
}

// buildRoutingDecision implements spec.md §4.2's selectModel operation
// for the classified (non-free, non-pinned) path: the concrete model
// picked for tier, priced against estInputTokens/maxOutputTokens and
// compared to the premium profile's top pick for the same tier. Returns
// the zero RoutingDecision if either lookup fails rather than erroring
// the whole request over a bookkeeping value.
func (s *Server) buildRoutingDecision(table model.TierTable, tier model.Tier, decision classifier.Decision, profileName string, estInputTokens, maxOutputTokens int) selector.RoutingDecision {
	d := s.deps
	if maxOutputTokens == 0 {
		maxOutputTokens = 512
	}
	premiumRow, ok := d.Profiles.Premium[tier]
	if !ok {
		return selector.RoutingDecision{}
	}
	premiumTop, ok := d.Registry.Lookup(d.Registry.ResolveAlias(premiumRow.Primary))
	if !ok {
		return selector.RoutingDecision{}
	}
	routing, ok := d.Selector.SelectModelDecision(
		table, tier, decision.Confidence, selector.MethodRules, decision.Reasoning(),
		premiumTop, estInputTokens, maxOutputTokens, model.Profile(profileName),
	)
	if !ok {
		return selector.RoutingDecision{}
	}
	return routing
}

// runPricedPipeline performs the balance check (step 10) and then the
// fallback loop (step 14) over candidates.
func (s *Server) runPricedPipeline(ctx context.Context, requestID string, req chatRequest, candidates []selector.Selection, profileName string, tier model.Tier, routing selector.RoutingDecision) (pipelineOutcome, error) {
	d := s.deps
	if len(candidates) == 0 {
		return pipelineOutcome{}, rerr.New(rerr.AllProvidersDown, "no candidate model available").WithHTTPStatus(http.StatusServiceUnavailable)
	}

	skipBalanceCheck := profileName == string(model.ProfileFree) || candidates[0].Model.PriceInput == 0
	if !skipBalanceCheck {
		primary := candidates[0].Model
		inTok := d.Selector.CountTokens(primary.ID, joinTexts(req.messages))
		outTok := req.maxTokens
		if outTok == 0 {
			outTok = 512
		}
		estUSD := selector.EstimateCostUSD(primary, inTok, outTok) * 1.2
		estMicro := ceilMicroUSD(estUSD)

		estimatedCost := big.NewInt(int64(estMicro))
		sufficient, err := d.BalanceMonitor.Sufficient(ctx, d.WalletAddress, estimatedCost, 1.5)
		if err == nil && !sufficient {
			bal, _ := d.BalanceMonitor.Balance(ctx, d.WalletAddress)
			balUSD := 0.0
			if bal != nil {
				balUSD, _ = new(big.Float).SetInt(bal).Float64()
				balUSD /= 1_000_000
			}
			d.onLowBalance(d.WalletAddress, estUSD, balUSD)
			free, ok := d.Registry.Lookup(d.Registry.ResolveAlias(d.Config.Proxy.FreeModel))
			if ok {
				candidates = []selector.Selection{{Model: free}}
				skipBalanceCheck = true
			}
		}
	}

	return s.attemptChain(ctx, requestID, req, candidates, profileName, tier, skipBalanceCheck, routing)
}

// attemptChain is spec.md §4.9 step 14, the fallback loop. routing is
// the spec.md §3 routing decision computed for the original candidate
// list (zero-valued for the free/explicit-model/session-pin shortcuts
// that skip classification).
func (s *Server) attemptChain(ctx context.Context, requestID string, req chatRequest, candidates []selector.Selection, profileName string, tier model.Tier, free bool, routing selector.RoutingDecision) (pipelineOutcome, error) {
	d := s.deps
	var lastErr error
	var attemptErrs *multierror.Error

	for i, cand := range candidates {
		d.logState(ctx, requestID, stateAttempting, zap.Int("attempt", i), zap.String("model", cand.Model.ID))

		body, err := normalizeForAttempt(req.raw, cand.Model, d.Config.Proxy.MaxMessagesKept)
		if err != nil {
			lastErr = rerr.New(rerr.ProxyError, "normalize request").WithCause(err)
			attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("%s: %w", cand.Model.ID, lastErr))
			continue
		}
		preCompressSize := len(body)
		body, err = compressIfOverThreshold(body, d.Config.Proxy.CompressionThresholdKiB)
		if err != nil {
			lastErr = rerr.New(rerr.ProxyError, "compress request").WithCause(err)
			attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("%s: %w", cand.Model.ID, lastErr))
			continue
		}
		if len(body) != preCompressSize {
			d.Logger.Debug("compressed outbound request body",
				zap.String("model", cand.Model.ID),
				zap.String("before", humanize.Bytes(uint64(preCompressSize))),
				zap.String("after", humanize.Bytes(uint64(len(body)))))
		}

		inTok := d.Selector.CountTokens(cand.Model.ID, joinTexts(req.messages))
		outTok := req.maxTokens
		if outTok == 0 {
			outTok = 512
		}
		estMicro := uint64(0)
		if !free {
			estMicro = ceilMicroUSD(selector.EstimateCostUSD(cand.Model, inTok, outTok) * 1.2)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.Config.Proxy.AttemptTimeout)
		upstreamReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, upstreamChatURL(d.Config.Proxy.UpstreamBaseURL), nil)
		if err != nil {
			cancel()
			lastErr = rerr.New(rerr.ProxyError, "build upstream request").WithCause(err)
			attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("%s: %w", cand.Model.ID, lastErr))
			continue
		}
		upstreamReq.Header.Set("Content-Type", "application/json")

		resp, err := d.Fetcher.Do(upstreamReq, "/v1/chat/completions", body, estMicro)
		cancel()
		if err != nil {
			lastErr = err
			attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("%s: %w", cand.Model.ID, lastErr))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = rerr.New(rerr.ProxyError, "read upstream response").WithCause(readErr)
			attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("%s: %w", cand.Model.ID, lastErr))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			d.RateLimiter.MarkRateLimited(cand.Model.ID)
			d.Metrics.ObserveRateLimited()
		}

		if resp.StatusCode == http.StatusOK && !isDegradedResponse(respBody) {
			outTokActual := d.Selector.CountTokens(cand.Model.ID, extractAssistantContent(respBody))
			costUSD := selector.EstimateCostUSD(cand.Model, inTok, outTokActual)
			savingsUSD := 0.0
			if premium, ok := d.Profiles.Premium[tier]; ok {
				if top, ok := d.Registry.Lookup(d.Registry.ResolveAlias(premium.Primary)); ok {
					savingsUSD = selector.EstimateSavingsUSD(cand.Model, top, inTok, outTokActual)
				}
			}
			if !free {
				estimatedCostInt := big.NewInt(int64(ceilMicroUSD(costUSD)))
				d.BalanceMonitor.DeductEstimated(d.WalletAddress, estimatedCostInt)
			}
			d.Metrics.ObserveModelSelection(cand.Model.ID, i > 0)
			d.Metrics.ObserveFallbackChainLength(i + 1)
			d.Metrics.AddCostSaved(savingsUSD)

			d.usageLogger().LogUsage(ctx, UsageEntry{
				RequestID: requestID, Model: cand.Model.ID, Profile: profileName, Tier: tier.String(),
				InputTokens: inTok, OutputTokens: outTokActual, CostUSD: costUSD, SavingsUSD: savingsUSD,
				Attempts: i + 1, RoutingMethod: routing.Method, SavingsRatio: routing.Savings,
			})

			return pipelineOutcome{
				StatusCode:   http.StatusOK,
				Body:         respBody,
				ContentType:  "application/json",
				Cacheable:    true,
				ModelID:      cand.Model.ID,
				Profile:      profileName,
				Tier:         tier,
				Attempts:     i + 1,
				InputTokens:  inTok,
				OutputTokens: outTokActual,
				CostUSD:      costUSD,
				SavingsUSD:   savingsUSD,
				Routing:      routing,
			}, nil
		}

		if resp.StatusCode == http.StatusOK {
			d.Metrics.ObserveDegraded()
		}

		isProviderErr := isProviderErrorStatus(resp.StatusCode) || (resp.StatusCode == http.StatusOK && isDegradedResponse(respBody)) || isProviderErrorBody(respBody)
		if !isProviderErr {
			return pipelineOutcome{}, transformPaymentError(resp.StatusCode, respBody)
		}
		lastErr = transformPaymentError(resp.StatusCode, respBody)
		attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("%s: %w", cand.Model.ID, lastErr))
	}

	if lastErr == nil {
		lastErr = rerr.New(rerr.AllProvidersDown, "fallback chain exhausted").WithHTTPStatus(http.StatusServiceUnavailable)
	}
	if e, ok := lastErr.(*rerr.Error); ok {
		e2 := rerr.New(rerr.AllProvidersDown, "all candidate models failed: "+e.Message).
			WithCause(attemptErrs.ErrorOrNil()).
			WithHTTPStatus(http.StatusServiceUnavailable)
		return pipelineOutcome{}, e2
	}
	return pipelineOutcome{}, lastErr
}

func (s *Server) emitError(w http.ResponseWriter, requestID string, err error, streaming bool, sse *sseWriter) {
	d := s.deps
	re := toRerr(err)
	if streaming && sse != nil {
		sse.writeData(map[string]any{"error": map[string]any{"type": re.Code, "message": re.Message}})
		sse.writeDone()
		d.logState(context.Background(), requestID, stateErrEmitted)
		return
	}
	status := re.HTTPStatus
	if status == 0 {
		status = rerr.HTTPStatusFor(re.Code)
	}
	body := map[string]any{"type": re.Code, "message": re.Message}
	for k, v := range re.Extra {
		body[k] = v
	}
	writeJSON(w, status, body)
	d.logState(context.Background(), requestID, stateErrEmitted)
}

func toRerr(err error) *rerr.Error {
	if e, ok := err.(*rerr.Error); ok {
		return e
	}
	return rerr.New(rerr.ProxyError, err.Error())
}

func reorderSelections(tracker interface{ Reorder([]string) []string }, candidates []selector.Selection) []selector.Selection {
	ids := make([]string, len(candidates))
	byID := make(map[string]selector.Selection, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Model.ID
		byID[c.Model.ID] = c
	}
	ordered := tracker.Reorder(ids)
	out := make([]selector.Selection, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, byID[id])
	}
	return out
}

func joinTexts(messages []gjson.Result) string {
	return strings.Join(allMessageTexts(messages), "\n")
}

func ceilMicroUSD(usd float64) uint64 {
	micro := uint64(math.Ceil(usd * 1_000_000))
	const floor = 100
	if micro < floor {
		return floor
	}
	return micro
}

// dedupOriginError maps a failed dedup-coalesced call to the generic 503
// body spec.md §4.6 requires ("Original request failed, please retry"):
// the real failure reason is never echoed to a call that shared its
// result with other waiters.
func dedupOriginError(shared bool, runErr error) error {
	if shared {
		return rerr.New(rerr.DedupOriginFailed, "Original request failed, please retry").
			WithHTTPStatus(http.StatusServiceUnavailable)
	}
	return runErr
}

// cacheKey is spec.md §4.7's response-cache key: first 32 hex chars of
// SHA-256 over a form that strips non-semantic fields and per-message
// timestamp prefixes before sorting keys — distinct from the dedup key,
// which only strips timestamps.
func cacheKey(body []byte) string {
	canon, ok := jsonvalue.CacheCanonicalBytes(body)
	if !ok {
		canon = body
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])[:32]
}

func dedupKeyFor(body []byte) string {
	return "chat:" + dedup.Key(body)
}

func upstreamChatURL(base string) string {
	return trimRightSlash(base) + "/v1/chat/completions"
}

func trimRightSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
