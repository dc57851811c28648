// Package selector implements C5 model selection (spec.md §4.2):
// resolving a routing profile + tier into a concrete model, building a
// context-window-aware fallback chain, and estimating cost/savings versus
// always routing to the premium profile's top model. Fallback-chain
// traversal is grounded on BaSui01/agentflow's llm/config/policy.go
// PolicyManager.GetFallbackChain — an ordered, filtered walk over a
// priority list.
package selector

import (
	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/pkoukk/tiktoken-go"
)

// Selection is selectModel's result.
type Selection struct {
	Model      model.Descriptor
	Tier       model.Tier
	IsFallback bool
}

// Selector picks models out of a Registry using a Profile's TierTable.
type Selector struct {
	registry *model.Registry
	encCache map[string]*tiktoken.Tiktoken
}

// NewSelector builds a Selector over registry.
func NewSelector(registry *model.Registry) *Selector {
	return &Selector{registry: registry, encCache: make(map[string]*tiktoken.Tiktoken)}
}

// SelectModel resolves tier's primary model in table. ok is false if the
// table has no row for tier or the primary id isn't in the registry.
func (s *Selector) SelectModel(table model.TierTable, tier model.Tier) (Selection, bool) {
	row, ok := table[tier]
	if !ok {
		return Selection{}, false
	}
	d, ok := s.registry.Lookup(s.registry.ResolveAlias(row.Primary))
	if !ok {
		return Selection{}, false
	}
	return Selection{Model: d, Tier: tier, IsFallback: false}, true
}

// FallbackChain returns table's full ordered [primary, ...fallback] chain
// for tier, resolved to registry descriptors. Unknown model ids are
// skipped rather than aborting the whole chain — one bad config entry
// shouldn't take down every fallback behind it.
func (s *Selector) FallbackChain(table model.TierTable, tier model.Tier) []Selection {
	ids := table.Chain(tier)
	out := make([]Selection, 0, len(ids))
	for i, id := range ids {
		d, ok := s.registry.Lookup(s.registry.ResolveAlias(id))
		if !ok {
			continue
		}
		out = append(out, Selection{Model: d, Tier: tier, IsFallback: i > 0})
	}
	return out
}

// FallbackChainFiltered is FallbackChain with any model whose context
// window is smaller than requiredContextTokens removed — a fallback that
// can't even hold the prompt is worse than no fallback (spec.md §4.2).
func (s *Selector) FallbackChainFiltered(table model.TierTable, tier model.Tier, requiredContextTokens int) []Selection {
	full := s.FallbackChain(table, tier)
	out := make([]Selection, 0, len(full))
	for _, sel := range full {
		if sel.Model.ContextWindow >= requiredContextTokens {
			out = append(out, sel)
		}
	}
	return out
}

// encodingForModel maps a model id fragment to its tiktoken encoding
// name, mirroring BaSui01/agentflow's llm/tokenizer/tiktoken.go
// modelEncodings table. Anthropic models have no public tiktoken
// vocabulary; cl100k_base is a documented, close-enough proxy for cost
// estimation (not for exact prompt truncation).
func encodingForModel(modelID string) string {
	switch {
	case containsAny(modelID, "gpt-5", "o4", "gpt-4o"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

// CountTokens returns a precise token count for text under modelID's
// encoding (spec.md §4.2).
func (s *Selector) CountTokens(modelID, text string) int {
	encName := encodingForModel(modelID)
	enc, ok := s.encCache[encName]
	if !ok {
		var err error
		enc, err = tiktoken.GetEncoding(encName)
		if err != nil {
			// No bundled encoding available; approximate via byte count
			// rather than fail the request over a cost estimate.
			return len(text) / 4
		}
		s.encCache[encName] = enc
	}
	return len(enc.Encode(text, nil, nil))
}

// EstimateCostUSD estimates the USD cost of a completion using modelID's
// per-1M-token input/output prices.
func EstimateCostUSD(d model.Descriptor, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*d.PriceInput + float64(outputTokens)/1_000_000*d.PriceOutput
}

// EstimateSavingsUSD returns how much cheaper chosen is than premiumTop
// for the same token counts; never negative (spec.md §8 property P6:
// savings are always >= 0 because the classifier never routes a request
// to a model pricier than premium's top pick for its tier).
func EstimateSavingsUSD(chosen, premiumTop model.Descriptor, inputTokens, outputTokens int) float64 {
	savings := EstimateCostUSD(premiumTop, inputTokens, outputTokens) - EstimateCostUSD(chosen, inputTokens, outputTokens)
	if savings < 0 {
		return 0
	}
	return savings
}

// Classification method tags for RoutingDecision.Method (spec.md §3:
// "method ∈ {rules, llm}"). Only the rule-based classifier is
// implemented, so MethodLLM is currently unused by any caller.
const (
	MethodRules = "rules"
	MethodLLM   = "llm"
)

// RoutingDecision is spec.md §3's routing-decision value: the selected
// model plus everything a caller needs to report how and why it was
// picked, in USD and as a savings ratio.
type RoutingDecision struct {
	ModelID     string
	Tier        model.Tier
	Confidence  float64
	Method      string
	Reasoning   string
	CostUSD     float64
	BaselineUSD float64
	Savings     float64
}

// computeSavings implements spec.md §4.2 selectModel step 4: savings is
// always 0 under the premium profile (there's nothing cheaper to compare
// against) and 0, not NaN or negative, whenever baseline is non-positive
// or cost meets or exceeds it. Otherwise it's the fraction of baseline
// cost avoided, in [0,1].
func computeSavings(profile model.Profile, costUSD, baselineUSD float64) float64 {
	if profile == model.ProfilePremium || baselineUSD <= 0 {
		return 0
	}
	savings := (baselineUSD - costUSD) / baselineUSD
	if savings < 0 {
		return 0
	}
	return savings
}

// SelectModelDecision implements spec.md §4.2's selectModel operation:
// resolve tier's primary model in table, price it against
// estInputTokens/maxOutputTokens, and compute its savings ratio against
// premiumTop (the premium profile's top pick for the same tier). ok is
// false under the same conditions as SelectModel.
func (s *Selector) SelectModelDecision(
	table model.TierTable, tier model.Tier,
	confidence float64, method, reasoning string,
	premiumTop model.Descriptor,
	estInputTokens, maxOutputTokens int,
	profile model.Profile,
) (RoutingDecision, bool) {
	sel, ok := s.SelectModel(table, tier)
	if !ok {
		return RoutingDecision{}, false
	}
	costUSD := EstimateCostUSD(sel.Model, estInputTokens, maxOutputTokens)
	baselineUSD := EstimateCostUSD(premiumTop, estInputTokens, maxOutputTokens)
	return RoutingDecision{
		ModelID:     sel.Model.ID,
		Tier:        tier,
		Confidence:  confidence,
		Method:      method,
		Reasoning:   reasoning,
		CostUSD:     costUSD,
		BaselineUSD: baselineUSD,
		Savings:     computeSavings(profile, costUSD, baselineUSD),
	}, true
}
