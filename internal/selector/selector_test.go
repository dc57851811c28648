package selector

import (
	"testing"

	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector() *Selector {
	reg := model.NewRegistry(
		[]model.Descriptor{
			{ID: "openai/gpt-5-nano", PriceInput: 0.05, PriceOutput: 0.4, ContextWindow: 1000},
			{ID: "anthropic/claude-sonnet", PriceInput: 3, PriceOutput: 15, ContextWindow: 200000},
		},
		map[string]string{},
		"blockrun/",
	)
	return NewSelector(reg)
}

func testTable() model.TierTable {
	return model.TierTable{
		model.Simple: {Primary: "openai/gpt-5-nano", Fallback: []string{"anthropic/claude-sonnet"}},
	}
}

// TestSelectModelPrimaryMatch is property P5 (spec.md §8): selectModel's
// chosen model is always the tier table's declared primary when it
// resolves.
func TestSelectModelPrimaryMatch(t *testing.T) {
	s := newTestSelector()
	sel, ok := s.SelectModel(testTable(), model.Simple)
	require.True(t, ok)
	assert.Equal(t, "openai/gpt-5-nano", sel.Model.ID)
	assert.False(t, sel.IsFallback)
}

func TestSelectModelMissingTierRow(t *testing.T) {
	s := newTestSelector()
	_, ok := s.SelectModel(model.TierTable{}, model.Simple)
	assert.False(t, ok)
}

// TestFallbackChainBound is property P4: the returned chain never exceeds
// the configured [primary, ...fallback] length.
func TestFallbackChainBound(t *testing.T) {
	s := newTestSelector()
	chain := s.FallbackChain(testTable(), model.Simple)
	assert.LessOrEqual(t, len(chain), 2)
	assert.False(t, chain[0].IsFallback)
	assert.True(t, chain[1].IsFallback)
}

func TestFallbackChainFilteredDropsSmallContext(t *testing.T) {
	s := newTestSelector()
	// requiredContextTokens larger than gpt-5-nano's 1000-token window
	// drops it from the chain, leaving only claude-sonnet.
	chain := s.FallbackChainFiltered(testTable(), model.Simple, 5000)
	require.Len(t, chain, 1)
	assert.Equal(t, "anthropic/claude-sonnet", chain[0].Model.ID)
}

func TestEstimateSavingsNeverNegative(t *testing.T) {
	cheap := model.Descriptor{PriceInput: 10, PriceOutput: 10}
	expensive := model.Descriptor{PriceInput: 1, PriceOutput: 1}
	// Even when "premiumTop" is cheaper than chosen, savings floors at 0.
	savings := EstimateSavingsUSD(cheap, expensive, 1000, 1000)
	assert.Equal(t, 0.0, savings)
}

// TestComputeSavingsBounded is property P6 (spec.md §8): savings is
// always in [0,1], and exactly 0 under the premium profile regardless of
// cost.
func TestComputeSavingsBounded(t *testing.T) {
	assert.Equal(t, 0.0, computeSavings(model.ProfilePremium, 1, 100))
	assert.Equal(t, 0.0, computeSavings(model.ProfileAuto, 100, 0))
	assert.Equal(t, 0.0, computeSavings(model.ProfileAuto, 150, 100))
	assert.InDelta(t, 0.5, computeSavings(model.ProfileAuto, 50, 100), 1e-9)
}

func TestSelectModelDecisionComputesSavingsRatio(t *testing.T) {
	s := newTestSelector()
	premiumTop := model.Descriptor{ID: "anthropic/claude-sonnet", PriceInput: 3, PriceOutput: 15}
	decision, ok := s.SelectModelDecision(testTable(), model.Simple, 0.9, MethodRules, "score=0.1", premiumTop, 1000, 500, model.ProfileAuto)
	require.True(t, ok)
	assert.Equal(t, "openai/gpt-5-nano", decision.ModelID)
	assert.Equal(t, MethodRules, decision.Method)
	assert.Greater(t, decision.BaselineUSD, decision.CostUSD)
	assert.Greater(t, decision.Savings, 0.0)
	assert.LessOrEqual(t, decision.Savings, 1.0)
}

func TestSelectModelDecisionMissingTierRow(t *testing.T) {
	s := newTestSelector()
	_, ok := s.SelectModelDecision(model.TierTable{}, model.Simple, 0.9, MethodRules, "", model.Descriptor{}, 1000, 500, model.ProfileAuto)
	assert.False(t, ok)
}

func TestEstimateCostUSD(t *testing.T) {
	d := model.Descriptor{PriceInput: 1, PriceOutput: 2}
	cost := EstimateCostUSD(d, 1_000_000, 500_000)
	assert.InDelta(t, 1+1, cost, 1e-9)
}

func TestCountTokensNonEmpty(t *testing.T) {
	s := newTestSelector()
	n := s.CountTokens("openai/gpt-5-nano", "hello world, this is a test sentence.")
	assert.Greater(t, n, 0)
}
