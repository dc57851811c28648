package classifier

import (
	"testing"

	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestClassifySimpleGreeting(t *testing.T) {
	d := Classify(DefaultConfig(), "hi there, what is the capital of France?", "")
	assert.Equal(t, model.Simple, d.Tier)
}

func TestClassifyReasoningMarkerForcesOverride(t *testing.T) {
	cfg := DefaultConfig()
	d := Classify(cfg, "Please prove step by step why this theorem holds, then derive the corollary.", "")
	require.True(t, d.ForcedByMarker)
	assert.Equal(t, model.Reasoning, d.Tier)
	assert.GreaterOrEqual(t, d.Confidence, 0.9)
}

func TestClassifyCodeHeavyIsAtLeastMedium(t *testing.T) {
	d := Classify(DefaultConfig(),
		"Refactor this function to fix the stack trace in the async goroutine, then update the SQL schema and API.",
		"")
	assert.GreaterOrEqual(t, d.Tier, model.Medium)
}

func TestClassifyAgenticSubScore(t *testing.T) {
	cfg := DefaultConfig()
	d := Classify(cfg, "Use the tool to browse the web, then call the API and execute the command.", "")
	assert.True(t, d.IsAgentic(cfg))
}

func TestClassifyReasoningMarkersIgnoreSystemPrompt(t *testing.T) {
	cfg := DefaultConfig()
	d := Classify(cfg, "what is 2+2", "Prove step by step, derive every theorem, show your reasoning.")
	assert.False(t, d.ForcedByMarker, "reasoningMarkers must only look at the user prompt, not the system prompt")
}

func TestDecisionReasoningIncludesScoreAndSignals(t *testing.T) {
	d := Classify(DefaultConfig(),
		"Refactor this function to fix the stack trace in the async goroutine, then update the SQL schema and API.",
		"")
	reasoning := d.Reasoning()
	assert.Contains(t, reasoning, "score=")
	assert.Contains(t, reasoning, "signals=")
	assert.Contains(t, reasoning, DimCodePresence)
}

func TestDecisionReasoningNotesForcedOverride(t *testing.T) {
	d := Classify(DefaultConfig(), "Please prove step by step why this theorem holds, then derive the corollary.", "")
	assert.Contains(t, d.Reasoning(), "forced=reasoningMarkers")
}

// TestClassifyTotal is property P7 (spec.md §8): Classify never panics and
// always returns a valid tier for arbitrary input, including empty text.
func TestClassifyTotal(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotPanics(t, func() {
		d := Classify(cfg, "", "")
		_, ok := model.ParseTier(d.Tier.String())
		assert.True(t, ok)
	})

	rapid.Check(t, func(rt *rapid.T) {
		prompt := rapid.String().Draw(rt, "prompt")
		systemPrompt := rapid.String().Draw(rt, "systemPrompt")
		d := Classify(cfg, prompt, systemPrompt)
		assert.GreaterOrEqual(rt, d.Confidence, 0.0)
		assert.LessOrEqual(rt, d.Confidence, 1.0)
		_, ok := model.ParseTier(d.Tier.String())
		assert.True(rt, ok)
	})
}

// TestClassifyDeterministic is property P7's second half: identical input
// always produces an identical Decision.
func TestClassifyDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	prompt := "Design a distributed, fault-tolerant caching layer with a strict latency budget."
	a := Classify(cfg, prompt, "")
	b := Classify(cfg, prompt, "")
	assert.Equal(t, a, b)
}

func TestConfidenceBelowThresholdFallsBackToAmbiguousDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 1.1 // force every input "ambiguous"
	cfg.AmbiguousDefaultTier = model.Complex
	d := Classify(cfg, "what is 2+2", "")
	assert.Equal(t, model.Complex, d.Tier)
}
