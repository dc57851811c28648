package proxycore

import (
	"errors"
	"testing"

	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/edgeandnode/ClawRouter/internal/rerr"
	"github.com/edgeandnode/ClawRouter/internal/selector"
	"github.com/stretchr/testify/assert"
)

func TestCeilMicroUSDRoundsUpAndFloors(t *testing.T) {
	assert.Equal(t, uint64(100), ceilMicroUSD(0.00001))
	assert.Equal(t, uint64(1_000_000), ceilMicroUSD(1.0))
	assert.Equal(t, uint64(1_500_001), ceilMicroUSD(1.5000001))
}

func TestDedupKeyForIsNamespacedAndStable(t *testing.T) {
	body := []byte(`{"model":"auto","messages":[{"role":"user","content":"hi"}]}`)
	k1 := dedupKeyFor(body)
	k2 := dedupKeyFor(body)
	assert.Equal(t, k1, k2)
	assert.Contains(t, k1, "chat:")
}

// TestCacheKeyAndDedupKeyAreDistinct is spec.md §4.6 vs §4.7: the dedup
// key is 16 hex chars over a canonicalization that only strips message
// timestamps, while the cache key is 32 hex chars over a canonicalization
// that also drops stream/user/request_id/x-request-id.
func TestCacheKeyAndDedupKeyAreDistinct(t *testing.T) {
	body := []byte(`{"model":"auto","stream":true,"user":"u1","messages":[{"role":"user","content":"hi"}]}`)
	ck := cacheKey(body)
	dk := dedupKeyFor(body)
	assert.Len(t, ck, 32)
	assert.Len(t, dk, len("chat:")+16)
	assert.NotEqual(t, ck, dk[len("chat:"):])
}

func TestCacheKeyStableAndIgnoresNonSemanticFields(t *testing.T) {
	a := []byte(`{"model":"auto","stream":true,"user":"u1","messages":[{"role":"user","content":"hi"}]}`)
	b := []byte(`{"model":"auto","stream":false,"user":"u2","messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, cacheKey(a), cacheKey(b))
}

func TestUpstreamChatURL(t *testing.T) {
	assert.Equal(t, "https://aggregator.example/v1/chat/completions", upstreamChatURL("https://aggregator.example/"))
	assert.Equal(t, "https://aggregator.example/v1/chat/completions", upstreamChatURL("https://aggregator.example"))
}

func TestTrimRightSlash(t *testing.T) {
	assert.Equal(t, "https://x", trimRightSlash("https://x///"))
	assert.Equal(t, "https://x", trimRightSlash("https://x"))
}

func TestJoinTextsConcatenatesMessageContent(t *testing.T) {
	req := parseChatRequest([]byte(`{"messages":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`))
	assert.Equal(t, "a\nb", joinTexts(req.messages))
}

func TestToRerrPassesThroughKnownError(t *testing.T) {
	e := rerr.New(rerr.InsufficientFunds, "no funds")
	assert.Same(t, e, toRerr(e))
}

func TestToRerrWrapsPlainError(t *testing.T) {
	e := toRerr(errors.New("boom"))
	assert.Equal(t, rerr.ProxyError, e.Code)
	assert.Equal(t, "boom", e.Message)
}

type fakeTracker struct {
	cooling map[string]bool
}

func (f fakeTracker) Reorder(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	var deprioritized []string
	for _, c := range candidates {
		if f.cooling[c] {
			deprioritized = append(deprioritized, c)
		} else {
			out = append(out, c)
		}
	}
	return append(out, deprioritized...)
}

func TestReorderSelectionsMovesCoolingDownModelsToTail(t *testing.T) {
	candidates := []selector.Selection{
		{Model: model.Descriptor{ID: "a"}},
		{Model: model.Descriptor{ID: "b"}},
		{Model: model.Descriptor{ID: "c"}},
	}
	tracker := fakeTracker{cooling: map[string]bool{"b": true}}

	reordered := reorderSelections(tracker, candidates)

	wantOrder := []string{"a", "c", "b"}
	for i, sel := range reordered {
		assert.Equal(t, wantOrder[i], sel.Model.ID)
	}
}
