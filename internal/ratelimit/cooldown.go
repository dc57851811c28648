// Package ratelimit tracks per-model cooldowns triggered by upstream
// 429s (spec.md §4.9 step 14e), de-prioritizing a rate-limited model
// without removing it outright. Grounded on
// BaSui01/agentflow/llm/circuitbreaker/breaker.go's state-timeout
// pattern, simplified from a three-state breaker down to a single
// cooldown-until timestamp per model — the fallback loop itself supplies
// the retry structure a circuit breaker would otherwise provide.
package ratelimit

import (
	"sync"
	"time"
)

// Tracker holds a per-model "rate-limited until" timestamp.
type Tracker struct {
	mu       sync.Mutex
	cooldown map[string]time.Time
	base     time.Duration
	max      time.Duration
	strikes  map[string]int
	now      func() time.Time
}

// NewTracker builds a Tracker. base is the first cooldown duration after
// a 429; repeated 429s double it up to max (simple exponential backoff).
func NewTracker(base, max time.Duration) *Tracker {
	return &Tracker{
		cooldown: make(map[string]time.Time),
		strikes:  make(map[string]int),
		base:     base,
		max:      max,
		now:      time.Now,
	}
}

// MarkRateLimited records a 429 against modelID, starting or extending
// its cooldown window (spec.md default: 60s for the first strike).
func (t *Tracker) MarkRateLimited(modelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.strikes[modelID]++
	d := t.base
	for i := 1; i < t.strikes[modelID]; i++ {
		d *= 2
		if d >= t.max {
			d = t.max
			break
		}
	}
	t.cooldown[modelID] = t.now().Add(d)
}

// IsCoolingDown reports whether modelID is still within its cooldown
// window.
func (t *Tracker) IsCoolingDown(modelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.cooldown[modelID]
	if !ok {
		return false
	}
	if t.now().After(until) {
		delete(t.cooldown, modelID)
		t.strikes[modelID] = 0
		return false
	}
	return true
}

// Reorder moves every model currently cooling down to the tail of
// candidates, preserving relative order within each group (spec.md §4.9
// step 14: "re-ordering rate-limited models to the tail").
func (t *Tracker) Reorder(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	var deprioritized []string
	for _, c := range candidates {
		if t.IsCoolingDown(c) {
			deprioritized = append(deprioritized, c)
		} else {
			out = append(out, c)
		}
	}
	return append(out, deprioritized...)
}
