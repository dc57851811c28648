// Package dedup implements C6, request deduplication (spec.md §4.6):
// concurrent identical requests are coalesced via
// golang.org/x/sync/singleflight, and a short-TTL cache of completed
// responses lets a request that arrives just after another finishes
// replay its result instead of hitting the upstream again.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/edgeandnode/ClawRouter/internal/jsonvalue"
	"golang.org/x/sync/singleflight"
)

// Deduplicator coalesces in-flight work and caches completed results for
// a short window.
type Deduplicator struct {
	group        singleflight.Group
	completedTTL time.Duration

	mu        sync.Mutex
	completed map[string]completedEntry
	now       func() time.Time
}

type completedEntry struct {
	result    any
	err       error
	storedAt  time.Time
}

// NewDeduplicator builds a Deduplicator whose completed-response cache
// entries live for completedTTL (spec.md default: 30s).
func NewDeduplicator(completedTTL time.Duration) *Deduplicator {
	return &Deduplicator{
		completedTTL: completedTTL,
		completed:    make(map[string]completedEntry),
		now:          time.Now,
	}
}

// Key canonicalizes body (raw JSON request bytes) into the first 16 hex
// chars of its SHA-256 digest, falling back to hashing the raw bytes when
// body isn't valid JSON (spec.md §4.6: "first 16 hex chars of SHA-256 over
// a canonicalized form of the request body").
func Key(body []byte) string {
	canon, ok := jsonvalue.DedupCanonicalBytes(body)
	if !ok {
		canon = body
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])[:16]
}

// Do executes fn for key, coalescing concurrent callers sharing the same
// key into a single fn invocation, and replaying a still-fresh completed
// result without invoking fn at all. shared reports whether this caller
// received the fn result or someone else's.
func (d *Deduplicator) Do(key string, fn func() (any, error)) (result any, shared bool, err error) {
	if entry, ok := d.getCompleted(key); ok {
		return entry.result, true, entry.err
	}

	v, err, shared := d.group.Do(key, func() (any, error) {
		res, err := fn()
		d.storeCompleted(key, res, err)
		return res, err
	})
	return v, shared, err
}

func (d *Deduplicator) getCompleted(key string) (completedEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.completed[key]
	if !ok {
		return completedEntry{}, false
	}
	if d.now().Sub(entry.storedAt) > d.completedTTL {
		delete(d.completed, key)
		return completedEntry{}, false
	}
	return entry, true
}

func (d *Deduplicator) storeCompleted(key string, result any, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed[key] = completedEntry{result: result, err: err, storedAt: d.now()}
}

// Forget removes key's in-flight registration immediately, used on
// client disconnect so the coalesced waiters aren't left hanging on a
// cancelled caller (spec.md §4.9 CANCELLED terminal state).
func (d *Deduplicator) Forget(key string) {
	d.group.Forget(key)
}
