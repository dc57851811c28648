package jsonvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	a, err := Parse([]byte(`{"b":1,"a":2,"c":{"z":1,"y":2}}`))
	require.NoError(t, err)
	got := string(Serialize(Canonicalize(a)))
	assert.Equal(t, `{"a":2,"b":1,"c":{"y":2,"z":1}}`, got)
}

func TestCanonicalBytesFallsBackOnInvalidJSON(t *testing.T) {
	_, ok := CanonicalBytes([]byte("not json"))
	assert.False(t, ok)
}

func TestCanonicalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.SampledFrom([]string{
			`{}`, `{"a":1,"b":2}`, `[1,2,3]`, `{"z":[1,{"b":1,"a":2}],"a":null}`,
			`{"content":"hi","nested":{"x":1,"y":[true,false,null]}}`,
		}).Draw(rt, "raw")

		v, err := Parse([]byte(raw))
		require.NoError(rt, err)

		once := Canonicalize(v)
		twice := Canonicalize(once)

		assert.Equal(rt, Serialize(once), Serialize(twice))
	})
}

func TestStripContentTimestampsOnlyTouchesContentFields(t *testing.T) {
	v, err := Parse([]byte(`{"content":"[Mon 2024-01-15 14:30 UTC] hello","other":"[Mon 2024-01-15 14:30 UTC] unchanged"}`))
	require.NoError(t, err)

	got := StripContentTimestamps(v)
	content, ok := got.Get("content")
	require.True(t, ok)
	assert.Equal(t, "hello", content.String)

	other, ok := got.Get("other")
	require.True(t, ok)
	assert.Equal(t, "[Mon 2024-01-15 14:30 UTC] unchanged", other.String)
}

func TestDedupCanonicalBytesStripsTimestampButKeepsFields(t *testing.T) {
	out, ok := DedupCanonicalBytes([]byte(`{"stream":true,"messages":[{"role":"user","content":"[Tue 2024-02-01 09:00 PST] hi"}]}`))
	require.True(t, ok)
	assert.Contains(t, string(out), `"content":"hi"`)
	assert.Contains(t, string(out), `"stream":true`)
}

func TestCacheCanonicalBytesDropsNonSemanticFields(t *testing.T) {
	out, ok := CacheCanonicalBytes([]byte(`{"stream":true,"user":"u1","request_id":"r1","x-request-id":"x1","model":"auto"}`))
	require.True(t, ok)
	assert.Equal(t, `{"model":"auto"}`, string(out))
}

func TestGetAndDelete(t *testing.T) {
	v, err := Parse([]byte(`{"stream":true,"model":"x","user":"u1"}`))
	require.NoError(t, err)

	streamVal, ok := v.Get("stream")
	require.True(t, ok)
	assert.True(t, streamVal.AsBool())

	trimmed := v.Delete("stream", "user")
	_, ok = trimmed.Get("stream")
	assert.False(t, ok)
	_, ok = trimmed.Get("model")
	assert.True(t, ok)
}
