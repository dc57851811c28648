package proxycore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestCompressIfOverThresholdNoopUnderLimit(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"hi"}]}`)
	out, err := compressIfOverThreshold(body, 180)
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestCompressIfOverThresholdZeroDisables(t *testing.T) {
	big := strings.Repeat("x", 200*1024)
	body := []byte(`{"messages":[{"role":"user","content":"` + big + `"}]}`)
	out, err := compressIfOverThreshold(body, 0)
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestDedupMessagesByHashDropsExactRepeats(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"same"},
		{"role":"assistant","content":"ok"},
		{"role":"user","content":"same"}
	]}`)
	out, err := dedupMessagesByHash(body)
	require.NoError(t, err)
	assert.Len(t, gjson.GetBytes(out, "messages").Array(), 2)
}

func TestNormalizeWhitespaceCollapsesRuns(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"hello    there\n\nfriend"}]}`)
	out, err := normalizeWhitespace(body)
	require.NoError(t, err)
	assert.Equal(t, "hello there friend", gjson.GetBytes(out, "messages.0.content").String())
}

func TestCompactJSONToolContentCompactsJSONString(t *testing.T) {
	body := []byte(`{"messages":[{"role":"tool","content":"{\n  \"a\": 1,\n  \"b\": 2\n}"}]}`)
	out, err := compactJSONToolContent(body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, gjson.GetBytes(out, "messages.0.content").String())
}

func TestCompactJSONToolContentLeavesNonJSONAlone(t *testing.T) {
	body := []byte(`{"messages":[{"role":"tool","content":"not json at all"}]}`)
	out, err := compactJSONToolContent(body)
	require.NoError(t, err)
	assert.Equal(t, "not json at all", gjson.GetBytes(out, "messages.0.content").String())
}

func TestCompactJSONToolContentSkipsNonToolRoles(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"{\"a\":1}"}]}`)
	out, err := compactJSONToolContent(body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, gjson.GetBytes(out, "messages.0.content").String())
}
