package proxycore

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeReasoningTagsStripsThinkAndReasoning(t *testing.T) {
	content := "<think>pondering</think>the answer is 4<reasoning>because math</reasoning>"
	assert.Equal(t, "the answer is 4", sanitizeReasoningTags(content))
}

func TestSanitizeReasoningTagsNoopWithoutTags(t *testing.T) {
	assert.Equal(t, "plain answer", sanitizeReasoningTags("plain answer"))
}

func TestSSEWriterHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := newSSEWriter(rec)
	sse.writeHeaders(12, 128)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "12", rec.Header().Get("X-Context-Used-Kb"))
	assert.Equal(t, "128", rec.Header().Get("X-Context-Limit-Kb"))
	assert.Equal(t, 200, rec.Code)
}

func TestSSEWriterWriteSuppressedAfterBreak(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := newSSEWriter(rec)
	sse.broken = true
	sse.writeComment("heartbeat")
	assert.Empty(t, rec.Body.String())
}

func TestSSEWriterWriteDone(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := newSSEWriter(rec)
	sse.writeDone()
	assert.Equal(t, "data: [DONE]\n\n", rec.Body.String())
}

func TestTranscodeToSSEEmitsRoleContentAndDone(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := newSSEWriter(rec)
	body := []byte(`{"choices":[{"message":{"role":"assistant","content":"<think>hmm</think>hello"},"finish_reason":"stop"}]}`)

	content := transcodeToSSE(sse, body, "openai/gpt-5-nano")

	require.Equal(t, "hello", content)
	out := rec.Body.String()
	assert.Contains(t, out, `"role":"assistant"`)
	assert.Contains(t, out, `"content":"hello"`)
	assert.Contains(t, out, `"finish_reason":"stop"`)
	assert.True(t, strings.HasSuffix(out, "data: [DONE]\n\n"))
}

func TestTranscodeToSSEOmitsEmptyContentChunk(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := newSSEWriter(rec)
	body := []byte(`{"choices":[{"message":{"role":"assistant","content":""},"finish_reason":"stop"}]}`)

	transcodeToSSE(sse, body, "openai/gpt-5-nano")
	assert.NotContains(t, rec.Body.String(), `"content":""`)
}

func TestTranscodeToSSEIncludesToolCalls(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := newSSEWriter(rec)
	body := []byte(`{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"1","type":"function","function":{"name":"lookup"}}]},"finish_reason":"tool_calls"}]}`)

	transcodeToSSE(sse, body, "openai/gpt-5-nano")
	assert.Contains(t, rec.Body.String(), `"tool_calls"`)
}
