package proxycore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDegradedResponseOverloadPlaceholder(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"content":"AI service is temporarily overloaded, try again later"}}]}`)
	assert.True(t, isDegradedResponse(body))
}

func TestIsDegradedResponseCleanReply(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"content":"Paris is the capital of France."}}]}`)
	assert.False(t, isDegradedResponse(body))
}

func TestIsDegradedResponseNestedProviderError(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"content":"hmm"}}],"error":{"message":"upstream quota exceeded for this model"}}`)
	assert.True(t, isDegradedResponse(body))
}

func TestIsRepetitionLoopKnownPhrases(t *testing.T) {
	content := "the boxed is the response\nsome other text\nthe response is the text\n"
	assert.True(t, isRepetitionLoop(content))
}

func TestIsRepetitionLoopRepeatedLines(t *testing.T) {
	line := "I cannot help with that request right now."
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = line
	}
	content := strings.Join(lines, "\n")
	assert.True(t, isRepetitionLoop(content))
}

func TestIsRepetitionLoopDiverseShortContent(t *testing.T) {
	assert.False(t, isRepetitionLoop("Sure, here is a short answer to your question."))
}

func TestIsRepetitionLoopDiverseLongContent(t *testing.T) {
	lines := []string{
		"step one: gather requirements",
		"step two: design the schema",
		"step three: implement the handler",
		"step four: write tests",
		"step five: review the diff",
		"step six: deploy to staging",
		"step seven: monitor the rollout",
		"step eight: write the changelog",
	}
	assert.False(t, isRepetitionLoop(strings.Join(lines, "\n")))
}

func TestIsProviderErrorStatus(t *testing.T) {
	for _, status := range []int{400, 401, 402, 403, 413, 429, 500, 502, 503, 504} {
		assert.True(t, isProviderErrorStatus(status), "status %d should be a provider error", status)
	}
	for _, status := range []int{200, 201, 301, 404, 418} {
		assert.False(t, isProviderErrorStatus(status), "status %d should not be a provider error", status)
	}
}

func TestIsProviderErrorBody(t *testing.T) {
	assert.True(t, isProviderErrorBody([]byte(`{"error":"model capacity exceeded, please retry"}`)))
	assert.False(t, isProviderErrorBody([]byte(`{"error":"invalid request: missing field 'model'"}`)))
}

func TestExtractAssistantContent(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"role":"assistant","content":"hello world"}}]}`)
	assert.Equal(t, "hello world", extractAssistantContent(body))
}
