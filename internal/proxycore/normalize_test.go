package proxycore

import (
	"testing"

	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRemapRolesAssistantToModelForGoogleTarget(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)
	out, err := remapRoles(body, model.Descriptor{ID: "google/gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "model", gjson.GetBytes(out, "messages.1.role").String())
}

func TestRemapRolesModelBackToAssistantForNonGoogleTarget(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"hi"},{"role":"model","content":"hello"}]}`)
	out, err := remapRoles(body, model.Descriptor{ID: "openai/gpt-5-nano"})
	require.NoError(t, err)
	assert.Equal(t, "assistant", gjson.GetBytes(out, "messages.1.role").String())
}

func TestTruncateMessagesKeepsSystemAndRecentOnly(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"system","content":"sys"},
		{"role":"user","content":"1"},
		{"role":"assistant","content":"2"},
		{"role":"user","content":"3"},
		{"role":"assistant","content":"4"},
		{"role":"user","content":"5"}
	]}`)
	out, err := truncateMessages(body, 3)
	require.NoError(t, err)

	messages := gjson.GetBytes(out, "messages").Array()
	require.Len(t, messages, 3)
	assert.Equal(t, "system", messages[0].Get("role").String())
	assert.Equal(t, "4", messages[1].Get("content").String())
	assert.Equal(t, "5", messages[2].Get("content").String())
}

func TestTruncateMessagesNoopWhenUnderLimit(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"hi"}]}`)
	out, err := truncateMessages(body, 10)
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestSanitizeToolIDs(t *testing.T) {
	body := []byte(`{"messages":[{"role":"tool","tool_call_id":"call#1!","content":"ok"}]}`)
	out, err := sanitizeToolIDs(body)
	require.NoError(t, err)
	assert.Equal(t, "call_1_", gjson.GetBytes(out, "messages.0.tool_call_id").String())
}

func TestInsertGoogleLeadingUserMessage(t *testing.T) {
	body := []byte(`{"messages":[{"role":"system","content":"sys"},{"role":"assistant","content":"hi"}]}`)
	out, err := insertGoogleLeadingUserMessage(body, model.Descriptor{ID: "google/gemini-2.5-pro"})
	require.NoError(t, err)

	messages := gjson.GetBytes(out, "messages").Array()
	require.Len(t, messages, 3)
	assert.Equal(t, "user", messages[1].Get("role").String())
	assert.Equal(t, "assistant", messages[2].Get("role").String())
}

func TestInsertGoogleLeadingUserMessageNoopForNonGoogle(t *testing.T) {
	body := []byte(`{"messages":[{"role":"assistant","content":"hi"}]}`)
	out, err := insertGoogleLeadingUserMessage(body, model.Descriptor{ID: "openai/gpt-5-nano"})
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestAddReasoningContentPlaceholder(t *testing.T) {
	body := []byte(`{"messages":[{"role":"assistant","content":"","tool_calls":[{"id":"1"}]}]}`)
	out, err := addReasoningContentPlaceholder(body, model.Descriptor{ID: "openai/o4-mini", Reasoning: true})
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(out, "messages.0.reasoning_content").Exists())
}

func TestAddReasoningContentPlaceholderSkipsNonReasoningTargets(t *testing.T) {
	body := []byte(`{"messages":[{"role":"assistant","content":"","tool_calls":[{"id":"1"}]}]}`)
	out, err := addReasoningContentPlaceholder(body, model.Descriptor{ID: "openai/gpt-5-nano", Reasoning: false})
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(out, "messages.0.reasoning_content").Exists())
}

func TestNormalizeForAttemptForcesStreamFalse(t *testing.T) {
	body := []byte(`{"stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	out, err := normalizeForAttempt(body, model.Descriptor{ID: "openai/gpt-5-nano"}, 200)
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(out, "stream").Bool())
}

func TestIsGoogleModel(t *testing.T) {
	assert.True(t, isGoogleModel("google/gemini-2.5-flash"))
	assert.False(t, isGoogleModel("openai/gpt-5-nano"))
	assert.False(t, isGoogleModel("goo"))
}
