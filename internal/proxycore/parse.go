package proxycore

import (
	"strings"

	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/tidwall/gjson"
)

// chatRequest holds the fields the pipeline reads directly out of the
// client body (spec.md §4.9 step 2: "capture stream, max_tokens, model").
// Everything else rides through unexamined on req.raw, sjson-patched per
// attempt in normalize.go.
type chatRequest struct {
	raw        []byte
	model      string
	stream     bool
	maxTokens  int
	noCache    bool
	requestID  string
	messages   []gjson.Result // raw message objects, in order
}

// parseChatRequest extracts the fields the pipeline branches on, without
// fully unmarshaling the body (some clients attach large/unknown fields
// proxycore never needs to touch, per §6 "recognized body fields").
func parseChatRequest(body []byte) chatRequest {
	root := gjson.ParseBytes(body)
	req := chatRequest{
		raw:       body,
		model:     root.Get("model").String(),
		stream:    root.Get("stream").Bool(),
		maxTokens: int(root.Get("max_tokens").Int()),
		noCache:   root.Get("no_cache").Bool(),
		requestID: root.Get("request_id").String(),
	}
	for _, m := range root.Get("messages").Array() {
		req.messages = append(req.messages, m)
	}
	return req
}

// resolvedModel is the outcome of alias resolution (spec.md §4.9 step 3).
type resolvedModel struct {
	profile    model.Profile
	isProfile  bool
	modelID    string // only meaningful when !isProfile
}

// resolveModelOrProfile normalizes the requested model name and decides
// whether it names a routing profile or a concrete model id, following
// the alias map to a fixed point first.
func resolveModelOrProfile(reg *model.Registry, requested string) resolvedModel {
	normalized := reg.ResolveAlias(requested)
	if p, ok := model.IsProfileName(normalized); ok {
		return resolvedModel{profile: p, isProfile: true}
	}
	return resolvedModel{modelID: normalized}
}

// lastUserMessage returns the content of the last message with role
// "user" (spec.md §4.9 step 6's classifier prompt input).
func lastUserMessage(messages []gjson.Result) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Get("role").String() == "user" {
			return messages[i].Get("content").String()
		}
	}
	return ""
}

// firstSystemMessage returns the content of the first message with role
// "system" (spec.md §4.9 step 6's classifier systemPrompt input).
func firstSystemMessage(messages []gjson.Result) string {
	for _, m := range messages {
		if m.Get("role").String() == "system" {
			return m.Get("content").String()
		}
	}
	return ""
}

// allMessageTexts flattens every message's content for the classifier,
// which scores the whole conversation rather than only the latest turn.
func allMessageTexts(messages []gjson.Result) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Get("content").String())
	}
	return out
}

// containsStructuredOutputHint reports whether text looks like it is
// asking for structured output (spec.md §4.9 step 6: "system prompt
// contains json|structured|schema").
func containsStructuredOutputHint(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"json", "structured", "schema"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
