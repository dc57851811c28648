package proxycore

import (
	"regexp"
	"strconv"

	"github.com/edgeandnode/ClawRouter/internal/model"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var toolIDSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// normalizeForAttempt rewrites body into the shape target expects,
// applying spec.md §4.9 step 8's four transforms in order. It always
// forces stream:false toward the upstream (step 13: "internally always
// disable streaming toward the upstream"); the client-facing SSE
// transcoding happens independently in sse.go.
func normalizeForAttempt(body []byte, target model.Descriptor, maxMessagesKept int) ([]byte, error) {
	var err error

	body, err = remapRoles(body, target)
	if err != nil {
		return nil, err
	}

	body, err = truncateMessages(body, maxMessagesKept)
	if err != nil {
		return nil, err
	}

	body, err = sanitizeToolIDs(body)
	if err != nil {
		return nil, err
	}

	body, err = insertGoogleLeadingUserMessage(body, target)
	if err != nil {
		return nil, err
	}

	body, err = addReasoningContentPlaceholder(body, target)
	if err != nil {
		return nil, err
	}

	body, err = sjson.SetBytes(body, "stream", false)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// remapRoles maps the provider-neutral "assistant" role to "model" when
// targeting a Google model (the only aggregator member whose wire format
// diverges from the OpenAI-compatible default) and vice versa — a
// conversation that was normalized for a Google target and falls back to
// a non-Google target must not carry a stray "model" role forward.
func remapRoles(body []byte, target model.Descriptor) ([]byte, error) {
	isGoogle := isGoogleModel(target.ID)
	messages := gjson.GetBytes(body, "messages").Array()
	out := body
	for i, m := range messages {
		role := m.Get("role").String()
		path := pathForMessage(i, "role")
		switch {
		case isGoogle && role == "assistant":
			var err error
			out, err = sjson.SetBytes(out, path, "model")
			if err != nil {
				return nil, err
			}
		case !isGoogle && role == "model":
			var err error
			out, err = sjson.SetBytes(out, path, "assistant")
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func isGoogleModel(id string) bool {
	return len(id) >= 6 && id[:6] == "google"
}

// truncateMessages keeps the last n non-system messages plus every system
// message, preserving relative order, so a long-running session doesn't
// grow the request past what any candidate model's context window can
// hold.
func truncateMessages(body []byte, n int) ([]byte, error) {
	messages := gjson.GetBytes(body, "messages").Array()
	if n <= 0 || len(messages) <= n {
		return body, nil
	}

	var systemMsgs, rest []gjson.Result
	for _, m := range messages {
		if m.Get("role").String() == "system" {
			systemMsgs = append(systemMsgs, m)
		} else {
			rest = append(rest, m)
		}
	}

	keep := n - len(systemMsgs)
	if keep < 0 {
		keep = 0
	}
	if keep < len(rest) {
		rest = rest[len(rest)-keep:]
	}

	kept := append(append([]gjson.Result{}, systemMsgs...), rest...)
	return sjson.SetBytes(body, "messages", rawMessages(kept))
}

// sanitizeToolIDs replaces any character outside [A-Za-z0-9_-] in
// tool_call_id / id fields with "_" — some providers reject ids
// containing characters their own tool-calling convention forbids.
func sanitizeToolIDs(body []byte) ([]byte, error) {
	messages := gjson.GetBytes(body, "messages").Array()
	out := body
	for i, m := range messages {
		if id := m.Get("tool_call_id"); id.Exists() {
			clean := toolIDSanitizer.ReplaceAllString(id.String(), "_")
			var err error
			out, err = sjson.SetBytes(out, pathForMessage(i, "tool_call_id"), clean)
			if err != nil {
				return nil, err
			}
		}
		for j, tc := range m.Get("tool_calls").Array() {
			if id := tc.Get("id"); id.Exists() {
				clean := toolIDSanitizer.ReplaceAllString(id.String(), "_")
				var err error
				path := pathForMessage(i, "tool_calls") + "." + strconv.Itoa(j) + ".id"
				out, err = sjson.SetBytes(out, path, clean)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// insertGoogleLeadingUserMessage inserts a placeholder user turn when
// targeting a Google model and the first non-system message isn't a user
// turn (Gemini's API requires the conversation to open with a user turn).
func insertGoogleLeadingUserMessage(body []byte, target model.Descriptor) ([]byte, error) {
	if !isGoogleModel(target.ID) {
		return body, nil
	}
	messages := gjson.GetBytes(body, "messages").Array()

	firstNonSystem := -1
	for i, m := range messages {
		if m.Get("role").String() != "system" {
			firstNonSystem = i
			break
		}
	}
	if firstNonSystem == -1 {
		return body, nil
	}
	role := messages[firstNonSystem].Get("role").String()
	if role != "assistant" && role != "model" {
		return body, nil
	}

	placeholder := map[string]any{"role": "user", "content": "(continuing conversation)"}
	newMessages := make([]any, 0, len(messages)+1)
	for i, m := range messages {
		if i == firstNonSystem {
			newMessages = append(newMessages, placeholder)
		}
		newMessages = append(newMessages, m.Value())
	}
	return sjson.SetBytes(body, "messages", newMessages)
}

// addReasoningContentPlaceholder adds an empty reasoning_content field to
// assistant messages that carry tool calls, when target is a reasoning
// model — some reasoning-model providers reject a tool-calling assistant
// turn that omits the field entirely.
func addReasoningContentPlaceholder(body []byte, target model.Descriptor) ([]byte, error) {
	if !target.Reasoning {
		return body, nil
	}
	messages := gjson.GetBytes(body, "messages").Array()
	out := body
	for i, m := range messages {
		if m.Get("role").String() != "assistant" {
			continue
		}
		if !m.Get("tool_calls").Exists() || len(m.Get("tool_calls").Array()) == 0 {
			continue
		}
		if m.Get("reasoning_content").Exists() {
			continue
		}
		var err error
		out, err = sjson.SetBytes(out, pathForMessage(i, "reasoning_content"), "")
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func pathForMessage(i int, field string) string {
	return "messages." + strconv.Itoa(i) + "." + field
}

func rawMessages(results []gjson.Result) []any {
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = r.Value()
	}
	return out
}
