package proxycore

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// sseWriter emits Server-Sent Events to an http.ResponseWriter, tracking
// write failures so callers can stop trying once the client has gone away
// (spec.md §5 "Back-pressure").
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	broken  bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

// writeHeaders sends the SSE response headers plus the context-window
// accounting headers (spec.md §4.9 step 13).
func (s *sseWriter) writeHeaders(contextUsedKB, contextLimitKB int) {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Context-Used-Kb", strconv.Itoa(contextUsedKB))
	h.Set("X-Context-Limit-Kb", strconv.Itoa(contextLimitKB))
	s.w.WriteHeader(http.StatusOK)
	s.flush()
}

func (s *sseWriter) writeComment(text string) {
	s.write(": " + text + "\n\n")
}

func (s *sseWriter) writeData(chunk any) {
	raw, err := json.Marshal(chunk)
	if err != nil {
		return
	}
	s.write("data: " + string(raw) + "\n\n")
}

func (s *sseWriter) writeDone() {
	s.write("data: [DONE]\n\n")
}

func (s *sseWriter) write(text string) {
	if s.broken {
		return
	}
	if _, err := s.w.Write([]byte(text)); err != nil {
		s.broken = true
		return
	}
	s.flush()
}

func (s *sseWriter) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// heartbeat runs a ticker that writes a `: heartbeat` comment every
// interval until stop is closed (spec.md §5: "Heartbeat cadence: 2s").
func (s *sseWriter) heartbeat(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.broken {
				return
			}
			s.writeComment("heartbeat")
		case <-stop:
			return
		}
	}
}

var reasoningTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>|<reasoning>.*?</reasoning>`)

// sanitizeReasoningTags strips <think>...</think> and similar
// reasoning-token tags before emitting assistant content to the client
// (spec.md §4.9 step 16).
func sanitizeReasoningTags(content string) string {
	return reasoningTagPattern.ReplaceAllString(content, "")
}

// transcodeToSSE synthesizes the SSE chunk sequence spec.md §4.9 step 16
// describes from a buffered OpenAI-compatible completion body. It returns
// the accumulated, sanitized assistant text for the session journal.
func transcodeToSSE(sse *sseWriter, body []byte, modelID string) string {
	root := gjson.ParseBytes(body)
	choice := root.Get("choices.0")
	role := choice.Get("message.role").String()
	if role == "" {
		role = "assistant"
	}
	content := sanitizeReasoningTags(choice.Get("message.content").String())
	toolCalls := choice.Get("message.tool_calls")
	finishReason := choice.Get("finish_reason").String()
	if finishReason == "" {
		finishReason = "stop"
	}

	sse.writeData(map[string]any{
		"model": modelID,
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]any{"role": role}},
		},
	})

	if content != "" {
		sse.writeData(map[string]any{
			"model": modelID,
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]any{"content": content}},
			},
		})
	}

	if toolCalls.Exists() && len(toolCalls.Array()) > 0 {
		var tc any
		_ = json.Unmarshal([]byte(toolCalls.Raw), &tc)
		sse.writeData(map[string]any{
			"model": modelID,
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]any{"tool_calls": tc}},
			},
		})
	}

	sse.writeData(map[string]any{
		"model": modelID,
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]any{}, "finish_reason": finishReason},
		},
	})
	sse.writeDone()

	return content
}
