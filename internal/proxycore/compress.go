package proxycore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// compressIfOverThreshold applies loss-tolerant compression layers when
// body exceeds thresholdKiB (spec.md §4.9 step 9, off by default at
// 180 KiB): message deduplication by hash, whitespace normalization, and
// JSON-content compaction on tool messages that look like JSON.
func compressIfOverThreshold(body []byte, thresholdKiB int) ([]byte, error) {
	if thresholdKiB <= 0 || len(body) <= thresholdKiB*1024 {
		return body, nil
	}

	body, err := dedupMessagesByHash(body)
	if err != nil {
		return nil, err
	}
	body, err = normalizeWhitespace(body)
	if err != nil {
		return nil, err
	}
	body, err = compactJSONToolContent(body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// dedupMessagesByHash drops any message whose (role, content) pair is a
// byte-for-byte repeat of an earlier message — conversations replayed
// through several rounds of tool use often carry exact duplicates.
func dedupMessagesByHash(body []byte) ([]byte, error) {
	messages := gjson.GetBytes(body, "messages").Array()
	seen := make(map[string]struct{}, len(messages))
	kept := make([]any, 0, len(messages))
	for _, m := range messages {
		h := sha256.Sum256([]byte(m.Get("role").String() + "\x00" + m.Get("content").String()))
		key := hex.EncodeToString(h[:])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, m.Value())
	}
	return sjson.SetBytes(body, "messages", kept)
}

// normalizeWhitespace collapses runs of whitespace in every message's
// content to a single space — prompt text often carries formatting
// whitespace that costs tokens without carrying meaning.
func normalizeWhitespace(body []byte) ([]byte, error) {
	messages := gjson.GetBytes(body, "messages").Array()
	out := body
	for i, m := range messages {
		content := m.Get("content").String()
		if content == "" {
			continue
		}
		collapsed := strings.Join(strings.Fields(content), " ")
		if collapsed == content {
			continue
		}
		var err error
		out, err = sjson.SetBytes(out, pathForMessage(i, "content"), collapsed)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// compactJSONToolContent re-serializes any tool message's content string
// that itself parses as JSON, stripping the insignificant whitespace a
// pretty-printed tool result often carries.
func compactJSONToolContent(body []byte) ([]byte, error) {
	messages := gjson.GetBytes(body, "messages").Array()
	out := body
	for i, m := range messages {
		if m.Get("role").String() != "tool" {
			continue
		}
		content := m.Get("content").String()
		parsed := gjson.Parse(content)
		if !parsed.IsObject() && !parsed.IsArray() {
			continue
		}
		var err error
		out, err = sjson.SetBytes(out, pathForMessage(i, "content"), parsed.Raw)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
