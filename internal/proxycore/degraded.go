package proxycore

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/tidwall/gjson"
)

// providerErrorPatterns are matched case-insensitively against an
// otherwise-200 body's text and against non-2xx error bodies (spec.md
// §4.9 step 14d/15). regexp2 gives us .NET-style case-insensitive
// alternation without hand-rolling a dozen strings.Contains calls.
var providerErrorPatterns = compilePatterns([]string{
	`billing`,
	`insufficient.*balance`,
	`credits`,
	`quota`,
	`rate.?limit`,
	`model.*unavailable`,
	`service.*unavailable`,
	`capacity`,
	`overloaded`,
	`temporarily.*unavailable`,
	`request too large`,
	`payload too large`,
})

// repetitionLoopPatterns catch known assistant repetition-loop
// signatures observed from degraded completions (spec.md §4.9 step 15).
var repetitionLoopPatterns = compilePatterns([]string{
	`the boxed is the response`,
	`the response is the text`,
	`the final answer is the answer`,
	`i (?:apologize|am sorry),? (?:but )?i (?:cannot|can't|am unable to)`,
})

func compilePatterns(patterns []string) []*regexp2.Regexp {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re := regexp2.MustCompile(p, regexp2.IgnoreCase)
		out = append(out, re)
	}
	return out
}

func anyMatches(patterns []*regexp2.Regexp, text string) bool {
	for _, re := range patterns {
		if ok, _ := re.MatchString(text); ok {
			return true
		}
	}
	return false
}

func countMatches(patterns []*regexp2.Regexp, text string) int {
	n := 0
	for _, re := range patterns {
		if ok, _ := re.MatchString(text); ok {
			n++
		}
	}
	return n
}

// overloadPlaceholder is the literal overload marker some upstream
// members emit with a 200 status instead of an honest error code.
const overloadPlaceholder = "AI service is temporarily overloaded"

// isDegradedResponse reports whether a nominally-successful body should
// be treated as a provider error (spec.md §4.9 step 15). It inspects, in
// order: the literal overload placeholder, the repetition-loop
// heuristics over the assistant's content, and a nested JSON error object
// whose text matches a provider-error pattern.
func isDegradedResponse(body []byte) bool {
	text := string(body)
	if strings.Contains(text, overloadPlaceholder) {
		return true
	}

	content := extractAssistantContent(body)
	if content != "" && isRepetitionLoop(content) {
		return true
	}

	if errMsg := gjson.GetBytes(body, "error.message").String(); errMsg != "" {
		if anyMatches(providerErrorPatterns, errMsg) {
			return true
		}
	}

	return false
}

// extractAssistantContent pulls the first choice's message content out of
// an OpenAI-compatible completion body.
func extractAssistantContent(body []byte) string {
	return gjson.GetBytes(body, "choices.0.message.content").String()
}

// isRepetitionLoop flags degenerate repeated-line output: two or more
// known repetition-loop phrases, or at least 8 trimmed lines where some
// line repeats 3+ times and the fraction of distinct lines is <= 0.45
// (spec.md §4.9 step 15).
func isRepetitionLoop(content string) bool {
	if countMatches(repetitionLoopPatterns, content) >= 2 {
		return true
	}

	rawLines := strings.Split(content, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		trimmed := strings.TrimSpace(l)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) < 8 {
		return false
	}

	counts := make(map[string]int, len(lines))
	maxRepeat := 0
	for _, l := range lines {
		counts[l]++
		if counts[l] > maxRepeat {
			maxRepeat = counts[l]
		}
	}
	uniqueRatio := float64(len(counts)) / float64(len(lines))
	return maxRepeat >= 3 && uniqueRatio <= 0.45
}

// isProviderErrorStatus reports whether status is one of the codes
// spec.md §4.9 step 14d treats as a retryable provider error.
func isProviderErrorStatus(status int) bool {
	switch status {
	case 400, 401, 402, 403, 413, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// isProviderErrorBody reports whether a non-2xx body's text matches one
// of the provider-error regexes (spec.md §4.9 step 14d's "non-error body
// matching one of the provider-error regexes").
func isProviderErrorBody(body []byte) bool {
	return anyMatches(providerErrorPatterns, string(body))
}
