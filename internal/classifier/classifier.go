// Package classifier implements the rule-based complexity classifier
// (spec.md §4.1 C4): fifteen weighted dimensions collapsed into a single
// score, mapped to a Tier with a sigmoid-calibrated confidence, plus an
// independent agentic sub-score used by the auto routing profile.
package classifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/edgeandnode/ClawRouter/internal/model"
)

// Dimension names index the weight table and the returned score
// breakdown, useful for logging and debugging a misrouted request.
const (
	DimTokenCount          = "tokenCount"
	DimCodePresence        = "codePresence"
	DimReasoningMarkers    = "reasoningMarkers"
	DimTechnicalTerms      = "technicalTerms"
	DimCreativeMarkers     = "creativeMarkers"
	DimSimpleIndicators    = "simpleIndicators"
	DimMultiStepPatterns   = "multiStepPatterns"
	DimQuestionComplexity  = "questionComplexity"
	DimImperativeVerbs     = "imperativeVerbs"
	DimConstraintCount     = "constraintCount"
	DimOutputFormat        = "outputFormat"
	DimReferenceComplexity = "referenceComplexity"
	DimNegationComplexity  = "negationComplexity"
	DimDomainSpecificity   = "domainSpecificity"
	DimAgenticTask         = "agenticTask"
)

// Weights holds the per-dimension multiplier applied before summation.
// Values are tunable via config; defaults live in internal/config.
type Weights map[string]float64

// DefaultWeights is spec.md §4.1's weight table verbatim; the fifteen
// values sum to ≈1.0.
func DefaultWeights() Weights {
	return Weights{
		DimTokenCount:          0.08,
		DimCodePresence:        0.15,
		DimReasoningMarkers:    0.18,
		DimTechnicalTerms:      0.10,
		DimCreativeMarkers:     0.05,
		DimSimpleIndicators:    0.02,
		DimMultiStepPatterns:   0.12,
		DimQuestionComplexity:  0.05,
		DimImperativeVerbs:     0.03,
		DimConstraintCount:     0.04,
		DimOutputFormat:        0.03,
		DimReferenceComplexity: 0.02,
		DimNegationComplexity:  0.01,
		DimDomainSpecificity:   0.02,
		DimAgenticTask:         0.04,
	}
}

// Boundaries are the raw-score thresholds separating tiers. A score
// strictly below SimpleMedium is SIMPLE, [SimpleMedium, MediumComplex) is
// MEDIUM, [MediumComplex, ComplexReasoning) is COMPLEX, and anything at or
// above ComplexReasoning is REASONING — unless a direct reasoning marker
// forces the override (see Classify).
type Boundaries struct {
	SimpleMedium     float64
	MediumComplex    float64
	ComplexReasoning float64
}

// DefaultBoundaries is spec.md §4.1's example boundaries (0.0, 0.3, 0.5).
func DefaultBoundaries() Boundaries {
	return Boundaries{SimpleMedium: 0.0, MediumComplex: 0.3, ComplexReasoning: 0.5}
}

// Config bundles everything Classify needs beyond the message text.
type Config struct {
	Weights              Weights
	Boundaries           Boundaries
	SigmoidSteepness     float64 // k in spec.md §4.1's confidence calibration (default 12)
	ConfidenceThreshold  float64 // below this, AmbiguousDefaultTier is used (default 0.7)
	AmbiguousDefaultTier model.Tier
	AgenticThreshold     float64 // raw agentic sub-score threshold (default 0.5)
	ReasoningMarkerForce bool    // direct REASONING override on strong markers

	// TokenCountSimpleThreshold/TokenCountComplexThreshold bound the
	// tokenCount dimension's bucket (spec.md §4.1: "< simpleT → −1; >
	// complexT → +1"), measured against the ⌈byte-length/4⌉ estimate over
	// prompt+systemPrompt.
	TokenCountSimpleThreshold  int
	TokenCountComplexThreshold int
}

// DefaultConfig returns production defaults grounded in spec.md §4.1.
func DefaultConfig() Config {
	return Config{
		Weights:                    DefaultWeights(),
		Boundaries:                 DefaultBoundaries(),
		SigmoidSteepness:           12,
		ConfidenceThreshold:        0.7,
		AmbiguousDefaultTier:       model.Medium,
		AgenticThreshold:           0.5,
		ReasoningMarkerForce:       true,
		TokenCountSimpleThreshold:  100,
		TokenCountComplexThreshold: 1000,
	}
}

// Decision is Classify's full result: the tier, the confidence in
// [0,1], the raw weighted score, the per-dimension breakdown (for
// logging), and the independent agentic sub-score.
type Decision struct {
	Tier           model.Tier
	Confidence     float64
	Score          float64
	Dimensions     map[string]float64
	AgenticScore   float64
	ForcedByMarker bool
}

// Classify scores prompt (the last user message) and systemPrompt (the
// first system message), per spec.md §4.9 step 6's classifier inputs.
// reasoningMarkers is matched on prompt alone (spec.md §4.1: "keyword
// match on USER text only"); every other dimension scores the combined
// prompt+systemPrompt text. Classify is total: every input, including two
// empty strings, produces a Decision (property P7 in spec.md §8).
func Classify(cfg Config, prompt, systemPrompt string) Decision {
	userText := strings.ToLower(prompt)
	combined := strings.ToLower(strings.TrimSpace(prompt + "\n" + systemPrompt))

	dims := make(map[string]float64, 15)

	dims[DimTokenCount] = scoreTokenCount(combined, cfg.TokenCountSimpleThreshold, cfg.TokenCountComplexThreshold)
	dims[DimCodePresence] = bucketScore(combined, codeKeywords, 1, 0.5, 2, 1)
	dims[DimReasoningMarkers] = bucketScore(userText, reasoningKeywords, 1, 0.7, 2, 1)
	dims[DimTechnicalTerms] = bucketScore(combined, technicalKeywords, 2, 0.5, 4, 1)
	dims[DimCreativeMarkers] = bucketScore(combined, creativeKeywords, 1, 0.5, 2, 0.7)
	dims[DimSimpleIndicators] = binaryScore(combined, simpleIndicatorKeywords, -1)
	dims[DimMultiStepPatterns] = binaryPatternScore(combined, multiStepPatterns, 0.5)
	dims[DimQuestionComplexity] = scoreQuestionComplexity(combined)
	dims[DimImperativeVerbs] = bucketScore(combined, imperativeKeywords, 1, 0.3, 2, 0.5)
	dims[DimConstraintCount] = bucketScore(combined, constraintKeywords, 1, 0.3, 2, 0.7)
	dims[DimOutputFormat] = bucketScore(combined, outputFormatKeywords, 1, 0.4, 2, 0.7)
	dims[DimReferenceComplexity] = bucketScore(combined, referenceComplexityKeywords, 1, 0.3, 2, 0.5)
	dims[DimNegationComplexity] = bucketScore(combined, negationKeywords, 2, 0.3, 3, 0.5)
	dims[DimDomainSpecificity] = bucketScore(combined, domainSpecificityKeywords, 1, 0.5, 2, 0.8)
	dims[DimAgenticTask] = tripleBucketScore(combined, agenticKeywords, 1, 0.2, 3, 0.6, 4, 1)

	var score float64
	for dim, val := range dims {
		score += val * cfg.Weights[dim]
	}

	// agentic sub-score is the dimension's own bounded value, directly
	// comparable to AgenticThreshold (spec.md §4.1 "Agentic sub-score is
	// exposed separately").
	agenticScore := dims[DimAgenticTask]

	reasoningHits := countHits(userText, reasoningKeywords)
	forced := cfg.ReasoningMarkerForce && reasoningHits >= 2
	tier := tierForScore(score, cfg.Boundaries)
	if forced {
		tier = model.Reasoning
	}

	confidence := calibrateConfidence(score, tier, cfg.Boundaries, cfg.SigmoidSteepness)
	if forced {
		confidence = math.Max(sigmoid(cfg.SigmoidSteepness*math.Max(score, 0.3)), 0.85)
	}

	if confidence < cfg.ConfidenceThreshold && !forced {
		tier = model.Max(tier, cfg.AmbiguousDefaultTier)
	}

	return Decision{
		Tier:           tier,
		Confidence:     confidence,
		Score:          score,
		Dimensions:     dims,
		AgenticScore:   agenticScore,
		ForcedByMarker: forced,
	}
}

// IsAgentic reports whether a Decision's agentic sub-score crosses the
// configured threshold, gating the auto profile's implicit agentic table
// (spec.md §9 Open Question #1).
func (d Decision) IsAgentic(cfg Config) bool {
	return d.AgenticScore >= cfg.AgenticThreshold
}

// Reasoning builds the routing decision's human-readable reasoning
// string (spec.md §4.1: "concatenates score + active signals"): the raw
// score followed by the names of every dimension that scored non-zero,
// in a stable (dimension-table) order.
func (d Decision) Reasoning() string {
	var signals []string
	for _, dim := range dimensionOrder {
		if d.Dimensions[dim] != 0 {
			signals = append(signals, dim)
		}
	}
	reasoning := fmt.Sprintf("score=%.2f", d.Score)
	if d.ForcedByMarker {
		reasoning += " forced=reasoningMarkers"
	}
	if len(signals) > 0 {
		reasoning += " signals=" + strings.Join(signals, ",")
	}
	return reasoning
}

// dimensionOrder lists dimension names in weight-table order, used to
// make Reasoning's signal list deterministic (map iteration isn't).
var dimensionOrder = []string{
	DimTokenCount, DimCodePresence, DimReasoningMarkers, DimTechnicalTerms,
	DimCreativeMarkers, DimSimpleIndicators, DimMultiStepPatterns,
	DimQuestionComplexity, DimImperativeVerbs, DimConstraintCount,
	DimOutputFormat, DimReferenceComplexity, DimNegationComplexity,
	DimDomainSpecificity, DimAgenticTask,
}

func tierForScore(score float64, b Boundaries) model.Tier {
	switch {
	case score < b.SimpleMedium:
		return model.Simple
	case score < b.MediumComplex:
		return model.Medium
	case score < b.ComplexReasoning:
		return model.Complex
	default:
		return model.Reasoning
	}
}

// calibrateConfidence turns distance-from-the-nearest-boundary into a
// [0,1] confidence via spec.md §4.1's logistic curve: c = sigmoid(k·d).
func calibrateConfidence(score float64, tier model.Tier, b Boundaries, steepness float64) float64 {
	var dist float64
	switch tier {
	case model.Simple:
		dist = b.SimpleMedium - score
	case model.Medium:
		dist = math.Min(score-b.SimpleMedium, b.MediumComplex-score)
	case model.Complex:
		dist = math.Min(score-b.MediumComplex, b.ComplexReasoning-score)
	case model.Reasoning:
		dist = score - b.ComplexReasoning
	}
	if dist < 0 {
		dist = 0
	}
	return sigmoid(steepness * dist)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func countHits(text string, bank []string) int {
	n := 0
	for _, kw := range bank {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// bucketScore implements the two-tier "+low/+high" keyword-match
// dimensions in spec.md §4.1's table: below lowHits, 0; [lowHits,
// highHits), lowVal; at or above highHits, highVal.
func bucketScore(text string, bank []string, lowHits int, lowVal float64, highHits int, highVal float64) float64 {
	n := countHits(text, bank)
	switch {
	case n >= highHits:
		return highVal
	case n >= lowHits:
		return lowVal
	default:
		return 0
	}
}

// tripleBucketScore is bucketScore with a third tier, used by agenticTask
// (spec.md §4.1: "≥1 / ≥3 / ≥4 hits" → "+0.2 / +0.6 / +1").
func tripleBucketScore(text string, bank []string, hits1 int, val1 float64, hits2 int, val2 float64, hits3 int, val3 float64) float64 {
	n := countHits(text, bank)
	switch {
	case n >= hits3:
		return val3
	case n >= hits2:
		return val2
	case n >= hits1:
		return val1
	default:
		return 0
	}
}

// binaryScore fires val whenever the bank has any hit at all (spec.md
// §4.1's single-value dimensions, e.g. simpleIndicators: "keyword match |
// −1").
func binaryScore(text string, bank []string, val float64) float64 {
	if countHits(text, bank) > 0 {
		return val
	}
	return 0
}

func binaryPatternScore(text string, patterns []*regexp2.Regexp, val float64) float64 {
	for _, re := range patterns {
		if ok, _ := re.MatchString(text); ok {
			return val
		}
	}
	return 0
}

// multiStepPatterns backs the multiStepPatterns dimension: spec.md §4.1
// calls for a regex match on "first...then", "step N", and numbered-list
// shapes. regexp2 gives the
// dotall/IgnoreCase match semantics a handful of strings.Contains calls
// can't express for the "first ... then" and numbered-list shapes.
var multiStepPatterns = compileMultiStepPatterns([]string{
	`first.*then`,
	`step\s*\d+`,
	`^\s*\d+[.)]\s`,
})

func compileMultiStepPatterns(patterns []string) []*regexp2.Regexp {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re := regexp2.MustCompile(p, regexp2.IgnoreCase|regexp2.Multiline|regexp2.Singleline)
		out = append(out, re)
	}
	return out
}

// scoreTokenCount implements spec.md §4.1's tokenCount dimension: the
// ⌈byte-length/4⌉ estimate over the combined text, bucketed against
// simpleT/complexT.
func scoreTokenCount(combined string, simpleT, complexT int) float64 {
	tokens := int(math.Ceil(float64(len(combined)) / 4.0))
	switch {
	case tokens < simpleT:
		return -1
	case tokens > complexT:
		return 1
	default:
		return 0
	}
}

// scoreQuestionComplexity implements spec.md §4.1's questionComplexity
// dimension: more than three '?' in the combined text triggers +0.5.
func scoreQuestionComplexity(combined string) float64 {
	if strings.Count(combined, "?") > 3 {
		return 0.5
	}
	return 0
}
