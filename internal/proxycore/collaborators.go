package proxycore

import "context"

// UsageLogger is the external collaborator that persists one line per
// completed request (spec.md §1 Non-goals: "usage-log file writing" is
// out of scope for the core — this is an interface boundary only).
type UsageLogger interface {
	LogUsage(ctx context.Context, entry UsageEntry)
}

// UsageEntry is one usage-log line's fields.
type UsageEntry struct {
	RequestID    string
	Model        string
	Profile      string
	Tier         string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	SavingsUSD   float64
	Cached       bool
	Deduped      bool
	Attempts     int

	// RoutingMethod and SavingsRatio carry spec.md §3's routing-decision
	// fields: how the tier was decided ("rules" or "llm") and the
	// savings ratio in [0,1] against the premium reference model,
	// computed once for the request's original candidate list.
	RoutingMethod string
	SavingsRatio  float64
}

// StatsAggregator is the external collaborator behind GET /stats (spec.md
// §1 Non-goals: "stats aggregation" is out of scope for the core).
type StatsAggregator interface {
	Aggregate(ctx context.Context, days int) (any, error)
}

type noopUsageLogger struct{}

func (noopUsageLogger) LogUsage(context.Context, UsageEntry) {}

type noopStatsAggregator struct{}

func (noopStatsAggregator) Aggregate(context.Context, int) (any, error) {
	return map[string]any{}, nil
}
