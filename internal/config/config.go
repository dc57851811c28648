// Package config is the Config struct and loader for ClawRouter, grounded
// on BaSui01/agentflow's config package: YAML file + environment variable
// overlay over compiled-in defaults (config/loader.go), builder-style
// Loader (WithConfigPath/WithEnvPrefix/WithValidator).
package config

import "time"

// Config is ClawRouter's complete runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Routing   RoutingConfig   `yaml:"routing" env:"ROUTING"`
	Payment   PaymentConfig   `yaml:"payment" env:"PAYMENT"`
	Balance   BalanceConfig   `yaml:"balance" env:"BALANCE"`
	Cache     CacheConfig     `yaml:"cache" env:"CACHE"`
	Dedup     DedupConfig     `yaml:"dedup" env:"DEDUP"`
	Session   SessionConfig   `yaml:"session" env:"SESSION"`
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
	Proxy     ProxyConfig     `yaml:"proxy" env:"PROXY"`
	Wallet    WalletConfig    `yaml:"wallet" env:"WALLET"`
}

// ProxyConfig covers C9's orchestration tunables: the upstream
// aggregator, the fallback loop, and the overrides spec.md §6 names
// (maxTokensForceComplex, structuredOutputMinTier, ambiguousDefaultTier,
// agenticMode).
type ProxyConfig struct {
	UpstreamBaseURL          string        `yaml:"upstream_base_url" env:"UPSTREAM_BASE_URL"`
	FreeModel                string        `yaml:"free_model" env:"FREE_MODEL"`
	SessionHeaderName        string        `yaml:"session_header_name" env:"SESSION_HEADER_NAME"`
	MaxFallbackAttempts      int           `yaml:"max_fallback_attempts" env:"MAX_FALLBACK_ATTEMPTS"`
	AttemptTimeout           time.Duration `yaml:"attempt_timeout" env:"ATTEMPT_TIMEOUT"`
	MaxMessagesKept          int           `yaml:"max_messages_kept" env:"MAX_MESSAGES_KEPT"`
	CompressionThresholdKiB  int           `yaml:"compression_threshold_kib" env:"COMPRESSION_THRESHOLD_KIB"`
	MaxTokensForceComplex    int           `yaml:"max_tokens_force_complex" env:"MAX_TOKENS_FORCE_COMPLEX"`
	StructuredOutputMinTier  string        `yaml:"structured_output_min_tier" env:"STRUCTURED_OUTPUT_MIN_TIER"`
	AgenticMode              bool          `yaml:"agentic_mode" env:"AGENTIC_MODE"`
}

// ServerConfig is the HTTP listener's configuration.
type ServerConfig struct {
	// Port is the preferred bind port. If already in use, the server
	// probes whether the occupant is a prior instance of itself and
	// either adopts it or retries on the next port (spec.md §4.9 "Port
	// binding").
	Port            int           `yaml:"port" env:"PORT"`
	PortRetries     int           `yaml:"port_retries" env:"PORT_RETRIES"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	HeartbeatEvery  time.Duration `yaml:"heartbeat_every" env:"HEARTBEAT_EVERY"`
}

// RoutingConfig bundles the classifier's tunables plus the model
// registry's raw data and every profile's tier table.
type RoutingConfig struct {
	Weights              map[string]float64     `yaml:"weights" env:"WEIGHTS"`
	SimpleMedium         float64                `yaml:"simple_medium_boundary" env:"SIMPLE_MEDIUM_BOUNDARY"`
	MediumComplex        float64                `yaml:"medium_complex_boundary" env:"MEDIUM_COMPLEX_BOUNDARY"`
	ComplexReasoning     float64                `yaml:"complex_reasoning_boundary" env:"COMPLEX_REASONING_BOUNDARY"`
	SigmoidSteepness     float64                `yaml:"sigmoid_steepness" env:"SIGMOID_STEEPNESS"`
	ConfidenceThreshold  float64                `yaml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD"`
	AmbiguousDefaultTier string                 `yaml:"ambiguous_default_tier" env:"AMBIGUOUS_DEFAULT_TIER"`
	AgenticThreshold     float64                `yaml:"agentic_threshold" env:"AGENTIC_THRESHOLD"`
	TokenCountSimpleT    int                    `yaml:"token_count_simple_threshold" env:"TOKEN_COUNT_SIMPLE_THRESHOLD"`
	TokenCountComplexT   int                    `yaml:"token_count_complex_threshold" env:"TOKEN_COUNT_COMPLEX_THRESHOLD"`
	BrandPrefix          string                 `yaml:"brand_prefix" env:"BRAND_PREFIX"`
	Models               []ModelConfig          `yaml:"models" env:"-"`
	Aliases              map[string]string      `yaml:"aliases" env:"-"`
	Profiles             ProfileTablesConfig    `yaml:"profiles" env:"-"`
}

// ModelConfig is a YAML-facing mirror of internal/model.Descriptor.
type ModelConfig struct {
	ID            string  `yaml:"id"`
	DisplayName   string  `yaml:"display_name"`
	Version       string  `yaml:"version"`
	PriceInput    float64 `yaml:"price_input"`
	PriceOutput   float64 `yaml:"price_output"`
	ContextWindow int     `yaml:"context_window"`
	MaxOutputToks int     `yaml:"max_output_tokens"`
	Reasoning     bool    `yaml:"reasoning"`
	Vision        bool    `yaml:"vision"`
	Agentic       bool    `yaml:"agentic"`
}

// TierRowConfig is a YAML-facing mirror of internal/model.TierRow.
type TierRowConfig struct {
	Primary  string   `yaml:"primary"`
	Fallback []string `yaml:"fallback"`
}

// TierTableConfig maps tier names (SIMPLE/MEDIUM/COMPLEX/REASONING) to rows.
type TierTableConfig map[string]TierRowConfig

// ProfileTablesConfig holds one TierTableConfig per non-free profile, plus
// the agentic sub-table of auto.
type ProfileTablesConfig struct {
	Eco     TierTableConfig `yaml:"eco"`
	Auto    TierTableConfig `yaml:"auto"`
	Premium TierTableConfig `yaml:"premium"`
	Agentic TierTableConfig `yaml:"agentic"`
}

// PaymentConfig covers the x402/EIP-712 handshake (spec.md §4.3–4.4).
type PaymentConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	ChainID         int64         `yaml:"chain_id" env:"CHAIN_ID"`
	Asset           string        `yaml:"asset" env:"ASSET"`
	PayToOverride   string        `yaml:"pay_to_override" env:"PAY_TO_OVERRIDE"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`

	// OutboundRPS/OutboundBurst bound the Payment Fetch layer's call rate
	// to the upstream aggregator, independent of the per-model rate-limit
	// cooldowns (spec.md §5 "Back-pressure"). OutboundRPS <= 0 disables
	// throttling entirely.
	OutboundRPS   float64 `yaml:"outbound_rps" env:"OUTBOUND_RPS"`
	OutboundBurst int     `yaml:"outbound_burst" env:"OUTBOUND_BURST"`
}

// BalanceConfig covers the on-chain balance monitor (spec.md §4.5).
type BalanceConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	LowThreshold  float64       `yaml:"low_threshold" env:"LOW_THRESHOLD"`
	ZeroThreshold float64       `yaml:"zero_threshold" env:"ZERO_THRESHOLD"`

	// RPCEndpoint/TokenAddress locate the ERC-20 balance this monitor
	// polls. Both are per-deployment and carry no sane default.
	RPCEndpoint  string `yaml:"rpc_endpoint" env:"RPC_ENDPOINT"`
	TokenAddress string `yaml:"token_address" env:"TOKEN_ADDRESS"`
}

// WalletConfig names the environment variable holding the signing
// wallet's raw private key — the key itself is never written to YAML or
// logged, only looked up by name at startup.
type WalletConfig struct {
	PrivateKeyEnv string `yaml:"private_key_env" env:"PRIVATE_KEY_ENV"`
}

// CacheConfig covers the LRU+TTL response cache (spec.md §4.7).
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	MaxEntries   int           `yaml:"max_entries" env:"MAX_ENTRIES"`
	TTL          time.Duration `yaml:"ttl" env:"TTL"`
	MaxItemBytes int           `yaml:"max_item_bytes" env:"MAX_ITEM_BYTES"`
}

// DedupConfig covers in-flight coalescing and the completed-response
// cache (spec.md §4.6).
type DedupConfig struct {
	CompletedTTL time.Duration `yaml:"completed_ttl" env:"COMPLETED_TTL"`
}

// SessionConfig covers the session-pinned-model store (spec.md §4.8).
type SessionConfig struct {
	TTL          time.Duration `yaml:"ttl" env:"TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// RateLimitConfig covers per-model cooldown after a 429.
type RateLimitConfig struct {
	CooldownBase time.Duration `yaml:"cooldown_base" env:"COOLDOWN_BASE"`
	CooldownMax  time.Duration `yaml:"cooldown_max" env:"COOLDOWN_MAX"`
}

// LogConfig selects zap's output shape.
type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	JSON       bool   `yaml:"json" env:"JSON"`
	Caller     bool   `yaml:"caller" env:"CALLER"`
	Stacktrace bool   `yaml:"stacktrace" env:"STACKTRACE"`
}

// TelemetryConfig wires the otel tracer + prometheus metrics registry.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	MetricsPort  int     `yaml:"metrics_port" env:"METRICS_PORT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}
