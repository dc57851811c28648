package config

import "time"

// DefaultConfig returns ClawRouter's compiled-in defaults. Load() starts
// here before overlaying a YAML file and then environment variables.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Routing:   DefaultRoutingConfig(),
		Payment:   DefaultPaymentConfig(),
		Balance:   DefaultBalanceConfig(),
		Cache:     DefaultCacheConfig(),
		Dedup:     DefaultDedupConfig(),
		Session:   DefaultSessionConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Proxy:     DefaultProxyConfig(),
		Wallet:    DefaultWalletConfig(),
	}
}

func DefaultWalletConfig() WalletConfig {
	return WalletConfig{PrivateKeyEnv: "CLAWROUTER_WALLET_KEY"}
}

func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		UpstreamBaseURL:         "https://aggregator.blockrun.example",
		FreeModel:               "openai/gpt-5-nano",
		SessionHeaderName:       "x-session-id",
		MaxFallbackAttempts:     5,
		AttemptTimeout:          180 * time.Second,
		MaxMessagesKept:         200,
		CompressionThresholdKiB: 180,
		MaxTokensForceComplex:   100_000,
		StructuredOutputMinTier: "MEDIUM",
		AgenticMode:             false,
	}
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8787,
		PortRetries:     5,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute, // streaming responses can run long
		ShutdownTimeout: 15 * time.Second,
		HeartbeatEvery:  10 * time.Second,
	}
}

// DefaultRoutingConfig ships a minimal but functional catalog; production
// deployments override Models/Aliases/Profiles entirely via YAML.
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		// Weights are spec.md §4.1's weight table verbatim (sums to ≈1.0).
		Weights: map[string]float64{
			"tokenCount":          0.08,
			"codePresence":        0.15,
			"reasoningMarkers":    0.18,
			"technicalTerms":      0.10,
			"creativeMarkers":     0.05,
			"simpleIndicators":    0.02,
			"multiStepPatterns":   0.12,
			"questionComplexity":  0.05,
			"imperativeVerbs":     0.03,
			"constraintCount":     0.04,
			"outputFormat":        0.03,
			"referenceComplexity": 0.02,
			"negationComplexity":  0.01,
			"domainSpecificity":   0.02,
			"agenticTask":         0.04,
		},
		SimpleMedium:         0.0,
		MediumComplex:        0.3,
		ComplexReasoning:     0.5,
		SigmoidSteepness:     12,
		ConfidenceThreshold:  0.7,
		AmbiguousDefaultTier: "MEDIUM",
		AgenticThreshold:     0.5,
		TokenCountSimpleT:    100,
		TokenCountComplexT:   1000,
		BrandPrefix:          "blockrun/",
		Models: []ModelConfig{
			{ID: "openai/gpt-5-nano", PriceInput: 0.05, PriceOutput: 0.4, ContextWindow: 128000},
			{ID: "anthropic/claude-haiku", PriceInput: 0.25, PriceOutput: 1.25, ContextWindow: 200000},
			{ID: "openai/gpt-5", PriceInput: 2.5, PriceOutput: 10, ContextWindow: 256000, Reasoning: true, Agentic: true},
			{ID: "anthropic/claude-sonnet", PriceInput: 3, PriceOutput: 15, ContextWindow: 200000, Reasoning: true, Agentic: true},
			{ID: "openai/o4-mini", PriceInput: 1.1, PriceOutput: 4.4, ContextWindow: 128000, Reasoning: true},
		},
		Aliases: map[string]string{
			"nano":  "openai/gpt-5-nano",
			"haiku": "anthropic/claude-haiku",
		},
		Profiles: ProfileTablesConfig{
			Eco: TierTableConfig{
				"SIMPLE":    TierRowConfig{Primary: "openai/gpt-5-nano"},
				"MEDIUM":    TierRowConfig{Primary: "anthropic/claude-haiku", Fallback: []string{"openai/gpt-5-nano"}},
				"COMPLEX":   TierRowConfig{Primary: "anthropic/claude-haiku"},
				"REASONING": TierRowConfig{Primary: "openai/o4-mini", Fallback: []string{"anthropic/claude-haiku"}},
			},
			Auto: TierTableConfig{
				"SIMPLE":    TierRowConfig{Primary: "openai/gpt-5-nano"},
				"MEDIUM":    TierRowConfig{Primary: "anthropic/claude-haiku", Fallback: []string{"openai/gpt-5-nano"}},
				"COMPLEX":   TierRowConfig{Primary: "openai/gpt-5", Fallback: []string{"anthropic/claude-sonnet"}},
				"REASONING": TierRowConfig{Primary: "anthropic/claude-sonnet", Fallback: []string{"openai/o4-mini"}},
			},
			Premium: TierTableConfig{
				"SIMPLE":    TierRowConfig{Primary: "anthropic/claude-haiku"},
				"MEDIUM":    TierRowConfig{Primary: "openai/gpt-5", Fallback: []string{"anthropic/claude-sonnet"}},
				"COMPLEX":   TierRowConfig{Primary: "anthropic/claude-sonnet", Fallback: []string{"openai/gpt-5"}},
				"REASONING": TierRowConfig{Primary: "openai/o4-mini", Fallback: []string{"anthropic/claude-sonnet"}},
			},
			Agentic: TierTableConfig{
				"SIMPLE":    TierRowConfig{Primary: "anthropic/claude-sonnet"},
				"MEDIUM":    TierRowConfig{Primary: "anthropic/claude-sonnet"},
				"COMPLEX":   TierRowConfig{Primary: "openai/gpt-5", Fallback: []string{"anthropic/claude-sonnet"}},
				"REASONING": TierRowConfig{Primary: "openai/gpt-5", Fallback: []string{"anthropic/claude-sonnet"}},
			},
		},
	}
}

func DefaultPaymentConfig() PaymentConfig {
	return PaymentConfig{
		CacheTTL:         2 * time.Minute,
		ChainID:          8453, // Base mainnet
		Asset:            "USDC",
		HandshakeTimeout: 10 * time.Second,
		OutboundRPS:      20,
		OutboundBurst:    10,
	}
}

func DefaultBalanceConfig() BalanceConfig {
	return BalanceConfig{
		PollInterval:  30 * time.Second,
		LowThreshold:  5.0,
		ZeroThreshold: 0.01,
		RPCEndpoint:   "https://mainnet.base.org",
		TokenAddress:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // Base USDC
	}
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      true,
		MaxEntries:   500,
		TTL:          10 * time.Minute,
		MaxItemBytes: 1 << 20, // 1 MiB
	}
}

func DefaultDedupConfig() DedupConfig {
	return DedupConfig{CompletedTTL: 30 * time.Second}
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{TTL: 24 * time.Hour, SweepInterval: time.Hour}
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{CooldownBase: 5 * time.Second, CooldownMax: 5 * time.Minute}
}

func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", JSON: true, Caller: true}
}

func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{Enabled: false, MetricsPort: 9464, ServiceName: "clawrouter", SampleRate: 0.1}
}
