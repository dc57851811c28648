// ClawRouter is a local HTTP proxy that classifies chat-completion
// requests by complexity, routes each to the cheapest capable model, and
// settles per-request x402 micropayments on the way upstream.
//
// Usage:
//
//	clawrouter serve                       # start the proxy
//	clawrouter serve --config config.yaml  # with a config file
//	clawrouter version                     # print build info
//	clawrouter health                      # probe a running instance
//	clawrouter help                        # this message
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/edgeandnode/ClawRouter/internal/balance"
	"github.com/edgeandnode/ClawRouter/internal/chain"
	"github.com/edgeandnode/ClawRouter/internal/config"
	"github.com/edgeandnode/ClawRouter/internal/dedup"
	"github.com/edgeandnode/ClawRouter/internal/payment"
	"github.com/edgeandnode/ClawRouter/internal/proxycore"
	"github.com/edgeandnode/ClawRouter/internal/ratelimit"
	"github.com/edgeandnode/ClawRouter/internal/respcache"
	"github.com/edgeandnode/ClawRouter/internal/selector"
	"github.com/edgeandnode/ClawRouter/internal/server"
	"github.com/edgeandnode/ClawRouter/internal/session"
	"github.com/edgeandnode/ClawRouter/internal/telemetry"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := telemetry.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting clawrouter",
		zap.String("version", version),
		zap.String("build_time", buildTime),
		zap.String("git_commit", gitCommit),
	)

	startedAt := time.Now()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}()

	deps, err := buildDeps(cfg, logger)
	if err != nil {
		logger.Fatal("failed to wire dependencies", zap.Error(err))
	}

	proxyServer := proxycore.NewServer(deps)

	mgr := server.NewManager(proxyServer.Handler(), server.Config{
		Port:            cfg.Server.Port,
		PortRetries:     cfg.Server.PortRetries,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	adopted, err := mgr.Start(healthProbe)
	if err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
	if adopted {
		logger.Info("another instance already owns this port; exiting")
		return
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.MetricsPort > 0 {
		go serveMetrics(cfg.Telemetry.MetricsPort, logger)
	}

	logger.Info("clawrouter ready",
		zap.Int("port", cfg.Server.Port),
		zap.String("started", humanizeStartup(startedAt)),
	)

	mgr.WaitForShutdown()

	if deps.Sessions != nil {
		deps.Sessions.Stop()
	}

	logger.Info("clawrouter stopped")
}

// healthProbe asks whatever is already listening on addr whether it's a
// prior ClawRouter instance, so Start can decide to adopt rather than
// retry (spec.md §4.9 "Port binding").
func healthProbe(addr string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func serveMetrics(port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	logger.Info("serving prometheus metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}

// buildDeps wires every C1-C9 collaborator into the proxycore.Deps bundle
// runServe hands to the HTTP surface.
func buildDeps(cfg *config.Config, logger *zap.Logger) (*proxycore.Deps, error) {
	registry, profiles, err := buildRegistry(cfg.Routing)
	if err != nil {
		return nil, fmt.Errorf("build model registry: %w", err)
	}

	classifierCfg, err := buildClassifierConfig(cfg.Routing)
	if err != nil {
		return nil, fmt.Errorf("build classifier config: %w", err)
	}

	upstreamClient, err := newUpstreamHTTPClient(cfg.Proxy.AttemptTimeout)
	if err != nil {
		return nil, fmt.Errorf("build upstream http client: %w", err)
	}

	signer, err := buildSigner(cfg.Wallet)
	if err != nil {
		return nil, fmt.Errorf("build wallet signer: %w", err)
	}

	paymentCache := payment.NewCache(cfg.Payment.CacheTTL)
	fetcher := payment.NewFetcher(upstreamClient, paymentCache, signer)
	if cfg.Payment.OutboundRPS > 0 {
		fetcher.SetLimiter(newOutboundLimiter(cfg.Payment.OutboundRPS, cfg.Payment.OutboundBurst))
	}

	rpcClient := chain.NewRPCClient(cfg.Balance.RPCEndpoint, cfg.Balance.TokenAddress, &http.Client{Timeout: 10 * time.Second})
	monitor := balance.NewMonitor(
		rpcClient,
		cfg.Balance.PollInterval,
		usdToMicroUnits(cfg.Balance.LowThreshold),
		usdToMicroUnits(cfg.Balance.ZeroThreshold),
	)

	sessions := session.New(cfg.Session.TTL)
	sessions.RunSweeper(cfg.Session.SweepInterval)

	metrics := telemetry.NewMetrics(cfg.Telemetry.ServiceName)

	logger.Info("wired dependencies", zap.Int("models", len(registry.All())))

	return &proxycore.Deps{
		Config:           cfg,
		Registry:         registry,
		Profiles:         profiles,
		ClassifierConfig: classifierCfg,
		Selector:         selector.NewSelector(registry),
		Fetcher:          fetcher,
		BalanceMonitor:   monitor,
		WalletAddress:    signer.Address(),
		Dedup:            dedup.NewDeduplicator(cfg.Dedup.CompletedTTL),
		RespCache:        respcache.New(cfg.Cache.Enabled, cfg.Cache.MaxEntries, cfg.Cache.TTL, cfg.Cache.MaxItemBytes),
		Sessions:         sessions,
		RateLimiter:      ratelimit.NewTracker(cfg.RateLimit.CooldownBase, cfg.RateLimit.CooldownMax),
		HTTPClient:       upstreamClient,
		Metrics:          metrics,
		Logger:           logger,
	}, nil
}

func buildSigner(cfg config.WalletConfig) (*chain.PrivateKeySigner, error) {
	hexKey := os.Getenv(cfg.PrivateKeyEnv)
	if hexKey == "" {
		return nil, fmt.Errorf("wallet private key not set in env var %q", cfg.PrivateKeyEnv)
	}
	return chain.NewPrivateKeySigner(hexKey)
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8787", "server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func printVersion() {
	fmt.Printf("clawrouter %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
}

func printUsage() {
	fmt.Println(`ClawRouter - smart LLM routing proxy

Usage:
  clawrouter <command> [options]

Commands:
  serve     Start the proxy server
  version   Show version information
  health    Check server health
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)

Examples:
  clawrouter serve
  clawrouter serve --config /etc/clawrouter/config.yaml
  clawrouter health --addr http://localhost:8787
  clawrouter version`)
}

// humanizeStartup is a small formatting helper kept alongside main so the
// startup log line above stays readable without pulling humanize into
// every package that logs a duration.
func humanizeStartup(since time.Time) string {
	return humanize.RelTime(since, time.Now(), "ago", "from now")
}
