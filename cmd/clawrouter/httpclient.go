package main

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/time/rate"
)

// newUpstreamHTTPClient builds the *http.Client the Payment Fetcher uses
// to reach the upstream aggregator, grounded on
// BaSui01/agentflow/internal/tlsutil.SecureHTTPClient's hardened
// transport. http2.ConfigureTransport is called explicitly (rather than
// relying on Transport.ForceAttemptHTTP2's opportunistic upgrade alone)
// so that concurrent requests to the same aggregator host multiplex over
// one connection instead of queuing behind net/http's per-host limit.
func newUpstreamHTTPClient(timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, err
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// newOutboundLimiter builds the token bucket the Payment Fetcher throttles
// its upstream calls with (spec.md §5 "Back-pressure").
func newOutboundLimiter(rps float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
