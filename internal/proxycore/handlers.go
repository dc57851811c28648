package proxycore

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server is C9's HTTP surface (spec.md §4.9 "Endpoints served").
type Server struct {
	deps *Deps
	mux  *http.ServeMux
}

// NewServer builds a Server wired to deps.
func NewServer(deps *Deps) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/cache", s.handleCache)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/v1/models", s.handleModels)
	s.mux.HandleFunc("/v1/x/", s.handleTransparentProxy)
	s.mux.HandleFunc("/v1/partner/", s.handleTransparentProxy)
	s.mux.HandleFunc("/v1/", s.handleChatCompletions)
	s.mux.HandleFunc("/", s.handleNotFound)
	return s
}

// Handler returns the server's root http.Handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "wallet": s.deps.WalletAddress}

	if r.URL.Query().Get("full") == "true" {
		ctx := r.Context()
		bal, err := s.deps.BalanceMonitor.Balance(ctx, s.deps.WalletAddress)
		if err == nil {
			resp["balance"] = bal.String()
			resp["low_balance"] = s.deps.BalanceMonitor.IsLow(s.deps.WalletAddress)
			resp["empty_balance"] = s.deps.BalanceMonitor.IsEmpty(s.deps.WalletAddress)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.RespCache.GetStats())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 {
			days = parsed
		}
	}
	agg, err := s.deps.statsAggregator().Aggregate(r.Context(), days)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": s.deps.Registry.All()})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// handleTransparentProxy forwards /v1/x/* and /v1/partner/* requests
// through the payment-fetch layer with minimal transformation (spec.md
// §4.9 "transparent proxy through the payment-fetch layer").
func (s *Server) handleTransparentProxy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot read body"})
		return
	}

	upstreamURL := strings.TrimRight(s.deps.Config.Proxy.UpstreamBaseURL, "/") + r.URL.Path
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL, nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "build upstream request"})
		return
	}
	req.Header = r.Header.Clone()

	resp, err := s.deps.Fetcher.Do(req, r.URL.Path, body, 0)
	if err != nil {
		s.deps.Logger.Error("transparent proxy failed", zap.Error(err), zap.String("path", r.URL.Path))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream request failed"})
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "read upstream response"})
		return
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(respBody)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// newRequestID generates a request id for a call that didn't supply its
// own (spec.md §6 recognized body field "request_id").
func newRequestID() string {
	return uuid.NewString()
}
