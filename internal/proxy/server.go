// Package proxy forwards chat-completion requests to an upstream provider so
// that browser clients never see the provider API key.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
)

const (
	DefaultUpstream  = "https://api.openai.com/v1/chat/completions"
	DefaultRateLimit = 60
	DefaultTimeout   = 10 * time.Second
	TokenHeader      = "X-API-Token"

	maxBodySize = 1 << 20
)

// ErrMissingAPIKey is returned by New when no upstream key is configured.
var ErrMissingAPIKey = errors.New("proxy: upstream API key not configured")

// Config holds the proxy settings.
type Config struct {
	// Token must match the X-API-Token header. Empty disables the check.
	Token      string
	APIKey     string
	Upstream   string
	RateLimit  int
	Timeout    time.Duration
	CORSOrigin string
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used by the rate limiter.
func WithClock(clk clock.Clock) Option {
	return func(s *Server) {
		s.clock = clk
	}
}

// WithHTTPClient sets the client used to reach the upstream.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		s.client = c
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is the proxy HTTP handler.
type Server struct {
	cfg     Config
	clock   clock.Clock
	client  *http.Client
	logger  *slog.Logger
	limiter *Limiter
}

// New validates cfg and creates a Server.
func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Upstream == "" {
		cfg.Upstream = DefaultUpstream
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}

	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.limiter = NewLimiter(cfg.RateLimit, time.Minute, s.clock)

	if cfg.Token == "" {
		s.logger.Warn("Proxy token not set, /api/openai is open to any caller")
	}
	return s, nil
}

// Handler returns the proxy routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.cors)
	r.Get("/ping", s.ping)
	r.Post("/api/openai", s.forward)
	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+TokenHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Ping received")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Token != "" && r.Header.Get(TokenHeader) != s.cfg.Token {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !s.limiter.Allow() {
		s.logger.Warn("Rate limit exceeded")
		http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	var payload struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	s.logger.Info("Forwarding request", "remote", r.RemoteAddr, "model", payload.Model)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Upstream, bytes.NewReader(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	start := s.clock.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Error("Upstream request timed out", "timeout", s.cfg.Timeout)
			http.Error(w, "Request to upstream API timed out", http.StatusGatewayTimeout)
			return
		}
		s.logger.Error("Error forwarding request", "err", err)
		http.Error(w, fmt.Sprintf("error forwarding request: %v", err), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	s.logger.Info("Upstream response", "status", resp.StatusCode, "duration", s.clock.Since(start))
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Warn("Relaying upstream body failed", "err", err)
	}
}
