package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/daydream/internal/config"
	"github.com/aretw0/daydream/internal/proxy"
	httpAdapter "github.com/aretw0/daydream/pkg/adapters/http"
	"github.com/aretw0/daydream/pkg/adapters/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// RunServe starts the session API and, when configured, the metrics endpoint.
// It returns after ctx is cancelled and both servers have shut down.
func RunServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	streams := httpAdapter.NewStreamManager(logger)
	engine, backend, err := NewEngine(ctx, cfg, EngineOptions{
		Logger:     logger,
		Registerer: reg,
		Renderer:   streams.Publish,
	})
	if err != nil {
		return fmt.Errorf("error initializing daydream: %w", err)
	}
	defer backend.Close()

	var origins []string
	if cfg.Server.CORSOrigin != "" && cfg.Server.CORSOrigin != "*" {
		origins = []string{cfg.Server.CORSOrigin}
	}
	handler, err := httpAdapter.NewHandler(engine,
		httpAdapter.WithStreams(streams),
		httpAdapter.WithLogger(logger),
		httpAdapter.WithAllowedOrigins(origins...),
	)
	if err != nil {
		return err
	}

	servers := []*http.Server{{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}}
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		servers = append(servers, &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}

	logger.Info("Starting Daydream Server", "addr", cfg.Server.Addr, "metrics_addr", cfg.Server.MetricsAddr, "store", cfg.Store.Backend)
	return serveAll(ctx, logger, servers...)
}

// RunProxy starts the upstream LLM proxy.
func RunProxy(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	timeout, err := config.ParseDuration(cfg.Proxy.Timeout)
	if err != nil {
		return fmt.Errorf("proxy.timeout: %w", err)
	}
	p, err := proxy.New(proxy.Config{
		Token:      cfg.Proxy.Token,
		APIKey:     cfg.Proxy.APIKey,
		Upstream:   cfg.Proxy.Upstream,
		RateLimit:  cfg.Proxy.RateLimit,
		Timeout:    timeout,
		CORSOrigin: cfg.Proxy.CORSOrigin,
	}, proxy.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info("Starting LLM proxy", "addr", cfg.Proxy.Addr, "rate_limit", cfg.Proxy.RateLimit, "cors_origin", cfg.Proxy.CORSOrigin)
	return serveAll(ctx, logger, &http.Server{Addr: cfg.Proxy.Addr, Handler: p.Handler(), ReadHeaderTimeout: 10 * time.Second})
}

// RunMCP serves the engine over MCP using the stdio or sse transport.
func RunMCP(ctx context.Context, cfg *config.Config, logger *slog.Logger, transport string, port int) error {
	engine, backend, err := NewEngine(ctx, cfg, EngineOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("error initializing daydream: %w", err)
	}
	defer backend.Close()

	srv := mcp.NewServer(engine, logger)
	switch transport {
	case "stdio":
		logger.Info("Starting Daydream MCP Server (Stdio)")
		return srv.ServeStdio()
	case "sse":
		return srv.ServeSSE(ctx, port)
	}
	return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
}

// serveAll runs every server until ctx is cancelled or one of them fails,
// then shuts them all down.
func serveAll(ctx context.Context, logger *slog.Logger, servers ...*http.Server) error {
	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		ln := listeners[i]
		// Long-lived requests (SSE) end when the servers stop.
		srv.BaseContext = func(net.Listener) context.Context { return ctx }
		g.Go(func() error {
			logger.Info("Listening", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "addr", srv.Addr, "err", err)
				return srv.Close()
			}
			return nil
		})
	}
	err := g.Wait()
	logger.Info("Servers stopped")
	return err
}
