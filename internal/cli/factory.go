package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/daydream"
	"github.com/aretw0/daydream/internal/config"
	"github.com/aretw0/daydream/pkg/adapters/file"
	"github.com/aretw0/daydream/pkg/adapters/memory"
	"github.com/aretw0/daydream/pkg/adapters/openai"
	"github.com/aretw0/daydream/pkg/adapters/redis"
	"github.com/aretw0/daydream/pkg/adapters/sqlite"
	"github.com/aretw0/daydream/pkg/observability"
	"github.com/aretw0/daydream/pkg/persistence/middleware"
	"github.com/aretw0/daydream/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Backend is an opened session store plus the resources it holds.
type Backend struct {
	Store  ports.StateStore
	Locker ports.DistributedLocker
	closer io.Closer
}

// Close releases the backend connection, if any.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// OpenBackend opens the configured store and wraps it with the encryption
// and metrics middlewares. reg may be nil when metrics are not exported.
func OpenBackend(ctx context.Context, cfg config.StoreConfig, reg prometheus.Registerer) (*Backend, error) {
	b := &Backend{}

	switch cfg.Backend {
	case config.BackendMemory:
		b.Store = memory.NewStore()
	case config.BackendFile:
		b.Store = file.New(cfg.Path)
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Store, b.closer = s, s
	case config.BackendRedis:
		ttl, err := config.ParseDuration(cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("store.ttl: %w", err)
		}
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithPrefix(cfg.Prefix), redis.WithTTL(ttl))
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis %s unreachable: %w", cfg.RedisAddr, err)
		}
		b.Store, b.closer = s, s
		if cfg.Lock {
			b.Locker = redis.NewLocker(s.Client(), cfg.Prefix)
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	var mws []middleware.Middleware
	if cfg.Metrics && reg != nil {
		mws = append(mws, middleware.NewMetricsMiddleware(middleware.NewStoreMetrics(reg)))
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("store.encryption_key: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, enc)
	}
	b.Store = middleware.Chain(b.Store, mws...)
	return b, nil
}

// NewIdeator returns the OpenAI client when configured, otherwise the
// offline ideator.
func NewIdeator(cfg *config.Config, logger *slog.Logger) (ports.Ideator, error) {
	if !cfg.UseOpenAI() {
		logger.Info("Using offline ideator")
		return memory.NewIdeator(), nil
	}

	timeout, err := config.ParseDuration(cfg.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("llm.timeout: %w", err)
	}
	opts := []openai.Option{
		openai.WithModel(cfg.LLM.Model),
		openai.WithMaxTokens(cfg.LLM.MaxTokens),
		openai.WithTemperature(cfg.LLM.Temperature),
		openai.WithTimeout(timeout),
		openai.WithLogger(logger),
	}
	if cfg.LLM.ProxyURL != "" {
		opts = append(opts, openai.WithProxy(cfg.LLM.ProxyURL, cfg.LLM.ProxyToken))
	} else {
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm: %w", openai.ErrNotConfigured)
		}
		opts = append(opts, openai.WithAPIKey(cfg.LLM.APIKey), openai.WithBaseURL(cfg.LLM.BaseURL))
	}
	return openai.New(opts...), nil
}

// EngineOptions carries the per-command pieces of engine construction.
type EngineOptions struct {
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Renderer   daydream.RenderFunc
}

// NewEngine builds a daydream.Engine from cfg. The returned Backend must be
// closed by the caller.
func NewEngine(ctx context.Context, cfg *config.Config, opts EngineOptions) (*daydream.Engine, *Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := OpenBackend(ctx, cfg.Store, opts.Registerer)
	if err != nil {
		return nil, nil, err
	}
	ideator, err := NewIdeator(cfg, logger)
	if err != nil {
		return nil, nil, errors.Join(err, backend.Close())
	}
	timeout, err := config.ParseDuration(cfg.LLM.Timeout)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("llm.timeout: %w", err), backend.Close())
	}

	hooks := observability.LoggingHooks(logger)
	if opts.Registerer != nil {
		hooks = observability.Combine(hooks, observability.NewMetrics(opts.Registerer).Hooks())
	}

	engineOpts := []daydream.Option{
		daydream.WithStore(backend.Store),
		daydream.WithIdeator(ideator),
		daydream.WithPolicy(cfg.Policy()),
		daydream.WithLifecycleHooks(hooks),
		daydream.WithLogger(logger),
	}
	if backend.Locker != nil {
		engineOpts = append(engineOpts, daydream.WithLocker(backend.Locker))
	}
	if timeout > 0 {
		engineOpts = append(engineOpts, daydream.WithTimeout(timeout))
	}
	if opts.Renderer != nil {
		engineOpts = append(engineOpts, daydream.WithRenderer(opts.Renderer))
	}
	return daydream.New(engineOpts...), backend, nil
}
