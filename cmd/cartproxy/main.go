// Cart Proxy - storefront cart API over a Sylius shop.
// Serves REST and MCP; visitor state lives in the session store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cart-proxy/internal/config"
	"cart-proxy/internal/handler"
	"cart-proxy/internal/metrics"
	"cart-proxy/internal/middleware"
	"cart-proxy/internal/negotiation"
	"cart-proxy/internal/session"
	"cart-proxy/internal/sylius"
	"cart-proxy/internal/tracing"
	"cart-proxy/internal/transport"
	"cart-proxy/internal/user"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("store_id", cfg.StoreID),
		slog.String("environment", cfg.Environment),
		slog.String("sylius_url", cfg.Store.SyliusURL),
		slog.String("channel", cfg.Store.Channel),
		slog.String("session_store", cfg.Session.Backend),
		slog.Bool("tracing", cfg.Tracing.Enabled()),
	)

	if cfg.Tracing.Enabled() {
		shutdownTracing, err := tracing.Init(ctx, tracing.Config{
			ServiceName:   "cart-proxy",
			Endpoint:      cfg.Tracing.Endpoint,
			SamplingRatio: cfg.Tracing.SamplingRatio,
			Environment:   cfg.Environment,
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn("flushing traces", slog.String("error", err.Error()))
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	fingerprint, err := transport.ParseFingerprint(cfg.Store.Fingerprint)
	if err != nil {
		return err
	}
	shop, err := sylius.New(sylius.Config{
		BaseURL:      cfg.Store.SyliusURL,
		AccessToken:  cfg.Store.AccessToken,
		ClientID:     cfg.Store.ClientID,
		ClientSecret: cfg.Store.ClientSecret,
		Username:     cfg.Store.Username,
		Password:     cfg.Store.Password,
		Channel:      cfg.Store.Channel,
		LocaleCode:   cfg.Store.Locale,
		Fingerprint:  fingerprint,
		Metrics:      m,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("creating sylius client: %w", err)
	}

	store, rdb, closeStore, err := createSessionStore(ctx, cfg.Session, cfg.Tracing.Enabled())
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	defer closeStore()

	rateLimiter, err := createRateLimiter(cfg.Edge, rdb)
	if err != nil {
		return fmt.Errorf("creating rate limiter: %w", err)
	}

	users, err := createUserProvider(cfg.Store)
	if err != nil {
		return fmt.Errorf("creating user provider: %w", err)
	}

	h := handler.New(handler.Config{
		Carts:          shop.Carts(),
		Items:          shop.Items(),
		Sessions:       store,
		Users:          users,
		Cookie:         cfg.Session.Cookie(),
		AnonymousEmail: cfg.Store.AnonymousEmail,
		Metrics:        m,
		Gatherer:       reg,
		Logger:         logger,
	})

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: request id → recovery → logging → metrics → [cors] → [rate limit] → negotiation → handler
	// Recovery wraps logging so panics there are caught too
	chain := []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.Metrics(m),
	}
	if len(cfg.Edge.CORSAllowedOrigins) > 0 {
		chain = append(chain, middleware.CORS(cfg.Edge.CORSAllowedOrigins))
	}
	if rateLimiter != nil {
		chain = append(chain, middleware.RateLimit(rateLimiter, logger))
	}
	chain = append(chain, negotiation.Middleware(negotiation.ServerVersion, logger))

	httpHandler := middleware.Chain(chain...)(mux)
	if cfg.Tracing.Enabled() {
		httpHandler = otelhttp.NewHandler(httpHandler, "cart-proxy")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("addr", server.Addr),
			slog.String("api_version", negotiation.ServerVersion),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// createSessionStore builds the configured session backend. The redis client
// is returned for the rate limiter and is nil for the memory backend. The
// returned func releases the store.
func createSessionStore(ctx context.Context, cfg config.SessionConfig, traced bool) (session.Store, *redis.Client, func(), error) {
	switch cfg.Backend {
	case config.SessionRedis:
		store, err := session.NewRedisStoreFromURL(cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, nil, nil, err
		}
		if traced {
			if err := redisotel.InstrumentTracing(store.Client()); err != nil {
				store.Close()
				return nil, nil, nil, fmt.Errorf("instrumenting redis: %w", err)
			}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("pinging redis: %w", err)
		}
		return store, store.Client(), func() { store.Close() }, nil
	case config.SessionMemory:
		return session.NewMemoryStore(cfg.TTL), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported session store: %s", cfg.Backend)
	}
}

// createRateLimiter returns nil when no rate is configured. Counters share
// the session redis when there is one so limits hold across replicas.
func createRateLimiter(cfg config.EdgeConfig, rdb *redis.Client) (*limiter.Limiter, error) {
	if cfg.RateLimit == "" {
		return nil, nil
	}
	var store limiter.Store
	if rdb != nil {
		var err error
		store, err = limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "cartproxy:ratelimit"})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStore()
	}
	return middleware.NewLimiter(cfg.RateLimit, store, cfg.TrustProxy)
}

// createUserProvider verifies storefront tokens when a secret is configured.
// Without one every visitor is anonymous.
func createUserProvider(cfg config.StoreConfig) (user.Provider, error) {
	if cfg.JWTSecret == "" {
		return user.AnonymousProvider{}, nil
	}
	return user.NewJWTProvider(user.JWTConfig{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: 30 * time.Second,
	})
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
