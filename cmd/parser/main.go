package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/cache"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/chunk"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/consumer"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/dispatch"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/handler"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/submit"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/memory"
	pgstore "github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/postgres"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/sqlite"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("parser service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("parser service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting parser service",
		"port", cfg.Server.Port,
		"workers", cfg.Parser.Workers,
		"min_chunk_size", cfg.Parser.MinChunkSize,
		"store", cfg.Store.Driver,
	)

	m := metrics.New(prometheus.DefaultRegisterer)

	docs, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer docs.Close()

	checker := health.NewChecker()
	checker.Register("store", health.PingCheck(docs.Ping, health.StatusDown))

	parseCache, redisClient, err := openCache(cfg, m)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
	}

	pool := dispatch.NewPool(cfg.Parser.Workers)
	defer pool.Close()

	adapter := submit.New(docs, resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Submit.FailureThreshold,
		ResetTimeout:     cfg.Submit.ResetTimeout,
	}, m)
	checker.Register("submit_circuit", health.ConditionCheck(func() (bool, string) {
		state := adapter.Breaker().GetState()
		return state == resilience.StateClosed, "circuit " + state.String()
	}, health.StatusDegraded))

	engine := parser.NewEngine(
		chunk.NewPlanner(cfg.Parser.MinChunkSize, cfg.Parser.Workers),
		dispatch.NewController(pool),
		adapter,
		parser.WithCache(parseCache),
		parser.WithTimeout(cfg.Parser.ParseTimeout),
		parser.WithMetrics(m),
	)

	mux := http.NewServeMux()
	handler.New(engine, docs, cfg.Parser.MaxContentBytes).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.RateLimit(limiter)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("parser service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if limiter != nil {
		g.Go(func() error {
			return limiter.Run(gctx, 5*time.Minute)
		})
	}
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Port)
		})
	}
	if cfg.Kafka.Enabled {
		checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}, health.StatusDegraded))
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		h := consumer.NewHandler(engine, docs, producer, resilience.RetryConfig{
			MaxAttempts:  cfg.Submit.RetryAttempts,
			InitialDelay: cfg.Submit.RetryDelay,
		})
		parseConsumer := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentParse, h.Handle))
		g.Go(func() error {
			slog.Info("consuming parse requests",
				"topic", cfg.Kafka.Topics.DocumentParse,
				"group", cfg.Kafka.ConsumerGroup,
			)
			return parseConsumer.Start(gctx)
		})
	}
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		s := pgstore.NewStore(client)
		if err := s.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, err
		}
		slog.Info("postgres document store ready", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return s, nil
	case "sqlite":
		s, err := sqlite.NewStore(cfg.SQLite.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		slog.Info("sqlite document store ready", "path", s.Path())
		return s, nil
	case "memory":
		slog.Warn("using in-memory document store, data is lost on restart")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// openCache falls back to no cache when redis is configured but unreachable,
// as the searcher does.
func openCache(cfg *config.Config, m *metrics.Metrics) (*cache.Cache, *pkgredis.Client, error) {
	switch cfg.Cache.Backend {
	case "lru":
		backend, err := cache.NewLRU(cfg.Cache.Size)
		if err != nil {
			return nil, nil, fmt.Errorf("creating lru cache: %w", err)
		}
		slog.Info("parse cache enabled", "backend", "lru", "size", cfg.Cache.Size)
		return cache.New(backend, m), nil, nil
	case "redis":
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, parse caching disabled", "error", err)
			return nil, nil, nil
		}
		slog.Info("parse cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		return cache.New(cache.NewRedis(client, cfg.Redis.CacheTTL), m), client, nil
	}
	return nil, nil, nil
}
