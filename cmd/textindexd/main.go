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

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/gateway/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/cache"
	searchhandler "github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textindex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("textindexd failed", "error", err)
		os.Exit(1)
	}
	slog.Info("textindexd stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting textindexd",
		"port", cfg.Server.Port,
		"index", cfg.Index.Name,
		"storage", cfg.Index.Storage,
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	checker := health.NewChecker(0)

	dir, pg, err := openDirectory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening index storage: %w", err)
	}
	if pg != nil {
		defer pg.Close()
		checker.Register("postgres", health.PingCheck(pg.Ping))
	}

	s, err := loadSchema(cfg.Index.SchemaFile)
	if err != nil {
		return err
	}
	compression, err := textindex.ParseCompression(cfg.Index.Compression)
	if err != nil {
		return err
	}
	idx, err := textindex.Open(dir, s,
		textindex.WithMetrics(m),
		textindex.WithCompression(compression),
		textindex.WithLogger(logger.WithComponent("textindex").With("index", cfg.Index.Name)),
	)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	checker.Register("index", health.IndexCheck(idx))

	var notifier indexer.CommitNotifier
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexCommitted)
		defer producer.Close()
		notifier = publisher.New(cfg.Index.Name, producer)
	}
	engine := indexer.NewEngine(idx, cfg.Index, notifier)
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Error("closing engine", "error", err)
		}
	}()

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(cfg.Index.Name, redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var writeLimiter *ratelimit.Limiter
	if cfg.Server.WriteRateLimit > 0 {
		writeLimiter = ratelimit.New(cfg.Server.WriteRateLimit, time.Minute)
		writeLimiter.StartSweeper(5*time.Minute, ctx.Done())
	}

	h := router.New(router.Deps{
		Search: searchhandler.New(idx, queryCache, searchhandler.Options{
			DefaultLimit:  cfg.Search.DefaultLimit,
			MaxResults:    cfg.Search.MaxResults,
			DefaultFields: cfg.Search.DefaultFields,
			SlowQuery:     cfg.Search.SlowQuery,
		}),
		Ingest:         ingesthandler.New(engine),
		Health:         checker,
		Metrics:        m,
		RequestTimeout: cfg.Server.RequestTimeout,
		WriteLimiter:   writeLimiter,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	g, gctx := errgroup.WithContext(ctx)
	engine.StartCommitLoop(gctx)

	if cfg.Kafka.Enabled {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, consumer.HandleMessage(engine, m), kafka.WithManualCommit())
		ic := consumer.New(kc)
		g.Go(func() error {
			return ic.Start(gctx)
		})
		slog.Info("consuming ingest events",
			"topic", cfg.Kafka.Topics.DocumentIngest,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	g.Go(func() error {
		slog.Info("textindexd listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
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

	return g.Wait()
}
