package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"redstream/internal/redis"
	"redstream/internal/stream"
	"redstream/internal/stream/client"
	"redstream/internal/stream/metrics"
	"redstream/internal/stream/producer"
	"redstream/internal/stream/tracing"
)

type Config struct {
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisUsername string `env:"REDIS_USERNAME" envDefault:""`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Stream       string        `env:"STREAM" envDefault:"orders"`
	Group        string        `env:"GROUP" envDefault:"billing"`
	Consumer     string        `env:"CONSUMER" envDefault:"worker-1"`
	OnFailure    string        `env:"ON_FAILURE" envDefault:"ack"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`

	Demand     int           `env:"DEMAND" envDefault:"50"`
	SeedCount  int           `env:"SEED_COUNT" envDefault:"100"`
	SeedRounds int           `env:"SEED_ROUNDS" envDefault:"1"`
	RunFor     time.Duration `env:"RUN_FOR" envDefault:"30s"`

	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsPort    int           `env:"METRICS_PORT" envDefault:"9090"`
	MetricsTimeout time.Duration `env:"METRICS_TIMEOUT" envDefault:"30s"`

	TracingServiceName    string  `env:"TRACING_SERVICE_NAME" envDefault:"redstream-e2e"`
	TracingServiceVersion string  `env:"TRACING_SERVICE_VERSION" envDefault:"1.0.0"`
	OTLPEndpoint          string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate     float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse environment variables: %v", err)
	}

	onFailure, err := stream.ParseAckPolicy(cfg.OnFailure)
	if err != nil {
		log.Fatalf("invalid ON_FAILURE: %v", err)
	}

	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", cfg.LogLevel, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := redis.Connect(ctx, redis.Options{
		Addr:        cfg.RedisAddr,
		Username:    cfg.RedisUsername,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 10 * time.Second,
		ReadTimeout: 5 * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	if err := redis.EnsureGroup(ctx, rdb, cfg.Stream, cfg.Group, "$"); err != nil {
		log.Fatalf("failed to ensure consumer group: %v", err)
	}

	metricsRegistry := metrics.NewRegistry()
	metricsRegistry.SetSystemInfo("e2e-test", time.Now().Format(time.RFC3339))

	metricsServer := metrics.NewServer(
		metrics.ServerConfig{
			Port:    cfg.MetricsPort,
			Timeout: cfg.MetricsTimeout,
		},
		metricsRegistry,
		logger,
	)

	go func() {
		if err := metricsServer.Start(context.Background()); err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("metrics server started",
		zap.String("endpoint", fmt.Sprintf("http://localhost:%d/metrics", cfg.MetricsPort)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.MetricsPort)),
	)

	tracingConfig := tracing.Config{
		ServiceName:    cfg.TracingServiceName,
		ServiceVersion: cfg.TracingServiceVersion,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
	}
	tracer, tracingCleanup, err := tracing.NewTracer(tracingConfig)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingCleanup(shutdownCtx); err != nil {
			logger.Error("failed to cleanup tracing", zap.Error(err))
		}
	}()

	baseClient, err := client.New(client.Options{
		Redis:     rdb,
		Stream:    cfg.Stream,
		Group:     cfg.Group,
		Consumer:  cfg.Consumer,
		OnFailure: onFailure,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create stream client: %v", err)
	}
	metricsClient := client.NewMetricsClient(baseClient, metricsRegistry, cfg.Stream, cfg.Group)
	streamClient := client.NewTracedClient(metricsClient, tracer, cfg.Stream, cfg.Group)

	batches := make(chan []stream.Message, 1)

	prod, err := producer.New(producer.Options{
		Client: streamClient,
		Handler: func(ctx context.Context, msgs []stream.Message) {
			select {
			case batches <- msgs:
			case <-ctx.Done():
			}
		},
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		OnFetchError: func(err error) {
			logger.Error("upstream fetch failed", zap.Error(err))
		},
		OnDemandChange: func(outstanding int) {
			metricsRegistry.UpdateDemand(cfg.Stream, cfg.Group, float64(outstanding))
		},
	})
	if err != nil {
		log.Fatalf("failed to create producer: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			logger.Info("signal received, draining")
			prod.PrepareForDrain()
			metricsRegistry.RecordDrain()
			cancel()
		case <-ctx.Done():
		}
	}()

	now := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := prod.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return seed(gctx, logger, rdb, cfg)
	})

	g.Go(func() error {
		return process(gctx, logger, streamClient, prod, batches)
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-time.After(cfg.RunFor):
			logger.Info("run duration elapsed, draining")
			prod.PrepareForDrain()
			metricsRegistry.RecordDrain()
			cancel()
			return nil
		}
	})

	// initial credit; further credit is re-issued by the pipeline as it
	// finishes batches
	prod.Ask(cfg.Demand)

	if err := g.Wait(); err != nil {
		logger.Error("error in goroutine", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop metrics server", zap.Error(err))
	}

	fmt.Printf("\n\n TEST COMPLETE IN %.2f seconds\n", time.Since(now).Seconds())
}

// process is the downstream pipeline: it handles each emitted batch with
// bounded concurrency, acks per message policy, and returns credit for what
// it finished.
func process(ctx context.Context, logger *zap.Logger, streamClient stream.Client, prod *producer.Producer, batches <-chan []stream.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-batches:
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(8)
			for _, msg := range batch {
				g.Go(func() error {
					// Simulate message processing; roughly 1 in 10 fails.
					time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)
					failed := rand.Intn(10) == 0

					if failed && rand.Intn(2) == 0 {
						// Exercise the per-message policy override path.
						if err := msg.Ack.SetOnFailure(stream.AckPolicyIgnore); err != nil {
							logger.Warn("policy override rejected", zap.Error(err))
						}
					}

					if failed && msg.Ack.OnFailure() == stream.AckPolicyIgnore {
						logger.Debug("leaving failed message pending", zap.String("messageId", msg.ID))
						return nil
					}

					if err := streamClient.Ack(gctx, msg); err != nil {
						logger.Error("failed to ack message", zap.String("messageId", msg.ID), zap.Error(err))
						return err
					}

					return nil
				})
			}

			if err := g.Wait(); err != nil {
				logger.Error("failed to process batch", zap.Error(err))
			}

			logger.Info("batch processed", zap.Int("count", len(batch)))
			prod.Ask(len(batch))
		}
	}
}

// seed publishes synthetic order events onto the stream for the producer to
// pick up.
func seed(ctx context.Context, logger *zap.Logger, rdb *goredis.Client, cfg Config) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	rounds := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for i := 0; i < cfg.SeedCount; i++ {
				values := map[string]any{
					"order_id":    fmt.Sprintf("ORD-%04d", i+1),
					"customer_id": strconv.Itoa(rand.Intn(10)),
					"amount":      fmt.Sprintf("%.2f", 10.0+rand.Float64()*990.0),
					"timestamp":   time.Now().Format(time.RFC3339),
				}
				if err := rdb.XAdd(ctx, &goredis.XAddArgs{Stream: cfg.Stream, Values: values}).Err(); err != nil {
					return fmt.Errorf("failed to seed stream: %w", err)
				}
			}

			logger.Info(fmt.Sprintf("seeded %d entries", cfg.SeedCount))
			rounds++
			if rounds >= cfg.SeedRounds {
				logger.Info("seed rounds complete, stopping seeder")
				return nil
			}
		}
	}
}
