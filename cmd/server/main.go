package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	webAdapter "smeaudit/internal/adapters/web"
	"smeaudit/internal/ai"
	"smeaudit/internal/app"
	"smeaudit/internal/cache"
	"smeaudit/internal/config"
	"smeaudit/internal/db"
	"smeaudit/internal/events"
	"smeaudit/internal/logger"
	"smeaudit/migrations"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := kingpin.Flag("config", "Path to the application config file").Short('c').Default("config.yml").String()
	skipMigrations := kingpin.Flag("skip-migrations", "Do not apply pending migrations on start").Bool()
	kingpin.Parse()

	_ = godotenv.Load()

	cfg, k, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.IsProdMode {
		k.Print()
	}

	zl, err := logger.New(cfg.Application, cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer func() {
		_ = zl.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *skipMigrations, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, skipMigrations bool, logger *zap.Logger) error {
	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	if !skipMigrations {
		if err := migrations.Apply(ctx, pool, logger); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o750); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	tol, err := cfg.Matching.Tolerances()
	if err != nil {
		return err
	}
	svc := app.NewServices(pool, tol)

	g, ctx := errgroup.WithContext(ctx)

	// Pending confirmations live in Redis when it is configured so every replica sees them.
	var pending cache.PendingStore
	if cfg.Redis.Addr != "" {
		rc, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		pending = cache.NewRedisPendingStore(rc, cfg.Chat.ConfirmationTTL)
		logger.Info("pending confirmations stored in redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		mem := cache.NewMemoryPendingStore(cfg.Chat.ConfirmationTTL)
		mem.StartPurge(ctx, 5*time.Minute)
		pending = mem
		logger.Info("pending confirmations stored in memory")
	}

	var publisher events.Publisher = events.NopPublisher{}
	var kafkaMetrics http.Handler
	if cfg.Kafka.Enabled() {
		metrics := kprom.NewMetrics("smeaudit")
		kafkaMetrics = metrics.Handler()

		kp, err := events.NewKafkaPublisher(events.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.UploadTopic,
		}, metrics, logger)
		if err != nil {
			return err
		}
		publisher = kp
		defer kp.Close()

		consumer, err := events.NewConsumer(events.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			Name:           cfg.Kafka.ConsumerGroup,
			Topic:          cfg.Kafka.StatusTopic,
			RecordsPerPoll: cfg.Kafka.RecordsPerPoll,
		}, events.NewStatusProcessor(svc.Documents, logger), metrics, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return consumer.Poll(ctx)
		})
		logger.Info("document events enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// A nil Runner, not a typed-nil *ai.Agent, marks the assistant as unconfigured.
	var runner app.Runner
	if cfg.OpenAI.APIKey != "" {
		runner = ai.NewAgent(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxToolRounds, logger)
	} else {
		logger.Warn("openai api key is not set; the chat assistant is disabled")
	}
	chatSvc := app.NewChatService(svc, runner, pending, cfg.Chat.ConfirmationTTL, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := webAdapter.NewHandler(svc, chatSvc, publisher, webAdapter.Options{
		JWTSecret:           cfg.Auth.JWTSecret,
		TokenTTL:            cfg.Auth.TokenTTL,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		MaxBodyBytes:        cfg.Server.MaxBodyBytes,
		UploadDir:           cfg.Uploads.Dir,
		MaxFileBytes:        cfg.Uploads.MaxFileBytes,
		MaxFiles:            cfg.Uploads.MaxFiles,
		UploadRetention:     cfg.Uploads.Retention,
		Metrics:             webAdapter.NewHTTPMetrics("smeaudit", reg),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		KafkaMetricsHandler: kafkaMetrics,
	}, logger)
	handler.StartUploadCleanup(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
