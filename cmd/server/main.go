package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"receiving-service/config"
	"receiving-service/internal/api"
	"receiving-service/internal/broker"
	"receiving-service/internal/redisclient"
	"receiving-service/internal/scanner"
	"receiving-service/internal/service"
	"receiving-service/internal/store"
	"receiving-service/internal/util"
	"receiving-service/internal/worker"
	"receiving-service/internal/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting receiving service", zap.String("env", cfg.Server.Env))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	repo, err := store.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.Migrate(context.Background()); err != nil {
		logger.Fatal("Failed to migrate store", zap.Error(err))
	}
	logger.Info("Store ready", zap.String("driver", cfg.Database.Driver))

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var sink broker.EventSink
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog)
		defer producer.Close()
		sink = producer
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicCatalog))
	}
	eventPublisher := broker.NewEventPublisher(sink)

	guard, err := service.NewPassphraseGuard(cfg.Security.WipePassphrase, cfg.Security.WipePassphraseHash)
	if err != nil {
		logger.Fatal("Failed to configure wipe passphrase", zap.Error(err))
	}

	catalogService := service.NewCatalogService(repo, redisClient, cfg.Redis.CacheTTL, eventPublisher, guard)
	ledgerService := service.NewLedgerService(repo, redisClient, eventPublisher)
	sessions := workflow.NewManager(catalogService, ledgerService, cfg.Scanner.SessionTimeout)

	var locker scanner.Locker
	if redisClient != nil {
		locker = redisClient
	}
	scans := scanner.NewCoordinator(
		scanner.NewFileSource(cfg.Scanner.Device),
		scanner.NewImageDecoder(),
		cfg.Scanner.Tick,
		locker,
		cfg.Scanner.Device,
		cfg.Scanner.LockTTL,
	)
	sessions.OnRemove(scans.Forget)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go sessions.Run(workerCtx, 30*time.Second)

	var cacheWorker *worker.CacheWorker
	if cfg.Kafka.Enabled && redisClient != nil {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog, cfg.Kafka.ConsumerGroup)
		cacheWorker = worker.NewCacheWorker(consumer, redisClient)
		go func() {
			if err := cacheWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				logger.Error("Cache worker error", zap.Error(err))
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(catalogService, ledgerService, sessions, scans)
	handler.AddReadinessCheck("store", repo.Ping)
	if redisClient != nil {
		handler.AddReadinessCheck("redis", redisClient.Ping)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	scans.Shutdown()
	workerCancel()
	if cacheWorker != nil {
		cacheWorker.Stop()
	}

	logger.Info("Server exited")
}
