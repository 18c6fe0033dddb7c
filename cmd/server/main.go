package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/catalog"
	"storefront/internal/kvstore"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, "storefront"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("catalog_source", cfg.Storefront.CatalogSource),
		zap.String("storage_backend", cfg.Storefront.StorageBackend),
	)

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()

	var source catalog.Source = catalog.NewEmbeddedSource()
	if cfg.Storefront.CatalogSource == config.CatalogSourcePostgres {
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("Database connected")

		if cfg.Storefront.CatalogSeed {
			if err := seedCatalog(ctx, db); err != nil {
				logger.Fatal("Failed to seed catalog", zap.Error(err))
			}
			logger.Info("Catalog seeded from embedded data")
		}
		source = db
	}

	var kv kvstore.Store
	switch cfg.Storefront.StorageBackend {
	case config.StorageBackendMemory:
		kv = kvstore.NewMemory()
		logger.Warn("Using in-memory ledger storage, carts will not survive a restart")
	default:
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Redis connected")
		kv = redisClient
	}

	catalogStore := catalog.NewStore(source)
	catalogService := service.NewCatalogService(catalogStore, cfg.Storefront.PageSize)
	if err := catalogService.Load(ctx); err != nil {
		logger.Error("Catalog unavailable, serving without products", zap.Error(err))
	}

	var publisher service.EventPublisher
	var activityWorker *worker.ActivityWorker

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		activityWorker = worker.NewActivityWorker(consumer)
		go func() {
			if err := activityWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Activity worker error", zap.Error(err))
			}
		}()
	}

	ledgerService := service.NewLedgerService(kv, catalogStore, publisher, service.LedgerConfig{
		CartKeyPrefix:        cfg.Storefront.CartKeyPrefix,
		WishlistKeyPrefix:    cfg.Storefront.WishlistKeyPrefix,
		IdempotencyKeyPrefix: cfg.Storefront.IdempotencyKeyPrefix,
		IdempotencyTTL:       cfg.Storefront.IdempotencyTTL,
		LockKeyPrefix:        cfg.Storefront.SessionLockPrefix,
		LockTTL:              cfg.Storefront.SessionLockTTL,
		LockWait:             cfg.Storefront.SessionLockWait,
	})

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(catalogService, ledgerService, cfg.Storefront.RelatedLimit)
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
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if activityWorker != nil {
		if err := activityWorker.Stop(); err != nil {
			logger.Warn("Error stopping activity worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// seedCatalog copies the embedded catalog into Postgres
func seedCatalog(ctx context.Context, db *store.Store) error {
	products, err := catalog.NewEmbeddedSource().Products(ctx)
	if err != nil {
		return err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	return db.UpsertProducts(ctx, products)
}
