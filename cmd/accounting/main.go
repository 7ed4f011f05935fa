package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"task-ledger/internal/api"
	"task-ledger/internal/config"
	"task-ledger/internal/consumer"
	"task-ledger/internal/core/postgres/repository"
	"task-ledger/internal/domain"
	"task-ledger/internal/envelope"
	redisinfra "task-ledger/internal/infrastructure/redis"
	"task-ledger/internal/ledger"
	"task-ledger/internal/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Configuration and logging
	cfg, err := config.Load("accounting")
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}
	logging.InitLogger(logging.Options{Service: "accounting", Level: cfg.LogLevel, File: cfg.LogFile})
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting accounting service...")

	// 2. Database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Failed to connect to database: %v", err)
	}
	if err := repository.MigrateAccounting(db); err != nil {
		logging.Logger.Fatalf("Event ID: DB_MIGRATION_FAILED, Description: %v", err)
	}

	// 3. Broker subscription
	rdb, err := redisinfra.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		logging.Logger.Fatalf("Event ID: REDIS_CONNECTION_FAILED, Description: %v", err)
	}
	defer rdb.Close()

	sub := redisinfra.NewStreamSubscriber(rdb, redisinfra.SubscriberConfig{
		Streams:     []string{domain.RoutingTaskStream, domain.RoutingTaskLifecycle},
		Group:       cfg.ConsumerGroup,
		Consumer:    cfg.ConsumerName,
		Block:       cfg.ConsumerBlock,
		ReclaimIdle: cfg.ReclaimIdle,
	})
	if err := sub.EnsureGroups(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: CONSUMER_GROUP_FAILED, Description: %v", err)
	}

	// 4. Handlers
	schemas, err := envelope.LoadRegistry()
	if err != nil {
		logging.Logger.Fatalf("Event ID: SCHEMA_LOAD_FAILED, Description: %v", err)
	}
	handlers := consumer.InitRegistry(
		ledger.NewWriter(repository.NewTransactionRepository(db), cfg.AssignmentFee),
		ledger.NewProjectionWriter(repository.NewProjectionRepository(db)),
	)
	runner := consumer.NewRunner(sub, consumer.NewDispatcher(handlers, schemas), cfg.ReclaimIdle)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Start(ctx)
	}()

	// 5. Health and metrics
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.NewRouter(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Shutting down accounting service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_ERROR, Description: %v", err)
	}
	// Let the in-flight entry finish; anything unacked is reclaimed later.
	wg.Wait()
}
