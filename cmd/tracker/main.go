package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"task-ledger/internal/api"
	"task-ledger/internal/api/handler"
	"task-ledger/internal/assignment"
	"task-ledger/internal/config"
	"task-ledger/internal/core/postgres/repository"
	"task-ledger/internal/envelope"
	redisinfra "task-ledger/internal/infrastructure/redis"
	"task-ledger/internal/logging"
	"task-ledger/internal/publisher"
	"task-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Configuration and logging
	cfg, err := config.Load("tracker")
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}
	logging.InitLogger(logging.Options{Service: "tracker", Level: cfg.LogLevel, File: cfg.LogFile})
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting tracker service...")

	// 2. Database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Failed to connect to database: %v", err)
	}
	if err := repository.MigrateTracker(db); err != nil {
		logging.Logger.Fatalf("Event ID: DB_MIGRATION_FAILED, Description: %v", err)
	}

	// 3. Broker
	rdb, err := redisinfra.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		logging.Logger.Fatalf("Event ID: REDIS_CONNECTION_FAILED, Description: %v", err)
	}
	defer rdb.Close()

	// 4. Event contract
	schemas, err := envelope.LoadRegistry()
	if err != nil {
		logging.Logger.Fatalf("Event ID: SCHEMA_LOAD_FAILED, Description: %v", err)
	}
	codec := envelope.NewCodec(cfg.EventProducer, schemas)

	// 5. Outbox relay
	gateway := publisher.NewGateway(codec, redisinfra.NewStreamPublisher(rdb, cfg.StreamMaxLen))
	relayCfg := publisher.DefaultRelayConfig()
	relayCfg.Interval = cfg.RelayInterval
	relayCfg.Batch = cfg.RelayBatch
	relay := publisher.NewRelay(repository.NewOutboxRepository(db), gateway, relayCfg)
	relay.StartPool(ctx, cfg.RelayWorkers)

	// 6. Service and routes
	users := repository.NewUserRepository(db)
	taskSvc := service.NewTaskService(repository.NewTaskRepository(db), assignment.NewResolver(users), codec)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewTrackerRouter(users, handler.NewTaskHandler(taskSvc))

	// 7. Serve until signalled
	serve(ctx, cfg.HTTPAddr, router)
}

func serve(ctx context.Context, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Shutting down tracker service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_ERROR, Description: %v", err)
	}
}
