package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ticketrush/reservation-engine/internal/lock"
	"github.com/ticketrush/reservation-engine/internal/repository"
	"github.com/ticketrush/reservation-engine/internal/worker"
	"github.com/ticketrush/reservation-engine/pkg/config"
	"github.com/ticketrush/reservation-engine/pkg/database"
	"github.com/ticketrush/reservation-engine/pkg/logger"
	pkgredis "github.com/ticketrush/reservation-engine/pkg/redis"
)

// Standalone expiry sweeper. The API server runs its own sweep loop;
// this binary exists for deployments that want reclamation isolated
// from request serving.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: "expiry-sweeper",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting expiry sweeper...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      10,
		MinConns:      2,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      20,
		MinIdleConns:  5,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	orderRepo := repository.NewPostgresOrderRepository(db.Pool())

	locker := lock.NewRedisLocker(redisClient)
	if err := locker.LoadScripts(ctx); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load Lua scripts: %v", err))
	} else {
		appLog.Info("Lua scripts pre-loaded into Redis")
	}

	expiryWorker := worker.NewExpiryWorker(orderRepo, locker, &worker.ExpiryWorkerConfig{
		HoldTTL:       cfg.Reservation.HoldTTL,
		SweepInterval: cfg.Reservation.SweepInterval,
		BatchSize:     cfg.Reservation.SweepBatch,
	})
	expiryWorker.Start(ctx)
	appLog.Info("Expiry sweeper running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down expiry sweeper...")

	cancel()
	expiryWorker.Stop()

	appLog.Info("Expiry sweeper exited gracefully")
}
