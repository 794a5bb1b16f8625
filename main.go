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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ticketrush/reservation-engine/internal/gateway"
	"github.com/ticketrush/reservation-engine/internal/handler"
	"github.com/ticketrush/reservation-engine/internal/lock"
	"github.com/ticketrush/reservation-engine/internal/notify"
	"github.com/ticketrush/reservation-engine/internal/repository"
	"github.com/ticketrush/reservation-engine/internal/service"
	"github.com/ticketrush/reservation-engine/internal/worker"
	"github.com/ticketrush/reservation-engine/pkg/config"
	"github.com/ticketrush/reservation-engine/pkg/database"
	"github.com/ticketrush/reservation-engine/pkg/logger"
	"github.com/ticketrush/reservation-engine/pkg/middleware"
	pkgredis "github.com/ticketrush/reservation-engine/pkg/redis"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting reservation engine...")

	ctx := context.Background()

	// Tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed, continuing without tracing: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	// Database
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Redis
	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Repositories and lock service
	eventRepo := repository.NewPostgresEventRepository(db.Pool())
	ticketRepo := repository.NewPostgresTicketRepository(db.Pool())
	orderRepo := repository.NewPostgresOrderRepository(db.Pool())

	locker := lock.NewRedisLocker(redisClient)
	if err := locker.LoadScripts(ctx); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load Lua scripts: %v", err))
	} else {
		appLog.Info("Lua scripts pre-loaded into Redis")
	}

	// Payment gateway: Stripe when configured, mock otherwise
	var paymentGateway gateway.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		paymentGateway, err = gateway.NewStripeGateway(&gateway.StripeGatewayConfig{
			SecretKey:  cfg.Stripe.SecretKey,
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
		})
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Stripe gateway init failed: %v", err))
		}
		appLog.Info("Stripe payment gateway initialized")
	} else {
		paymentGateway = gateway.NewMockGateway(nil)
		appLog.Warn("No Stripe secret key configured, using mock payment gateway")
	}

	// Kafka notifier, degrading to no-op when brokers are unreachable
	var notifier notify.Notifier
	kafkaNotifier, err := notify.NewKafkaNotifier(&notify.KafkaNotifierConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op notifier: %v", err))
		notifier = notify.NewNoOpNotifier()
	} else {
		notifier = kafkaNotifier
		defer kafkaNotifier.Close()
		appLog.Info("Kafka notifier connected")
	}

	// Services
	reservationService := service.NewReservationService(
		eventRepo, ticketRepo, orderRepo, locker, paymentGateway, notifier,
		&service.ReservationServiceConfig{
			HoldTTL:     cfg.Reservation.HoldTTL,
			MaxQuantity: cfg.Reservation.MaxQuantity,
			Currency:    cfg.Stripe.Currency,
		},
	)
	settlementService := service.NewSettlementService(orderRepo, locker, notifier)

	// Expiry worker
	expiryWorker := worker.NewExpiryWorker(orderRepo, locker, &worker.ExpiryWorkerConfig{
		HoldTTL:       cfg.Reservation.HoldTTL,
		SweepInterval: cfg.Reservation.SweepInterval,
		BatchSize:     cfg.Reservation.SweepBatch,
	})
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	expiryWorker.Start(workerCtx)
	defer expiryWorker.Stop()

	// Handlers
	bookingHandler := handler.NewBookingHandler(reservationService)
	webhookHandler := handler.NewWebhookHandler(settlementService, cfg.Stripe.WebhookSecret)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.App.Name))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	idempotencyConfig := middleware.DefaultIdempotencyConfig(redisClient.Client())

	v1 := router.Group("/api/v1")
	{
		v1.POST("/events/:id/book", middleware.IdempotencyMiddleware(idempotencyConfig), bookingHandler.Book)
		v1.GET("/orders/:id", bookingHandler.GetOrder)
		v1.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Reservation engine listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
