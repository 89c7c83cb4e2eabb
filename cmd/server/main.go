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

	"hotel-booking-service/config"
	"hotel-booking-service/internal/api"
	"hotel-booking-service/internal/broker"
	"hotel-booking-service/internal/gateway"
	"hotel-booking-service/internal/redisclient"
	"hotel-booking-service/internal/service"
	"hotel-booking-service/internal/store"
	"hotel-booking-service/internal/util"
	"hotel-booking-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting booking service")

	tp, err := util.InitTracer("booking-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	paymentGateway := gateway.NewMockGateway(gateway.MockConfig{
		SuccessRate: cfg.Business.MockSuccessRate,
		DelayMs:     cfg.Business.PaymentDelayMs,
	})

	roomInventory := service.NewRoomInventory(db, redisClient)
	overlapValidator := service.NewOverlapValidator(db)
	loyaltyLedger := service.NewLoyaltyLedger(db, cfg.Business)
	paymentService := service.NewPaymentService(db, paymentGateway, eventPublisher, cfg.Business)
	bookingLifecycle := service.NewBookingLifecycle(
		db, roomInventory, overlapValidator, loyaltyLedger,
		paymentService, eventPublisher, redisClient, cfg.Business)

	ctx := context.Background()
	if err := roomInventory.SyncRoomCounts(ctx); err != nil {
		log.Printf("Failed to sync room counts to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	notificationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(notificationConsumer, db)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	completionWorker := worker.NewCompletionWorker(db,
		time.Duration(cfg.Business.CompletionIntervalMin)*time.Minute)
	go func() {
		if err := completionWorker.Start(workerCtx); err != nil {
			log.Printf("Completion worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(bookingLifecycle, paymentService, loyaltyLedger, roomInventory, cfg.Auth.JWTSecret)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notificationWorker.Stop()
	completionWorker.Stop()

	log.Println("Server exited")
}
