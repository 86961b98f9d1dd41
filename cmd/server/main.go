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

	"travel-booking-service/config"
	"travel-booking-service/internal/api"
	"travel-booking-service/internal/broker"
	"travel-booking-service/internal/clients"
	"travel-booking-service/internal/models"
	"travel-booking-service/internal/redisclient"
	"travel-booking-service/internal/service"
	"travel-booking-service/internal/store"
	"travel-booking-service/internal/util"
	"travel-booking-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting travel booking service")

	tp, err := util.InitTracer("travel-booking-service", cfg.Observ.JaegerEndpoint)
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

	bookingProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
	defer bookingProducer.Close()
	notificationProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotification)
	defer notificationProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(bookingProducer, notificationProducer)

	clientTimeout := time.Duration(cfg.Clients.TimeoutSeconds) * time.Second
	userClient := clients.NewUserClient(cfg.Clients.UserServiceURL, clientTimeout)
	notificationClient := clients.NewNotificationClient(cfg.Clients.NotificationServiceURL, clientTimeout)

	flightInventory := service.NewInventoryService(models.KindFlight, db, redisClient)
	hotelInventory := service.NewInventoryService(models.KindHotel, db, redisClient)
	notificationService := service.NewNotificationService(eventPublisher, notificationClient, db)
	bookingService := service.NewBookingService(db, flightInventory, hotelInventory, userClient, notificationService, eventPublisher, redisClient)
	paymentService := service.NewPaymentService(db, eventPublisher, cfg.Business.PaymentSuccessRate,
		time.Duration(cfg.Business.PaymentTimeoutSeconds)*time.Second)
	sagaOrchestrator := service.NewSagaOrchestrator(db, bookingService, flightInventory, hotelInventory)

	ctx := context.Background()
	if err := flightInventory.SyncToCache(ctx); err != nil {
		log.Printf("Failed to sync flight inventory to Redis: %v", err)
	}
	if err := hotelInventory.SyncToCache(ctx); err != nil {
		log.Printf("Failed to sync hotel inventory to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	bookingConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking, cfg.Kafka.ConsumerGroup)
	bookingWorker := worker.NewBookingWorker(bookingConsumer, sagaOrchestrator)
	go func() {
		if err := bookingWorker.Start(workerCtx); err != nil {
			log.Printf("Booking worker error: %v", err)
		}
	}()

	notificationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotification, "notification-dispatch-group")
	notificationWorker := worker.NewNotificationWorker(notificationConsumer, notificationService)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(bookingService, paymentService, flightInventory, hotelInventory)
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
	bookingWorker.Stop()
	notificationWorker.Stop()

	log.Println("Server exited")
}
