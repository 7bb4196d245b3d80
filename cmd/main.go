package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lillith/internal/app"
	"lillith/internal/config"
	"lillith/internal/database"
	"lillith/internal/logger"
	"lillith/internal/queue"
	"lillith/internal/telemetry"
	"lillith/middleware"
	"lillith/routes"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

const (
	serviceName    = "lillith-api"
	maxRequestBody = 1 << 20
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg, serviceName)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	rag, err := app.NewRAG(cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize retrieval stack:", err)
	}
	defer rag.Close()

	chatClient := rag.NewChatClient(metrics)
	defer chatClient.Close()

	runs := database.NewMongoRunStore(db, metrics)
	conversations := database.NewMongoConversationStore(db, metrics)
	dispatcher := queue.NewDispatcher(asynqClient, runs)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(serviceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(middleware.RequestSizeLimit(maxRequestBody))

	routes.SetupHealthRoutes(router, map[string]routes.HealthCheck{
		"mongodb":     func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		"redis":       func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"vectorstore": rag.Store.Ping,
	})
	routes.SetupChatRoutes(router, chatClient, conversations)
	routes.SetupSearchRoutes(router, rag.Retriever)
	routes.SetupIngestRoutes(router, dispatcher, runs)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
