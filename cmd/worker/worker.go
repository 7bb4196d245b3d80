package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"lillith/internal/app"
	"lillith/internal/config"
	"lillith/internal/database"
	"lillith/internal/logger"
	"lillith/internal/queue"
	"lillith/internal/telemetry"

	"github.com/hibiken/asynq"
)

const (
	serviceName = "lillith-worker"

	// Runs untouched for longer than the task timeout lost their worker.
	staleRunAfter = 3 * time.Hour
	inboxSettle   = 5 * time.Second
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
	runs := database.NewMongoRunStore(mongoClient.Database(cfg.DBName), metrics)

	rag, err := app.NewRAG(cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize retrieval stack:", err)
	}
	defer rag.Close()

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}
	client := asynq.NewClient(redisOpt)
	defer client.Close()
	dispatcher := queue.NewDispatcher(client, runs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Runs execute one at a time against the shared key pool.
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{queue.QueueIngest: 1},
		BaseContext: func() context.Context { return ctx },
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", "type", task.Type(), "error", err)
		}),
	})

	processor := queue.NewTaskProcessor(rag.Pipeline, runs)
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestRun, processor.ProcessIngest)

	scheduler := queue.NewScheduler()
	if err := scheduler.ScheduleInterval("reap-stale-runs", 15*time.Minute, queue.StaleRunReaper(runs, staleRunAfter)); err != nil {
		log.Fatal("Failed to schedule reaper:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.InboxDir != "" {
		watcher, err := queue.NewInboxWatcher(cfg.InboxDir, dispatcher.Dispatch, inboxSettle)
		if err != nil {
			logger.Error("Inbox watcher disabled", "dir", cfg.InboxDir, "error", err)
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
		}
	}

	if cfg.BooksDir != "" {
		bootCtx, cancel := context.WithTimeout(ctx, time.Minute)
		queued, err := queue.BootstrapEmpty(bootCtx, rag.Store, dispatcher.Dispatch, cfg.BooksDir, cfg.SearchCollections)
		cancel()
		if err != nil {
			logger.Error("Bootstrap check failed", "error", err)
		} else if len(queued) > 0 {
			logger.Info("Bootstrap ingestion queued", "collections", queued)
		}
	}

	if err := server.Start(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
	logger.Info("Worker started", "queue", queue.QueueIngest, "redis", cfg.RedisURL)

	<-ctx.Done()
	logger.Info("Shutting down worker...")
	server.Shutdown()
}
