// Package app wires the engine together: configuration, database, cache,
// pipeline orchestrator, scheduler and API server.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"kabu-agent/api"
	"kabu-agent/cache"
	"kabu-agent/config"
	"kabu-agent/database"
	"kabu-agent/pipeline"
	"kabu-agent/realtime"
	"kabu-agent/scheduler"
)

// App represents the main application
type App struct {
	config    *config.Config
	db        *database.Database
	redis     *cache.RedisClient
	repo      *database.StockRepository
	broker    *realtime.Broker
	orch      *pipeline.Orchestrator
	scheduler *scheduler.Scheduler
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
		db:     nil, // Will be initialized in Start()
		redis:  nil, // Will be initialized in Start()
	}
}

// Start starts the application
func (a *App) Start() error {
	// 1. Database Connection
	fmt.Println("🗄️  Connecting to database...")

	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}

	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	// 2. Redis Connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)

	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. Initialize schema
	a.repo = database.NewStockRepository(a.db)
	if err := a.repo.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// 4. Realtime broker for pipeline status events
	a.broker = realtime.NewBroker()
	go a.broker.Run()

	// 5. Pipeline orchestrator
	pipelineCfg, err := a.config.BuildPipelineConfig()
	if err != nil {
		return fmt.Errorf("building pipeline configuration: %w", err)
	}
	orch, err := pipeline.NewOrchestrator(pipelineCfg, a.repo)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}
	orch.SetRecorder(a.repo)
	var invalidator snapshotInvalidator
	if a.redis != nil {
		invalidator = a.redis
	}
	orch.SetEvents(newRunEvents(a.broker, invalidator))
	a.orch = orch

	// 6. Optional cron schedule for the daily run
	if a.config.PipelineSchedule != "" {
		sched, err := scheduler.New(a.config.PipelineSchedule, a.orch)
		if err != nil {
			return err
		}
		a.scheduler = sched
		a.scheduler.Start()
	} else {
		log.Println("ℹ️  No pipeline schedule configured; runs are manual only")
	}

	// 7. Start API Server
	apiServer := api.NewServer(a.repo, a.orch, a.redis, a.broker)
	go func() {
		if err := apiServer.Start(a.config.ServerPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 8. Wait for interrupt and perform graceful shutdown
	return a.gracefulShutdown()
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		if a.scheduler != nil {
			fmt.Println("⏰ Stopping pipeline scheduler...")
			a.scheduler.Stop()
		}

		// A run in flight is asked to stop; its workers drain on their own.
		if a.orch != nil && a.orch.State().Status == pipeline.StatusRunning {
			fmt.Println("📊 Cancelling in-flight pipeline run...")
			if err := a.orch.Cancel(); err != nil {
				log.Printf("Error cancelling pipeline run: %v", err)
			}
		}

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
