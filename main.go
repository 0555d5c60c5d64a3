// File: orchid/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orchid/config"
	"orchid/cron"
	"orchid/database"
	archiveRepo "orchid/database/repository/archive"
	"orchid/handlers"
	"orchid/middleware"
	"orchid/routes"
	"orchid/services/reminder"
	"orchid/services/session"
	"orchid/storage"
	"orchid/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionStore()

	// Durable key-value store over redis; credential-class entries go through
	// the sealed variant.
	backend := storage.NewRedisBackend(utils.GetSessionStoreClient())
	store := storage.NewStore(backend, logger)

	var credStore *storage.Store
	if secret := config.AppConfig.StoreSealSecret; secret != "" {
		sealed, err := storage.NewSealedBackend(backend, secret)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize sealed store: %v", err)
		}
		credStore = storage.NewStore(sealed, logger)
	} else {
		logger.Sugar().Warn("main: STORE_SEAL_SECRET not set, credential entries stored unsealed")
		credStore = store
	}

	// Reminder queue.
	reminderOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderDB,
	}
	reminderSvc := reminder.NewAsynqService(reminderOpts, logger)
	cron.InitReminderWorker(&cron.LogNotifier{Logger: logger})

	// Repositories and services.
	archive := archiveRepo.NewMongoArchiveRepo()
	tracker := session.NewDefaultTrackerService(store, reminderSvc, archive, logger)

	// Countdown ticker. The tracker owns no timer; this loop drives it.
	tickerCtx, stopTicker := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickerCtx.Done():
				return
			case now := <-ticker.C:
				tracker.Tick(now)
			}
		}
	}()

	utils.StartHealthMonitor([]*redis.Client{utils.GetSessionStoreClient()}, database.MongoClient)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	sessionHandler := handlers.NewSessionHandler(tracker, reminderSvc, archive, logger)
	routes.RegisterRoutes(router, sessionHandler, credStore)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	stopTicker()
	if err := reminderSvc.Close(); err != nil {
		logger.Sugar().Warnf("main: failed to close reminder queue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
