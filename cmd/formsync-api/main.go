package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"formsync/internal/akismet"
	"formsync/internal/api"
	"formsync/internal/auth"
	"formsync/internal/config"
	"formsync/internal/db"
	"formsync/internal/docstore"
	"formsync/internal/jobs"
	"formsync/internal/model"
	"formsync/internal/pubsub"
	"formsync/internal/schema"
	"formsync/internal/service"
	"formsync/internal/sheets"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Check for goose migrate command
	if len(os.Args) > 1 && os.Args[1] == "goose-migrate" {
		if err := runGooseMigrations(cfg); err != nil {
			log.Fatalf("Goose migration failed: %v", err)
		}
		os.Exit(0)
	}

	// Check for serve command (default)
	if len(os.Args) > 1 && os.Args[1] != "serve" {
		log.Fatalf("Unknown command: %s (use 'serve' or 'goose-migrate')", os.Args[1])
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Document store
	var store docstore.Store
	switch cfg.DocstoreDriver {
	case config.DriverMemory:
		logger.Warn("Using in-memory document store; data is lost on restart")
		store = docstore.NewMemoryStore()
		if err := service.SeedDefaults(ctx, store); err != nil {
			logger.Fatal("Failed to seed default documents", zap.Error(err))
		}
	default:
		dbPool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer dbPool.Close()
		store = docstore.NewPostgresStore(dbPool)
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	// Test Redis connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Pub/sub bus
	bus := pubsub.New(rdb, logger)

	// Spreadsheet collaborator
	var sheetOpts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		sheetOpts = append(sheetOpts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}
	sheetsClient, err := sheets.NewClient(ctx, sheetOpts...)
	if err != nil {
		logger.Fatal("Failed to create sheets client", zap.Error(err))
	}

	// Background jobs
	sheetSync := service.NewSheetSync(store, sheetsClient, logger)
	jobServer, jobClient := jobs.NewJobServer(cfg.RedisAddr, cfg.JobConcurrency, sheetSync, logger)
	go func() {
		if err := jobServer.Start(); err != nil {
			logger.Fatal("Job server failed", zap.Error(err))
		}
	}()
	defer jobServer.Stop()

	// Submission pipeline
	spamHTTP := &http.Client{Timeout: 10 * time.Second}
	classifiers := func(app *model.App) service.SpamClassifier {
		return akismet.New(cfg.AkismetEndpoint, app.SpamFilterAkismet.Key, app.AppInfo.AppURL, spamHTTP)
	}

	pipeline := service.NewPipeline(
		service.NewConfigResolver(store),
		service.NewFieldRegistry(store),
		service.NewSpamFilter(classifiers, logger),
		service.NewSubmissionStore(store),
		bus,
		logger,
	)
	pipeline.SetJobClient(service.NewAsynqJobClient(jobClient, jobs.Options{
		MaxRetry: cfg.SheetSyncMaxRetry,
		Timeout:  cfg.SheetSyncTimeout,
	}))

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set; admin routes are disabled")
	}

	// HTTP router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Mount API routes
	r.Mount("/", api.Routes(api.Dependencies{
		Pipeline: pipeline,
		Schemas:  schema.NewCompilerWithCache(64),
		JWT:      auth.NewJWTConfig(cfg.JWTSecret),
		Ready: map[string]api.Checker{
			"docstore": store.Ping,
			"redis":    bus.Ping,
		},
		MaxBodyBytes: cfg.MaxBodyBytes,
		Log:          logger,
	}))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	// Start server
	logger.Info("Starting server", zap.String("addr", cfg.Addr), zap.String("docstore", cfg.DocstoreDriver))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
