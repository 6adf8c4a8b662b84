package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"learnhub/config"
	"learnhub/database"
	"learnhub/routers"
	analyticsService "learnhub/services/analytics"
	courseService "learnhub/services/course"
	enrollmentService "learnhub/services/enrollment"
	"learnhub/utils"

	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()

	log, err := utils.NewLogger(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.ConnectDb(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to the database", "error", err)
	}
	defer database.Close(db)

	cache := newCache(cfg, log)

	svc := routers.Services{}
	var stopScheduler func()

	if cfg.HasService("course") {
		blobs, closeBlobs := newBlobStore(cfg, log)
		defer closeBlobs()
		if cfg.StorageDriver == "local" && strings.HasPrefix(cfg.StoragePublicBaseURL, "/") {
			svc.StaticPath = cfg.StoragePublicBaseURL
			svc.StaticDir = cfg.StorageDir
		}
		stopScheduler = setupCourseService(cfg, db, cache, blobs, log, &svc)
	}
	if cfg.HasService("analytics") {
		store := analyticsService.NewMetricStore(db)
		svc.Recorder = analyticsService.NewRecorder(db, store, cache, log.With("service", "analytics"))
		svc.Metrics = analyticsService.NewMetricsReader(store, cache, cfg.CacheTTL, cfg.TopCoursesCacheSize)
	}

	app := routers.NewApp(routers.AppConfig{JWTKey: cfg.JWTKey, AccessLog: true}, svc)

	go func() {
		log.Info("Server is running", "port", cfg.Port, "services", strings.Join(cfg.Services, ","))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	if stopScheduler != nil {
		stopScheduler()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
}

func setupCourseService(cfg *config.Config, db *gorm.DB, cache utils.Cache, blobs utils.BlobStore, log *utils.Logger, svc *routers.Services) func() {
	courseLog := log.With("service", "course")

	engine := enrollmentService.NewEngine(db, cache, cfg.CacheTTL, courseLog)
	users := utils.NewUserDirectory(cfg.UserServiceURL, cfg.UserServiceTimeout)
	mailer := utils.NewMailer(cfg.SendgridAPIKey, cfg.EmailSender, courseLog)
	if notifier := enrollmentService.NewCompletionNotifier(db, users, mailer, courseLog); notifier != nil {
		engine.SetNotifier(notifier)
	}

	catalog := courseService.NewCatalog(db, blobs, courseLog)
	engine.WatchCatalog(catalog)

	svc.Catalog = catalog
	svc.Feedback = courseService.NewFeedbackService(db, catalog)
	svc.Engine = engine

	scheduler, err := utils.StartReconcileScheduler(cfg.ReconcileSchedule, func(ctx context.Context) error {
		_, err := engine.ReconcileAll(ctx)
		return err
	}, courseLog)
	if err != nil {
		log.Fatal("Invalid reconcile schedule", "schedule", cfg.ReconcileSchedule, "error", err)
	}
	return func() { <-scheduler.Stop().Done() }
}

func newCache(cfg *config.Config, log *utils.Logger) utils.Cache {
	switch cfg.CacheDriver {
	case "redis":
		return utils.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	case "memory":
		return utils.NewMemoryCache()
	default:
		return utils.NoopCache{}
	}
}

func newBlobStore(cfg *config.Config, log *utils.Logger) (utils.BlobStore, func()) {
	if cfg.StorageDriver == "gcs" {
		store, err := utils.NewGCSBlobStore(context.Background(), cfg.StorageBucket, cfg.StoragePublicBaseURL)
		if err != nil {
			log.Fatal("Failed to create storage client", "bucket", cfg.StorageBucket, "error", err)
		}
		return store, func() { _ = store.Close() }
	}
	return utils.NewLocalBlobStore(cfg.StorageDir, cfg.StoragePublicBaseURL), func() {}
}
