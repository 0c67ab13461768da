package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/iiskills-cloud/appaccess/app/repository"
	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/admin"
	"github.com/iiskills-cloud/appaccess/internal/pkg/cache"
	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
	"github.com/iiskills-cloud/appaccess/internal/pkg/database"
	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
	"github.com/iiskills-cloud/appaccess/internal/pkg/env"
	"github.com/iiskills-cloud/appaccess/internal/pkg/jobqueue"
	"github.com/iiskills-cloud/appaccess/internal/pkg/metrics"
	"github.com/iiskills-cloud/appaccess/internal/pkg/payments"
	"github.com/iiskills-cloud/appaccess/internal/pkg/router"
	"github.com/iiskills-cloud/appaccess/internal/pkg/statistics"
)

func main() {
	app, cfg, cleanup := NewApplication()
	defer cleanup()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		fiberlog.Info("Shutting down")
		_ = app.Shutdown()
	}()

	if err := app.Listen(cfg.Addr()); err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, env.Config, func()) {
	env.SetupEnvFile()
	cfg, err := env.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.IsDev() {
		fiberlog.SetLevel(fiberlog.LevelDebug)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	factory := repository.NewFactory(nil)
	if cfg.DBDriver == "mysql" {
		db, err := database.Open(cfg)
		if err != nil {
			log.Fatal(err)
		}
		factory = repository.NewFactory(db)
	} else {
		fiberlog.Warn("DB_DRIVER=memory: grants are lost on restart")
	}
	repos := factory.GetRepositories()

	cacheCfg := cache.Config{
		Driver:   cfg.CacheDriver,
		Host:     cfg.CacheHost,
		Port:     cfg.CachePort,
		Password: cfg.CachePassword,
	}
	var (
		cacheClient cache.Client
		jobBackend  jobqueue.Backend
	)
	if cfg.CacheDriver == "redis" {
		rdb := cache.Connect(cacheCfg)
		cacheClient = cache.WrapRedis(rdb)
		jobBackend = jobqueue.NewRedisBackend(rdb)
	} else {
		cacheClient = cache.NewMemory()
		jobBackend = jobqueue.NewMemoryBackend()
	}

	store := access.NewStore(repos.Access, entitlements.NewResolver(cat))

	appIDs := make([]string, 0)
	for _, a := range cat.Apps() {
		appIDs = append(appIDs, a.ID)
	}
	stats := statistics.NewService(store, cacheClient, cfg.StatsCacheTTL, appIDs)
	store.SetInvalidator(stats)

	queue := jobqueue.NewQueue(jobBackend, cfg.RetryWorkers)
	retrier := jobqueue.NewGrantRetrier(queue, store, stats)
	metrics.SetQueueDepth(func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		n, err := queue.GetQueueSize(ctx)
		if err != nil {
			return 0
		}
		return float64(n)
	})
	queue.Start()

	app := fiber.New(fiber.Config{
		AppName:   "appaccess",
		BodyLimit: 64 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), requestid.New(), logger.New())

	// SWAGGER / OPENAPI
	if cfg.OpenAPIFile != "" {
		if _, err := os.Stat(cfg.OpenAPIFile); err != nil {
			fiberlog.Warnf("API docs disabled, %s not readable: %v", cfg.OpenAPIFile, err)
		} else {
			router.InstallDocs(app, cfg.OpenAPIFile)
		}
	}

	paymentService := payments.NewService(store, repos.Payment, stats)
	paymentService.SetRetrier(retrier)

	router.InstallRouter(app, router.Dependencies{
		Store:          store,
		Admin:          admin.NewService(store, stats),
		Payments:       paymentService,
		AdminKey:       cfg.AdminAPIKey,
		WebhookSecret:  cfg.PaymentWebhookSecret,
		LimiterStorage: cache.NewFiberStorage(cacheCfg),
	})

	fiberlog.Infof("Serving %d apps and %d bundles", len(cat.Apps()), len(cat.Bundles()))

	return app, cfg, func() {
		queue.Stop()
		_ = cacheClient.Close()
	}
}

func loadCatalog(cfg env.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		return catalog.LoadFile(cfg.CatalogFile)
	}
	return catalog.Default()
}
