// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/product"
	"github.com/your-org/marketplace-api/internal/infrastructure/database/postgres"
	"github.com/your-org/marketplace-api/internal/infrastructure/database/redis"
	"github.com/your-org/marketplace-api/internal/interfaces/http"
	"github.com/your-org/marketplace-api/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger is not configured yet
		logger.New(config.LoggingConfig{Level: "info", Format: "json"}).
			WithError(err).Fatal("failed to load configuration")
	}

	log := logger.New(cfg.Logging)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("starting")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewConnection(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	// Redis is optional: without it rate limiting and the category tree cache are skipped
	var cache goredis.Cmdable
	redisClient, err := redis.NewConnection(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, continuing without it")
	} else {
		cache = redisClient.Redis
		defer redisClient.Close()
	}

	migration := postgres.NewMigration(db, log)
	if err := migration.RunAutoMigrations(ctx); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}
	if err := migration.CreateIndexes(ctx); err != nil {
		log.WithError(err).Warn("index creation interrupted")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server, err := http.NewServer(cfg, http.Dependencies{
		DB:       db,
		Redis:    cache,
		Registry: registry,
		Log:      log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build HTTP server")
	}

	if cfg.IsDevelopment() {
		svc := server.Services()
		seeder := postgres.NewSeeder(db, cfg, log, svc.Categories, svc.Products)
		if err := seeder.SeedInitialData(ctx); err != nil {
			log.WithError(err).Warn("data seeding failed")
		}
	}
	warmCategoryTree(ctx, server.Services().Categories, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("HTTP server failed")
		}
	case <-ctx.Done():
	}

	log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("failed to shut down HTTP server gracefully")
	}
	log.Info("server shutdown completed")
}

// warmCategoryTree fills the tree cache so the first visitor does not pay for it
func warmCategoryTree(ctx context.Context, categories *product.CategoryService, log *logrus.Logger) {
	if _, err := categories.GetCategoryTree(ctx, false); err != nil {
		log.WithError(err).Warn("failed to warm category tree")
	}
}
