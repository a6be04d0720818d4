package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/GYB356/climabill-sub002/pkg/cache"
	"github.com/GYB356/climabill-sub002/pkg/carbon"
	"github.com/GYB356/climabill-sub002/pkg/cloverly"
	"github.com/GYB356/climabill-sub002/pkg/config"
	"github.com/GYB356/climabill-sub002/pkg/database"
	"github.com/GYB356/climabill-sub002/pkg/metrics"
	"github.com/GYB356/climabill-sub002/pkg/server"
	"github.com/GYB356/climabill-sub002/pkg/version"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	configureLogger(logger, cfg.Log)
	logger.WithFields(version.GetInfo().Fields()).Info("Starting climabill carbon service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metrics.Initialize(metrics.MetricsConfig{
			EnablePerRoute:       cfg.Metrics.EnablePerRoute,
			EnableDetailedStatus: cfg.Metrics.EnableDetailedStatus,
		})
	}

	// Initialize database
	db, err := database.NewDB(&database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	factors, err := config.LoadEmissionFactors(cfg.Carbon.FactorsFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load emission factors")
	}

	policy, err := carbon.DefaultTTLPolicy().WithOverrides(cfg.Cache.TTL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load cache policy")
	}

	// Initialize cache
	cacheLogger := logger.WithField("component", "cache")
	var cacheMetrics cache.Metrics = cache.NoopMetrics{}
	if cfg.Metrics.Enabled {
		cacheMetrics = metrics.CacheRecorder{}
	}
	store := cache.NewStore(cache.WithStoreMetrics(cacheMetrics), cache.WithStoreLogger(cacheLogger))
	store.StartJanitor(ctx, cfg.Cache.SweepInterval)
	if cfg.Metrics.Enabled {
		if err := metrics.RegisterCacheSize(store.Len); err != nil {
			logger.WithError(err).Warn("Failed to register cache size metric")
		}
	}
	caller := cache.NewCaller(store, cache.WithMetrics(cacheMetrics), cache.WithLogger(cacheLogger))

	var invalidator cache.Invalidator = cache.NewLocalInvalidator(store)
	if cfg.Cache.Distributed {
		redisInvalidator, err := cache.NewRedisInvalidator(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Cache.InvalidationChannel,
		}, store, cacheLogger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize cache invalidation")
		}
		defer redisInvalidator.Close()

		go func() {
			if err := redisInvalidator.Listen(ctx); err != nil {
				logger.WithError(err).Error("Cache invalidation listener stopped")
			}
		}()
		invalidator = redisInvalidator
	}

	provider := cloverly.NewClient(cloverly.Config{
		BaseURL: cfg.Cloverly.BaseURL,
		APIKey:  cfg.Cloverly.APIKey,
		Timeout: cfg.Cloverly.Timeout,
	}, logger.WithField("component", "cloverly"))

	repo := database.NewRepository(db.DB, logger.WithField("component", "repository"))
	tracking := carbon.NewTrackingService(repo, provider, logger.WithField("component", "carbon"), carbon.WithFactors(factors))
	service := carbon.NewCachedService(tracking, caller, invalidator, policy, logger.WithField("component", "carbon-cache"))

	srv := server.NewAPIServer(cfg, service, logger)
	if err := srv.Run(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

func configureLogger(logger *logrus.Logger, cfg config.LogConfig) {
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}
