package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hikage/banken/internal/handlers"
	"github.com/hikage/banken/internal/infrastructure/config"
	"github.com/hikage/banken/internal/infrastructure/database"
	"github.com/hikage/banken/internal/infrastructure/metrics"
	"github.com/hikage/banken/internal/repositories/postgres"
	"github.com/hikage/banken/internal/services/authorization"
	"github.com/hikage/banken/pkg/cache"
	"github.com/hikage/banken/pkg/cache/memorycache"
)

const defaultEnv = "dev"

func main() {
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	logger := logrus.New()

	if err := config.InitConfig(env); err != nil {
		logger.WithError(err).Fatal("failed to initialize config")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	configureLogger(logger, &cfg.Log)
	log := logrus.NewEntry(logger)

	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pg.Close()

	log.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	}).Info("connected to database")

	// Initialize repositories
	permissionRepo := postgres.NewPostgresPermissionRepository(pg.DB)
	groupRepo := postgres.NewPostgresPermissionGroupRepository(pg.DB)
	groupAssignmentRepo := postgres.NewPostgresGroupPermissionAssignmentRepository(pg.DB)
	membershipRepo := postgres.NewPostgresUserGroupAssignmentRepository(pg.DB)
	directGrantRepo := postgres.NewPostgresUserDirectPermissionGrantRepository(pg.DB)

	// Initialize the decision engine
	conditionEngine, err := authorization.NewConditionEngine()
	if err != nil {
		log.WithError(err).Fatal("failed to create condition engine")
	}

	exporter := metrics.NewPrometheusExporter()

	var decisionCache cache.Cache
	var resolver *authorization.Resolver
	if cfg.Cache.Enabled {
		decisionCache, err = memorycache.New(&memorycache.Config{
			MaxSizeBytes:  cfg.Cache.MaxMemoryBytes,
			DefaultTTL:    cfg.Cache.TTL(),
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to create decision cache")
		}
		defer decisionCache.Close()
		exporter.SetDecisionCache(decisionCache)

		resolver = authorization.NewResolverWithCache(
			permissionRepo, groupRepo, groupAssignmentRepo, membershipRepo, directGrantRepo,
			conditionEngine, log, decisionCache, cfg.Cache.TTL(),
		)
		log.WithField("ttl", cfg.Cache.TTL()).Info("decision cache enabled")
	} else {
		resolver = authorization.NewResolver(
			permissionRepo, groupRepo, groupAssignmentRepo, membershipRepo, directGrantRepo,
			conditionEngine, log,
		)
	}

	// HTTP router
	authorizeHandler := handlers.NewAuthorizeHandler(resolver, exporter, log)
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(exporter.Middleware)
	authorizeHandler.Routes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Metrics server on its own port
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	serverErrors := make(chan error, 2)
	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		log.WithField("addr", metricsServer.Addr).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	// Refresh cache gauges periodically
	gaugeTicker := time.NewTicker(10 * time.Second)
	defer gaugeTicker.Stop()
	go func() {
		for range gaugeTicker.C {
			exporter.Update()
		}
	}()

	// Graceful shutdown on signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		log.WithError(err).Fatal("server error")
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("forced HTTP server stop")
			_ = server.Close()
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			_ = metricsServer.Close()
		}

		if err := pg.Close(); err != nil {
			log.WithError(err).Error("error closing database connection")
		}

		log.Info("shutdown complete")
	}
}

func configureLogger(logger *logrus.Logger, cfg *config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}
