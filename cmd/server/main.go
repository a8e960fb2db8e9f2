package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tedgoddard/Stanford/internal/archive"
	"github.com/tedgoddard/Stanford/internal/cache"
	"github.com/tedgoddard/Stanford/internal/config"
	"github.com/tedgoddard/Stanford/internal/database"
	"github.com/tedgoddard/Stanford/internal/eventbus"
	"github.com/tedgoddard/Stanford/internal/grpchealth"
	"github.com/tedgoddard/Stanford/internal/handlers"
	"github.com/tedgoddard/Stanford/internal/metrics"
	"github.com/tedgoddard/Stanford/internal/middleware"
	"github.com/tedgoddard/Stanford/internal/modelclient"
	"github.com/tedgoddard/Stanford/internal/parse"
	"github.com/tedgoddard/Stanford/internal/registry"
	"github.com/tedgoddard/Stanford/internal/telemetry"
	"go.uber.org/zap"

	_ "github.com/tedgoddard/Stanford/docs" // Swagger docs
)

// @title Stanford Parse API
// @version 0.1.0
// @description Multi-strategy constituency and dependency parsing with part-of-speech overrides.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	ctx := context.Background()

	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("parse service starting",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Environment),
		zap.Strings("strategies", cfg.Strategies),
	)

	shutdownTelemetry, err := telemetry.InitTracer(ctx, "stanford-parse", cfg.OTLPEndpoint)
	if err != nil {
		// Collector may be down; tracing stays a no-op.
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	// Models
	breaker := middleware.ModelServiceCircuitBreaker
	breaker.OnStateChange = func(from, to middleware.CircuitState) {
		logger.Warn("model service circuit changed",
			zap.Stringer("from", from), zap.Stringer("to", to))
	}
	models := modelclient.NewClient(cfg.ModelServiceURL, breaker, logger)
	reg := registry.New(models.Loaders(cfg), cfg.ModelMaxInflight, logger)

	loadCtx, cancelLoad := context.WithTimeout(ctx, 5*time.Minute)
	err = reg.EnsureReady(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Fatal("failed to load models", zap.Error(err))
	}

	opts := parse.OptionsFromConfig(cfg)
	engine := parse.NewEngine(reg, opts, logger)

	checks := map[string]handlers.Check{
		"model_service": models.Health,
		"redis":         nil,
		"database":      nil,
		"nats":          nil,
	}
	treeOpts := handlers.TreeOptions{}

	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("redis unavailable, response cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			_, hasDep := reg.DependencyParser()
			treeOpts.Cache = cache.New(cache.RedisBackend{Client: rdb.Client()}, cfg.CacheTTL, opts, hasDep, logger)
			checks["redis"] = rdb.Ping
			logger.Info("response cache enabled", zap.Duration("ttl", cfg.CacheTTL))
		}
	}

	if cfg.DatabaseURL != "" {
		if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("failed to migrate parse archive", zap.Error(err))
		}
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		treeOpts.Archive = archive.NewStore(db.Pool())
		checks["database"] = db.Ping
	}

	if cfg.NATSURL != "" {
		bus, err := eventbus.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS, parse events disabled", zap.Error(err))
		} else {
			defer bus.Close()
			treeOpts.Events = eventbus.NewNotifier(bus, logger)
			checks["nats"] = func(context.Context) error { return bus.Ping() }
		}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())
	router.Use(metrics.Middleware())

	handlers.Routes{
		Tree:        handlers.NewTreeHandler(engine, treeOpts, logger),
		Health:      handlers.NewHealthHandler(reg, checks),
		JWTSecret:   cfg.JWTSecret,
		RateLimiter: middleware.DefaultRateLimiter,
		Breaker:     breaker,
	}.Register(router)

	var grpcServer *grpchealth.Server
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			logger.Fatal("failed to listen for grpc health", zap.Error(err))
		}
		grpcServer = grpchealth.New(reg, logger)
		go grpcServer.Watch(watchCtx, 10*time.Second)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("grpc health server stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.StrategyTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}
