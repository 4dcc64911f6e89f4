package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/time-import/internal/bootstrap"
	"github.com/benvon/time-import/internal/config"
	"github.com/benvon/time-import/internal/database"
	"github.com/benvon/time-import/internal/handlers"
	"github.com/benvon/time-import/internal/logger"
	"github.com/benvon/time-import/internal/middleware"
	"github.com/benvon/time-import/internal/pipeline"
	"github.com/benvon/time-import/internal/ratelimit"
	"github.com/benvon/time-import/internal/services/oidc"
	"github.com/benvon/time-import/internal/telemetry"
	"github.com/gorilla/mux"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer startupCancel()

	shutdownTracing := telemetry.Setup(startupCtx, cfg.OTELEnabled, "server", cfg.OTELEndpoint, zapLogger)
	defer shutdownTracing()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(startupCtx); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	jobQueue, err := bootstrap.ConnectQueue(startupCtx, cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	entryStore := database.NewEntryStore(db)
	batchRepo := database.NewBatchRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	collaborator, err := bootstrap.Collaborator(startupCtx, cfg,
		ratelimit.NewRedisStateStore(redisLimiter.Client()), ratelimitConfigRepo, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_collaborator", zap.Error(err))
	}

	keywords, err := bootstrap.Keywords(cfg.KeywordsFile)
	if err != nil {
		zapLogger.Fatal("failed_to_load_keywords", zap.Error(err))
	}

	importPipeline := pipeline.New(collaborator, entryStore, zapLogger, pipeline.WithKeywords(keywords))
	importHandler := handlers.NewImportHandler(importPipeline, batchRepo, jobQueue, zapLogger)

	healthChecker := handlers.NewHealthChecker().
		Register("database", db.PingContext).
		Register("redis", redisLimiter.Ping).
		Register("rabbitmq", jobQueue.HealthCheck)

	r := mux.NewRouter()

	// Middleware registered first is outermost
	zapLogger.Info("setting_up_middleware")
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(cfg.MaxUploadBytes))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitReloader := middleware.NewRateLimitReloader(
		redisstore.NewStore(redisLimiter.Client()), ratelimitConfigRepo, cfg.HTTPRate, zapLogger, time.Minute)
	if rateLimitReloader == nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader")
	}

	var authMW mux.MiddlewareFunc
	if cfg.JWKSURL == "" {
		zapLogger.Warn("jwks_url_not_configured_using_dev_auth", zap.String("header", middleware.DevUserHeader))
		authMW = middleware.DevAuth()
	} else {
		verifier := oidc.NewVerifier(oidc.NewJWKSManager(cfg.JWKSURL, nil), cfg.JWTIssuer, cfg.JWTAudience)
		authMW = middleware.Auth(verifier, zapLogger)
	}

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)

	// Rate limiting runs after auth so quotas are per user
	importsRouter := r.PathPrefix("/api/v1/imports").Subrouter()
	importsRouter.Use(authMW)
	importsRouter.Use(rateLimitReloader.Middleware())
	importHandler.RegisterRoutes(importsRouter)

	// Preflight requests are answered by the CORS middleware; this only gives them a route
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   middleware.DefaultRequestTimeout + 15*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go rateLimitReloader.Start(reloadCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
