package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edupair/internal/cache"
	"edupair/internal/config"
	"edupair/internal/events"
	"edupair/internal/handler"
	"edupair/internal/logger"
	"edupair/internal/middleware"
	"edupair/internal/repository"
	"edupair/internal/service"
	"edupair/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	if envErr != nil {
		log.Info("no .env file found, relying on environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	dbPool, err := config.ConnectDB(ctx, cfg.DB, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// --- Auto Migration ---
	if err := config.AutoMigrate(ctx, dbPool, log); err != nil {
		log.Error("failed to auto-migrate database", "error", err)
		os.Exit(1)
	}

	// --- Redis (optional) ---
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, enrollment guard will be skipped until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
	}

	// --- Events ---
	publisher, err := events.NewPublisher(cfg.KafkaBrokers, log)
	if err != nil {
		log.Error("failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()
	emitter := events.NewEmitter(publisher, log)

	// --- Initialize Utilities ---
	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret, utils.TokenTTL)
	validator := service.NewValidator()
	guard := cache.NewEnrollmentGuard(redisClient, cache.DefaultGuardTTL)

	// --- Initialize Repositories ---
	store := repository.NewStore(dbPool)

	// --- Initialize Services ---
	authService := service.NewAuthService(store, jwtUtil, cfg.BcryptCost, emitter, log)
	sessionService := service.NewSessionService(store, guard, validator, emitter, log)
	profileService := service.NewProfileService(store, validator)
	ledgerService := service.NewLedgerService(store)

	// --- Initialize Handlers ---
	authHandler := handler.NewAuthHandler(authService, log)
	sessionHandler := handler.NewSessionHandler(sessionService, log)
	profileHandler := handler.NewProfileHandler(profileService, log)
	ledgerHandler := handler.NewLedgerHandler(ledgerService, log)

	// --- Setup Gin Router ---
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))

	// --- Register Routes ---
	jwtAuthMW := middleware.JWTAuthMiddleware(authService)
	authHandler.RegisterAuthRoutes(router)
	sessionHandler.RegisterSessionRoutes(router, jwtAuthMW)
	profileHandler.RegisterProfileRoutes(router, jwtAuthMW)
	ledgerHandler.RegisterLedgerRoutes(router, jwtAuthMW)

	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "db": "healthy"}
		code := http.StatusOK
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			status["status"], status["db"] = "error", "unhealthy"
			code = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			status["redis"] = "healthy"
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				status["redis"] = "unhealthy"
			}
		}
		c.JSON(code, status)
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.AllowedOrigins).Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen failed", "error", err)
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exiting")
}
