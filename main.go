package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizzy/config"
	"quizzy/handlers"
	"quizzy/logger"
	"quizzy/middleware"
	"quizzy/models"
	"quizzy/repository"
	"quizzy/repository/gormstore"
	"quizzy/repository/mongostore"
	"quizzy/routes"
	"quizzy/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load("./configs")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}

	quizzes := store.Quizzes()
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = config.InitRedis(ctx, cfg)
		if err != nil {
			logger.Log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		quizzes = repository.NewCachedQuizRepository(quizzes, redisClient, cfg.Cache.TTL())
	}

	if cfg.Tracing.Enabled {
		tp, err := middleware.InitTracer("quizzy", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to init tracer", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	// Initialize services
	opts := models.UpdateOptions{CreateIfMissing: cfg.Store.CreateIfMissing}
	policy := services.AccessPolicy{EnforceParticipantView: cfg.Policy.EnforceParticipantView}
	authService := services.NewAuthService(cfg.JWT.Secret, cfg.JWT.Expiry())
	quizService := services.NewQuizService(quizzes, policy, opts)

	// Initialize WebSocket hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := services.NewHub()
	go hub.Run(hubCtx)

	testService := services.NewTestService(store.Tests(), quizzes, hub, opts)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.Metrics())
	router.Use(middleware.RateLimiter(ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second))
	if cfg.Tracing.Enabled {
		router.Use(middleware.Tracing())
	}

	routes.SetupRoutes(router, routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Quiz:     handlers.NewQuizHandler(quizService),
		Test:     handlers.NewTestHandler(testService),
		Progress: handlers.NewProgressHandler(hub),
		Health:   handlers.NewHealthHandler(store),
	}, authService, policy)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown", zap.Error(err))
	}
	stopHub()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Log.Error("Store close", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Database.Driver == config.DriverMongo {
		client, err := config.InitMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := mongostore.New(client, cfg.Mongo.Database)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		return store, nil
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	store := gormstore.New(db)
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}
