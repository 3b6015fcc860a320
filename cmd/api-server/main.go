package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"grimoire/database"
	"grimoire/internal/api/cache"
	"grimoire/internal/api/handler"
	"grimoire/internal/api/imagestore"
	"grimoire/internal/api/middleware"
	"grimoire/internal/api/repository"
	"grimoire/internal/api/service"
	"grimoire/internal/config"
)

func main() {
	// 1. Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger := newLogger(cfg)

	// 2. Connect to the database
	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("could not connect to database", "error", err)
		os.Exit(1)
	}

	// 3. Redis cache (optional: the service runs without it)
	bestRated := connectCache(cfg, logger)

	// 4. Image storage
	images, err := imagestore.New(cfg.ImageDataPath)
	if err != nil {
		logger.Error("could not set up image storage", "error", err)
		os.Exit(1)
	}

	// 5. Dependency wiring: repository <- service <- handler
	userRepo := repository.NewUserRepository(db)
	bookRepo := repository.NewBookRepository(db)

	authService := service.NewAuthService(userRepo, cfg)
	bookService := service.NewBookService(bookRepo, images, bestRated, logger)

	authHandler := handler.NewAuthHandler(authService, cfg)
	bookHandler := handler.NewBookHandler(bookService, cfg)

	// 6. Gin engine and routes
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.BodyLimit(cfg.UploadMaxBytes))
	r.MaxMultipartMemory = cfg.UploadMaxBytes

	r.GET("/check-conn", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is alive and database connected"})
	})

	r.Static("/images", cfg.ImageDataPath)

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateRPS, cfg.AuthRateBurst)
	authMW := middleware.AuthMiddleware(authService)

	api := r.Group("/api")
	authHandler.RegisterRoutes(api.Group("/auth"), authLimiter)
	bookHandler.RegisterRoutes(api.Group("/books"), authMW)

	// 7. Serve until interrupted, then drain
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		logger.Info("server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}

// connectCache returns the best-rating cache, or nil when redis is not
// reachable - readers then fall through to the store on every request.
func connectCache(cfg *config.Config, logger *slog.Logger) *cache.BestRatedCache {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid redis url, running without cache", "error", err)
		return nil
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, running without cache", "error", err)
		return nil
	}

	logger.Info("connected to redis cache")
	return cache.NewBestRatedCache(client, cfg.CacheTTL)
}
