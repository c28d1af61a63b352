package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/catalog"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/config"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/game"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/health"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/middleware"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/ratelimit"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/transport"
)

// redisPingAdapter adapts *redis.Client's Ping (which returns *redis.StatusCmd)
// to health.RedisPinger's plain error-returning signature.
type redisPingAdapter struct {
	client *redis.Client
}

func (r redisPingAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func main() {
	envPaths := []string{".env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		panic(err)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}
	ctx := context.Background()
	logging.Info(ctx, "starting guess-the-song-backend", zap.String("go_env", cfg.GoEnv), zap.String("port", cfg.Port))

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
	}

	pool := catalog.NewPool(cfg.CatalogInstances, cfg.CatalogRefreshPeriod, &http.Client{Timeout: 10 * time.Second})
	defer pool.Close()
	catalogAdapter := catalog.NewAdapter(pool, redisClient, cfg.SongsCacheDir, &http.Client{Timeout: 30 * time.Second})

	registry := game.NewRegistry(cfg.StartCountdown)

	rateLimiter, err := ratelimit.NewRateLimiter(cfg, redisClient)
	if err != nil {
		logging.Fatal(ctx, "failed to initialize rate limiter", zap.Error(err))
	}

	var redisPinger health.RedisPinger
	if redisClient != nil {
		redisPinger = redisPingAdapter{client: redisClient}
	}
	healthHandler := health.NewHandler(redisPinger, catalogAdapter)

	allowedOrigins := splitNonEmpty(cfg.AllowedOrigins)
	hub := transport.NewHub(registry, catalogAdapter, rateLimiter, allowedOrigins)

	if cfg.GoEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/ws", hub.ServeWs)
	router.Static("/songs", cfg.SongsCacheDir)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "forced shutdown", zap.Error(err))
	}
	logging.Info(ctx, "server exited")
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
