// Package ratelimit implements rate limiting logic using Redis or local memory.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/config"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/metrics"
)

// RateLimiter holds the rate limiter instances. There is no authentication in
// this system (spec.md Non-goals), so "identity" for the per-verb limiter is
// just the random connection id the transport layer assigns on join — still
// enough to stop a single misbehaving connection from hammering the catalog
// or the round engine.
type RateLimiter struct {
	wsConnect   *limiter.Limiter // per-IP, guards the /ws upgrade endpoint
	command     *limiter.Limiter // per-connection-id, guards add/suggest/guess verbs
	store       limiter.Store
	redisClient *redis.Client
}

// NewRateLimiter creates a new RateLimiter instance
func NewRateLimiter(cfg *config.Config, redisClient *redis.Client) (*RateLimiter, error) {
	connectRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsConnect)
	if err != nil {
		return nil, fmt.Errorf("invalid ws connect rate: %w", err)
	}

	commandRate, err := limiter.NewRateFromFormatted(cfg.RateLimitCommand)
	if err != nil {
		return nil, fmt.Errorf("invalid command rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:v1:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
		logging.Info(context.Background(), "rate limiter using Redis store")
	} else {
		store = memory.NewStore()
		logging.Warn(context.Background(), "rate limiter using memory store (Redis disabled)")
	}

	return &RateLimiter{
		wsConnect:   limiter.New(store, connectRate),
		command:     limiter.New(store, commandRate),
		store:       store,
		redisClient: redisClient,
	}, nil
}

// CheckConnect enforces the per-IP connection rate limit on the /ws upgrade
// endpoint, before the socket is upgraded. Returns true if the connection may
// proceed; on false it has already written the 429 response.
func (rl *RateLimiter) CheckConnect(c *gin.Context) bool {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	result, err := rl.wsConnect.Get(ctx, ip)
	if err != nil {
		logging.Error(ctx, "rate limiter store failed (connect)", zap.Error(err))
		return true // fail open
	}

	c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))

	if result.Reached {
		metrics.RateLimitExceeded.WithLabelValues("ws_connect", "ip").Inc()
		c.Header("Retry-After", strconv.FormatInt(result.Reset-time.Now().Unix(), 10))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many connection attempts",
			"retry_after": result.Reset,
		})
		return false
	}

	metrics.RateLimitRequests.WithLabelValues("ws_connect").Inc()
	return true
}

// CheckCommand enforces the per-connection verb rate limit (add/suggest/guess).
// Called from the transport read loop once per inbound line.
func (rl *RateLimiter) CheckCommand(ctx context.Context, connectionID string) error {
	result, err := rl.command.Get(ctx, connectionID)
	if err != nil {
		logging.Error(ctx, "rate limiter store failed (command)", zap.Error(err))
		return nil // fail open
	}

	if result.Reached {
		metrics.RateLimitExceeded.WithLabelValues("command", "connection").Inc()
		return fmt.Errorf("rate limit exceeded")
	}

	metrics.RateLimitRequests.WithLabelValues("command").Inc()
	return nil
}
