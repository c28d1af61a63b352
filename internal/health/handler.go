package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
)

// RedisPinger is satisfied by the optional Redis client backing the catalog
// cache (see internal/catalog). A nil RedisPinger means Redis is disabled
// for this deployment and the check is skipped.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// CatalogChecker reports whether at least one pooled catalog instance (C5)
// is currently reachable.
type CatalogChecker interface {
	Healthy(ctx context.Context) bool
}

// Handler manages health check endpoints
type Handler struct {
	redis   RedisPinger
	catalog CatalogChecker
}

// NewHandler creates a new health check handler. redis may be nil when the
// catalog cache is running in-process-only mode.
func NewHandler(redis RedisPinger, catalog CatalogChecker) *Handler {
	return &Handler{
		redis:   redis,
		catalog: catalog,
	}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// Returns 200 only if all critical dependencies are healthy
// Returns 503 if any dependency is unhealthy
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	redisStatus := h.checkRedis(ctx)
	checks["redis"] = redisStatus
	if redisStatus != "healthy" {
		allHealthy = false
	}

	catalogStatus := h.checkCatalog(ctx)
	checks["catalog"] = catalogStatus
	if catalogStatus != "healthy" {
		allHealthy = false
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(statusCode, response)
}

// checkRedis verifies Redis connectivity using PING command
func (h *Handler) checkRedis(ctx context.Context) string {
	// If Redis is not enabled (in-process cache mode), consider it healthy
	if h.redis == nil {
		return "healthy"
	}

	if err := h.redis.Ping(ctx); err != nil {
		logging.Error(ctx, "Redis health check failed", zap.Error(err))
		return "unhealthy"
	}

	return "healthy"
}

// checkCatalog verifies at least one pooled catalog instance (C5) is reachable
func (h *Handler) checkCatalog(ctx context.Context) string {
	if h.catalog == nil {
		return "unhealthy"
	}
	if !h.catalog.Healthy(ctx) {
		return "unhealthy"
	}
	return "healthy"
}

// HealthCheckResponse is a generic health check response for backward compatibility
type HealthCheckResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for better formatting
func (r ReadinessResponse) MarshalJSON() ([]byte, error) {
	type Alias ReadinessResponse
	return json.Marshal(&struct {
		*Alias
	}{
		Alias: (*Alias)(&r),
	})
}
