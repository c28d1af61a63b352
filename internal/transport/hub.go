// Package transport implements the Session (C1) that §4.1 describes: the
// WebSocket boundary between one client connection and the core game
// package. Nothing outside this package knows the wire format — core
// components only ever see ServerMessage variants (internal/game).
package transport

import (
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/catalog"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/game"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/metrics"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/ratelimit"
)

// Hub is the central coordinator for all WebSocket connections: it owns the
// upgrade handshake, assigns each connection a game.User, and hands every
// parsed command off to game.Dispatch. Unlike the teacher's Hub it holds no
// per-room state of its own — that lives entirely in *game.Registry (C2).
type Hub struct {
	registry    *game.Registry
	catalog     *catalog.Adapter
	rateLimiter *ratelimit.RateLimiter

	allowedOrigins []string
	upgrader       websocket.Upgrader

	mu     sync.Mutex
	nextID uint32
}

// NewHub wires the registry and catalog adapter together with the optional
// rate limiter (nil disables per-connection throttling, e.g. in tests). The
// upgrader's CheckOrigin is fixed once here rather than per-request, since a
// package-level mutable upgrader would race across concurrent connections.
func NewHub(registry *game.Registry, cat *catalog.Adapter, rateLimiter *ratelimit.RateLimiter, allowedOrigins []string) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	h := &Hub{
		registry:       registry,
		catalog:        cat,
		rateLimiter:    rateLimiter,
		allowedOrigins: allowedOrigins,
		nextID:         uint32(rand.Uint32()),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
		WriteBufferPool: &sync.Pool{
			New: func() any { return make([]byte, 4096) },
		},
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.allowedOrigins {
		allowedURL, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return true
		}
	}
	return false
}

// allocUserID hands out a process-unique id per connection (no
// authentication in this system — spec.md Non-goals — so a simple counter
// seeded randomly is sufficient, mirroring the teacher's claims.Subject-as-
// identity shortcut without needing a JWT).
func (h *Hub) allocUserID() game.UserID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	return game.UserID(h.nextID)
}

// ServeWs upgrades the request, builds a fresh game.User + Session, and
// starts its read/write pumps. There is no authentication step (unlike the
// teacher's JWT-gated ServeWs) — anonymous display names are assigned and
// renamed via set_username (§6).
func (h *Hub) ServeWs(c *gin.Context) {
	if h.rateLimiter != nil && !h.rateLimiter.CheckConnect(c) {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	id := h.allocUserID()
	user := game.NewUser(id, "player")

	sess := &Session{
		conn:        conn,
		send:        make(chan game.ServerMessage, 64),
		done:        make(chan struct{}),
		user:        user,
		registry:    h.registry,
		catalog:     h.catalog,
		rateLimiter: h.rateLimiter,
	}
	user.SetSend(sess)

	metrics.ActiveWebSocketConnections.Inc()

	go sess.writePump()
	go sess.readPump()
}
