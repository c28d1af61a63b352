package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the guess-the-song game server.
//
// Naming convention: namespace_subsystem_name
// - namespace: guess_the_song (application-level grouping)
// - subsystem: websocket, room, round, catalog, circuit_breaker, rate_limit, redis
// - name: specific metric (connections_active, rounds_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, players)
// - Counter: Cumulative events (rounds played, downloads, errors)
// - Histogram: Latency distributions (round duration, download time)

var (
	// ActiveWebSocketConnections tracks the current number of active game sessions (Gauge - current state)
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "guess_the_song",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of active rooms (Gauge - current state)
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "guess_the_song",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPlayers tracks the number of players in each room (GaugeVec with room_id label - current state per room)
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "guess_the_song",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"room_id"})

	// WebsocketEvents tracks the total number of inbound verbs processed (CounterVec - cumulative)
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guess_the_song",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket verbs processed",
	}, []string{"verb", "status"})

	// MessageProcessingDuration tracks the time spent handling an inbound verb (HistogramVec - latency distribution)
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "guess_the_song",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing a single inbound verb",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"verb"})

	// RoundsTotal tracks the total number of rounds completed, by outcome (CounterVec - cumulative)
	RoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guess_the_song",
		Subsystem: "round",
		Name:      "rounds_total",
		Help:      "Total rounds completed, by outcome",
	}, []string{"outcome"})

	// RoundDuration tracks wall-clock time from guessing-start to round resolution (HistogramVec)
	RoundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "guess_the_song",
		Subsystem: "round",
		Name:      "duration_seconds",
		Help:      "Time from the start of guessing to round resolution",
		Buckets:   []float64{1, 2, 5, 10, 30, 60, 90, 120, 180},
	}, []string{"outcome"})

	// ScoringEvents tracks individual scoring events (CounterVec - cumulative)
	ScoringEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guess_the_song",
		Subsystem: "round",
		Name:      "scoring_events_total",
		Help:      "Total scoring events, by result",
	}, []string{"result"})

	// CatalogDownloadDuration tracks the latency of catalog download/resolve calls (HistogramVec)
	CatalogDownloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "guess_the_song",
		Subsystem: "catalog",
		Name:      "download_duration_seconds",
		Help:      "Duration of catalog download and resolve operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	// CatalogDownloadsTotal tracks completed catalog downloads, by outcome (CounterVec)
	CatalogDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guess_the_song",
		Subsystem: "catalog",
		Name:      "downloads_total",
		Help:      "Total catalog downloads, by outcome",
	}, []string{"status"})

	// CircuitBreakerState tracks the current state of each pooled catalog instance's breaker (GaugeVec)
	// 0: Closed (Healthy), 1: Open (Failure), 2: Half-Open (Recovering)
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "guess_the_song",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the circuit breaker (0: Closed, 1: Open, 2: Half-Open)",
	}, []string{"instance"})

	// CircuitBreakerFailures tracks the total number of requests rejected by a circuit breaker
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guess_the_song",
		Subsystem: "circuit_breaker",
		Name:      "failures_total",
		Help:      "Total requests rejected by the circuit breaker",
	}, []string{"instance"})

	// RateLimitExceeded tracks the total number of requests that exceeded the rate limit
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guess_the_song",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})

	// RateLimitRequests tracks the total number of requests checked against the rate limiter
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guess_the_song",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})

	// RedisOperationsTotal counts Redis operations by operation and status (CounterVec); the catalog cache's Redis calls are not recorded here
	RedisOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guess_the_song",
		Subsystem: "redis",
		Name:      "operations_total",
		Help:      "Total number of Redis operations",
	}, []string{"operation", "status"})

	// RedisOperationDuration tracks the duration of Redis operations (HistogramVec)
	RedisOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "guess_the_song",
		Subsystem: "redis",
		Name:      "operation_duration_seconds",
		Help:      "Duration of Redis operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}
