// Package catalog implements C5 (§4.5): the music-catalog adapter. It
// satisfies game.CatalogAdapter by querying a round-robin pool of
// Invidious-compatible instances, each wrapped in its own circuit breaker,
// with a suggestion/metadata cache in front and a periodic instance-list
// refresh behind.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/metrics"
)

// instancesAPIURL lists public Invidious instances sorted by health; used
// to refresh the pool the same way the original's InstanceFinder does.
const instancesAPIURL = "https://api.invidious.io/instances.json?sort_by=health"

// instance pairs one upstream base URL with its own breaker, so one flaky
// instance can trip without affecting the others in the pool.
type instance struct {
	baseURL string
	breaker *gobreaker.CircuitBreaker
}

// Pool is a round-robin set of equivalent upstream catalog instances (§4.5:
// "a small round-robin pool of equivalent upstream instances"), refreshed
// periodically from instancesAPIURL, grounded on original_source's
// InstanceFinder (music_handler.rs).
type Pool struct {
	mu        sync.RWMutex
	instances []instance
	rrIndex   uint64

	httpClient    *http.Client
	refreshPeriod time.Duration
	backup        []string

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateVal)
		},
	})
}

// NewPool seeds the pool with the configured backup instances (config's
// CATALOG_INSTANCES) and starts the periodic refresh loop. refreshPeriod is
// config.Config.CatalogRefreshPeriod (8h in production).
func NewPool(backup []string, refreshPeriod time.Duration, httpClient *http.Client) *Pool {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	p := &Pool{
		httpClient:    httpClient,
		refreshPeriod: refreshPeriod,
		backup:        backup,
		stopCh:        make(chan struct{}),
	}
	p.setInstancesLocked(backup)
	go p.refreshLoop()
	return p
}

func (p *Pool) setInstancesLocked(urls []string) {
	instances := make([]instance, 0, len(urls))
	for _, u := range urls {
		instances = append(instances, instance{baseURL: u, breaker: newBreaker(u)})
	}
	p.mu.Lock()
	p.instances = instances
	p.mu.Unlock()
}

// next returns the next instance in round-robin order, grounded on
// InstanceFinder.get_instance's wrap-around index.
func (p *Pool) next() (instance, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.instances) == 0 {
		return instance{}, false
	}
	idx := atomic.AddUint64(&p.rrIndex, 1) - 1
	return p.instances[idx%uint64(len(p.instances))], true
}

// size reports how many instances are currently pooled.
func (p *Pool) size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.instances)
}

// healthy reports whether at least one pooled instance's breaker is not
// open — used by the /health/ready catalog check.
func (p *Pool) healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, inst := range p.instances {
		if inst.breaker.State() != gobreaker.StateOpen {
			return true
		}
	}
	return false
}

// refreshLoop periodically repopulates the pool from instancesAPIURL,
// grounded on original_source's start_instance_finder (10 min in the
// original; here config.Config.CatalogRefreshPeriod, 8h by default).
func (p *Pool) refreshLoop() {
	ticker := time.NewTicker(p.refreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.refreshOnce()
		}
	}
}

func (p *Pool) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	urls, err := p.fetchInstanceList(ctx)
	if err != nil {
		logging.Warn(ctx, "catalog instance refresh failed, keeping current pool", zap.Error(err))
		return
	}
	if len(urls) == 0 {
		urls = p.backup
	}
	p.setInstancesLocked(urls)
	logging.Info(ctx, "catalog instance pool refreshed", zap.Int("count", len(urls)))
}

// fetchInstanceList mirrors InstanceFinder.update_instances: the endpoint
// returns an array of [host, {...}] tuples; only the host is kept.
func (p *Pool) fetchInstanceList(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instancesAPIURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instances.json: unexpected status %d", resp.StatusCode)
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode instances.json: %w", err)
	}

	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		var pair []json.RawMessage
		if err := json.Unmarshal(row, &pair); err != nil || len(pair) == 0 {
			continue
		}
		var host string
		if err := json.Unmarshal(pair[0], &host); err != nil {
			continue
		}
		urls = append(urls, "https://"+host)
	}
	return urls, nil
}

// Close stops the background refresh loop.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}
