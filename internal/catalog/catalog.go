package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/game"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/metrics"
)

// maxSuggestions caps suggest() results per §4.5 ("returns up to 6 items").
const maxSuggestions = 6

// Adapter implements game.CatalogAdapter (C5). It is the only package that
// knows about the upstream Invidious-compatible wire format; the core
// package only ever sees game.SearchItem / game.Song.
type Adapter struct {
	pool       *Pool
	httpClient *http.Client
	cache      *cache
	downloader *Downloader
}

// NewAdapter wires a Pool, an optional Redis-backed cache (nil redisClient
// falls back to in-memory), and a Downloader that ensures resolved songs'
// audio lands in songsCacheDir for the /songs static route.
func NewAdapter(pool *Pool, redisClient *redis.Client, songsCacheDir string, httpClient *http.Client) *Adapter {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Adapter{
		pool:       pool,
		httpClient: httpClient,
		cache:      newCache(redisClient, "catalog:"),
		downloader: NewDownloader(songsCacheDir),
	}
}

// Healthy implements internal/health.CatalogChecker.
func (a *Adapter) Healthy(ctx context.Context) bool {
	return a.pool.healthy()
}

// invidiousSearchItem is the subset of an Invidious /api/v1/search row this
// adapter cares about.
type invidiousSearchItem struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	VideoID    string `json:"videoId"`
	AuthorID   string `json:"authorId"`
	PlaylistID string `json:"playlistId"`
}

// Suggest implements §4.5's suggest contract.
func (a *Adapter) Suggest(ctx context.Context, query string) ([]game.SearchItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	var cached []game.SearchItem
	if a.cache.get(ctx, "suggest:"+query, &cached) {
		return cached, nil
	}

	items, err := a.searchUpstream(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(items) > maxSuggestions {
		items = items[:maxSuggestions]
	}
	a.cache.set(ctx, "suggest:"+query, items, suggestionTTL)
	return items, nil
}

func (a *Adapter) searchUpstream(ctx context.Context, query string) ([]game.SearchItem, error) {
	inst, ok := a.pool.next()
	if !ok {
		return nil, fmt.Errorf("no catalog instances available")
	}

	result, err := inst.breaker.Execute(func() (any, error) {
		u := inst.baseURL + "/api/v1/search?q=" + url.QueryEscape(query)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("catalog search: unexpected status %d", resp.StatusCode)
		}

		var rows []invidiousSearchItem
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}
		return rows, nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			metrics.CircuitBreakerFailures.WithLabelValues(inst.baseURL).Inc()
			logging.Warn(ctx, "catalog instance breaker open, suggestion unavailable", zap.String("instance", inst.baseURL))
		}
		return nil, err
	}

	rows := result.([]invidiousSearchItem)
	items := make([]game.SearchItem, 0, len(rows))
	for _, row := range rows {
		id := sourceIDOf(row)
		items = append(items, game.SearchItem{
			Name: row.Title,
			ID:   id,
			Type: sourceTypeOf(id),
		})
	}
	return items, nil
}

// sourceTypeOf labels a source id by the same prefix rule ResolveOneOrMore
// dispatches on: `UC` channel, `PL` playlist, anything else a video.
func sourceTypeOf(id string) string {
	switch {
	case strings.HasPrefix(id, "UC"):
		return "channel"
	case strings.HasPrefix(id, "PL"):
		return "playlist"
	default:
		return "video"
	}
}

func sourceIDOf(row invidiousSearchItem) string {
	switch row.Type {
	case "channel":
		return row.AuthorID
	case "playlist":
		return row.PlaylistID
	default:
		return row.VideoID
	}
}

// invidiousVideo is the subset of /api/v1/videos/{id} this adapter needs.
type invidiousVideo struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// invidiousPlaylist is the subset of /api/v1/playlists/{id} this adapter
// needs; videos is the flattened playlist entry list.
type invidiousPlaylist struct {
	Videos []struct {
		Title   string `json:"title"`
		Author  string `json:"author"`
		VideoID string `json:"videoId"`
	} `json:"videos"`
}

// ResolveOneOrMore implements §4.5's resolve_one_or_more contract: channel
// (`UC` prefix) and playlist (`PL` prefix) ids resolve to many songs,
// everything else to exactly one (GLOSSARY "Source id").
func (a *Adapter) ResolveOneOrMore(ctx context.Context, sourceID string) ([]game.Song, error) {
	switch {
	case strings.HasPrefix(sourceID, "UC"):
		return a.resolveChannel(ctx, sourceID)
	case strings.HasPrefix(sourceID, "PL"):
		return a.resolvePlaylist(ctx, sourceID)
	default:
		return a.resolveVideo(ctx, sourceID)
	}
}

func (a *Adapter) resolveVideo(ctx context.Context, videoID string) ([]game.Song, error) {
	var cached invidiousVideo
	if !a.cache.get(ctx, "video:"+videoID, &cached) {
		v, err := a.fetchVideo(ctx, videoID)
		if err != nil {
			return nil, err
		}
		cached = *v
		a.cache.set(ctx, "video:"+videoID, cached, metadataTTL)
	}

	jobID := uuid.New().String()
	if err := a.downloader.Ensure(ctx, videoID, jobID); err != nil {
		return nil, fmt.Errorf("download %q: %w", videoID, err)
	}

	return []game.Song{{ID: videoID, Title: cached.Title, Artist: cached.Author}}, nil
}

func (a *Adapter) fetchVideo(ctx context.Context, videoID string) (*invidiousVideo, error) {
	inst, ok := a.pool.next()
	if !ok {
		return nil, fmt.Errorf("no catalog instances available")
	}

	result, err := inst.breaker.Execute(func() (any, error) {
		u := inst.baseURL + "/api/v1/videos/" + url.PathEscape(videoID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("catalog video lookup: unexpected status %d", resp.StatusCode)
		}
		var v invidiousVideo
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return nil, fmt.Errorf("decode video response: %w", err)
		}
		return &v, nil
	})
	if err != nil {
		return nil, err
	}
	v := result.(*invidiousVideo)
	return v, nil
}

func (a *Adapter) resolveChannel(ctx context.Context, channelID string) ([]game.Song, error) {
	inst, ok := a.pool.next()
	if !ok {
		return nil, fmt.Errorf("no catalog instances available")
	}

	result, err := inst.breaker.Execute(func() (any, error) {
		u := inst.baseURL + "/api/v1/channels/" + url.PathEscape(channelID) + "/videos"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("catalog channel lookup: unexpected status %d", resp.StatusCode)
		}
		var rows []invidiousVideo2
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode channel videos: %w", err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	rows := result.([]invidiousVideo2)
	songs := make([]game.Song, 0, len(rows))
	for _, row := range rows {
		jobID := uuid.New().String()
		if err := a.downloader.Ensure(ctx, row.VideoID, jobID); err != nil {
			continue // best-effort: skip songs this download pass couldn't fetch
		}
		songs = append(songs, game.Song{ID: row.VideoID, Title: row.Title, Artist: row.Author})
	}
	return songs, nil
}

type invidiousVideo2 struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	VideoID string `json:"videoId"`
}

func (a *Adapter) resolvePlaylist(ctx context.Context, playlistID string) ([]game.Song, error) {
	inst, ok := a.pool.next()
	if !ok {
		return nil, fmt.Errorf("no catalog instances available")
	}

	result, err := inst.breaker.Execute(func() (any, error) {
		u := inst.baseURL + "/api/v1/playlists/" + url.PathEscape(playlistID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("catalog playlist lookup: unexpected status %d", resp.StatusCode)
		}
		var pl invidiousPlaylist
		if err := json.NewDecoder(resp.Body).Decode(&pl); err != nil {
			return nil, fmt.Errorf("decode playlist response: %w", err)
		}
		return pl, nil
	})
	if err != nil {
		return nil, err
	}

	pl := result.(invidiousPlaylist)
	songs := make([]game.Song, 0, len(pl.Videos))
	for _, row := range pl.Videos {
		jobID := uuid.New().String()
		if err := a.downloader.Ensure(ctx, row.VideoID, jobID); err != nil {
			continue
		}
		songs = append(songs, game.Song{ID: row.VideoID, Title: row.Title, Artist: row.Author})
	}
	return songs, nil
}
