package catalog

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/VirusBLITZ/guess-the-song-backend/internal/logging"
	"github.com/VirusBLITZ/guess-the-song-backend/internal/metrics"
)

// downloadTimeout bounds a single yt-dlp invocation; the static cache
// directory and file serving themselves are out of the core's scope (§1),
// but add_song's background worker (§4.3) still needs the bytes on disk
// before the song is playable over /songs.
const downloadTimeout = 2 * time.Minute

// Downloader ensures a source id's audio file exists under a songs cache
// directory, invoking an external downloader binary (yt-dlp) only when the
// file is not already there (a cache hit short-circuits the exec; a failed
// download runs the binary again on the next call).
type Downloader struct {
	cacheDir string
	command  string // overridable in tests
}

// NewDownloader points at cacheDir (config.Config.SongsCacheDir) and the
// "yt-dlp" binary on PATH.
func NewDownloader(cacheDir string) *Downloader {
	return &Downloader{cacheDir: cacheDir, command: "yt-dlp"}
}

// Ensure downloads sourceID's audio into cacheDir/<sourceID>.<ext> if it is
// not already present. jobID correlates this attempt in logs/metrics
// (google/uuid, minted by the caller per resolve call).
func (d *Downloader) Ensure(ctx context.Context, sourceID, jobID string) error {
	dest := filepath.Join(d.cacheDir, sourceID+".m4a")
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	if err := os.MkdirAll(d.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create songs cache dir: %w", err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.command,
		"-x", "--audio-format", "m4a",
		"-o", dest,
		"https://youtu.be/"+sourceID,
	)

	err := cmd.Run()
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CatalogDownloadDuration.WithLabelValues("download", status).Observe(time.Since(start).Seconds())
	metrics.CatalogDownloadsTotal.WithLabelValues(status).Inc()

	if err != nil {
		logging.Error(ctx, "song download failed",
			zap.String("source_id", sourceID), zap.String("job_id", jobID), zap.Error(err))
		return fmt.Errorf("yt-dlp failed for %q: %w", sourceID, err)
	}

	logging.Info(ctx, "song downloaded",
		zap.String("source_id", sourceID), zap.String("job_id", jobID), zap.Duration("took", time.Since(start)))
	return nil
}
