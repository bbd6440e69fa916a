package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"TrackVault/core/dedup"
	"TrackVault/core/fetch"
	"TrackVault/core/match"
	"TrackVault/core/media"
	"TrackVault/core/placer"
	"TrackVault/core/runner"
	"TrackVault/logger"
	"TrackVault/model"
	"TrackVault/repository"

	"github.com/google/uuid"
)

// Item processing is an explicit stage progression so a failure at any stage
// has exactly one recovery action: log it, count a failed item, continue the
// batch.
const (
	stageResolving   = "resolving"
	stageDownloading = "downloading"
	stageTranscoding = "transcoding"
	stagePlacing     = "placing"
	stageRecording   = "recording"
)

// itemError carries the stage an item failed at.
type itemError struct {
	stage string
	err   error
}

func (e *itemError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *itemError) Unwrap() error { return e.err }

func failedAt(stage string, err error) *itemError {
	return &itemError{stage: stage, err: err}
}

// runDirectPipeline handles direct-video and audio-share links: the
// extraction process provides both metadata and bytes.
func (m *Manager) runDirectPipeline(ctx context.Context, run *taskRun) error {
	task := run.task

	infos, err := m.probeSource(ctx, task.SourceURL)
	if err != nil {
		return fmt.Errorf("failed to resolve source metadata: %w", err)
	}
	if err := m.registerItems(run, infos); err != nil {
		return err
	}

	runner.Run(ctx, len(infos), m.cfg.ItemConcurrency, func(ctx context.Context, i int) error {
		// Per-item errors are converted into failed-item outcomes here and
		// never escape to the task level.
		m.runItem(ctx, run, infos[i], func(ctx context.Context) (string, string, error) {
			itemURL := itemSourceURL(task, infos[i])
			staged, err := m.downloadViaExtractor(ctx, itemURL)
			return staged, "", err
		})
		return nil
	})
	return nil
}

// runCatalogPipeline handles streaming-catalog links: metadata comes from
// the extraction process, bytes from the best provider match.
func (m *Manager) runCatalogPipeline(ctx context.Context, run *taskRun) error {
	task := run.task

	infos, err := m.probeSource(ctx, task.SourceURL)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog metadata: %w", err)
	}
	if err := m.registerItems(run, infos); err != nil {
		return err
	}

	runner.Run(ctx, len(infos), m.cfg.ItemConcurrency, func(ctx context.Context, i int) error {
		m.runItem(ctx, run, infos[i], func(ctx context.Context) (string, string, error) {
			return m.downloadViaProviders(ctx, run, infos[i], itemSourceURL(task, infos[i]))
		})
		return nil
	})
	return nil
}

// probeSource resolves metadata through the extraction process with
// transient-error retry.
func (m *Manager) probeSource(ctx context.Context, sourceURL string) ([]media.TrackInfo, error) {
	var infos []media.TrackInfo
	err := runner.Retry(ctx, m.cfg.RetryAttempts, m.cfg.RetryBaseDelay, runner.RetryableError, func(ctx context.Context) error {
		var probeErr error
		infos, probeErr = m.extractor.Probe(ctx, sourceURL)
		return probeErr
	})
	return infos, err
}

// registerItems stamps the definitive item count and playlist flags.
func (m *Manager) registerItems(run *taskRun, infos []media.TrackInfo) error {
	task := run.task
	if len(infos) > 1 {
		title := task.PlaylistTitle
		if title == "" {
			title = infos[0].PlaylistTitle
		}
		if err := m.tasks.SetPlaylistInfo(task.ID, true, title); err != nil {
			return err
		}
	}
	if err := m.tasks.SetTotalItems(task.ID, len(infos)); err != nil {
		return err
	}
	m.logEvent(run, model.EventProgress,
		fmt.Sprintf("resolved %d item(s)", len(infos)),
		map[string]any{"total": len(infos)})
	return nil
}

// download is the per-source byte acquisition step: returns the staged file
// path and an optional quality label for the recorded entry.
type downloadFunc func(ctx context.Context) (stagedFile, quality string, err error)

// runItem drives one item through the stage machine. It owns the outcome:
// every path increments processed exactly once, as successful or failed.
func (m *Manager) runItem(ctx context.Context, run *taskRun, info media.TrackInfo, download downloadFunc) {
	task := run.task
	itemURL := itemSourceURL(task, info)
	display := itemDisplayName(info)

	// A panic while processing one item costs that item, not the batch.
	defer func() {
		if r := recover(); r != nil {
			m.recordItemFailure(run, display, fmt.Errorf("item processing panicked: %v", r))
		}
	}()

	// Dedup before any network activity.
	entry, err := m.dedupe.FindReusable(task.UserID, task.SourceKind, itemURL)
	if err != nil {
		m.recordItemFailure(run, display, failedAt(stageResolving, err))
		return
	}
	if entry != nil {
		m.recordItemReuse(run, entry)
		return // served from the library, no throttle
	}

	staged, quality, err := download(ctx)
	if err != nil {
		m.recordItemFailure(run, display, err)
		m.throttle.Wait(ctx)
		return
	}

	song, err := m.finishItem(ctx, task, staged, info, itemURL, quality)
	if err != nil {
		m.recordItemFailure(run, display, err)
		m.throttle.Wait(ctx)
		return
	}

	m.recordItemSuccess(run, song)
	m.throttle.Wait(ctx)
}

// downloadViaExtractor stages bytes for a direct link.
func (m *Manager) downloadViaExtractor(ctx context.Context, itemURL string) (string, error) {
	base := uuid.NewString()
	template := media.OutputTemplate(m.cfg.StagingDir, base)

	err := runner.Retry(ctx, m.cfg.RetryAttempts, m.cfg.RetryBaseDelay, runner.RetryableError, func(ctx context.Context) error {
		return m.extractor.Download(ctx, itemURL, template)
	})
	if err != nil {
		return "", failedAt(stageDownloading, err)
	}

	matches, err := filepath.Glob(filepath.Join(m.cfg.StagingDir, base+".*"))
	if err != nil || len(matches) == 0 {
		return "", failedAt(stageDownloading, fmt.Errorf("extractor produced no output file"))
	}
	return matches[0], nil
}

// downloadViaProviders resolves the best provider match for a catalog item
// and stages its bytes.
func (m *Manager) downloadViaProviders(ctx context.Context, run *taskRun, info media.TrackInfo, itemURL string) (string, string, error) {
	target := match.TargetTrack{
		Title:     info.Title,
		Artists:   info.Artists,
		Album:     info.Album,
		Duration:  info.Duration,
		SourceURL: itemURL,
	}

	best, err := m.resolver.Resolve(ctx, target)
	if err != nil {
		return "", "", failedAt(stageResolving, err)
	}
	if best == nil {
		// Permanent miss; recorded as a failed item, never retried.
		return "", "", failedAt(stageResolving, fmt.Errorf("no provider match"))
	}

	m.logEvent(run, model.EventTrack,
		fmt.Sprintf("matched %q via %s", info.Title, best.Provider),
		map[string]any{"provider": best.Provider, "score": best.Score, "quality": best.Quality})

	// Fallback matches carry an alternate-platform page URL, which only the
	// extraction process knows how to download.
	if strings.HasPrefix(best.Provider, "songlink:") {
		staged, err := m.downloadViaExtractor(ctx, best.DownloadURL)
		return staged, best.Quality, err
	}

	staged, err := m.fetchToStaging(ctx, best.DownloadURL)
	if err != nil {
		return "", "", err
	}
	return staged, best.Quality, nil
}

// fetchToStaging streams a resolved download URL into the staging dir
// through the verified fetcher.
func (m *Manager) fetchToStaging(ctx context.Context, downloadURL string) (string, error) {
	ext := "audio"
	if u, err := url.Parse(downloadURL); err == nil {
		if e := strings.TrimPrefix(filepath.Ext(u.Path), "."); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	staged := filepath.Join(m.cfg.StagingDir, uuid.NewString()+"."+ext)

	err := runner.Retry(ctx, m.cfg.RetryAttempts, m.cfg.RetryBaseDelay, runner.RetryableError, func(ctx context.Context) error {
		resp, err := fetch.Get(ctx, m.fetcher, downloadURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			return fmt.Errorf("download returned status %d", resp.StatusCode)
		}

		out, err := os.Create(staged)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, resp.Body); err != nil {
			out.Close()
			os.Remove(staged)
			return err
		}
		return out.Close()
	})
	if err != nil {
		return "", failedAt(stageDownloading, err)
	}
	return staged, nil
}

// finishItem drives a staged file through transcoding, placement and
// library recording.
func (m *Manager) finishItem(ctx context.Context, task *model.DownloadTask, staged string, info media.TrackInfo, itemURL, quality string) (*model.Song, error) {
	outFile := staged

	// Transcode when the staged format differs from the target.
	targetFormat := strings.ToLower(task.TargetFormat)
	stagedExt := strings.ToLower(strings.TrimPrefix(filepath.Ext(staged), "."))
	if targetFormat != "" && targetFormat != stagedExt {
		converted := filepath.Join(m.cfg.StagingDir, uuid.NewString()+"."+targetFormat)
		if err := m.transcoder.Transcode(ctx, staged, converted, targetFormat, bitrateFor(targetFormat, task.TargetQuality)); err != nil {
			m.cleanupTemp(staged)
			return nil, failedAt(stageTranscoding, err)
		}
		m.cleanupTemp(staged)
		outFile = converted
	}

	duration := info.Duration
	if duration == 0 {
		if probed, err := m.transcoder.ProbeDuration(outFile); err == nil {
			duration = probed
		}
	}

	placement, err := m.placer.Place(outFile, placer.Metadata{
		Artist:      firstOr(info.Artists, ""),
		Album:       info.Album,
		Title:       info.Title,
		Year:        info.Year,
		TrackNumber: info.TrackNumber,
		DiscNumber:  info.DiscNumber,
		Extension:   strings.TrimPrefix(filepath.Ext(outFile), "."),
	})
	if err != nil {
		m.cleanupTemp(outFile)
		return nil, failedAt(stagePlacing, err)
	}
	if m.janitor != nil {
		m.janitor.Forget(outFile)
	}

	song := &model.Song{
		UserID:       task.UserID,
		SourceKind:   task.SourceKind,
		SourceURL:    dedup.CanonicalURL(task.SourceKind, itemURL),
		FilePath:     placement.AbsolutePath,
		RelativePath: placement.RelativePath,
		Title:        info.Title,
		Artist:       strings.Join(info.Artists, ", "),
		Album:        info.Album,
		TrackNumber:  info.TrackNumber,
		DiscNumber:   info.DiscNumber,
		Year:         info.Year,
		Duration:     duration,
		Quality:      quality,
		CoverPath:    info.Thumbnail,
		TaskID:       task.ID,
		PlaylistID:   task.PlaylistID,
	}

	if err := m.songs.Create(song); err != nil {
		if errors.Is(err, repository.ErrDuplicateSong) {
			// A concurrent worker recorded this source first. Adopt its
			// entry and drop our superseded copy.
			m.cleanupTemp(placement.AbsolutePath)
			winner, findErr := m.dedupe.FindReusable(task.UserID, task.SourceKind, itemURL)
			if findErr == nil && winner != nil {
				return winner, nil
			}
			return nil, failedAt(stageRecording, fmt.Errorf("duplicate entry but winner not found: %v", findErr))
		}
		m.cleanupTemp(placement.AbsolutePath)
		return nil, failedAt(stageRecording, err)
	}
	return song, nil
}

// cleanupTemp removes a superseded or orphaned file. Best effort only:
// failures are logged at info level and swallowed.
func (m *Manager) cleanupTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Info("temp cleanup failed",
			logger.String("path", path), logger.ErrorField(err))
	}
}

func (m *Manager) recordItemReuse(run *taskRun, entry *model.Song) {
	if err := m.tasks.IncrementCounts(run.task.ID, 1, 1, 0); err != nil {
		logger.Error("count increment failed",
			logger.Int64("taskID", run.task.ID), logger.ErrorField(err))
	}
	m.logEvent(run, model.EventTrack,
		fmt.Sprintf("reused existing entry %q", entry.Title),
		map[string]any{"songID": entry.ID, "reused": true})
}

func (m *Manager) recordItemSuccess(run *taskRun, song *model.Song) {
	if err := m.tasks.IncrementCounts(run.task.ID, 1, 1, 0); err != nil {
		logger.Error("count increment failed",
			logger.Int64("taskID", run.task.ID), logger.ErrorField(err))
	}
	m.logEvent(run, model.EventTrack,
		fmt.Sprintf("filed %q", song.Title),
		map[string]any{"songID": song.ID, "path": song.RelativePath})
}

func (m *Manager) recordItemFailure(run *taskRun, display string, cause error) {
	if err := m.tasks.IncrementCounts(run.task.ID, 1, 0, 1); err != nil {
		logger.Error("count increment failed",
			logger.Int64("taskID", run.task.ID), logger.ErrorField(err))
	}
	stage := "unknown"
	var ie *itemError
	if errors.As(cause, &ie) {
		stage = ie.stage
	}
	m.logEvent(run, model.EventError,
		fmt.Sprintf("item %q failed: %v", display, cause),
		map[string]any{"item": display, "stage": stage})
}

func itemSourceURL(task *model.DownloadTask, info media.TrackInfo) string {
	if info.WebpageURL != "" {
		return info.WebpageURL
	}
	return task.SourceURL
}

func itemDisplayName(info media.TrackInfo) string {
	if info.Title != "" {
		return info.Title
	}
	return info.ID
}

// bitrateFor maps a target quality label to an encoder bitrate. Lossless
// codecs take no bitrate.
func bitrateFor(format, quality string) string {
	if format == "flac" {
		return ""
	}
	switch strings.ToLower(quality) {
	case "high", "320":
		return "320k"
	case "low", "128":
		return "128k"
	default:
		return "192k"
	}
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}
