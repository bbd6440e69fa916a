// Package media wraps the external audio-extraction and transcoding
// processes the orchestration shells out to.
package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// TrackInfo is the metadata an extraction yields for one item.
type TrackInfo struct {
	ID          string
	Title       string
	Artists     []string
	Album       string
	Duration    float64 // seconds
	TrackNumber int
	DiscNumber  int
	Year        int
	Thumbnail   string
	WebpageURL  string

	// PlaylistTitle is set when the item came from a playlist probe.
	PlaylistTitle string
}

// Extractor resolves metadata for direct links and performs the byte
// download for them. Implemented by a yt-dlp compatible external process.
type Extractor interface {
	// Probe returns metadata for a link. For playlists, one entry per item.
	Probe(ctx context.Context, sourceURL string) ([]TrackInfo, error)
	// Download fetches the audio for a single link into destFile.
	Download(ctx context.Context, sourceURL, destFile string) error
}

// ProcessExtractor shells out to a yt-dlp style binary.
type ProcessExtractor struct {
	binaryPath string
}

// NewProcessExtractor creates an extractor around the given binary.
func NewProcessExtractor(binaryPath string) *ProcessExtractor {
	return &ProcessExtractor{binaryPath: binaryPath}
}

type extractorEntry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Track      string   `json:"track"`
	Artist     string   `json:"artist"`
	Artists    []string `json:"artists"`
	Uploader   string   `json:"uploader"`
	Album      string   `json:"album"`
	Duration   float64  `json:"duration"`
	TrackNum   int      `json:"track_number"`
	DiscNum    int      `json:"disc_number"`
	ReleaseYr  int      `json:"release_year"`
	Thumbnail  string   `json:"thumbnail"`
	WebpageURL string   `json:"webpage_url"`
	Playlist   string   `json:"playlist_title"`
}

// Probe implements Extractor using --dump-json, which emits one JSON object
// per line for playlists.
func (e *ProcessExtractor) Probe(ctx context.Context, sourceURL string) ([]TrackInfo, error) {
	args := []string{
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
		sourceURL,
	}
	cmd := exec.CommandContext(ctx, e.binaryPath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("extractor probe failed for %s: %w\nextractor output: %s",
			sourceURL, err, strings.TrimSpace(stderr.String()))
	}

	var tracks []TrackInfo
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry extractorEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("extractor produced malformed metadata: %w", err)
		}
		tracks = append(tracks, entry.toTrackInfo())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read extractor output: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no metadata found for %s", sourceURL)
	}
	return tracks, nil
}

func (entry extractorEntry) toTrackInfo() TrackInfo {
	title := entry.Track
	if title == "" {
		title = entry.Title
	}
	artists := entry.Artists
	if len(artists) == 0 && entry.Artist != "" {
		artists = []string{entry.Artist}
	}
	if len(artists) == 0 && entry.Uploader != "" {
		artists = []string{entry.Uploader}
	}
	return TrackInfo{
		ID:            entry.ID,
		Title:         title,
		Artists:       artists,
		Album:         entry.Album,
		Duration:      entry.Duration,
		TrackNumber:   entry.TrackNum,
		DiscNumber:    entry.DiscNum,
		Year:          entry.ReleaseYr,
		Thumbnail:     entry.Thumbnail,
		WebpageURL:    entry.WebpageURL,
		PlaylistTitle: entry.Playlist,
	}
}

// Download implements Extractor: best available audio into destFile.
func (e *ProcessExtractor) Download(ctx context.Context, sourceURL, destFile string) error {
	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"-o", destFile,
		sourceURL,
	}
	cmd := exec.CommandContext(ctx, e.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("extractor download failed for %s: %w\nextractor output: %s",
			sourceURL, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// OutputTemplate builds a staging destination honoring yt-dlp's extension
// substitution.
func OutputTemplate(stagingDir, baseName string) string {
	return filepath.Join(stagingDir, baseName+".%(ext)s")
}
