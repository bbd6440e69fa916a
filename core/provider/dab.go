package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"TrackVault/core/fetch"
	"TrackVault/core/match"
)

// DabProvider adapts a dab-style catalog API: one search endpoint returning
// track hits with quality labels, one stream endpoint returning the audio URL.
type DabProvider struct {
	apiURL  string
	fetcher fetch.Fetcher
}

// NewDabProvider creates the adapter. apiURL may be empty; the provider then
// reports itself unconfigured on search.
func NewDabProvider(apiURL string, fetcher fetch.Fetcher) *DabProvider {
	return &DabProvider{apiURL: apiURL, fetcher: fetcher}
}

// Name implements Provider.
func (p *DabProvider) Name() string { return "dab" }

type dabSearchResponse struct {
	Tracks []struct {
		ID           json.Number `json:"id"`
		Title        string      `json:"title"`
		Artist       string      `json:"artist"`
		AlbumTitle   string      `json:"albumTitle"`
		Duration     float64     `json:"duration"`
		AudioQuality struct {
			MaximumBitDepth     int     `json:"maximumBitDepth"`
			MaximumSamplingRate float64 `json:"maximumSamplingRate"`
			IsHiRes             bool    `json:"isHiRes"`
		} `json:"audioQuality"`
	} `json:"tracks"`
}

// Search implements Provider.
func (p *DabProvider) Search(ctx context.Context, target match.TargetTrack) ([]match.Candidate, error) {
	if p.apiURL == "" {
		return nil, fmt.Errorf("dab provider not configured")
	}

	query := target.Title
	if len(target.Artists) > 0 {
		query = target.Artists[0] + " " + target.Title
	}
	searchURL := fmt.Sprintf("%s/api/search?q=%s&type=track", p.apiURL, url.QueryEscape(query))

	resp, err := fetch.Get(ctx, p.fetcher, searchURL)
	if err != nil {
		return nil, fmt.Errorf("dab search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("dab search returned status %d", resp.StatusCode)
	}

	var parsed dabSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("dab search response malformed: %w", err)
	}

	candidates := make([]match.Candidate, 0, len(parsed.Tracks))
	for _, hit := range parsed.Tracks {
		quality := match.QualityLossless
		switch {
		case hit.AudioQuality.IsHiRes && hit.AudioQuality.MaximumSamplingRate > 96:
			quality = match.QualityHiResMax
		case hit.AudioQuality.IsHiRes:
			quality = match.QualityHiRes
		case hit.AudioQuality.MaximumBitDepth == 0:
			quality = match.QualityHigh
		}
		candidates = append(candidates, match.Candidate{
			Provider:   p.Name(),
			ProviderID: hit.ID.String(),
			Title:      hit.Title,
			Artists:    []string{hit.Artist},
			Album:      hit.AlbumTitle,
			Duration:   hit.Duration,
			Quality:    quality,
		})
	}
	return candidates, nil
}

type dabStreamResponse struct {
	URL string `json:"url"`
}

// ResolveDownloadURL implements Provider: a second request against the
// stream endpoint.
func (p *DabProvider) ResolveDownloadURL(ctx context.Context, candidate match.Candidate) (string, error) {
	if p.apiURL == "" {
		return "", fmt.Errorf("dab provider not configured")
	}
	if _, err := strconv.ParseInt(candidate.ProviderID, 10, 64); err != nil {
		return "", fmt.Errorf("dab candidate has malformed id %q", candidate.ProviderID)
	}

	streamURL := fmt.Sprintf("%s/api/stream?trackId=%s", p.apiURL, url.QueryEscape(candidate.ProviderID))
	resp, err := fetch.Get(ctx, p.fetcher, streamURL)
	if err != nil {
		return "", fmt.Errorf("dab stream lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("dab stream lookup returned status %d", resp.StatusCode)
	}

	var parsed dabStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("dab stream response malformed: %w", err)
	}
	return parsed.URL, nil
}
