package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"TrackVault/core/fetch"
	"TrackVault/core/match"
	"TrackVault/core/runner"
	"TrackVault/logger"
)

// TidalProvider adapts the community tidal proxy APIs. Several mirrors are
// tried in order for every call; the download-URL endpoint fulfils requests
// asynchronously, so resolution runs as a bounded poll loop.
type TidalProvider struct {
	apiURLs      []string
	fetcher      fetch.Fetcher
	pollAttempts int
	pollInterval time.Duration
}

// NewTidalProvider creates the adapter. An empty mirror list leaves the
// provider unconfigured.
func NewTidalProvider(apiURLs []string, fetcher fetch.Fetcher) *TidalProvider {
	return &TidalProvider{
		apiURLs:      apiURLs,
		fetcher:      fetcher,
		pollAttempts: 20,
		pollInterval: 1500 * time.Millisecond,
	}
}

// Name implements Provider.
func (p *TidalProvider) Name() string { return "tidal" }

type tidalSearchResponse struct {
	Items []struct {
		ID           int64   `json:"id"`
		Title        string  `json:"title"`
		Duration     float64 `json:"duration"`
		AudioQuality string  `json:"audioQuality"`
		Artist       struct {
			Name string `json:"name"`
		} `json:"artist"`
		Album struct {
			Title string `json:"title"`
		} `json:"album"`
	} `json:"items"`
}

// Search implements Provider, trying each mirror until one answers.
func (p *TidalProvider) Search(ctx context.Context, target match.TargetTrack) ([]match.Candidate, error) {
	if len(p.apiURLs) == 0 {
		return nil, fmt.Errorf("tidal provider not configured")
	}

	query := target.Title
	if len(target.Artists) > 0 {
		query = target.Artists[0] + " " + target.Title
	}

	var lastErr error
	for _, apiURL := range p.apiURLs {
		searchURL := fmt.Sprintf("%s/search/?s=%s", apiURL, url.QueryEscape(query))
		candidates, err := p.searchOne(ctx, searchURL)
		if err != nil {
			lastErr = err
			logger.Debug("tidal mirror failed, trying next",
				logger.String("mirror", apiURL), logger.ErrorField(err))
			continue
		}
		return candidates, nil
	}
	return nil, fmt.Errorf("all tidal mirrors failed: %w", lastErr)
}

func (p *TidalProvider) searchOne(ctx context.Context, searchURL string) ([]match.Candidate, error) {
	resp, err := fetch.Get(ctx, p.fetcher, searchURL)
	if err != nil {
		return nil, fmt.Errorf("tidal search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("tidal search returned status %d", resp.StatusCode)
	}

	var parsed tidalSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tidal search response malformed: %w", err)
	}

	candidates := make([]match.Candidate, 0, len(parsed.Items))
	for _, hit := range parsed.Items {
		quality := match.QualityLossless
		switch hit.AudioQuality {
		case "HIRES_LOSSLESS", "HI_RES_LOSSLESS", "HI_RES":
			quality = match.QualityHiRes
		case "HIGH":
			quality = match.QualityHigh
		case "LOW":
			quality = match.QualityStandard
		}
		candidates = append(candidates, match.Candidate{
			Provider:   p.Name(),
			ProviderID: fmt.Sprintf("%d", hit.ID),
			Title:      hit.Title,
			Artists:    []string{hit.Artist.Name},
			Album:      hit.Album.Title,
			Duration:   hit.Duration,
			Quality:    quality,
		})
	}
	return candidates, nil
}

type tidalTrackResponse struct {
	Status string `json:"status"` // "pending" while the job runs
	URL    string `json:"url"`
}

// ResolveDownloadURL implements Provider. The track endpoint may answer
// "pending" while the upstream job materializes the URL, so this polls with
// a hard attempt ceiling.
func (p *TidalProvider) ResolveDownloadURL(ctx context.Context, candidate match.Candidate) (string, error) {
	if len(p.apiURLs) == 0 {
		return "", fmt.Errorf("tidal provider not configured")
	}

	var lastErr error
	for _, apiURL := range p.apiURLs {
		trackURL := fmt.Sprintf("%s/track/?id=%s&quality=LOSSLESS", apiURL, url.QueryEscape(candidate.ProviderID))
		downloadURL, err := runner.Poll(ctx, p.pollAttempts, p.pollInterval, func(ctx context.Context) (string, error) {
			return p.checkTrack(ctx, trackURL)
		})
		if err != nil {
			lastErr = err
			continue
		}
		return downloadURL, nil
	}
	return "", fmt.Errorf("tidal download URL resolution failed: %w", lastErr)
}

func (p *TidalProvider) checkTrack(ctx context.Context, trackURL string) (string, error) {
	resp, err := fetch.Get(ctx, p.fetcher, trackURL)
	if err != nil {
		return "", fmt.Errorf("tidal track lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("tidal track lookup returned status %d", resp.StatusCode)
	}

	var parsed tidalTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("tidal track response malformed: %w", err)
	}
	if parsed.Status == "pending" || parsed.URL == "" {
		return "", runner.ErrPollPending
	}
	return parsed.URL, nil
}
