package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"TrackVault/core/fetch"
	"TrackVault/core/match"
)

// SonglinkResolver is the cross-platform fallback: when no catalog provider
// yields a match, it maps the target's source URL to equivalent pages on
// alternate platforms. The returned match carries the alternate page URL,
// which the direct-extraction path knows how to download.
type SonglinkResolver struct {
	apiURL  string
	fetcher fetch.Fetcher
	// platforms to accept, in preference order
	platforms []string
}

// NewSonglinkResolver creates the fallback resolver.
func NewSonglinkResolver(apiURL string, fetcher fetch.Fetcher) *SonglinkResolver {
	return &SonglinkResolver{
		apiURL:    apiURL,
		fetcher:   fetcher,
		platforms: []string{"youtube", "soundcloud"},
	}
}

type songlinkResponse struct {
	LinksByPlatform map[string]struct {
		URL string `json:"url"`
	} `json:"linksByPlatform"`
}

// Resolve maps the target to an alternate-platform page. Returns nil without
// error when no platform link is available.
func (r *SonglinkResolver) Resolve(ctx context.Context, target match.TargetTrack) (*match.Match, error) {
	if r.apiURL == "" || target.SourceURL == "" {
		return nil, nil
	}

	lookupURL := fmt.Sprintf("%s/links?url=%s", r.apiURL, url.QueryEscape(target.SourceURL))
	resp, err := fetch.Get(ctx, r.fetcher, lookupURL)
	if err != nil {
		return nil, fmt.Errorf("songlink lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("songlink lookup returned status %d", resp.StatusCode)
	}

	var parsed songlinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("songlink response malformed: %w", err)
	}

	for _, platform := range r.platforms {
		if link, ok := parsed.LinksByPlatform[platform]; ok && link.URL != "" {
			return &match.Match{
				Candidate: match.Candidate{
					Provider: "songlink:" + platform,
					Title:    target.Title,
					Artists:  target.Artists,
					Album:    target.Album,
					Duration: target.Duration,
					Quality:  match.QualityStandard,
					Score:    100,
				},
				DownloadURL: link.URL,
			}, nil
		}
	}
	return nil, nil
}
