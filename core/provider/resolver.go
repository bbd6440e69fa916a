package provider

import (
	"context"
	"sort"
	"sync"

	"TrackVault/core/match"
	"TrackVault/logger"
)

const (
	// likelyScore is the threshold above which a candidate is considered a
	// likely match. Below it, only the single best candidate is tried.
	likelyScore = 45.0
	// maxResolveAttempts caps how many candidates per provider get a
	// download-URL resolution attempt.
	maxResolveAttempts = 5
)

// Resolver fans a target track out to every registered provider in parallel
// and picks the best downloadable match: highest quality rank first, ties
// broken by similarity score. When no provider matches, the cross-platform
// fallback is consulted before giving up.
type Resolver struct {
	registry *Registry
	fallback *SonglinkResolver
}

// NewResolver creates a resolver over the given registry. fallback may be nil.
func NewResolver(registry *Registry, fallback *SonglinkResolver) *Resolver {
	return &Resolver{registry: registry, fallback: fallback}
}

// Resolve returns the best downloadable match for the target, or nil when no
// provider (including the fallback) can serve it. A nil result is not an
// error and is not retried; the caller records a no-match outcome.
func (r *Resolver) Resolve(ctx context.Context, target match.TargetTrack) (*match.Match, error) {
	providers := r.registry.All()
	matches := make([]*match.Match, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			m, err := r.resolveOne(ctx, p, target)
			if err != nil {
				// Provider failures never abort the others.
				logger.Info("provider skipped",
					logger.String("provider", p.Name()),
					logger.String("title", target.Title),
					logger.ErrorField(err))
				return
			}
			matches[i] = m
		}(i, p)
	}
	wg.Wait()

	best := pickBest(matches)
	if best != nil {
		return best, nil
	}

	if r.fallback != nil {
		fb, err := r.fallback.Resolve(ctx, target)
		if err != nil {
			logger.Info("link-resolution fallback failed",
				logger.String("title", target.Title), logger.ErrorField(err))
			return nil, nil
		}
		return fb, nil
	}
	return nil, nil
}

// resolveOne searches one provider, scores and ranks its hits, and returns
// the first candidate that yields a usable download URL.
func (r *Resolver) resolveOne(ctx context.Context, p Provider, target match.TargetTrack) (*match.Match, error) {
	candidates, err := p.Search(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	for i := range candidates {
		candidates[i].Score = match.Score(target, candidates[i])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	// Keep the likely candidates; fall back to the single best hit when
	// nothing clears the bar.
	kept := candidates[:0:0]
	for _, c := range candidates {
		if c.Score >= likelyScore {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		kept = candidates[:1]
	}
	if len(kept) > maxResolveAttempts {
		kept = kept[:maxResolveAttempts]
	}

	for _, c := range kept {
		downloadURL, err := p.ResolveDownloadURL(ctx, c)
		if err != nil {
			logger.Debug("candidate resolution failed",
				logger.String("provider", p.Name()),
				logger.String("candidate", c.Title),
				logger.ErrorField(err))
			continue
		}
		if downloadURL == "" {
			continue
		}
		return &match.Match{Candidate: c, DownloadURL: downloadURL}, nil
	}
	return nil, nil
}

// pickBest selects across providers: quality rank descending, then score.
func pickBest(matches []*match.Match) *match.Match {
	var best *match.Match
	for _, m := range matches {
		if m == nil {
			continue
		}
		if best == nil {
			best = m
			continue
		}
		mr, br := match.QualityRank(m.Quality), match.QualityRank(best.Quality)
		if mr > br || (mr == br && m.Score > best.Score) {
			best = m
		}
	}
	return best
}
