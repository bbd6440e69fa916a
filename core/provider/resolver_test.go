package provider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"TrackVault/core/match"
)

type stubProvider struct {
	name       string
	candidates []match.Candidate
	searchErr  error
	urls       map[string]string // ProviderID -> download URL
	resolveErr error

	resolveCalls atomic.Int64
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, target match.TargetTrack) ([]match.Candidate, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	out := make([]match.Candidate, len(s.candidates))
	copy(out, s.candidates)
	for i := range out {
		out[i].Provider = s.name
	}
	return out, nil
}

func (s *stubProvider) ResolveDownloadURL(ctx context.Context, candidate match.Candidate) (string, error) {
	s.resolveCalls.Add(1)
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	return s.urls[candidate.ProviderID], nil
}

var target = match.TargetTrack{
	Title:    "Midnight City",
	Artists:  []string{"M83"},
	Album:    "Hurry Up, We're Dreaming",
	Duration: 244,
}

// exact mirrors the target so it scores 100.
func exactCandidate(id, quality string) match.Candidate {
	return match.Candidate{
		ProviderID: id,
		Title:      target.Title,
		Artists:    target.Artists,
		Album:      target.Album,
		Duration:   target.Duration,
		Quality:    quality,
	}
}

func TestResolvePrefersHigherQuality(t *testing.T) {
	lossy := &stubProvider{
		name:       "lossy",
		candidates: []match.Candidate{exactCandidate("l1", "high")},
		urls:       map[string]string{"l1": "https://lossy.example.com/l1.mp3"},
	}
	lossless := &stubProvider{
		name:       "lossless",
		candidates: []match.Candidate{exactCandidate("f1", "lossless")},
		urls:       map[string]string{"f1": "https://lossless.example.com/f1.flac"},
	}

	registry := NewRegistry()
	registry.Register(lossy)
	registry.Register(lossless)

	got, err := NewResolver(registry, nil).Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.Provider != "lossless" {
		t.Errorf("picked %q, want the lossless provider", got.Provider)
	}
}

func TestResolveTiesBrokenByScore(t *testing.T) {
	weak := &stubProvider{
		name: "weak",
		candidates: []match.Candidate{{
			ProviderID: "w1",
			Title:      target.Title + " (Karaoke Version)",
			Artists:    []string{"Backing Band"},
			Quality:    "high",
		}},
		urls: map[string]string{"w1": "https://weak.example.com/w1.mp3"},
	}
	strong := &stubProvider{
		name:       "strong",
		candidates: []match.Candidate{exactCandidate("s1", "high")},
		urls:       map[string]string{"s1": "https://strong.example.com/s1.mp3"},
	}

	registry := NewRegistry()
	registry.Register(weak)
	registry.Register(strong)

	got, err := NewResolver(registry, nil).Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Provider != "strong" {
		t.Errorf("got %+v, want the higher-scoring provider", got)
	}
}

func TestResolveIsolatesProviderFailure(t *testing.T) {
	broken := &stubProvider{name: "broken", searchErr: errors.New("http 503")}
	working := &stubProvider{
		name:       "working",
		candidates: []match.Candidate{exactCandidate("ok", "lossless")},
		urls:       map[string]string{"ok": "https://w.example.com/ok.flac"},
	}

	registry := NewRegistry()
	registry.Register(broken)
	registry.Register(working)

	got, err := NewResolver(registry, nil).Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("a broken provider must not abort resolution: %v", err)
	}
	if got == nil || got.Provider != "working" {
		t.Errorf("got %+v, want the working provider", got)
	}
}

func TestResolveNoMatchIsNotAnError(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubProvider{name: "empty"})

	got, err := NewResolver(registry, nil).Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil match, got %+v", got)
	}
}

func TestResolveSkipsUnresolvableCandidates(t *testing.T) {
	p := &stubProvider{
		name: "flaky",
		candidates: []match.Candidate{
			exactCandidate("dead", "lossless"),
			exactCandidate("alive", "lossless"),
		},
		urls: map[string]string{"alive": "https://p.example.com/alive.flac"},
	}
	registry := NewRegistry()
	registry.Register(p)

	got, err := NewResolver(registry, nil).Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ProviderID != "alive" {
		t.Errorf("got %+v, want the resolvable candidate", got)
	}
}

func TestResolveCapsResolutionAttempts(t *testing.T) {
	var candidates []match.Candidate
	for i := 0; i < maxResolveAttempts+4; i++ {
		candidates = append(candidates, exactCandidate(string(rune('a'+i)), "high"))
	}
	p := &stubProvider{
		name:       "unresolvable",
		candidates: candidates,
		resolveErr: errors.New("gone"),
	}
	registry := NewRegistry()
	registry.Register(p)

	got, err := NewResolver(registry, nil).Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no match, got %+v", got)
	}
	if calls := p.resolveCalls.Load(); calls != maxResolveAttempts {
		t.Errorf("resolution attempted %d times, cap is %d", calls, maxResolveAttempts)
	}
}

func TestResolveTriesBestWhenNothingClearsBar(t *testing.T) {
	p := &stubProvider{
		name: "longshot",
		candidates: []match.Candidate{{
			ProviderID: "only",
			Title:      "Completely Different Song",
			Artists:    []string{"Someone Else"},
			Quality:    "standard",
		}},
		urls: map[string]string{"only": "https://p.example.com/only.mp3"},
	}
	registry := NewRegistry()
	registry.Register(p)

	got, err := NewResolver(registry, nil).Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ProviderID != "only" {
		t.Errorf("got %+v, want the single best hit despite its score", got)
	}
}
