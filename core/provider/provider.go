// Package provider holds the catalog provider adapters and the resolver that
// fans a target track out across them. Every provider failure is isolated:
// a misconfigured or unreachable provider is skipped, never fatal.
package provider

import (
	"context"

	"TrackVault/core/match"
)

// Provider is one third-party audio catalog capable of search and, for a
// matched candidate, download-URL resolution.
type Provider interface {
	// Name identifies the provider in logs and match annotations.
	Name() string

	// Search returns raw candidates for the target. An unconfigured
	// provider returns an error; the resolver logs it as skipped.
	Search(ctx context.Context, target match.TargetTrack) ([]match.Candidate, error)

	// ResolveDownloadURL materializes an actual download URL for a
	// candidate. This may require a second request or a bounded poll loop.
	// An empty URL with nil error means the candidate is not downloadable.
	ResolveDownloadURL(ctx context.Context, candidate match.Candidate) (string, error)
}

// Registry is an ordered list of provider adapters.
type Registry struct {
	providers []Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a provider.
func (r *Registry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// All returns the registered providers in registration order.
func (r *Registry) All() []Provider {
	return r.providers
}
