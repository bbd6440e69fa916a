// Package dedup decides whether a previously recorded library entry can be
// reused instead of re-downloading. It never initiates network activity.
package dedup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"TrackVault/logger"
	"TrackVault/model"
	"TrackVault/repository"
)

// PathOutcome is the result of verifying a stored file path.
type PathOutcome int

const (
	// PathHealed means the file exists, possibly at a different real path
	// than stored.
	PathHealed PathOutcome = iota
	// PathMissing means the file confirmedly does not exist under an
	// allowed root; the stale entry may be deleted.
	PathMissing
	// PathAmbiguous means the path cannot be verified to live inside an
	// allowed root; the entry must be left untouched.
	PathAmbiguous
)

// PathResolver verifies a stored path against the managed storage roots.
// The filesystem implementation below covers the common case; deployments
// with stricter path policies supply their own.
type PathResolver interface {
	Resolve(storedPath string) (realPath string, outcome PathOutcome)
}

// Engine reuses still-present library entries where possible and heals or
// prunes stale path records along the way.
type Engine struct {
	songs       repository.SongRepository
	resolver    PathResolver
	storageRoot string
}

// NewEngine creates a dedup engine.
func NewEngine(songs repository.SongRepository, resolver PathResolver, storageRoot string) *Engine {
	return &Engine{songs: songs, resolver: resolver, storageRoot: storageRoot}
}

// FindReusable returns the newest entry for (user, kind, canonical URL)
// whose file still exists on disk, or nil when none does. Entries with a
// confirmed-missing file are deleted; entries whose path cannot be verified
// are skipped and never deleted. A healed path is written back as a side
// effect.
func (e *Engine) FindReusable(userID int64, kind model.SourceKind, rawURL string) (*model.Song, error) {
	canonical := CanonicalURL(kind, rawURL)
	entries, err := e.songs.FindByCanonicalURL(userID, kind, canonical)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup failed for %s: %w", canonical, err)
	}

	for _, entry := range entries {
		realPath, outcome := e.resolver.Resolve(entry.FilePath)
		switch outcome {
		case PathHealed:
			if realPath != entry.FilePath {
				rel := entry.RelativePath
				if r, relErr := filepath.Rel(e.storageRoot, realPath); relErr == nil {
					rel = r
				}
				if err := e.songs.UpdatePaths(entry.ID, realPath, rel); err != nil {
					return nil, fmt.Errorf("failed to heal path for song %d: %w", entry.ID, err)
				}
				entry.FilePath = realPath
				entry.RelativePath = rel
			}
			return entry, nil

		case PathMissing:
			logger.Info("pruning stale library entry",
				logger.Int64("songID", entry.ID),
				logger.String("path", entry.FilePath))
			if err := e.songs.Delete(entry.ID); err != nil {
				return nil, fmt.Errorf("failed to delete stale song %d: %w", entry.ID, err)
			}

		case PathAmbiguous:
			// Cannot confirm the path is ours; leave the entry alone.
			logger.Debug("skipping unverifiable library entry",
				logger.Int64("songID", entry.ID),
				logger.String("path", entry.FilePath))
		}
	}
	return nil, nil
}

// FSPathResolver verifies paths directly against the filesystem, confining
// deletions to the configured allowed roots.
type FSPathResolver struct {
	AllowedRoots []string
}

// Resolve implements PathResolver.
func (r *FSPathResolver) Resolve(storedPath string) (string, PathOutcome) {
	if storedPath == "" {
		return "", PathAmbiguous
	}
	abs, err := filepath.Abs(storedPath)
	if err != nil {
		return "", PathAmbiguous
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if r.underAllowedRoot(abs) {
				return "", PathMissing
			}
			return "", PathAmbiguous
		}
		return "", PathAmbiguous
	}

	if info, err := os.Stat(real); err != nil || info.IsDir() {
		return "", PathAmbiguous
	}
	if !r.underAllowedRoot(real) {
		return "", PathAmbiguous
	}
	return real, PathHealed
}

func (r *FSPathResolver) underAllowedRoot(path string) bool {
	for _, root := range r.AllowedRoots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
