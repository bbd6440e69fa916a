// Package placer computes safe, organized, collision-free destinations for
// finished audio assets and moves them into the managed library.
package placer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxSegmentLength = 120
	// maxCollisionProbes bounds the "(2)", "(3)", ... suffix search before
	// falling back to a timestamp suffix.
	maxCollisionProbes = 50

	fallbackArtist = "Unknown Artist"
	fallbackAlbum  = "Singles"
	fallbackTitle  = "Unknown title"
)

// Metadata carries the fields the destination path is built from.
type Metadata struct {
	Artist      string
	Album       string
	Title       string
	Year        int
	TrackNumber int
	DiscNumber  int
	Extension   string // without dot, e.g. "flac"
}

// Placement is the result of placing a file.
type Placement struct {
	AbsolutePath string
	RelativePath string // relative to the storage root
}

// Placer moves finished downloads into the library tree.
type Placer struct {
	storageRoot string
}

// NewPlacer creates a placer rooted at storageRoot.
func NewPlacer(storageRoot string) (*Placer, error) {
	abs, err := filepath.Abs(storageRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid storage root %q: %w", storageRoot, err)
	}
	return &Placer{storageRoot: abs}, nil
}

// Place moves sourceFile to its computed destination
// music/<Artist>/<Year> - <Album>/[<Disc>-]<Track> - <Title>.<ext> under the
// storage root, refusing any destination that would escape the root, and
// resolving name collisions with incrementing suffixes.
func (p *Placer) Place(sourceFile string, meta Metadata) (*Placement, error) {
	rel := p.relativeDestination(meta)
	abs := filepath.Join(p.storageRoot, rel)

	// The sanitizer strips separators from every segment, so an escape here
	// means something went badly wrong; refuse rather than write.
	if !strings.HasPrefix(abs, p.storageRoot+string(filepath.Separator)) {
		return nil, fmt.Errorf("destination %q falls outside the storage root", abs)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	abs, err := freeName(abs)
	if err != nil {
		return nil, err
	}

	if err := moveFile(sourceFile, abs); err != nil {
		os.Remove(abs) // release the claimed name
		return nil, fmt.Errorf("failed to move %q into place: %w", sourceFile, err)
	}

	rel, err = filepath.Rel(p.storageRoot, abs)
	if err != nil {
		return nil, fmt.Errorf("failed to compute relative path: %w", err)
	}
	return &Placement{AbsolutePath: abs, RelativePath: rel}, nil
}

func (p *Placer) relativeDestination(meta Metadata) string {
	artist := sanitizeSegment(meta.Artist, fallbackArtist)
	album := sanitizeSegment(meta.Album, fallbackAlbum)
	title := sanitizeSegment(meta.Title, fallbackTitle)

	albumDir := album
	if meta.Year > 0 {
		albumDir = fmt.Sprintf("%d - %s", meta.Year, album)
	}

	var fileName string
	switch {
	case meta.TrackNumber > 0 && meta.DiscNumber > 1:
		fileName = fmt.Sprintf("%d-%02d - %s", meta.DiscNumber, meta.TrackNumber, title)
	case meta.TrackNumber > 0:
		fileName = fmt.Sprintf("%02d - %s", meta.TrackNumber, title)
	default:
		fileName = title
	}

	ext := strings.TrimPrefix(meta.Extension, ".")
	if ext == "" {
		ext = "mp3"
	}
	return filepath.Join("music", artist, albumDir, fileName+"."+ext)
}

// sanitizeSegment strips filesystem-illegal characters, collapses
// whitespace, caps length and substitutes the fallback when nothing is left.
func sanitizeSegment(s, fallback string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			b.WriteRune(' ')
		default:
			if r >= 32 {
				b.WriteRune(r)
			}
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.Trim(out, ". ")
	if out == "" {
		return fallback
	}
	if len(out) > maxSegmentLength {
		// Cut on a rune boundary so a multi-byte character is never split.
		cut := maxSegmentLength
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimSpace(out[:cut])
	}
	return out
}

// freeName claims and returns path if unoccupied, otherwise the first "(n)"
// variant that is, otherwise a timestamp-suffixed name. Claiming creates an
// empty placeholder at the returned path, so concurrent placements of the
// same destination cannot pick the same name; moveFile replaces it.
func freeName(path string) (string, error) {
	if ok, err := claimName(path); err != nil {
		return "", err
	} else if ok {
		return path, nil
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 2; n < 2+maxCollisionProbes; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if ok, err := claimName(candidate); err != nil {
			return "", err
		} else if ok {
			return candidate, nil
		}
	}

	candidate := fmt.Sprintf("%s %d%s", base, time.Now().UnixNano(), ext)
	if ok, err := claimName(candidate); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("could not find a free name for %q", path)
	}
	return candidate, nil
}

// claimName atomically creates path, reporting false when it already exists.
func claimName(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim %q: %w", path, err)
	}
	f.Close()
	return true, nil
}

// moveFile renames src to dst, falling back to copy-then-delete when the
// rename crosses storage devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
