package placer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func stageFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlaceLayout(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	p, err := NewPlacer(root)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		meta Metadata
		want string
	}{
		{
			name: "full metadata",
			meta: Metadata{Artist: "Boards of Canada", Album: "Geogaddi", Title: "1969", Year: 2002, TrackNumber: 16, Extension: "flac"},
			want: filepath.Join("music", "Boards of Canada", "2002 - Geogaddi", "16 - 1969.flac"),
		},
		{
			name: "multi disc",
			meta: Metadata{Artist: "The Beatles", Album: "The Beatles", Title: "Blackbird", Year: 1968, TrackNumber: 11, DiscNumber: 2, Extension: "flac"},
			want: filepath.Join("music", "The Beatles", "1968 - The Beatles", "2-11 - Blackbird.flac"),
		},
		{
			name: "no year no track",
			meta: Metadata{Artist: "Aphex Twin", Album: "Syro", Title: "minipops", Extension: "opus"},
			want: filepath.Join("music", "Aphex Twin", "Syro", "minipops.opus"),
		},
		{
			name: "all metadata missing",
			meta: Metadata{Extension: "mp3"},
			want: filepath.Join("music", "Unknown Artist", "Singles", "Unknown title.mp3"),
		},
		{
			name: "empty extension defaults",
			meta: Metadata{Artist: "A", Album: "B", Title: "C"},
			want: filepath.Join("music", "A", "B", "C.mp3"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := stageFile(t, staging, "in.bin")
			got, err := p.Place(src, tt.meta)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.RelativePath != tt.want {
				t.Errorf("relative path %q, want %q", got.RelativePath, tt.want)
			}
			if _, err := os.Stat(got.AbsolutePath); err != nil {
				t.Errorf("placed file not on disk: %v", err)
			}
			if _, err := os.Stat(src); !os.IsNotExist(err) {
				t.Errorf("source file should be gone after placement")
			}
		})
	}
}

func TestPlaceCollisionSuffixes(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	p, err := NewPlacer(root)
	if err != nil {
		t.Fatal(err)
	}

	meta := Metadata{Artist: "X", Album: "Y", Title: "Track", TrackNumber: 1, Extension: "flac"}

	first, err := p.Place(stageFile(t, staging, "a.bin"), meta)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Place(stageFile(t, staging, "b.bin"), meta)
	if err != nil {
		t.Fatal(err)
	}
	third, err := p.Place(stageFile(t, staging, "c.bin"), meta)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(first.RelativePath, "01 - Track.flac") {
		t.Errorf("first placement %q", first.RelativePath)
	}
	if !strings.HasSuffix(second.RelativePath, "01 - Track (2).flac") {
		t.Errorf("second placement %q", second.RelativePath)
	}
	if !strings.HasSuffix(third.RelativePath, "01 - Track (3).flac") {
		t.Errorf("third placement %q", third.RelativePath)
	}
}

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		fallback string
		want     string
	}{
		{name: "clean passes through", in: "Plain Name", fallback: "f", want: "Plain Name"},
		{name: "separators stripped", in: "AC/DC", fallback: "f", want: "AC DC"},
		{name: "illegal characters stripped", in: `What? "Why" <here>|now*`, fallback: "f", want: "What Why here now"},
		{name: "whitespace collapsed", in: "  a   b  ", fallback: "f", want: "a b"},
		{name: "trailing dots trimmed", in: "Vol. 2...", fallback: "f", want: "Vol. 2"},
		{name: "empty falls back", in: "", fallback: "Unknown Artist", want: "Unknown Artist"},
		{name: "only illegal falls back", in: `\\/:*?`, fallback: "Singles", want: "Singles"},
		{name: "length capped", in: strings.Repeat("a", 300), fallback: "f", want: strings.Repeat("a", maxSegmentLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeSegment(tt.in, tt.fallback); got != tt.want {
				t.Errorf("sanitizeSegment(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeSegmentRuneBoundary(t *testing.T) {
	// 120 two-byte runes overflow the byte cap; the cut must not leave a
	// torn rune at the end.
	got := sanitizeSegment("a"+strings.Repeat("é", maxSegmentLength), "f")
	if !utf8.ValidString(got) {
		t.Errorf("truncated segment is not valid UTF-8: %q", got)
	}
	if len(got) > maxSegmentLength {
		t.Errorf("segment is %d bytes, cap is %d", len(got), maxSegmentLength)
	}
}

func TestPlaceConcurrentSameDestination(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	p, err := NewPlacer(root)
	if err != nil {
		t.Fatal(err)
	}

	const workers = 8
	meta := Metadata{Artist: "X", Album: "Y", Title: "Track", TrackNumber: 1, Extension: "flac"}

	results := make([]*Placement, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		src := stageFile(t, staging, fmt.Sprintf("in-%d.bin", i))
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			results[i], errs[i] = p.Place(src, meta)
		}(i, src)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if seen[results[i].AbsolutePath] {
			t.Errorf("two placements share %q", results[i].AbsolutePath)
		}
		seen[results[i].AbsolutePath] = true
		data, err := os.ReadFile(results[i].AbsolutePath)
		if err != nil {
			t.Errorf("worker %d output missing: %v", i, err)
		} else if string(data) != "audio" {
			t.Errorf("worker %d output clobbered: %q", i, data)
		}
	}
}

func TestPlaceSanitizesHostileMetadata(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	p, err := NewPlacer(root)
	if err != nil {
		t.Fatal(err)
	}

	src := stageFile(t, staging, "in.bin")
	got, err := p.Place(src, Metadata{
		Artist:    "../..",
		Album:     "../../../etc",
		Title:     "passwd",
		Extension: "mp3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got.AbsolutePath, abs+string(filepath.Separator)) {
		t.Errorf("placement %q escaped the storage root", got.AbsolutePath)
	}
}

func TestFreeNameTimestampFallback(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "song.flac")
	if err := os.WriteFile(base, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for n := 2; n < 2+maxCollisionProbes; n++ {
		name := filepath.Join(dir, fmt.Sprintf("song (%d).flac", n))
		if err := os.WriteFile(name, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := freeName(base)
	if err != nil {
		t.Fatal(err)
	}
	if got == base || strings.Contains(got, "(") {
		t.Errorf("expected a timestamp fallback name, got %q", got)
	}
}

func TestMoveFileCopyFallbackPreservesContent(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "in.flac")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dstDir, "out.flac")

	if err := moveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("content %q", data)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be removed after move")
	}
}
