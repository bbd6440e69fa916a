package dedup

import (
	"testing"

	"TrackVault/model"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		kind model.SourceKind
		in   string
		want string
	}{
		{
			name: "catalog track keeps type and id only",
			kind: model.SourceCatalog,
			in:   "https://Open.Example.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123&utm_source=share",
			want: "https://open.example.com/track/4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name: "catalog album with locale prefix",
			kind: model.SourceCatalog,
			in:   "https://open.example.com/intl-de/album/6dVIqQ8qmQ5GBnJ9shOYGE#overview",
			want: "https://open.example.com/album/6dVIqQ8qmQ5GBnJ9shOYGE",
		},
		{
			name: "catalog playlist",
			kind: model.SourceCatalog,
			in:   "https://open.example.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=x",
			want: "https://open.example.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name: "catalog without recognized path keeps path, drops query",
			kind: model.SourceCatalog,
			in:   "https://open.example.com/show/abc?si=x",
			want: "https://open.example.com/show/abc",
		},
		{
			name: "video keeps only the id parameter",
			kind: model.SourceVideo,
			in:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&index=4&t=42s",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "video without id drops query",
			kind: model.SourceVideo,
			in:   "https://youtu.be/dQw4w9WgXcQ?t=42",
			want: "https://youtu.be/dQw4w9WgXcQ",
		},
		{
			name: "audio share drops query and fragment",
			kind: model.SourceAudioShare,
			in:   "https://soundcloud.com/artist/some-track?in=artist%2Fsets%2Fmix#t=0:30",
			want: "https://soundcloud.com/artist/some-track",
		},
		{
			name: "host lowercased",
			kind: model.SourceAudioShare,
			in:   "https://SoundCloud.com/artist/track",
			want: "https://soundcloud.com/artist/track",
		},
		{
			name: "unparseable input returned trimmed",
			kind: model.SourceCatalog,
			in:   "  not a url  ",
			want: "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalURL(tt.kind, tt.in); got != tt.want {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalURLIdempotent(t *testing.T) {
	inputs := []struct {
		kind model.SourceKind
		url  string
	}{
		{model.SourceCatalog, "https://open.example.com/track/AbC123?si=x"},
		{model.SourceVideo, "https://www.youtube.com/watch?v=abc&list=L"},
		{model.SourceAudioShare, "https://soundcloud.com/a/b?x=1#f"},
	}
	for _, in := range inputs {
		once := CanonicalURL(in.kind, in.url)
		twice := CanonicalURL(in.kind, once)
		if once != twice {
			t.Errorf("%s: normalization not idempotent: %q -> %q", in.kind, once, twice)
		}
	}
}
