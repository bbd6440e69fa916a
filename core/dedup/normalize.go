package dedup

import (
	"net/url"
	"regexp"
	"strings"

	"TrackVault/model"
)

var catalogPathRe = regexp.MustCompile(`/(track|album|playlist|artist)/([A-Za-z0-9]+)`)

// CanonicalURL normalizes a submitted link into the dedup key form.
//
// Streaming-catalog links collapse to scheme://host/<type>/<id>; share-style
// video links keep only the video id parameter; audio-share links drop query
// and fragment noise entirely. Unparseable input is returned unchanged so a
// malformed URL still dedups against itself.
func CanonicalURL(kind model.SourceKind, rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(rawURL)
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)

	switch kind {
	case model.SourceCatalog:
		if m := catalogPathRe.FindStringSubmatch(u.Path); m != nil {
			return u.Scheme + "://" + u.Host + "/" + m[1] + "/" + m[2]
		}
		u.RawQuery = ""
		return u.String()

	case model.SourceVideo:
		// Keep only the video id; listing position, timestamps and
		// tracking parameters are noise.
		if v := u.Query().Get("v"); v != "" {
			u.RawQuery = url.Values{"v": {v}}.Encode()
		} else {
			u.RawQuery = ""
		}
		return u.String()

	default: // audio share
		u.RawQuery = ""
		return u.String()
	}
}
