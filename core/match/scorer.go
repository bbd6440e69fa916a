package match

import (
	"regexp"
	"strings"
)

// TargetTrack is what the resolver is looking for.
type TargetTrack struct {
	Title    string
	Artists  []string
	Album    string
	Duration float64 // seconds, 0 when unknown
	// SourceURL is the catalog page the target came from, used by the
	// cross-platform link-resolution fallback.
	SourceURL string
}

// Candidate is one provider search hit scored against a target.
type Candidate struct {
	Provider   string
	ProviderID string
	Title      string
	Artists    []string
	Album      string
	Duration   float64 // seconds, 0 when unknown
	Quality    string
	Score      float64
	// Raw carries provider-specific resolution state (job ids, stream
	// tokens) opaque to the scorer.
	Raw any
}

// Match is a candidate confirmed to have a resolvable download URL.
type Match struct {
	Candidate
	DownloadURL string
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)
var spaces = regexp.MustCompile(`\s+`)

// normalizeText lowercases, strips featuring markers and punctuation, and
// collapses whitespace so cosmetic differences do not affect scoring.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	for _, noise := range []string{"feat.", "feat ", "ft.", "ft ", "&"} {
		s = strings.ReplaceAll(s, noise, " ")
	}
	s = nonAlnum.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Score rates how well a candidate matches the target on a 0-100 scale:
// 40% title, 30% artist, 20% album, 10% duration.
func Score(target TargetTrack, candidate Candidate) float64 {
	titleSim := stringSimilarity(target.Title, candidate.Title)
	artistSim := stringSimilarity(strings.Join(target.Artists, " "), strings.Join(candidate.Artists, " "))
	albumSim := stringSimilarity(target.Album, candidate.Album)
	durationSim := durationSimilarity(target.Duration, candidate.Duration)

	return 0.4*titleSim + 0.3*artistSim + 0.2*albumSim + 0.1*durationSim
}

// stringSimilarity scores two strings on 0-100: exact normalized match 100,
// substring containment either direction 90, otherwise token overlap.
func stringSimilarity(a, b string) float64 {
	na, nb := normalizeText(a), normalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 90
	}
	return tokenOverlap(na, nb)
}

// tokenOverlap sums per-word-pair credit (1.0 exact, 0.8 containment, 0.6
// near-typo for words longer than 3 characters) divided by the larger word
// count, scaled to 0-100.
func tokenOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	var sum float64
	for _, wa := range wordsA {
		best := 0.0
		for _, wb := range wordsB {
			var credit float64
			switch {
			case wa == wb:
				credit = 1.0
			case strings.Contains(wa, wb) || strings.Contains(wb, wa):
				credit = 0.8
			case len(wa) > 3 && len(wb) > 3 && editDistance(wa, wb) <= 1:
				credit = 0.6
			}
			if credit > best {
				best = credit
			}
		}
		sum += best
	}

	larger := len(wordsA)
	if len(wordsB) > larger {
		larger = len(wordsB)
	}
	score := sum / float64(larger) * 100
	if score > 100 {
		score = 100
	}
	return score
}

// durationSimilarity bands the absolute difference in seconds:
// <=3s -> 100, <=7s -> 80, <=15s -> 60, <=30s -> 30, else 0. A missing
// duration on either side scores a neutral 50 because absence is not
// evidence of mismatch.
func durationSimilarity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 50
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 3:
		return 100
	case diff <= 7:
		return 80
	case diff <= 15:
		return 60
	case diff <= 30:
		return 30
	default:
		return 0
	}
}

// editDistance is the Levenshtein distance between two words.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
