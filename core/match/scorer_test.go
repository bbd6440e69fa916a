package match

import (
	"math"
	"testing"
)

func TestScoreExactMatch(t *testing.T) {
	target := TargetTrack{
		Title:    "Weightless",
		Artists:  []string{"Marconi Union"},
		Album:    "Weightless",
		Duration: 480,
	}
	candidate := Candidate{
		Title:    "Weightless",
		Artists:  []string{"Marconi Union"},
		Album:    "Weightless",
		Duration: 481,
	}

	got := Score(target, candidate)
	if got != 100 {
		t.Errorf("exact match scored %.2f, want 100", got)
	}
}

func TestScoreBounds(t *testing.T) {
	tests := []struct {
		name      string
		target    TargetTrack
		candidate Candidate
	}{
		{
			name:      "empty candidate",
			target:    TargetTrack{Title: "Song", Artists: []string{"Artist"}},
			candidate: Candidate{},
		},
		{
			name:      "unrelated tracks",
			target:    TargetTrack{Title: "Bohemian Rhapsody", Artists: []string{"Queen"}, Album: "A Night at the Opera", Duration: 354},
			candidate: Candidate{Title: "Smells Like Teen Spirit", Artists: []string{"Nirvana"}, Album: "Nevermind", Duration: 301},
		},
		{
			name:      "partial overlap",
			target:    TargetTrack{Title: "Karma Police", Artists: []string{"Radiohead"}, Album: "OK Computer", Duration: 261},
			candidate: Candidate{Title: "Karma Police (Live)", Artists: []string{"Radiohead"}, Album: "OK Computer OKNOTOK", Duration: 275},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.target, tt.candidate)
			if got < 0 || got > 100 {
				t.Errorf("score %.2f out of [0,100]", got)
			}
		})
	}
}

func TestScoreOrdering(t *testing.T) {
	target := TargetTrack{
		Title:    "Clair de Lune",
		Artists:  []string{"Claude Debussy"},
		Album:    "Suite bergamasque",
		Duration: 300,
	}

	exact := Candidate{Title: "Clair de Lune", Artists: []string{"Claude Debussy"}, Album: "Suite bergamasque", Duration: 300}
	near := Candidate{Title: "Clair de Lune", Artists: []string{"Claude Debussy"}, Album: "Debussy: Piano Works", Duration: 311}
	far := Candidate{Title: "Moonlight Sonata", Artists: []string{"Ludwig van Beethoven"}, Album: "Piano Sonatas", Duration: 900}

	sExact := Score(target, exact)
	sNear := Score(target, near)
	sFar := Score(target, far)

	if !(sExact > sNear) {
		t.Errorf("exact (%.2f) should outrank near (%.2f)", sExact, sNear)
	}
	if !(sNear > sFar) {
		t.Errorf("near (%.2f) should outrank far (%.2f)", sNear, sFar)
	}
}

func TestStringSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "exact", a: "Hotel California", b: "Hotel California", want: 100},
		{name: "case and punctuation folded", a: "Hey, Jude!", b: "hey jude", want: 100},
		{name: "featuring marker folded", a: "Lose Yourself feat. Dido", b: "Lose Yourself Dido", want: 100},
		{name: "substring", a: "Hurt", b: "Hurt (Quiet)", want: 90},
		{name: "either side empty", a: "", b: "Anything", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("stringSimilarity(%q, %q) = %.2f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTokenOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "all words match", a: "paranoid android", b: "android paranoid", want: 100},
		{name: "half match", a: "blue monday", b: "blue tuesday", want: 50},
		{name: "near typo credited", a: "wonderwall", b: "wonderwal", want: 80}, // containment beats typo credit
		{name: "no overlap", a: "red", b: "blue", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenOverlap(tt.a, tt.b)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("tokenOverlap(%q, %q) = %.2f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDurationSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{name: "identical", a: 200, b: 200, want: 100},
		{name: "within 3s", a: 200, b: 203, want: 100},
		{name: "within 7s", a: 200, b: 206, want: 80},
		{name: "within 15s", a: 200, b: 212, want: 60},
		{name: "within 30s", a: 200, b: 228, want: 30},
		{name: "beyond 30s", a: 200, b: 300, want: 0},
		{name: "target unknown", a: 0, b: 200, want: 50},
		{name: "candidate unknown", a: 200, b: 0, want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := durationSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("durationSimilarity(%v, %v) = %.2f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
		{"", "abc", 3},
	}

	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestQualityRank(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"hires_max", 5},
		{"24bit/192khz", 5},
		{"HI_RES_LOSSLESS", 4},
		{"hi-res", 4},
		{"LOSSLESS", 3},
		{"flac", 3},
		{"mp3_320", 2},
		{"high", 2},
		{"standard", 1},
		{"128", 1},
		{"", 0},
		{"mystery codec", 0},
	}

	for _, tt := range tests {
		if got := QualityRank(tt.label); got != tt.want {
			t.Errorf("QualityRank(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestQualityRankOrdering(t *testing.T) {
	ladder := []string{"", "standard", "high", "lossless", "hires", "hires_max"}
	for i := 1; i < len(ladder); i++ {
		if QualityRank(ladder[i]) <= QualityRank(ladder[i-1]) {
			t.Errorf("%q should outrank %q", ladder[i], ladder[i-1])
		}
	}
}
