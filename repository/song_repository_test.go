package repository

import (
	"strings"
	"testing"
)

func TestHashSourceURL(t *testing.T) {
	short := hashSourceURL("https://www.youtube.com/watch?v=a1")
	if len(short) != 64 {
		t.Fatalf("digest length = %d, want 64", len(short))
	}
	for _, c := range short {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("digest contains non-hex character %q", c)
		}
	}

	if again := hashSourceURL("https://www.youtube.com/watch?v=a1"); again != short {
		t.Errorf("digest not stable: %q vs %q", again, short)
	}
	if other := hashSourceURL("https://www.youtube.com/watch?v=a2"); other == short {
		t.Errorf("distinct URLs produced the same digest %q", short)
	}

	// The indexed key must stay fixed-width no matter how wide the URL is.
	long := hashSourceURL("https://example.com/" + strings.Repeat("x", 4000))
	if len(long) != 64 {
		t.Errorf("digest length for long URL = %d, want 64", len(long))
	}
}
