package chunk

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		maxSize int
		want    []string
	}{
		{name: "empty", text: "", maxSize: 4, want: []string{""}},
		{name: "fits", text: "abcd", maxSize: 4, want: []string{"abcd"}},
		{name: "one over", text: "abcde", maxSize: 4, want: []string{"abcd", "e"}},
		{name: "exact multiple", text: "abcdef", maxSize: 2, want: []string{"ab", "cd", "ef"}},
		{name: "multibyte", text: "héllo wörld", maxSize: 3, want: []string{"hél", "lo ", "wör", "ld"}},
		{name: "disabled", text: "abcdef", maxSize: 0, want: []string{"abcdef"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.maxSize)
			if len(got) != len(tt.want) {
				t.Fatalf("Split() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Split()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplit_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("ab✓日本 \n\x00z")

	for i := 0; i < 500; i++ {
		var b strings.Builder
		n := rng.Intn(200)
		for j := 0; j < n; j++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := b.String()
		maxSize := 1 + rng.Intn(40)

		segments := Split(text, maxSize)

		if joined := strings.Join(segments, ""); joined != text {
			t.Fatalf("Split(%q, %d) does not reconstruct input: %q", text, maxSize, joined)
		}

		runes := utf8.RuneCountInString(text)
		wantCount := 1
		if runes > maxSize {
			wantCount = (runes + maxSize - 1) / maxSize
		}
		if len(segments) != wantCount {
			t.Fatalf("Split(%d runes, %d) returned %d segments, want %d", runes, maxSize, len(segments), wantCount)
		}
		if got := Count(text, maxSize); got != wantCount {
			t.Errorf("Count() = %d, want %d", got, wantCount)
		}

		for _, s := range segments {
			if c := utf8.RuneCountInString(s); c > maxSize {
				t.Fatalf("segment %q has %d runes, limit %d", s, c, maxSize)
			}
			if !utf8.ValidString(s) {
				t.Fatalf("segment %q is not valid UTF-8", s)
			}
		}
	}
}
