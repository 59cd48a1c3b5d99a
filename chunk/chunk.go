// Package chunk splits oversized model payloads into ordered segments.
//
// Sizes are counted in runes so a segment never ends inside a multi-byte
// character. Concatenating the segments in order always reproduces the input.
package chunk

import "unicode/utf8"

// Split divides text into consecutive segments of at most maxSize runes.
//
// The number of segments is ceil(runes/maxSize), and a text that fits within
// maxSize (including the empty string) is returned as a single segment.
// A non-positive maxSize disables splitting.
func Split(text string, maxSize int) []string {
	if maxSize <= 0 || utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}

	out := make([]string, 0, Count(text, maxSize))
	start, runes := 0, 0
	for i := range text {
		if runes == maxSize {
			out = append(out, text[start:i])
			start, runes = i, 0
		}
		runes++
	}
	return append(out, text[start:])
}

// Count returns the number of segments Split would produce.
func Count(text string, maxSize int) int {
	n := utf8.RuneCountInString(text)
	if maxSize <= 0 || n <= maxSize {
		return 1
	}
	return (n + maxSize - 1) / maxSize
}
