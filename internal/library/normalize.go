package library

import (
	"regexp"
	"strings"
)

var (
	punctuationRe   = regexp.MustCompile(`[^\w\s]`)
	multipleSpaceRe = regexp.MustCompile(`\s+`)
)

// Normalize normalizes a string for comparison by:
// - Converting to lowercase
// - Replacing punctuation with spaces
// - Normalizing whitespace
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = multipleSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return s
}

// CompositeKey builds the normalized (title, artist, album) matching key.
// Tracks differing only in case or punctuation map to the same key.
func CompositeKey(title, artist, album string) string {
	return Normalize(title) + "\x00" + Normalize(artist) + "\x00" + Normalize(album)
}
