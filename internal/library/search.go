package library

import (
	"strings"

	"github.com/samber/lo"
)

// Search returns the tracks whose title, artist, or album contains the
// query, case-insensitively. An empty query returns a copy of the full
// input, so search results can always serve as a browsing context.
func Search(tracks []Track, query string) []Track {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Track, len(tracks))
		copy(out, tracks)
		return out
	}
	return lo.Filter(tracks, func(t Track, _ int) bool {
		return strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Artist), query) ||
			strings.Contains(strings.ToLower(t.Album), query)
	})
}
