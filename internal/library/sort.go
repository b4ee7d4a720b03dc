package library

import (
	"slices"
	"strings"
)

// SortField selects the library ordering key.
type SortField int

const (
	SortByTitle SortField = iota
	SortByArtist
	SortByAlbum
	SortByAdded
)

// String returns the field name (also used as the persisted value).
func (f SortField) String() string {
	switch f {
	case SortByTitle:
		return "title"
	case SortByArtist:
		return "artist"
	case SortByAlbum:
		return "album"
	case SortByAdded:
		return "added"
	default:
		return "title"
	}
}

// ParseSortField maps a persisted value back to a field.
func ParseSortField(s string) SortField {
	switch s {
	case "artist":
		return SortByArtist
	case "album":
		return SortByAlbum
	case "added":
		return SortByAdded
	default:
		return SortByTitle
	}
}

// SortDirection selects ascending or descending order.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// String returns the direction name (also used as the persisted value).
func (d SortDirection) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// ParseSortDirection maps a persisted value back to a direction.
func ParseSortDirection(s string) SortDirection {
	if s == "descending" {
		return Descending
	}
	return Ascending
}

// Sort returns a copy of tracks ordered by the given field and
// direction. Ties break on artist, then album, then disc and track
// number, so albums stay contiguous under every ordering.
func Sort(tracks []Track, field SortField, dir SortDirection) []Track {
	out := make([]Track, len(tracks))
	copy(out, tracks)
	slices.SortStableFunc(out, func(a, b Track) int {
		c := compareField(a, b, field)
		if c == 0 {
			c = compareFallback(a, b)
		}
		if dir == Descending {
			c = -c
		}
		return c
	})
	return out
}

func compareField(a, b Track, field SortField) int {
	switch field {
	case SortByArtist:
		return compareFold(a.Artist, b.Artist)
	case SortByAlbum:
		return compareFold(a.Album, b.Album)
	case SortByAdded:
		return a.AddedAt.Compare(b.AddedAt)
	default:
		return compareFold(a.Title, b.Title)
	}
}

func compareFallback(a, b Track) int {
	if c := compareFold(a.Artist, b.Artist); c != 0 {
		return c
	}
	if c := compareFold(a.Album, b.Album); c != 0 {
		return c
	}
	return compareAlbumOrder(a, b)
}

// SortAlbumOrder returns a copy of tracks in album playback order:
// disc number ascending, then track number ascending. A missing disc
// number counts as 1, a missing track number as 0.
func SortAlbumOrder(tracks []Track) []Track {
	out := make([]Track, len(tracks))
	copy(out, tracks)
	slices.SortStableFunc(out, compareAlbumOrder)
	return out
}

func compareAlbumOrder(a, b Track) int {
	if c := discNumber(a) - discNumber(b); c != 0 {
		return c
	}
	return a.TrackNumber - b.TrackNumber
}

func discNumber(t Track) int {
	if t.DiscNumber == 0 {
		return 1
	}
	return t.DiscNumber
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
