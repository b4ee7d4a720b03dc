// Package library holds the local view of the remote music library:
// immutable track values, the fast lookup index, and the ordering and
// search helpers that produce browsing contexts.
package library

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/llehouerou/cadence/internal/remote"
)

// Track is an immutable library entry. ID is generated locally and is
// stable for UI identity; RemoteID and Handle come from the provider
// and may be absent.
type Track struct {
	ID          string
	Title       string
	Artist      string
	Album       string
	Duration    time.Duration
	DiscNumber  int
	TrackNumber int
	AddedAt     time.Time
	ArtworkURL  string
	RemoteID    string
	Handle      remote.Handle
}

// FromSong converts a provider record into a Track with a fresh local ID.
func FromSong(s remote.Song) Track {
	return Track{
		ID:          uuid.NewString(),
		Title:       s.Title,
		Artist:      s.Artist,
		Album:       s.Album,
		Duration:    s.Duration,
		DiscNumber:  s.DiscNumber,
		TrackNumber: s.TrackNumber,
		AddedAt:     s.AddedAt,
		ArtworkURL:  s.ArtworkURL,
		RemoteID:    s.ID,
		Handle:      s.Handle,
	}
}

// FromSongs converts a provider library into tracks.
func FromSongs(songs []remote.Song) []Track {
	return lo.Map(songs, func(s remote.Song, _ int) Track {
		return FromSong(s)
	})
}

// Song converts the track back into its provider representation for
// enqueueing.
func (t Track) Song() remote.Song {
	return remote.Song{
		ID:          t.RemoteID,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		Duration:    t.Duration,
		DiscNumber:  t.DiscNumber,
		TrackNumber: t.TrackNumber,
		AddedAt:     t.AddedAt,
		ArtworkURL:  t.ArtworkURL,
		Handle:      t.Handle,
	}
}

// Songs converts tracks into provider records.
func Songs(tracks []Track) []remote.Song {
	return lo.Map(tracks, func(t Track, _ int) remote.Song {
		return t.Song()
	})
}

// Key returns the normalized composite matching key.
func (t Track) Key() string {
	return CompositeKey(t.Title, t.Artist, t.Album)
}

// Matches reports whether the track and song refer to the same library
// entry, by remote identifier when both carry one, otherwise by
// normalized key.
func (t Track) Matches(s remote.Song) bool {
	if t.RemoteID != "" && s.ID != "" {
		return t.RemoteID == s.ID
	}
	return t.Key() == CompositeKey(s.Title, s.Artist, s.Album)
}

// IndexOf returns the position in tracks of the entry matching s, or -1.
// Linear scan; use Index for indexed lookups over the canonical library.
func IndexOf(tracks []Track, s remote.Song) int {
	if s.ID != "" {
		for i := range tracks {
			if tracks[i].RemoteID == s.ID {
				return i
			}
		}
	}
	key := CompositeKey(s.Title, s.Artist, s.Album)
	for i := range tracks {
		if tracks[i].Key() == key {
			return i
		}
	}
	return -1
}

// IndexOfTrack returns the position in tracks of the entry with the
// given local ID, falling back to remote identity, or -1.
func IndexOfTrack(tracks []Track, t Track) int {
	for i := range tracks {
		if tracks[i].ID == t.ID {
			return i
		}
	}
	return IndexOf(tracks, t.Song())
}
