// Package playctx owns the current logical play context: the ordered
// track list from which next/previous navigation and queue refill are
// derived. It tracks the artist/album filter state machine and the
// shuffled permutation of the active context.
package playctx

import (
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"

	"github.com/llehouerou/cadence/internal/library"
)

// Filter identifies which context filter is active.
type Filter int

const (
	FilterNone Filter = iota
	FilterArtist
	FilterAlbum
)

// String returns the filter name.
func (f Filter) String() string {
	switch f {
	case FilterArtist:
		return "Artist"
	case FilterAlbum:
		return "Album"
	case FilterNone:
		return "None"
	default:
		return "Unknown"
	}
}

// Manager holds the active logical context and its filter state.
// All methods must be called from a single goroutine; the coordinator
// event loop is that goroutine.
type Manager struct {
	full   []library.Track // canonical unfiltered library
	active []library.Track
	filter Filter

	// Contexts to restore when a filter is turned off. Filters derive
	// from the full library, so switching filters migrates the slot
	// instead of saving the filtered view.
	savedBeforeArtist []library.Track
	savedBeforeAlbum  []library.Track

	shuffled  []library.Track
	shuffleOn bool

	rng *rand.Rand
}

// New creates a Manager. rng may be nil, in which case a default
// source is used; tests inject a seeded source.
func New(rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Manager{rng: rng}
}

// SetLibrary replaces the canonical library. The active context resets
// to the full library and all filter state is discarded. Callers must
// Reshuffle afterwards if shuffle is active.
func (m *Manager) SetLibrary(tracks []library.Track) {
	m.full = tracks
	m.active = tracks
	m.filter = FilterNone
	m.savedBeforeArtist = nil
	m.savedBeforeAlbum = nil
	m.shuffled = nil
}

// Library returns the canonical unfiltered library.
func (m *Manager) Library() []library.Track {
	return m.full
}

// Tracks returns the effective context: the shuffled permutation when
// shuffle is active, the active logical context otherwise.
func (m *Manager) Tracks() []library.Track {
	if m.shuffleOn && m.shuffled != nil {
		return m.shuffled
	}
	return m.active
}

// Len returns the size of the effective context.
func (m *Manager) Len() int {
	return len(m.active)
}

// Filter returns the active filter.
func (m *Manager) Filter() Filter {
	return m.filter
}

// EnableArtistFilter sets the context to every library track whose
// artist matches ref's artist (case-insensitive). Returns false and
// reverts to unfiltered if the result is empty. An active album filter
// is deactivated first and its saved context migrates to the artist
// slot, so disabling later restores the pre-filter view rather than
// the album-filtered one.
func (m *Manager) EnableArtistFilter(ref library.Track) bool {
	matched := lo.Filter(m.full, func(t library.Track, _ int) bool {
		return strings.EqualFold(t.Artist, ref.Artist)
	})
	return m.enableFilter(FilterArtist, matched)
}

// EnableAlbumFilter sets the context to every library track matching
// ref's artist and album (both, to disambiguate same-named albums by
// different artists), in album playback order.
func (m *Manager) EnableAlbumFilter(ref library.Track) bool {
	matched := lo.Filter(m.full, func(t library.Track, _ int) bool {
		return strings.EqualFold(t.Artist, ref.Artist) && strings.EqualFold(t.Album, ref.Album)
	})
	return m.enableFilter(FilterAlbum, library.SortAlbumOrder(matched))
}

func (m *Manager) enableFilter(target Filter, matched []library.Track) bool {
	if len(matched) == 0 {
		// Activation fails silently; any active filter is dropped and
		// the context reverts to the unfiltered library.
		m.filter = FilterNone
		m.active = m.full
		m.savedBeforeArtist = nil
		m.savedBeforeAlbum = nil
		return false
	}

	saved := m.migrateSaved(target)
	if target == FilterArtist {
		m.savedBeforeArtist = saved
	} else {
		m.savedBeforeAlbum = saved
	}
	m.filter = target
	m.active = matched
	return true
}

// migrateSaved computes the context to restore when the target filter
// is later disabled. Switching between filters transfers the other
// filter's saved slot instead of capturing the filtered view.
func (m *Manager) migrateSaved(target Filter) []library.Track {
	switch {
	case m.filter == FilterAlbum && target == FilterArtist:
		saved := m.savedBeforeAlbum
		m.savedBeforeAlbum = nil
		return saved
	case m.filter == FilterArtist && target == FilterAlbum:
		saved := m.savedBeforeArtist
		m.savedBeforeArtist = nil
		return saved
	default:
		return m.active
	}
}

// DisableFilter restores the saved context for the given filter, or
// the full library when no saved context exists. No-op when that
// filter is not active.
func (m *Manager) DisableFilter(which Filter) {
	if m.filter != which {
		return
	}
	var saved []library.Track
	switch which {
	case FilterArtist:
		saved = m.savedBeforeArtist
		m.savedBeforeArtist = nil
	case FilterAlbum:
		saved = m.savedBeforeAlbum
		m.savedBeforeAlbum = nil
	case FilterNone:
		return
	}
	if saved == nil {
		saved = m.full
	}
	m.filter = FilterNone
	m.active = saved
}

// SetContext makes tracks the active context directly, as when the
// user starts playback from an arbitrary list. A filter stays active
// only if the new context is still homogeneous with respect to it;
// otherwise it is implicitly cleared, saved slot included.
func (m *Manager) SetContext(tracks []library.Track) {
	m.active = tracks
	switch m.filter {
	case FilterArtist:
		if !homogeneous(tracks, func(t library.Track) string { return strings.ToLower(t.Artist) }) {
			m.filter = FilterNone
			m.savedBeforeArtist = nil
		}
	case FilterAlbum:
		if !homogeneous(tracks, func(t library.Track) string {
			return strings.ToLower(t.Artist) + "\x00" + strings.ToLower(t.Album)
		}) {
			m.filter = FilterNone
			m.savedBeforeAlbum = nil
		}
	case FilterNone:
	}
}

func homogeneous(tracks []library.Track, key func(library.Track) string) bool {
	if len(tracks) < 2 {
		return true
	}
	first := key(tracks[0])
	return lo.EveryBy(tracks[1:], func(t library.Track) bool {
		return key(t) == first
	})
}
