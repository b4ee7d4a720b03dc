package playback

import (
	"time"

	"github.com/llehouerou/cadence/internal/library"
)

// StateChange is emitted when the playing/paused projection flips.
type StateChange struct {
	IsPlaying bool
}

// TrackChange is emitted when the published now-playing track changes.
//
// Emitted by:
//   - PlayTrack and paused local navigation: optimistically, before
//     the remote transport confirms
//   - the resync path: when the remote queue cursor lands on a
//     different track than the last published one
//
// NOT emitted for duplicate notifications that resolve to the same
// track, nor while a user-initiated change is still in its cooldown
// window.
type TrackChange struct {
	Previous *library.Track
	Current  *library.Track
}

// PositionChange is emitted when the published elapsed time moves,
// at most roughly once per poll interval.
type PositionChange struct {
	Elapsed  time.Duration
	Duration time.Duration
}

// ModeChange is emitted when shuffle, repeat, or filter state changes.
type ModeChange struct {
	RepeatMode   RepeatMode
	Shuffle      bool
	ArtistFilter bool
	AlbumFilter  bool
}

// SortChange is emitted when the library sort order changes, so the
// app layer can persist the preference.
type SortChange struct {
	Field     library.SortField
	Direction library.SortDirection
}

// ErrorEvent is emitted when a remote operation fails. The service has
// already corrected its local state by the time this is sent.
type ErrorEvent struct {
	Operation string // e.g. "play", "refill", "seek"
	Err       error
}
