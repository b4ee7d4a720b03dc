package playback

import (
	"time"

	"github.com/llehouerou/cadence/internal/library"
)

// Snapshot is the published now-playing projection. It is overwritten
// continuously for the life of the service; consumers must treat it as
// read-only.
type Snapshot struct {
	NowPlaying   *library.Track
	IsPlaying    bool
	Elapsed      time.Duration
	Duration     time.Duration
	Shuffle      bool
	RepeatMode   RepeatMode
	ArtistFilter bool
	AlbumFilter  bool
}

// sameTrack reports whether two now-playing values refer to the same
// track, by local ID, remote identifier, or title. The loose title
// comparison tolerates duplicate notifications that re-resolve the
// same song into a fresh transient track.
func sameTrack(a, b *library.Track) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID == b.ID {
		return true
	}
	if a.RemoteID != "" && a.RemoteID == b.RemoteID {
		return true
	}
	return a.Title == b.Title
}
