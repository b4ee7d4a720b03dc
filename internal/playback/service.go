package playback

import (
	"context"
	"time"

	"github.com/llehouerou/cadence/internal/library"
)

// Service defines the playback coordinator contract. It reconciles the
// local logical context against the remote, capacity-bounded playback
// queue and publishes a de-duplicated now-playing snapshot.
//
// Control operations are asynchronous: they post into the service's
// single event-processing loop and return immediately. Failures are
// converted to local state corrections and reported through the Error
// event channel, never as crashes.
type Service interface {
	// Library lifecycle
	LoadLibrary(ctx context.Context) error
	Library() []library.Track
	Search(query string) []library.Track
	SetSortOrder(field library.SortField, dir library.SortDirection)

	// Transport controls
	PlayTrack(track library.Track, context []library.Track)
	Next()
	Previous()
	TogglePlayPause()
	Seek(t time.Duration) error

	// Mode control
	ToggleShuffle()
	ToggleRepeat()
	SetRepeatMode(mode RepeatMode)
	ToggleArtistFilter()
	ToggleAlbumFilter()

	// State queries
	Snapshot() Snapshot
	ContextTracks() []library.Track

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}
