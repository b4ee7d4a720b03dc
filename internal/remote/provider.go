package remote

import (
	"context"
	"time"
)

// Provider is the external library/playback service.
type Provider interface {
	// Authorize requests access to the user's library.
	Authorize(ctx context.Context) (AuthStatus, error)
	// FetchLibrary returns the user's library, up to limit songs
	// (limit <= 0 means no limit). Order is provider-defined.
	FetchLibrary(ctx context.Context, limit int) ([]Song, error)
	// Queue returns the provider's playback queue.
	Queue() Queue
	// Transport returns the provider's transport controls.
	Transport() Transport
	// SetSystemRepeatMode sets the provider-level repeat mode. Some
	// transports require this in addition to the primary control
	// surface and do not persist it across queue replacement.
	SetSystemRepeatMode(ctx context.Context, mode RepeatMode) error
	// Close releases the provider connection.
	Close() error
}

// Queue is the provider-owned, capacity-bounded playback queue. The
// coordinator only appends to its tail or replaces it wholesale; it
// never reorders or removes interior entries.
type Queue interface {
	// Replace clears the queue, enqueues songs, and positions the
	// cursor at startAt.
	Replace(ctx context.Context, songs []Song, startAt int) error
	// Append adds songs at the tail without moving the cursor.
	Append(ctx context.Context, songs []Song) error
	// Entries returns a snapshot of the queue contents in order.
	Entries() []Song
	// CurrentIndex returns the cursor position, or -1 when nothing
	// is enqueued.
	CurrentIndex() int
	// Changes signals queue content or cursor changes. Signals may
	// arrive in rapid bursts during track transitions; consumers are
	// expected to debounce.
	Changes() <-chan struct{}
}

// Transport is the provider-owned playback transport.
type Transport interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
	// PlaybackTime returns the elapsed time within the current entry.
	PlaybackTime(ctx context.Context) (time.Duration, error)
	// SetPlaybackTime seeks within the current entry.
	SetPlaybackTime(ctx context.Context, t time.Duration) error
	// StateChanges signals transport state transitions. The channel
	// fires independently of Queue.Changes and the two streams carry
	// no ordering guarantee relative to each other.
	StateChanges() <-chan PlayState
}
