// Package remote defines the contract with the external library/playback
// provider: the service that owns the actual audio output, the playback
// queue, and the user's music library. The coordinator core only ever
// talks to a provider through these interfaces.
package remote

import "time"

// Handle is an opaque reference to a playable resource. A zero Handle
// means the song cannot be enqueued for playback.
type Handle string

// IsZero reports whether the handle is unset.
func (h Handle) IsZero() bool {
	return h == ""
}

// Song is a library record as returned by the provider.
type Song struct {
	ID          string // provider identifier, may be empty
	Title       string
	Artist      string
	Album       string
	Duration    time.Duration
	DiscNumber  int
	TrackNumber int
	AddedAt     time.Time
	ArtworkURL  string
	Handle      Handle
}

// AuthStatus is the outcome of an authorization request.
type AuthStatus int

const (
	AuthDenied AuthStatus = iota
	AuthAuthorized
)

// String returns the status name.
func (s AuthStatus) String() string {
	switch s {
	case AuthAuthorized:
		return "Authorized"
	case AuthDenied:
		return "Denied"
	default:
		return "Unknown"
	}
}

// PlayState represents the remote transport state.
type PlayState int

const (
	Stopped PlayState = iota
	Playing
	Paused
)

// String returns the state name.
func (s PlayState) String() string {
	switch s {
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// RepeatMode is the provider-side repeat setting.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)
