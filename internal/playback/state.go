// internal/playback/state.go
package playback

import "github.com/llehouerou/cadence/internal/remote"

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// Next returns the following mode in the Off -> All -> One cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// Remote maps the mode onto the provider-side setting.
func (m RepeatMode) Remote() remote.RepeatMode {
	switch m {
	case RepeatAll:
		return remote.RepeatAll
	case RepeatOne:
		return remote.RepeatOne
	default:
		return remote.RepeatOff
	}
}
