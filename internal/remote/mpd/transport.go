package mpd

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/llehouerou/cadence/internal/remote"
)

// transport maps the player subsystem: play/pause/skip/seek plus a
// state-change stream fed from idle events.
type transport struct {
	p *Provider

	mu    sync.Mutex
	state remote.PlayState

	stateCh chan remote.PlayState
}

func newTransport(p *Provider) *transport {
	return &transport{
		p:       p,
		state:   remote.Stopped,
		stateCh: make(chan remote.PlayState, changeBuffer),
	}
}

func (t *transport) Play(_ context.Context) error {
	err := t.p.command(func(c *mpd.Client) error {
		return c.Pause(false)
	})
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

func (t *transport) Pause(_ context.Context) error {
	err := t.p.command(func(c *mpd.Client) error {
		return c.Pause(true)
	})
	if err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	return nil
}

func (t *transport) SkipNext(_ context.Context) error {
	err := t.p.command(func(c *mpd.Client) error { return c.Next() })
	if err != nil {
		return fmt.Errorf("skip next: %w", err)
	}
	return nil
}

func (t *transport) SkipPrevious(_ context.Context) error {
	err := t.p.command(func(c *mpd.Client) error { return c.Previous() })
	if err != nil {
		return fmt.Errorf("skip previous: %w", err)
	}
	return nil
}

func (t *transport) PlaybackTime(_ context.Context) (time.Duration, error) {
	var status mpd.Attrs
	err := t.p.command(func(c *mpd.Client) error {
		var err error
		status, err = c.Status()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("playback time: %w", err)
	}
	if status["elapsed"] == "" {
		return 0, nil
	}
	secs, err := strconv.ParseFloat(status["elapsed"], 64)
	if err != nil {
		return 0, fmt.Errorf("parse elapsed %q: %w", status["elapsed"], err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (t *transport) SetPlaybackTime(_ context.Context, pos time.Duration) error {
	err := t.p.command(func(c *mpd.Client) error {
		return c.SeekCur(pos, false)
	})
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

func (t *transport) StateChanges() <-chan remote.PlayState { return t.stateCh }

// refresh reads the player state and emits a change when it moved.
func (t *transport) refresh() {
	var status mpd.Attrs
	err := t.p.command(func(c *mpd.Client) error {
		var err error
		status, err = c.Status()
		return err
	})
	if err != nil {
		t.p.log.Warn("transport refresh failed", "error", err)
		return
	}

	state := stateFromStatus(status)

	t.mu.Lock()
	changed := state != t.state
	t.state = state
	t.mu.Unlock()

	if changed {
		select {
		case t.stateCh <- state:
		default:
		}
	}
}

func stateFromStatus(status mpd.Attrs) remote.PlayState {
	switch status["state"] {
	case "play":
		return remote.Playing
	case "pause":
		return remote.Paused
	default:
		return remote.Stopped
	}
}

var _ remote.Transport = (*transport)(nil)
