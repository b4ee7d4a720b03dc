package mpd

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/llehouerou/cadence/internal/remote"
)

const changeBuffer = 16

// queue mirrors the server's play queue. Commands go to the server;
// Entries and CurrentIndex read a local mirror refreshed from idle
// events, so readers never block on the connection.
type queue struct {
	p *Provider

	mu      sync.Mutex
	entries []remote.Song
	current int

	changes chan struct{}
}

func newQueue(p *Provider) *queue {
	return &queue{
		p:       p,
		current: -1,
		changes: make(chan struct{}, changeBuffer),
	}
}

func (q *queue) Replace(_ context.Context, songs []remote.Song, startAt int) error {
	err := q.p.command(func(c *mpd.Client) error {
		cmds := c.BeginCommandList()
		cmds.Clear()
		for _, s := range songs {
			cmds.Add(string(s.Handle))
		}
		if err := cmds.End(); err != nil {
			return err
		}
		if startAt >= 0 && startAt < len(songs) {
			// MPD has no cursor without playback; start the song and
			// immediately pause so the caller decides when to play.
			if err := c.Play(startAt); err != nil {
				return err
			}
			return c.Pause(true)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace queue: %w", err)
	}
	q.refresh()
	return nil
}

func (q *queue) Append(_ context.Context, songs []remote.Song) error {
	err := q.p.command(func(c *mpd.Client) error {
		cmds := c.BeginCommandList()
		for _, s := range songs {
			cmds.Add(string(s.Handle))
		}
		return cmds.End()
	})
	if err != nil {
		return fmt.Errorf("append to queue: %w", err)
	}
	q.refresh()
	return nil
}

func (q *queue) Entries() []remote.Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]remote.Song, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *queue) CurrentIndex() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

func (q *queue) Changes() <-chan struct{} { return q.changes }

// refresh reloads the whole mirror from the server.
func (q *queue) refresh() {
	var attrs []mpd.Attrs
	var status mpd.Attrs
	err := q.p.command(func(c *mpd.Client) error {
		var err error
		if attrs, err = c.PlaylistInfo(-1, -1); err != nil {
			return err
		}
		status, err = c.Status()
		return err
	})
	if err != nil {
		q.p.log.Warn("queue refresh failed", "error", err)
		return
	}

	entries := make([]remote.Song, 0, len(attrs))
	for _, a := range attrs {
		entries = append(entries, songFromAttrs(a))
	}
	current := cursorFromStatus(status)

	q.mu.Lock()
	q.entries = entries
	q.current = current
	q.mu.Unlock()
	q.signal()
}

// refreshCursor reloads only the cursor; the entries cannot have
// changed on a player event.
func (q *queue) refreshCursor() {
	var status mpd.Attrs
	err := q.p.command(func(c *mpd.Client) error {
		var err error
		status, err = c.Status()
		return err
	})
	if err != nil {
		q.p.log.Warn("cursor refresh failed", "error", err)
		return
	}
	current := cursorFromStatus(status)

	q.mu.Lock()
	changed := current != q.current
	q.current = current
	q.mu.Unlock()
	if changed {
		q.signal()
	}
}

func (q *queue) signal() {
	select {
	case q.changes <- struct{}{}:
	default:
	}
}

func cursorFromStatus(status mpd.Attrs) int {
	if status == nil || status["song"] == "" {
		return -1
	}
	n, err := strconv.Atoi(status["song"])
	if err != nil {
		return -1
	}
	return n
}

var _ remote.Queue = (*queue)(nil)
