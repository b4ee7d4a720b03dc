// Package mpd adapts an MPD server to the remote provider contracts.
// The queue and transport mirror MPD subsystem state via the idle
// protocol so callers see changes without polling the server.
package mpd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/llehouerou/cadence/internal/remote"
)

const (
	network      = "tcp"
	pingInterval = 30 * time.Second
)

// Provider talks to a single MPD server.
type Provider struct {
	log      *slog.Logger
	addr     string
	password string

	// client is not safe for concurrent use; every command holds mu.
	mu     sync.Mutex
	client *mpd.Client

	queue     *queue
	transport *transport
	watcher   *mpd.Watcher

	done     chan struct{}
	shutdown sync.Once
	wg       sync.WaitGroup
}

// New connects to the MPD server at addr and starts mirroring its
// state. password may be empty.
func New(addr, password string, log *slog.Logger) (*Provider, error) {
	if log == nil {
		log = slog.Default()
	}

	client, err := mpd.DialAuthenticated(network, addr, password)
	if err != nil {
		return nil, fmt.Errorf("dial mpd %s: %w", addr, err)
	}

	watcher, err := mpd.NewWatcher(network, addr, password, "player", "playlist", "options")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("watch mpd %s: %w", addr, err)
	}

	p := &Provider{
		log:      log,
		addr:     addr,
		password: password,
		client:   client,
		watcher:  watcher,
		done:     make(chan struct{}),
	}
	p.queue = newQueue(p)
	p.transport = newTransport(p)

	// Prime the mirrors before any events arrive.
	p.queue.refresh()
	p.transport.refresh()

	p.wg.Add(2)
	go p.watchLoop()
	go p.pingLoop()

	return p, nil
}

func (p *Provider) Authorize(_ context.Context) (remote.AuthStatus, error) {
	// Reaching here means DialAuthenticated already succeeded, so the
	// credentials are good; verify the connection is still alive.
	if err := p.command(func(c *mpd.Client) error { return c.Ping() }); err != nil {
		return remote.AuthDenied, err
	}
	return remote.AuthAuthorized, nil
}

func (p *Provider) FetchLibrary(_ context.Context, limit int) ([]remote.Song, error) {
	var attrs []mpd.Attrs
	err := p.command(func(c *mpd.Client) error {
		var err error
		attrs, err = c.ListAllInfo("/")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list mpd database: %w", err)
	}

	songs := make([]remote.Song, 0, len(attrs))
	for _, a := range attrs {
		if a["file"] == "" {
			continue // directory or playlist entry
		}
		songs = append(songs, songFromAttrs(a))
		if limit > 0 && len(songs) >= limit {
			break
		}
	}
	return songs, nil
}

func (p *Provider) Queue() remote.Queue         { return p.queue }
func (p *Provider) Transport() remote.Transport { return p.transport }

func (p *Provider) SetSystemRepeatMode(_ context.Context, mode remote.RepeatMode) error {
	return p.command(func(c *mpd.Client) error {
		if err := c.Repeat(mode != remote.RepeatOff); err != nil {
			return err
		}
		return c.Single(mode == remote.RepeatOne)
	})
}

func (p *Provider) Close() error {
	var err error
	p.shutdown.Do(func() {
		close(p.done)
		err = p.watcher.Close()
		p.wg.Wait()

		p.mu.Lock()
		if p.client != nil {
			if cerr := p.client.Close(); err == nil {
				err = cerr
			}
			p.client = nil
		}
		p.mu.Unlock()
	})
	return err
}

// command runs fn against the live client, redialing once if the
// connection has gone away.
func (p *Provider) command(fn func(*mpd.Client) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		if err := p.redialLocked(); err != nil {
			return err
		}
	}

	err := fn(p.client)
	if err == nil {
		return nil
	}
	if !isConnError(err) {
		return err
	}

	if rerr := p.redialLocked(); rerr != nil {
		return rerr
	}
	return fn(p.client)
}

func (p *Provider) redialLocked() error {
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	client, err := mpd.DialAuthenticated(network, p.addr, p.password)
	if err != nil {
		return fmt.Errorf("redial mpd %s: %w", p.addr, err)
	}
	p.client = client
	p.log.Info("reconnected to mpd", "addr", p.addr)
	return nil
}

func isConnError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "EOF")
}

func (p *Provider) watchLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case subsystem, ok := <-p.watcher.Event:
			if !ok {
				return
			}
			switch subsystem {
			case "playlist":
				p.queue.refresh()
			case "player":
				p.transport.refresh()
				p.queue.refreshCursor()
			case "options":
				// repeat/single flipped on the server; nothing mirrored yet
			}
		case err, ok := <-p.watcher.Error:
			if !ok {
				return
			}
			p.log.Warn("mpd watcher error", "error", err)
		}
	}
}

func (p *Provider) pingLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if err := p.command(func(c *mpd.Client) error { return c.Ping() }); err != nil {
				p.log.Warn("mpd ping failed", "error", err)
			}
		}
	}
}

// songFromAttrs maps an MPD attribute map to a Song. The file path is
// the stable identifier MPD exposes.
func songFromAttrs(a mpd.Attrs) remote.Song {
	return remote.Song{
		ID:          a["file"],
		Title:       a["Title"],
		Artist:      a["Artist"],
		Album:       a["Album"],
		Duration:    parseDuration(a),
		DiscNumber:  parseInt(a["Disc"]),
		TrackNumber: parseInt(a["Track"]),
		AddedAt:     parseTime(a["Last-Modified"]),
		Handle:      remote.Handle(a["file"]),
	}
}

func parseDuration(a mpd.Attrs) time.Duration {
	if v := a["duration"]; v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	if v := a["Time"]; v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func parseInt(s string) int {
	// MPD sometimes reports "3/12" style track numbers.
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	n, _ := strconv.Atoi(s)
	return n
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// Verify contract at compile time.
var _ remote.Provider = (*Provider)(nil)
