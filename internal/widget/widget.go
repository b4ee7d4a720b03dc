// Package widget exports the current playback state to a JSON file so
// external surfaces (status bars, desktop widgets) can render a
// now-playing card without talking to the player.
package widget

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

const (
	appName       = "cadence"
	fileName      = "now_playing.json"
	writeDebounce = 500 * time.Millisecond
)

// NowPlaying is the exported document. Zero values mean nothing is
// playing.
type NowPlaying struct {
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	ArtworkURL string `json:"artwork_url,omitempty"`
	IsPlaying  bool   `json:"is_playing"`
}

// Exporter writes NowPlaying documents to a file, debounced so bursts
// of updates collapse into one write.
type Exporter struct {
	path       string
	mu         sync.Mutex
	writeTimer *time.Timer
	pending    *NowPlaying
}

// New creates an exporter writing to path. An empty path picks the XDG
// state directory.
func New(path string) (*Exporter, error) {
	if path == "" {
		p, err := xdg.StateFile(filepath.Join(appName, fileName))
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Exporter{path: path}, nil
}

// Path returns the export target file.
func (e *Exporter) Path() string {
	return e.path
}

// Update schedules a debounced write of the document.
func (e *Exporter) Update(np NowPlaying) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = &np

	if e.writeTimer != nil {
		e.writeTimer.Stop()
	}

	e.writeTimer = time.AfterFunc(writeDebounce, func() {
		e.mu.Lock()
		pending := e.pending
		e.pending = nil
		e.mu.Unlock()

		if pending != nil {
			_ = e.write(*pending)
		}
	})
}

// Close flushes any pending document and stops the exporter.
func (e *Exporter) Close() error {
	e.mu.Lock()
	if e.writeTimer != nil {
		e.writeTimer.Stop()
	}
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	if pending != nil {
		return e.write(*pending)
	}
	return nil
}

// write replaces the file atomically so readers never see a torn
// document.
func (e *Exporter) write(np NowPlaying) error {
	data, err := json.MarshalIndent(np, "", "  ")
	if err != nil {
		return err
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, e.path)
}
