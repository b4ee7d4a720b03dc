package widget

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readDoc(t *testing.T, path string) NowPlaying {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read widget file: %v", err)
	}
	var np NowPlaying
	if err := json.Unmarshal(data, &np); err != nil {
		t.Fatalf("unmarshal widget file: %v", err)
	}
	return np
}

func TestUpdate_DebouncedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "now_playing.json")
	e, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	// Rapid updates: only the last one should land.
	e.Update(NowPlaying{Title: "First", IsPlaying: true})
	e.Update(NowPlaying{Title: "Second", Artist: "Queen", IsPlaying: true})

	if _, err := os.Stat(path); err == nil {
		t.Error("file written before debounce elapsed")
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced write never flushed")
		}
		time.Sleep(20 * time.Millisecond)
	}

	np := readDoc(t, path)
	if np.Title != "Second" || np.Artist != "Queen" || !np.IsPlaying {
		t.Errorf("doc = %+v, want the latest update", np)
	}
}

func TestClose_FlushesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "now_playing.json")
	e, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	e.Update(NowPlaying{Title: "Pending", IsPlaying: false})
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	np := readDoc(t, path)
	if np.Title != "Pending" || np.IsPlaying {
		t.Errorf("doc = %+v, want pending update flushed on close", np)
	}
}

func TestWrite_NoLeftoverTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "now_playing.json")
	e, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	e.Update(NowPlaying{Title: "Track"})
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after rename")
	}
}
