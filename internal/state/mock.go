package state

import (
	"database/sql"
	"sync"
)

// Mock is an in-memory state manager for tests.
type Mock struct {
	mu        sync.Mutex
	playback  *PlaybackState
	sortPrefs *SortPrefs

	SavePlaybackCalls  int
	SaveSortPrefsCalls int
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) DB() *sql.DB { return nil }

func (m *Mock) SavePlayback(state PlaybackState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playback = &state
	m.SavePlaybackCalls++
}

func (m *Mock) GetPlayback() (*PlaybackState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playback == nil {
		return nil, nil //nolint:nilnil // mirrors Manager: no state on first run
	}
	out := *m.playback
	return &out, nil
}

func (m *Mock) SaveSortPrefs(prefs SortPrefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sortPrefs = &prefs
	m.SaveSortPrefsCalls++
	return nil
}

func (m *Mock) GetSortPrefs() (*SortPrefs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sortPrefs == nil {
		return nil, nil //nolint:nilnil // mirrors Manager: no prefs on first run
	}
	out := *m.sortPrefs
	return &out, nil
}

func (m *Mock) Close() error { return nil }

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
