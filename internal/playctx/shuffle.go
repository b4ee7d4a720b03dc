package playctx

import "github.com/llehouerou/cadence/internal/library"

// ShuffleEnabled reports whether shuffle is active.
func (m *Manager) ShuffleEnabled() bool {
	return m.shuffleOn
}

// SetShuffle enables or disables shuffle. Enabling generates a fresh
// permutation with current pinned at position 0. Returns false when
// enabling on an empty context, leaving shuffle off.
func (m *Manager) SetShuffle(on bool, current library.Track) bool {
	if !on {
		m.shuffleOn = false
		m.shuffled = nil
		return true
	}
	if len(m.active) == 0 {
		m.shuffleOn = false
		m.shuffled = nil
		return false
	}
	m.shuffleOn = true
	m.Reshuffle(current)
	return true
}

// Reshuffle regenerates the shuffled permutation, pinning current at
// position 0 when it belongs to the active context. Called when the
// playing track changes or the underlying context changes while
// shuffle is active; no-op when shuffle is off.
func (m *Manager) Reshuffle(current library.Track) {
	if !m.shuffleOn {
		return
	}
	out := make([]library.Track, len(m.active))
	copy(out, m.active)
	m.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if pos := library.IndexOfTrack(out, current); pos > 0 {
		out[0], out[pos] = out[pos], out[0]
	}
	m.shuffled = out
}

// Next returns the track to play after current within the effective
// context. Under shuffle it picks randomly among the tracks after
// current in the shuffled order (wrapping to the full remainder at the
// tail); otherwise it is sequential with wraparound.
func (m *Manager) Next(current library.Track) (library.Track, bool) {
	tracks := m.Tracks()
	if len(tracks) == 0 {
		return library.Track{}, false
	}
	pos := library.IndexOfTrack(tracks, current)
	if m.shuffleOn {
		return m.randomOther(tracks, pos)
	}
	return tracks[(pos+1)%len(tracks)], true
}

// Previous returns the track before current, sequential with
// wraparound. Under shuffle it walks the shuffled order backwards.
func (m *Manager) Previous(current library.Track) (library.Track, bool) {
	tracks := m.Tracks()
	if len(tracks) == 0 {
		return library.Track{}, false
	}
	pos := library.IndexOfTrack(tracks, current)
	if pos < 0 {
		pos = 0
	}
	return tracks[(pos-1+len(tracks))%len(tracks)], true
}

// randomOther picks among the tracks following pos, or among all other
// tracks when pos is at the tail or unknown.
func (m *Manager) randomOther(tracks []library.Track, pos int) (library.Track, bool) {
	if len(tracks) == 1 {
		return tracks[0], true
	}
	if pos < 0 {
		return tracks[m.rng.IntN(len(tracks))], true
	}
	if pos < len(tracks)-1 {
		rest := tracks[pos+1:]
		return rest[m.rng.IntN(len(rest))], true
	}
	i := m.rng.IntN(len(tracks) - 1)
	if i >= pos {
		i++
	}
	return tracks[i], true
}
