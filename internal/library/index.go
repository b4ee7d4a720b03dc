package library

// Index provides O(1) lookup of track positions by remote identifier
// and by normalized (title, artist, album) key. Both mappings point
// into the track slice passed to the last Build call and are stale
// after any mutation of that slice until rebuilt.
type Index struct {
	byRemoteID map[string]int
	byKey      map[string]int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		byRemoteID: make(map[string]int),
		byKey:      make(map[string]int),
	}
}

// Build clears and repopulates both mappings in one pass.
func (ix *Index) Build(tracks []Track) {
	ix.byRemoteID = make(map[string]int, len(tracks))
	ix.byKey = make(map[string]int, len(tracks))
	for i, t := range tracks {
		if t.RemoteID != "" {
			ix.byRemoteID[t.RemoteID] = i
		}
		ix.byKey[t.Key()] = i
	}
}

// ByRemoteID returns the position of the track with the given remote
// identifier. Absence is a valid outcome, not a failure.
func (ix *Index) ByRemoteID(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	pos, ok := ix.byRemoteID[id]
	return pos, ok
}

// ByKey returns the position of the track with the given normalized
// (title, artist, album) key. Matching is case-insensitive.
func (ix *Index) ByKey(title, artist, album string) (int, bool) {
	pos, ok := ix.byKey[CompositeKey(title, artist, album)]
	return pos, ok
}

// Len returns the number of keyed entries.
func (ix *Index) Len() int {
	return len(ix.byKey)
}
