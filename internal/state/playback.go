package state

import (
	"database/sql"
	"errors"
)

// PlaybackState holds the playback modes persisted across sessions.
type PlaybackState struct {
	RepeatMode int
	Shuffle    bool
}

func getPlayback(db *sql.DB) (*PlaybackState, error) {
	row := db.QueryRow(`
		SELECT repeat_mode, shuffle FROM playback_state WHERE id = 1
	`)

	var state PlaybackState
	var shuffle int

	err := row.Scan(&state.RepeatMode, &shuffle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no saved state is valid on first run
	}
	if err != nil {
		return nil, err
	}

	state.Shuffle = shuffle != 0

	return &state, nil
}

func savePlayback(db *sql.DB, state PlaybackState) error {
	shuffle := 0
	if state.Shuffle {
		shuffle = 1
	}

	_, err := db.Exec(`
		INSERT INTO playback_state (id, repeat_mode, shuffle)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			repeat_mode = excluded.repeat_mode,
			shuffle = excluded.shuffle
	`, state.RepeatMode, shuffle)

	return err
}
