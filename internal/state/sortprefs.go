package state

import (
	"database/sql"
	"errors"
)

// SortPrefs holds the library sort order persisted across sessions.
type SortPrefs struct {
	Field     string
	Direction string
}

func getSortPrefs(db *sql.DB) (*SortPrefs, error) {
	row := db.QueryRow(`
		SELECT field, direction FROM sort_prefs WHERE id = 1
	`)

	var prefs SortPrefs

	err := row.Scan(&prefs.Field, &prefs.Direction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no saved prefs is valid on first run
	}
	if err != nil {
		return nil, err
	}

	return &prefs, nil
}

func saveSortPrefs(db *sql.DB, prefs SortPrefs) error {
	_, err := db.Exec(`
		INSERT INTO sort_prefs (id, field, direction)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			field = excluded.field,
			direction = excluded.direction
	`, prefs.Field, prefs.Direction)

	return err
}
