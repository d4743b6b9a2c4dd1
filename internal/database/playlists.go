package database

import (
	"database/sql"
	"fmt"

	"github.com/mdfaizan0/groove/pkg/models"

	"github.com/sirupsen/logrus"
)

// CreatePlaylist inserts a new playlist owned by userID and returns it.
func (db *Database) CreatePlaylist(userID, name string) (*models.Playlist, error) {
	result, err := db.conn.Exec(`
		INSERT INTO playlists (user_id, name)
		VALUES (?, ?)`, userID, name)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetPlaylist(int(id), userID)
}

// GetPlaylistsByUser returns all playlists owned by userID, newest first.
func (db *Database) GetPlaylistsByUser(userID string) ([]models.Playlist, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, name, tracks_count, created_at
		FROM playlists
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.TracksCount, &p.CreatedAt); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// GetPlaylist returns a single playlist if it exists and is owned by userID.
// A playlist owned by someone else is reported as ErrNotFound.
func (db *Database) GetPlaylist(playlistID int, userID string) (*models.Playlist, error) {
	var p models.Playlist
	err := db.conn.QueryRow(`
		SELECT id, user_id, name, tracks_count, created_at
		FROM playlists
		WHERE id = ? AND user_id = ?`, playlistID, userID).Scan(
		&p.ID, &p.UserID, &p.Name, &p.TracksCount, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RenamePlaylist updates the playlist name, scoped to the owner.
func (db *Database) RenamePlaylist(playlistID int, userID, name string) (*models.Playlist, error) {
	result, err := db.conn.Exec(`
		UPDATE playlists SET name = ?
		WHERE id = ? AND user_id = ?`, name, playlistID, userID)
	if err != nil {
		return nil, err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return db.GetPlaylist(playlistID, userID)
}

// DeletePlaylist removes the playlist and, via cascade, its track entries.
func (db *Database) DeletePlaylist(playlistID int, userID string) error {
	result, err := db.conn.Exec(`
		DELETE FROM playlists WHERE id = ? AND user_id = ?`, playlistID, userID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTrack appends trackID at the end of the playlist and bumps the
// playlist's tracks_count, all inside one transaction. The append position
// is computed by the insert statement itself (max position + 1), so two
// concurrent appends to the same playlist serialize on SQLite's write lock
// instead of racing to the same slot. Returns ErrNotFound if the playlist
// is missing or not owned by userID, or if the track does not exist, and
// ErrConflict if the track is already in the playlist.
func (db *Database) AppendTrack(playlistID int, userID string, trackID int) (*models.PlaylistTrack, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var ownerCheck int
	err = tx.QueryRow(`SELECT id FROM playlists WHERE id = ? AND user_id = ?`,
		playlistID, userID).Scan(&ownerCheck)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var trackCheck int
	err = tx.QueryRow(`SELECT id FROM tracks WHERE id = ?`, trackID).Scan(&trackCheck)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Single-statement "insert at max+1": read and write happen atomically
	// under the write lock, so the dense-positions invariant holds without
	// a separate SELECT MAX round trip.
	_, err = tx.Exec(`
		INSERT INTO playlist_tracks (playlist_id, track_id, position)
		SELECT ?, ?, COALESCE(MAX(position), 0) + 1
		FROM playlist_tracks WHERE playlist_id = ?`,
		playlistID, trackID, playlistID)
	if err != nil {
		if isConstraintErr(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if _, err := tx.Exec(`
		UPDATE playlists SET tracks_count = tracks_count + 1
		WHERE id = ?`, playlistID); err != nil {
		return nil, err
	}

	var entry models.PlaylistTrack
	err = tx.QueryRow(`
		SELECT playlist_id, track_id, position
		FROM playlist_tracks
		WHERE playlist_id = ? AND track_id = ?`, playlistID, trackID).Scan(
		&entry.PlaylistID, &entry.TrackID, &entry.Position)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	db.logger.WithFields(logrus.Fields{
		"playlist_id": playlistID,
		"track_id":    trackID,
		"position":    entry.Position,
	}).Debug("Appended track to playlist")

	return &entry, nil
}

// RemoveTrack removes trackID from the playlist and shifts every higher
// position down by one so no gap remains, then decrements tracks_count.
// Delete, shift and count update are one all-or-nothing transaction: a
// partial shift would leave a gap and break the dense-positions invariant.
func (db *Database) RemoveTrack(playlistID int, userID string, trackID int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ownerCheck int
	err = tx.QueryRow(`SELECT id FROM playlists WHERE id = ? AND user_id = ?`,
		playlistID, userID).Scan(&ownerCheck)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var removedPosition int
	err = tx.QueryRow(`
		SELECT position FROM playlist_tracks
		WHERE playlist_id = ? AND track_id = ?`, playlistID, trackID).Scan(&removedPosition)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`
		DELETE FROM playlist_tracks
		WHERE playlist_id = ? AND track_id = ?`, playlistID, trackID); err != nil {
		return err
	}

	// Compaction: close the gap left by the removed row.
	if _, err := tx.Exec(`
		UPDATE playlist_tracks SET position = position - 1
		WHERE playlist_id = ? AND position > ?`, playlistID, removedPosition); err != nil {
		return err
	}

	// tracks_count never goes negative given the invariant, but the floor
	// keeps a corrupted count from wedging removals.
	if _, err := tx.Exec(`
		UPDATE playlists
		SET tracks_count = CASE WHEN tracks_count > 0 THEN tracks_count - 1 ELSE 0 END
		WHERE id = ?`, playlistID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.logger.WithFields(logrus.Fields{
		"playlist_id": playlistID,
		"track_id":    trackID,
		"position":    removedPosition,
	}).Debug("Removed track from playlist")

	return nil
}

// GetPlaylistTracks returns the playlist's tracks joined with their stored
// position, ascending. Ownership is checked first so cross-user reads look
// identical to a missing playlist.
func (db *Database) GetPlaylistTracks(playlistID int, userID string) ([]models.PlaylistEntry, error) {
	if _, err := db.GetPlaylist(playlistID, userID); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT t.id, t.title, t.artist, t.duration, t.audio_path, COALESCE(t.cover_image_path, ''), COALESCE(t.category_id, 0), t.created_at, pt.position
		FROM tracks t
		JOIN playlist_tracks pt ON t.id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PlaylistEntry
	for rows.Next() {
		var e models.PlaylistEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Artist, &e.Duration, &e.AudioPath,
			&e.CoverImagePath, &e.CategoryID, &e.CreatedAt, &e.Position); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NextAppendPosition returns the position the next appended track would
// get: max(position)+1, or 1 for an empty playlist. Query errors also fall
// back to 1 so a transient read failure can never block an append.
func (db *Database) NextAppendPosition(playlistID int) int {
	var maxPosition sql.NullInt64
	err := db.conn.QueryRow(`
		SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?`,
		playlistID).Scan(&maxPosition)
	if err != nil || !maxPosition.Valid {
		return 1
	}
	return int(maxPosition.Int64) + 1
}

// playlistPositions returns the raw position set for a playlist, ascending.
// Used by tests to verify the compaction invariant.
func (db *Database) playlistPositions(playlistID int) ([]int, error) {
	rows, err := db.conn.Query(`
		SELECT position FROM playlist_tracks
		WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning positions: %w", err)
	}
	return positions, nil
}
