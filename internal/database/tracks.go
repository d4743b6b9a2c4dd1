package database

import (
	"database/sql"

	"github.com/mdfaizan0/groove/pkg/models"
)

// InsertTrack inserts a new track row and returns its database ID. A track
// whose audio_path is already registered is reported as ErrConflict.
func (db *Database) InsertTrack(track models.Track) (int, error) {
	result, err := db.conn.Exec(`
		INSERT INTO tracks (title, artist, duration, audio_path, cover_image_path, category_id)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, 0))`,
		track.Title, track.Artist, track.Duration, track.AudioPath,
		track.CoverImagePath, track.CategoryID)
	if err != nil {
		if isConstraintErr(err) {
			return 0, ErrConflict
		}
		db.logger.WithError(err).WithField("audio_path", track.AudioPath).Error("Failed to insert track")
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// GetAllTracks returns all tracks, newest first.
func (db *Database) GetAllTracks() ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, artist, duration, audio_path, COALESCE(cover_image_path, ''), COALESCE(category_id, 0), created_at
		FROM tracks
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// CountTracks returns the number of stored tracks.
func (db *Database) CountTracks() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&count)
	return count, err
}

// GetTrackByID returns a single track by its ID.
func (db *Database) GetTrackByID(id int) (*models.Track, error) {
	var track models.Track
	err := db.getTrackByIDStmt.QueryRow(id).Scan(
		&track.ID, &track.Title, &track.Artist, &track.Duration,
		&track.AudioPath, &track.CoverImagePath, &track.CategoryID, &track.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		db.logger.WithError(err).WithField("track_id", id).Error("Failed to get track by ID")
		return nil, err
	}
	return &track, nil
}

// UpdateTrack updates track metadata. Stored file paths are left untouched;
// re-uploading media is a delete-and-create operation.
func (db *Database) UpdateTrack(id int, title, artist string, categoryID int) (*models.Track, error) {
	result, err := db.conn.Exec(`
		UPDATE tracks SET title = ?, artist = ?, category_id = NULLIF(?, 0)
		WHERE id = ?`, title, artist, categoryID, id)
	if err != nil {
		return nil, err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return db.GetTrackByID(id)
}

// DeleteTrack removes a track row; playlist entries and listening history
// referencing it go with it via cascade.
func (db *Database) DeleteTrack(id int) error {
	result, err := db.conn.Exec(`DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// TrackExists returns true if a track exists with the given audio path.
func (db *Database) TrackExists(audioPath string) (bool, error) {
	var id int
	err := db.trackByPathStmt.QueryRow(audioPath).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		db.logger.WithError(err).WithField("audio_path", audioPath).Error("Failed to check if track exists")
		return false, err
	}
	return true, nil
}

// RemoveTrackByPath deletes a track row identified by its audio path.
func (db *Database) RemoveTrackByPath(audioPath string) error {
	_, err := db.conn.Exec(`DELETE FROM tracks WHERE audio_path = ?`, audioPath)
	if err != nil {
		db.logger.WithError(err).WithField("audio_path", audioPath).Error("Failed to remove track by path")
	}
	return err
}

// SearchTracks performs a simple LIKE-based search over title and artist,
// capped at 10 results.
func (db *Database) SearchTracks(query string) ([]models.Track, error) {
	searchQuery := "%" + query + "%"
	rows, err := db.searchTracksStmt.Query(searchQuery, searchQuery)
	if err != nil {
		db.logger.WithError(err).WithField("query", query).Error("Failed to search tracks")
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// CreateCategory inserts a category; duplicate names are ErrConflict.
func (db *Database) CreateCategory(name string) (*models.Category, error) {
	result, err := db.conn.Exec(`INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		if isConstraintErr(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetCategory(int(id))
}

// GetCategory returns a single category by ID.
func (db *Database) GetCategory(id int) (*models.Category, error) {
	var c models.Category
	err := db.conn.QueryRow(`
		SELECT id, name, created_at FROM categories WHERE id = ?`, id).Scan(
		&c.ID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAllCategories returns all categories, newest first.
func (db *Database) GetAllCategories() ([]models.Category, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, created_at FROM categories ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory renames a category.
func (db *Database) UpdateCategory(id int, name string) (*models.Category, error) {
	result, err := db.conn.Exec(`UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isConstraintErr(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return db.GetCategory(id)
}

// DeleteCategory removes a category; tracks keep playing, their category
// reference is nulled by the schema.
func (db *Database) DeleteCategory(id int) error {
	result, err := db.conn.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanTrackRows scans standard track result sets into a slice of
// models.Track. It centralizes row iteration logic across query helpers.
// Callers must have already deferred rows.Close().
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		var track models.Track
		if err := rows.Scan(&track.ID, &track.Title, &track.Artist, &track.Duration,
			&track.AudioPath, &track.CoverImagePath, &track.CategoryID, &track.CreatedAt); err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}
