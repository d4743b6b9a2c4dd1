package database

import (
	"time"

	"github.com/mdfaizan0/groove/pkg/models"

	"github.com/sirupsen/logrus"
)

// UpsertRecentlyPlayed records the latest listening position for a
// (user, track) pair. Keyed on (user_id, track_id), so replaying a track
// updates the single existing row instead of appending history.
func (db *Database) UpsertRecentlyPlayed(userID string, trackID, lastPosition int) error {
	_, err := db.conn.Exec(`
		INSERT INTO recently_played (user_id, track_id, last_position, played_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, track_id) DO UPDATE SET
			last_position = excluded.last_position,
			played_at = excluded.played_at`,
		userID, trackID, lastPosition, time.Now().UTC())
	if err != nil {
		if isConstraintErr(err) {
			// Foreign key: the track is gone. History for deleted tracks
			// is not worth surfacing to the listener.
			return ErrNotFound
		}
		db.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"track_id": trackID,
		}).Error("Failed to upsert recently played")
		return err
	}
	return nil
}

// GetRecentlyPlayed returns the user's most recently played tracks joined
// with the track rows, most recent first, capped at limit.
func (db *Database) GetRecentlyPlayed(userID string, limit int) ([]models.RecentTrack, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT t.id, t.title, t.artist, t.duration, t.audio_path, COALESCE(t.cover_image_path, ''), COALESCE(t.category_id, 0), t.created_at,
			   rp.last_position, rp.played_at
		FROM recently_played rp
		JOIN tracks t ON t.id = rp.track_id
		WHERE rp.user_id = ?
		ORDER BY rp.played_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recents []models.RecentTrack
	for rows.Next() {
		var r models.RecentTrack
		if err := rows.Scan(&r.ID, &r.Title, &r.Artist, &r.Duration, &r.AudioPath,
			&r.CoverImagePath, &r.CategoryID, &r.CreatedAt,
			&r.LastPosition, &r.PlayedAt); err != nil {
			return nil, err
		}
		recents = append(recents, r)
	}
	return recents, rows.Err()
}
