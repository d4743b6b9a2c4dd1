package database

import (
	"database/sql"

	"github.com/mdfaizan0/groove/pkg/models"
)

// CreatePodcast inserts a new podcast collection.
func (db *Database) CreatePodcast(title, description, coverImagePath string) (*models.Podcast, error) {
	result, err := db.conn.Exec(`
		INSERT INTO podcast_collections (title, description, cover_image_path)
		VALUES (?, NULLIF(?, ''), NULLIF(?, ''))`, title, description, coverImagePath)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetPodcast(int(id))
}

// GetPodcast returns a single podcast collection by ID.
func (db *Database) GetPodcast(id int) (*models.Podcast, error) {
	var p models.Podcast
	err := db.conn.QueryRow(`
		SELECT id, title, COALESCE(description, ''), COALESCE(cover_image_path, ''), created_at
		FROM podcast_collections WHERE id = ?`, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.CoverImagePath, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAllPodcasts returns all podcast collections, newest first.
func (db *Database) GetAllPodcasts() ([]models.Podcast, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, COALESCE(description, ''), COALESCE(cover_image_path, ''), created_at
		FROM podcast_collections
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var podcasts []models.Podcast
	for rows.Next() {
		var p models.Podcast
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.CoverImagePath, &p.CreatedAt); err != nil {
			return nil, err
		}
		podcasts = append(podcasts, p)
	}
	return podcasts, rows.Err()
}

// UpdatePodcast updates a collection's title/description.
func (db *Database) UpdatePodcast(id int, title, description string) (*models.Podcast, error) {
	result, err := db.conn.Exec(`
		UPDATE podcast_collections SET title = ?, description = NULLIF(?, '')
		WHERE id = ?`, title, description, id)
	if err != nil {
		return nil, err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return db.GetPodcast(id)
}

// DeletePodcast removes a collection and its episodes via cascade.
func (db *Database) DeletePodcast(id int) error {
	result, err := db.conn.Exec(`DELETE FROM podcast_collections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateEpisode inserts a new episode under collectionID. The collection
// must exist (foreign key), otherwise ErrNotFound.
func (db *Database) CreateEpisode(collectionID int, title, description, audioPath string, duration int) (*models.Episode, error) {
	if _, err := db.GetPodcast(collectionID); err != nil {
		return nil, err
	}

	result, err := db.conn.Exec(`
		INSERT INTO podcast_episodes (collection_id, title, description, duration, audio_path)
		VALUES (?, ?, NULLIF(?, ''), ?, ?)`,
		collectionID, title, description, duration, audioPath)
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
	return db.GetEpisode(int(id))
}

// GetEpisode returns a single episode by ID.
func (db *Database) GetEpisode(id int) (*models.Episode, error) {
	var e models.Episode
	err := db.conn.QueryRow(`
		SELECT id, collection_id, title, COALESCE(description, ''), duration, audio_path, published_at
		FROM podcast_episodes WHERE id = ?`, id).Scan(
		&e.ID, &e.CollectionID, &e.Title, &e.Description, &e.Duration, &e.AudioPath, &e.PublishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEpisodesByCollection returns episodes for a collection, newest first.
func (db *Database) GetEpisodesByCollection(collectionID int) ([]models.Episode, error) {
	rows, err := db.conn.Query(`
		SELECT id, collection_id, title, COALESCE(description, ''), duration, audio_path, published_at
		FROM podcast_episodes
		WHERE collection_id = ?
		ORDER BY published_at DESC`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []models.Episode
	for rows.Next() {
		var e models.Episode
		if err := rows.Scan(&e.ID, &e.CollectionID, &e.Title, &e.Description,
			&e.Duration, &e.AudioPath, &e.PublishedAt); err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// UpdateEpisode updates an episode's title/description/duration.
func (db *Database) UpdateEpisode(id int, title, description string, duration int) (*models.Episode, error) {
	result, err := db.conn.Exec(`
		UPDATE podcast_episodes SET title = ?, description = NULLIF(?, ''), duration = ?
		WHERE id = ?`, title, description, duration, id)
	if err != nil {
		return nil, err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return db.GetEpisode(id)
}

// DeleteEpisode removes a single episode.
func (db *Database) DeleteEpisode(id int) error {
	result, err := db.conn.Exec(`DELETE FROM podcast_episodes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchEpisodes performs a LIKE-based search over episode title and
// description, joined with the owning collection, capped at 20 results.
func (db *Database) SearchEpisodes(query string) ([]models.Track, error) {
	searchQuery := "%" + query + "%"
	rows, err := db.searchEpisodeStmt.Query(searchQuery, searchQuery)
	if err != nil {
		db.logger.WithError(err).WithField("query", query).Error("Failed to search episodes")
		return nil, err
	}
	defer rows.Close()

	var items []models.Track
	for rows.Next() {
		var e models.Episode
		var c models.Podcast
		if err := rows.Scan(&e.ID, &e.CollectionID, &e.Title, &e.Description,
			&e.Duration, &e.AudioPath, &e.PublishedAt,
			&c.ID, &c.Title, &c.Description, &c.CoverImagePath, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, models.EpisodeItem(e, c))
	}
	return items, rows.Err()
}
