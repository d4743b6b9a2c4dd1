package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Sentinel errors returned by query helpers. Handlers map these onto HTTP
// statuses; anything else is an opaque storage error.
var (
	// ErrNotFound covers both a missing resource and a resource owned by
	// another user. The two cases are deliberately indistinguishable so
	// existence is never leaked across users.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint rejects a write,
	// e.g. appending a track that is already in the playlist.
	ErrConflict = errors.New("already exists")
)

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for hot paths
	getTrackByIDStmt  *sql.Stmt
	trackByPathStmt   *sql.Stmt
	searchTracksStmt  *sql.Stmt
	searchEpisodeStmt *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing). Caller should Close() it
// when finished.
func NewDatabase(dbPath string) (*Database, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	// Enable WAL mode for better concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist.
// This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	categoriesTable := `
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	tracksTable := `
	CREATE TABLE IF NOT EXISTS tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		duration INTEGER DEFAULT 0,
		audio_path TEXT NOT NULL UNIQUE,
		cover_image_path TEXT,
		category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	playlistsTable := `
	CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		tracks_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	playlistTracksTable := `
	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id INTEGER NOT NULL,
		track_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE,
		PRIMARY KEY (playlist_id, track_id)
	);`

	podcastCollectionsTable := `
	CREATE TABLE IF NOT EXISTS podcast_collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		cover_image_path TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	podcastEpisodesTable := `
	CREATE TABLE IF NOT EXISTS podcast_episodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_id INTEGER NOT NULL REFERENCES podcast_collections(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT,
		duration INTEGER DEFAULT 0,
		audio_path TEXT NOT NULL UNIQUE,
		published_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	recentlyPlayedTable := `
	CREATE TABLE IF NOT EXISTS recently_played (
		user_id TEXT NOT NULL,
		track_id INTEGER NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
		last_position INTEGER NOT NULL DEFAULT 0,
		played_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, track_id)
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_tracks_category ON tracks(category_id);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_search ON tracks(title, artist);",
		"CREATE INDEX IF NOT EXISTS idx_playlists_user ON playlists(user_id, created_at);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_playlist ON playlist_tracks(playlist_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_position ON playlist_tracks(playlist_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_episodes_collection ON podcast_episodes(collection_id, published_at);",
		"CREATE INDEX IF NOT EXISTS idx_recently_played_user ON recently_played(user_id, played_at);",
	}

	tables := []string{
		categoriesTable, tracksTable, playlistsTable, playlistTracksTable,
		podcastCollectionsTable, podcastEpisodesTable, recentlyPlayedTable,
	}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	db.getTrackByIDStmt, err = db.conn.Prepare(`
		SELECT id, title, artist, duration, audio_path, COALESCE(cover_image_path, ''), COALESCE(category_id, 0), created_at
		FROM tracks WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get track by ID statement: %w", err)
	}

	db.trackByPathStmt, err = db.conn.Prepare(`
		SELECT id FROM tracks WHERE audio_path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare track by path statement: %w", err)
	}

	db.searchTracksStmt, err = db.conn.Prepare(`
		SELECT id, title, artist, duration, audio_path, COALESCE(cover_image_path, ''), COALESCE(category_id, 0), created_at
		FROM tracks
		WHERE title LIKE ? OR artist LIKE ?
		ORDER BY created_at DESC
		LIMIT 10`)
	if err != nil {
		return fmt.Errorf("failed to prepare search tracks statement: %w", err)
	}

	db.searchEpisodeStmt, err = db.conn.Prepare(`
		SELECT e.id, e.collection_id, e.title, COALESCE(e.description, ''), e.duration, e.audio_path, e.published_at,
			   c.id, c.title, COALESCE(c.description, ''), COALESCE(c.cover_image_path, ''), c.created_at
		FROM podcast_episodes e
		JOIN podcast_collections c ON c.id = e.collection_id
		WHERE e.title LIKE ? OR e.description LIKE ?
		ORDER BY e.published_at DESC
		LIMIT 20`)
	if err != nil {
		return fmt.Errorf("failed to prepare search episodes statement: %w", err)
	}

	return nil
}

// isConstraintErr reports whether err is a SQLite constraint violation
// (unique, primary key or foreign key).
func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// Ping verifies the underlying connection is still alive.
func (db *Database) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.getTrackByIDStmt,
		db.trackByPathStmt,
		db.searchTracksStmt,
		db.searchEpisodeStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
