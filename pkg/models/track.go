package models

import "time"

// Track represents a music track in the system
type Track struct {
	ID             int       `json:"id"`
	Title          string    `json:"title"`
	Artist         string    `json:"artist"`
	Duration       int       `json:"duration"` // in seconds
	AudioPath      string    `json:"-"`        // server-local path, clients stream by ID
	CoverImagePath string    `json:"coverImagePath,omitempty"`
	CategoryID     int       `json:"categoryId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`

	// Podcast is set when this item is a podcast episode queued for
	// playback. Plain library tracks leave it nil; the playback engine
	// uses its presence to exclude episodes from listening history.
	Podcast *Podcast `json:"podcast,omitempty"`
}

// Category groups tracks for browsing
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Playlist represents a user-owned playlist
type Playlist struct {
	ID          int       `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	TracksCount int       `json:"tracksCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PlaylistTrack represents the relationship between playlists and tracks
type PlaylistTrack struct {
	PlaylistID int `json:"playlistId"`
	TrackID    int `json:"trackId"`
	Position   int `json:"position"`
}

// PlaylistEntry is a track joined with its position within a playlist
type PlaylistEntry struct {
	Track
	Position int `json:"position"`
}

// Podcast represents a podcast collection
type Podcast struct {
	ID             int       `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	CoverImagePath string    `json:"coverImagePath,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Episode represents a single podcast episode
type Episode struct {
	ID           int       `json:"id"`
	CollectionID int       `json:"collectionId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Duration     int       `json:"duration"`
	AudioPath    string    `json:"-"`
	PublishedAt  time.Time `json:"publishedAt"`
}

// RecentlyPlayed records the last listening position for a (user, track)
// pair. Upserted, never appended, so replays stay a single row.
type RecentlyPlayed struct {
	UserID       string    `json:"userId"`
	TrackID      int       `json:"trackId"`
	LastPosition int       `json:"lastPosition"` // in seconds
	PlayedAt     time.Time `json:"playedAt"`
}

// RecentTrack is a track joined with its listening-history row.
type RecentTrack struct {
	Track
	LastPosition int       `json:"lastPosition"`
	PlayedAt     time.Time `json:"playedAt"`
}

// EpisodeItem converts a podcast episode into a playable queue item. The
// attached Podcast reference is what keeps episodes out of listening
// history.
func EpisodeItem(ep Episode, col Podcast) Track {
	return Track{
		ID:             ep.ID,
		Title:          ep.Title,
		Artist:         col.Title,
		Duration:       ep.Duration,
		AudioPath:      ep.AudioPath,
		CoverImagePath: col.CoverImagePath,
		Podcast:        &col,
	}
}
