package database

import (
	"errors"
	"testing"

	"github.com/mdfaizan0/groove/pkg/models"
)

func TestRecentlyPlayedUpsert(t *testing.T) {
	db := newTestDatabase(t)
	trackIDs := seedTracks(t, db, 3)

	t.Run("InsertThenUpdate", func(t *testing.T) {
		if err := db.UpsertRecentlyPlayed("alice", trackIDs[0], 42); err != nil {
			t.Fatalf("Failed to insert listening history: %v", err)
		}
		if err := db.UpsertRecentlyPlayed("alice", trackIDs[0], 90); err != nil {
			t.Fatalf("Failed to update listening history: %v", err)
		}

		recent, err := db.GetRecentlyPlayed("alice", 0)
		if err != nil {
			t.Fatalf("Failed to fetch history: %v", err)
		}
		if len(recent) != 1 {
			t.Fatalf("Expected a single history row after repeat plays, got %d", len(recent))
		}
		if recent[0].ID != trackIDs[0] {
			t.Errorf("Expected track %d, got %d", trackIDs[0], recent[0].ID)
		}
		if recent[0].LastPosition != 90 {
			t.Errorf("Expected last position 90, got %d", recent[0].LastPosition)
		}
	})

	t.Run("MostRecentFirst", func(t *testing.T) {
		for _, id := range trackIDs[1:] {
			if err := db.UpsertRecentlyPlayed("alice", id, 10); err != nil {
				t.Fatalf("Failed to record play: %v", err)
			}
		}
		// Replaying the first track bumps it back to the top.
		if err := db.UpsertRecentlyPlayed("alice", trackIDs[0], 5); err != nil {
			t.Fatalf("Failed to record replay: %v", err)
		}

		recent, err := db.GetRecentlyPlayed("alice", 0)
		if err != nil {
			t.Fatalf("Failed to fetch history: %v", err)
		}
		if len(recent) != 3 {
			t.Fatalf("Expected 3 history rows, got %d", len(recent))
		}
		if recent[0].ID != trackIDs[0] {
			t.Errorf("Expected replayed track first, got %d", recent[0].ID)
		}
	})

	t.Run("UnknownTrackIsNotFound", func(t *testing.T) {
		err := db.UpsertRecentlyPlayed("alice", 99999, 0)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("HistoryIsPerUser", func(t *testing.T) {
		recent, err := db.GetRecentlyPlayed("bob", 0)
		if err != nil {
			t.Fatalf("Failed to fetch history: %v", err)
		}
		if len(recent) != 0 {
			t.Errorf("Expected empty history for other user, got %d rows", len(recent))
		}
	})
}

func TestRecentlyPlayedLimit(t *testing.T) {
	db := newTestDatabase(t)
	trackIDs := seedTracks(t, db, 25)

	for _, id := range trackIDs {
		if err := db.UpsertRecentlyPlayed("alice", id, 0); err != nil {
			t.Fatalf("Failed to record play: %v", err)
		}
	}

	recent, err := db.GetRecentlyPlayed("alice", 0)
	if err != nil {
		t.Fatalf("Failed to fetch history: %v", err)
	}
	if len(recent) != 20 {
		t.Errorf("Expected default cap of 20 rows, got %d", len(recent))
	}

	recent, err = db.GetRecentlyPlayed("alice", 5)
	if err != nil {
		t.Fatalf("Failed to fetch capped history: %v", err)
	}
	if len(recent) != 5 {
		t.Errorf("Expected 5 rows, got %d", len(recent))
	}
}

func TestSearchSpansTracksAndEpisodes(t *testing.T) {
	db := newTestDatabase(t)

	if _, err := db.InsertTrack(models.Track{
		Title:     "Blue Monday",
		Artist:    "New Order",
		Duration:  447,
		AudioPath: "media/tracks/blue.mp3",
	}); err != nil {
		t.Fatalf("Failed to insert track: %v", err)
	}
	collection, err := db.CreatePodcast("Blue Notes", "Jazz history", "")
	if err != nil {
		t.Fatalf("Failed to create podcast: %v", err)
	}
	if _, err := db.CreateEpisode(collection.ID, "Why Blue Scales Work", "", "media/podcasts/blue-ep1.mp3", 1200); err != nil {
		t.Fatalf("Failed to create episode: %v", err)
	}

	tracks, err := db.SearchTracks("blue")
	if err != nil {
		t.Fatalf("Track search failed: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("Expected 1 track hit, got %d", len(tracks))
	}

	episodes, err := db.SearchEpisodes("blue")
	if err != nil {
		t.Fatalf("Episode search failed: %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("Expected 1 episode hit, got %d", len(episodes))
	}
	if episodes[0].Podcast == nil {
		t.Error("Episode hit should carry its collection")
	} else if episodes[0].Podcast.Title != "Blue Notes" {
		t.Errorf("Expected collection title %q, got %q", "Blue Notes", episodes[0].Podcast.Title)
	}
}
