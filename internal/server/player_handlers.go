package server

import (
	"encoding/json"
	"net/http"

	"github.com/mdfaizan0/groove/internal/player"
	"github.com/mdfaizan0/groove/pkg/models"
)

// handlePlayerState returns the current playback state
func (gs *GrooveServer) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerPlay starts a track or podcast episode
func (gs *GrooveServer) handlePlayerPlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		TrackID   int `json:"trackId"`
		EpisodeID int `json:"episodeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	var item *models.Track
	switch {
	case req.EpisodeID > 0:
		episode, err := gs.db.GetEpisode(req.EpisodeID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Episode")
			return
		}
		collection, err := gs.db.GetPodcast(episode.CollectionID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Podcast")
			return
		}
		track := models.EpisodeItem(*episode, *collection)
		item = &track

	case req.TrackID > 0:
		track, err := gs.db.GetTrackByID(req.TrackID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Track")
			return
		}
		item = track

	default:
		gs.respondWithError(w, r, http.StatusBadRequest, "trackId or episodeId required", nil)
		return
	}

	gs.engine.SetActiveUser(currentUser(r))
	gs.engine.PlayTrack(item)
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerPause pauses playback
func (gs *GrooveServer) handlePlayerPause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	gs.engine.Pause()
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerSeek moves the playhead
func (gs *GrooveServer) handlePlayerSeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	gs.engine.Seek(req.Seconds)
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerVolume sets the transport volume
func (gs *GrooveServer) handlePlayerVolume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	gs.engine.ChangeVolume(req.Volume)
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerMute toggles the mute flag
func (gs *GrooveServer) handlePlayerMute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	gs.engine.ToggleMuted()
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerNext advances the queue
func (gs *GrooveServer) handlePlayerNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	gs.engine.PlayNext()
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerPrevious retreats the queue
func (gs *GrooveServer) handlePlayerPrevious(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	gs.engine.PlayPrevious()
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerQueue loads a playlist into the queue and starts playback
// at the requested index.
func (gs *GrooveServer) handlePlayerQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		PlaylistID int `json:"playlistId"`
		StartIndex int `json:"startIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	entries, err := gs.db.GetPlaylistTracks(req.PlaylistID, currentUser(r))
	if err != nil {
		gs.respondWithStorageError(w, r, err, "Playlist")
		return
	}

	tracks := make([]models.Track, len(entries))
	for i, entry := range entries {
		tracks[i] = entry.Track
	}

	if req.StartIndex < 0 || req.StartIndex >= len(tracks) {
		gs.respondWithError(w, r, http.StatusBadRequest, "startIndex out of range", nil)
		return
	}

	gs.engine.SetActiveUser(currentUser(r))
	gs.engine.PlayPlaylist(tracks, req.StartIndex)
	gs.respondJSON(w, gs.engine.GetState())
}

// handlePlayerEvents receives media events observed by the web client
// and forwards them to the engine's transport.
func (gs *GrooveServer) handlePlayerEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var event player.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	gs.transport.Report(event)
	gs.respondJSON(w, map[string]string{"status": "accepted"})
}

// handlePlayerCommands drains queued transport directives for the client
func (gs *GrooveServer) handlePlayerCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	commands := gs.transport.DrainCommands()
	if commands == nil {
		commands = []player.Command{}
	}
	gs.respondJSON(w, commands)
}
