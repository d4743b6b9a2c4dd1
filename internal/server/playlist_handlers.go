package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// handlePlaylists serves the playlist collection: GET lists the caller's
// playlists, POST creates one.
func (gs *GrooveServer) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		playlists, err := gs.db.GetPlaylistsByUser(currentUser(r))
		if err != nil {
			gs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlists", err)
			return
		}
		gs.respondJSON(w, playlists)

	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}

		req.Name = sanitizeInput(req.Name)
		if vErr := validatePlaylistName(req.Name); vErr != nil {
			gs.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}

		playlist, err := gs.db.CreatePlaylist(currentUser(r), req.Name)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Playlist")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		gs.respondJSON(w, playlist)

	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handlePlaylistSubtree routes /api/playlists/{id} and
// /api/playlists/{id}/{trackId}.
func (gs *GrooveServer) handlePlaylistSubtree(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	// ["", "api", "playlists", "{id}"] or ["", "api", "playlists", "{id}", "{trackId}"]

	playlistID, vErr := parsePathID(pathParts, 3, "playlist_id")
	if vErr != nil {
		gs.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	if len(pathParts) >= 5 {
		if r.Method != http.MethodDelete {
			gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
			return
		}
		trackID, vErr := parsePathID(pathParts, 4, "track_id")
		if vErr != nil {
			gs.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
		gs.removePlaylistTrack(w, r, playlistID, trackID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		gs.getPlaylistTracks(w, r, playlistID)
	case http.MethodPost:
		gs.appendPlaylistTrack(w, r, playlistID)
	case http.MethodPatch:
		gs.renamePlaylist(w, r, playlistID)
	case http.MethodDelete:
		gs.deletePlaylist(w, r, playlistID)
	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// getPlaylistTracks returns the playlist's tracks ordered by position
func (gs *GrooveServer) getPlaylistTracks(w http.ResponseWriter, r *http.Request, playlistID int) {
	entries, err := gs.db.GetPlaylistTracks(playlistID, currentUser(r))
	if err != nil {
		gs.respondWithStorageError(w, r, err, "Playlist")
		return
	}
	gs.respondJSON(w, entries)
}

// appendPlaylistTrack adds a track at the end of the playlist
func (gs *GrooveServer) appendPlaylistTrack(w http.ResponseWriter, r *http.Request, playlistID int) {
	var req struct {
		TrackID int `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if req.TrackID <= 0 {
		gs.respondWithValidationError(w, r, []ValidationError{{
			Field:   "trackId",
			Message: "trackId must be positive",
			Code:    "INVALID_TRACK_ID_VALUE",
		}})
		return
	}

	entry, err := gs.db.AppendTrack(playlistID, currentUser(r), req.TrackID)
	if err != nil {
		gs.respondWithStorageError(w, r, err, "Playlist track")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	gs.respondJSON(w, entry)
}

// removePlaylistTrack removes a track and compacts the remaining positions
func (gs *GrooveServer) removePlaylistTrack(w http.ResponseWriter, r *http.Request, playlistID, trackID int) {
	if err := gs.db.RemoveTrack(playlistID, currentUser(r), trackID); err != nil {
		gs.respondWithStorageError(w, r, err, "Playlist track")
		return
	}
	gs.respondJSON(w, map[string]string{"message": "Track removed from playlist"})
}

// renamePlaylist updates the playlist name
func (gs *GrooveServer) renamePlaylist(w http.ResponseWriter, r *http.Request, playlistID int) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	req.Name = sanitizeInput(req.Name)
	if vErr := validatePlaylistName(req.Name); vErr != nil {
		gs.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	playlist, err := gs.db.RenamePlaylist(playlistID, currentUser(r), req.Name)
	if err != nil {
		gs.respondWithStorageError(w, r, err, "Playlist")
		return
	}
	gs.respondJSON(w, playlist)
}

// deletePlaylist removes a playlist and its entries
func (gs *GrooveServer) deletePlaylist(w http.ResponseWriter, r *http.Request, playlistID int) {
	if err := gs.db.DeletePlaylist(playlistID, currentUser(r)); err != nil {
		gs.respondWithStorageError(w, r, err, "Playlist")
		return
	}
	gs.respondJSON(w, map[string]string{"message": "Playlist deleted"})
}
