package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mdfaizan0/groove/pkg/models"
)

// handleGetTracks returns tracks, optionally filtered by search query.
// Listings are served from the track cache when fresh.
func (gs *GrooveServer) handleGetTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	searchQuery := r.URL.Query().Get("search")
	if vErr := validateSearchQuery(searchQuery); vErr != nil {
		gs.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	cacheKey := "tracks:all"
	if searchQuery != "" {
		cacheKey = "tracks:search:" + searchQuery
	}
	if tracks, ok := gs.trackCache.GetTracks(cacheKey); ok {
		gs.respondJSON(w, tracks)
		return
	}

	var tracks []models.Track
	var err error
	if searchQuery != "" {
		tracks, err = gs.db.SearchTracks(searchQuery)
	} else {
		tracks, err = gs.db.GetAllTracks()
	}
	if err != nil {
		gs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving tracks", err)
		return
	}

	gs.trackCache.SetTracks(cacheKey, tracks)
	gs.respondJSON(w, tracks)
}

// handleSearch searches tracks and podcast episodes together
func (gs *GrooveServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	query := sanitizeInput(r.URL.Query().Get("q"))
	if query == "" {
		gs.respondJSON(w, map[string]interface{}{
			"tracks":   []models.Track{},
			"episodes": []models.Track{},
		})
		return
	}
	if vErr := validateSearchQuery(query); vErr != nil {
		gs.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	tracks, err := gs.db.SearchTracks(query)
	if err != nil {
		gs.respondWithError(w, r, http.StatusInternalServerError, "Error searching tracks", err)
		return
	}

	episodes, err := gs.db.SearchEpisodes(query)
	if err != nil {
		gs.respondWithError(w, r, http.StatusInternalServerError, "Error searching episodes", err)
		return
	}

	gs.respondJSON(w, map[string]interface{}{
		"tracks":   tracks,
		"episodes": episodes,
	})
}

// handleCategories lists categories or creates one (admin)
func (gs *GrooveServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := gs.db.GetAllCategories()
		if err != nil {
			gs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving categories", err)
			return
		}
		gs.respondJSON(w, categories)

	case http.MethodPost:
		if !gs.requireAdmin(w, r) {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		req.Name = sanitizeInput(req.Name)
		if req.Name == "" {
			gs.respondWithError(w, r, http.StatusBadRequest, "Category name is required", nil)
			return
		}

		category, err := gs.db.CreateCategory(req.Name)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Category")
			return
		}
		gs.trackCache.Clear()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		gs.respondJSON(w, category)

	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleCategoryByID serves /api/categories/{id}: GET, PATCH, DELETE
func (gs *GrooveServer) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")

	categoryID, vErr := parsePathID(pathParts, 3, "category_id")
	if vErr != nil {
		gs.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	switch r.Method {
	case http.MethodGet:
		category, err := gs.db.GetCategory(categoryID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Category")
			return
		}
		gs.respondJSON(w, category)

	case http.MethodPatch:
		if !gs.requireAdmin(w, r) {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		req.Name = sanitizeInput(req.Name)
		if req.Name == "" {
			gs.respondWithError(w, r, http.StatusBadRequest, "Category name is required", nil)
			return
		}

		category, err := gs.db.UpdateCategory(categoryID, req.Name)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Category")
			return
		}
		gs.trackCache.Clear()
		gs.respondJSON(w, category)

	case http.MethodDelete:
		if !gs.requireAdmin(w, r) {
			return
		}
		if err := gs.db.DeleteCategory(categoryID); err != nil {
			gs.respondWithStorageError(w, r, err, "Category")
			return
		}
		gs.trackCache.Clear()
		gs.respondJSON(w, map[string]string{"message": "Category deleted"})

	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleTrackByID serves /api/tracks/{id}: GET, PATCH (admin), DELETE (admin)
func (gs *GrooveServer) handleTrackByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")

	trackID, vErr := parsePathID(pathParts, 3, "track_id")
	if vErr != nil {
		gs.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	switch r.Method {
	case http.MethodGet:
		track, err := gs.db.GetTrackByID(trackID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Track")
			return
		}
		gs.respondJSON(w, track)

	case http.MethodPatch:
		if !gs.requireAdmin(w, r) {
			return
		}
		var req struct {
			Title      string `json:"title"`
			Artist     string `json:"artist"`
			CategoryID int    `json:"categoryId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		req.Title = sanitizeInput(req.Title)
		req.Artist = sanitizeInput(req.Artist)
		if req.Title == "" {
			gs.respondWithError(w, r, http.StatusBadRequest, "Track title is required", nil)
			return
		}

		track, err := gs.db.UpdateTrack(trackID, req.Title, req.Artist, req.CategoryID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Track")
			return
		}
		gs.trackCache.Clear()
		gs.respondJSON(w, track)

	case http.MethodDelete:
		if !gs.requireAdmin(w, r) {
			return
		}
		if err := gs.db.DeleteTrack(trackID); err != nil {
			gs.respondWithStorageError(w, r, err, "Track")
			return
		}
		gs.trackCache.Clear()
		gs.respondJSON(w, map[string]string{"message": "Track deleted"})

	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleRecentlyPlayed serves the caller's listening history: GET returns
// the latest entries most recent first, POST records or refreshes one.
func (gs *GrooveServer) handleRecentlyPlayed(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		recent, err := gs.db.GetRecentlyPlayed(currentUser(r), 0)
		if err != nil {
			gs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving listening history", err)
			return
		}
		gs.respondJSON(w, recent)

	case http.MethodPost:
		var req struct {
			TrackID      int `json:"trackId"`
			LastPosition int `json:"lastPosition"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		if req.TrackID <= 0 {
			gs.respondWithError(w, r, http.StatusBadRequest, "trackId is required", nil)
			return
		}
		if req.LastPosition < 0 {
			req.LastPosition = 0
		}

		if err := gs.db.UpsertRecentlyPlayed(currentUser(r), req.TrackID, req.LastPosition); err != nil {
			gs.respondWithStorageError(w, r, err, "Track")
			return
		}
		gs.respondJSON(w, map[string]string{"message": "Recorded"})

	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}
