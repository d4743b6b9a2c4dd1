package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// handlePodcasts lists podcast collections or creates one (admin)
func (gs *GrooveServer) handlePodcasts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		podcasts, err := gs.db.GetAllPodcasts()
		if err != nil {
			gs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving podcasts", err)
			return
		}
		gs.respondJSON(w, podcasts)

	case http.MethodPost:
		if !gs.requireAdmin(w, r) {
			return
		}
		var req struct {
			Title          string `json:"title"`
			Description    string `json:"description"`
			CoverImagePath string `json:"coverImagePath"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		req.Title = sanitizeInput(req.Title)
		if req.Title == "" {
			gs.respondWithError(w, r, http.StatusBadRequest, "Podcast title is required", nil)
			return
		}

		podcast, err := gs.db.CreatePodcast(req.Title, req.Description, req.CoverImagePath)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Podcast")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		gs.respondJSON(w, podcast)

	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handlePodcastSubtree routes /api/podcasts/{id} and
// /api/podcasts/{id}/episodes.
func (gs *GrooveServer) handlePodcastSubtree(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	// ["", "api", "podcasts", "{id}"] or ["", "api", "podcasts", "{id}", "episodes"]

	podcastID, vErr := parsePathID(pathParts, 3, "podcast_id")
	if vErr != nil {
		gs.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	if len(pathParts) >= 5 && pathParts[4] == "episodes" {
		if len(pathParts) >= 6 {
			gs.handleEpisodeByID(w, r, pathParts)
			return
		}
		switch r.Method {
		case http.MethodGet:
			gs.getPodcastEpisodes(w, r, podcastID)
		case http.MethodPost:
			gs.createPodcastEpisode(w, r, podcastID)
		default:
			gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		podcast, err := gs.db.GetPodcast(podcastID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Podcast")
			return
		}
		gs.respondJSON(w, podcast)

	case http.MethodPatch:
		if !gs.requireAdmin(w, r) {
			return
		}
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		req.Title = sanitizeInput(req.Title)
		if req.Title == "" {
			gs.respondWithError(w, r, http.StatusBadRequest, "Podcast title is required", nil)
			return
		}

		podcast, err := gs.db.UpdatePodcast(podcastID, req.Title, req.Description)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Podcast")
			return
		}
		gs.respondJSON(w, podcast)

	case http.MethodDelete:
		if !gs.requireAdmin(w, r) {
			return
		}
		if err := gs.db.DeletePodcast(podcastID); err != nil {
			gs.respondWithStorageError(w, r, err, "Podcast")
			return
		}
		gs.respondJSON(w, map[string]string{"message": "Podcast deleted"})

	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleEpisodeByID serves /api/podcasts/{id}/episodes/{episodeId}:
// GET, PATCH, DELETE (mutations admin-only)
func (gs *GrooveServer) handleEpisodeByID(w http.ResponseWriter, r *http.Request, pathParts []string) {
	episodeID, vErr := parsePathID(pathParts, 5, "episode_id")
	if vErr != nil {
		gs.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	switch r.Method {
	case http.MethodGet:
		episode, err := gs.db.GetEpisode(episodeID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Episode")
			return
		}
		gs.respondJSON(w, episode)

	case http.MethodPatch:
		if !gs.requireAdmin(w, r) {
			return
		}
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Duration    int    `json:"duration"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		req.Title = sanitizeInput(req.Title)
		if req.Title == "" {
			gs.respondWithError(w, r, http.StatusBadRequest, "Episode title is required", nil)
			return
		}

		episode, err := gs.db.UpdateEpisode(episodeID, req.Title, req.Description, req.Duration)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Episode")
			return
		}
		gs.respondJSON(w, episode)

	case http.MethodDelete:
		if !gs.requireAdmin(w, r) {
			return
		}
		if err := gs.db.DeleteEpisode(episodeID); err != nil {
			gs.respondWithStorageError(w, r, err, "Episode")
			return
		}
		gs.respondJSON(w, map[string]string{"message": "Episode deleted"})

	default:
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

func (gs *GrooveServer) getPodcastEpisodes(w http.ResponseWriter, r *http.Request, podcastID int) {
	episodes, err := gs.db.GetEpisodesByCollection(podcastID)
	if err != nil {
		gs.respondWithStorageError(w, r, err, "Podcast")
		return
	}
	gs.respondJSON(w, episodes)
}

func (gs *GrooveServer) createPodcastEpisode(w http.ResponseWriter, r *http.Request, podcastID int) {
	if !gs.requireAdmin(w, r) {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		AudioPath   string `json:"audioPath"`
		Duration    int    `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	req.Title = sanitizeInput(req.Title)
	if req.Title == "" || req.AudioPath == "" {
		gs.respondWithError(w, r, http.StatusBadRequest, "Episode title and audio path are required", nil)
		return
	}

	episode, err := gs.db.CreateEpisode(podcastID, req.Title, req.Description, req.AudioPath, req.Duration)
	if err != nil {
		gs.respondWithStorageError(w, r, err, "Episode")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	gs.respondJSON(w, episode)
}
