package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 200 * 1024 * 1024 // 200MB

// handleUploadTrack accepts a multipart audio upload into the media library
func (gs *GrooveServer) handleUploadTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		gs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	if !gs.requireAdmin(w, r) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "Failed to parse upload form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		gs.respondWithError(w, r, http.StatusBadRequest, "No file provided", err)
		return
	}
	defer file.Close()

	if !gs.extractor.IsAudioFile(header.Filename) {
		gs.respondWithError(w, r, http.StatusBadRequest, "Invalid file type. Supported formats: "+strings.Join(gs.config.Media.SupportedFormats, ", "), nil)
		return
	}

	if err := os.MkdirAll(gs.config.Media.LibraryPath, 0755); err != nil {
		gs.respondWithError(w, r, http.StatusInternalServerError, "Failed to create media directory", err)
		return
	}

	// Random filename avoids collisions and path traversal from
	// client-supplied names. Original name survives in the tags.
	destName := uuid.New().String() + strings.ToLower(filepath.Ext(header.Filename))
	destPath := filepath.Join(gs.config.Media.LibraryPath, destName)

	destFile, err := os.Create(destPath)
	if err != nil {
		gs.respondWithError(w, r, http.StatusInternalServerError, "Failed to create destination file", err)
		return
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		os.Remove(destPath)
		gs.respondWithError(w, r, http.StatusInternalServerError, "Failed to save file", err)
		return
	}

	track, err := gs.extractor.ExtractFromFile(destPath)
	if err != nil {
		os.Remove(destPath)
		gs.respondWithError(w, r, http.StatusBadRequest, "Failed to read audio metadata", err)
		return
	}

	trackID, err := gs.db.InsertTrack(track)
	if err != nil {
		os.Remove(destPath)
		gs.respondWithStorageError(w, r, err, "Track")
		return
	}
	track.ID = trackID
	gs.trackCache.Clear()

	gs.logger.WithFields(logrus.Fields{
		"username": currentUser(r),
		"filename": header.Filename,
		"track_id": trackID,
		"artist":   track.Artist,
		"title":    track.Title,
	}).Info("File uploaded and added to library")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	gs.respondJSON(w, track)
}
