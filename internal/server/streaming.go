package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// handleStreamTrack streams audio by ID with Range support. Episodes
// stream through /stream/episode/{id}.
func (gs *GrooveServer) handleStreamTrack(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")
	// ["", "stream", "{id}"] or ["", "stream", "episode", "{id}"]

	var audioPath string
	if len(pathParts) >= 4 && pathParts[2] == "episode" {
		episodeID, vErr := parsePathID(pathParts, 3, "episode_id")
		if vErr != nil {
			gs.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
		episode, err := gs.db.GetEpisode(episodeID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Episode")
			return
		}
		audioPath = episode.AudioPath
	} else {
		trackID, vErr := parsePathID(pathParts, 2, "track_id")
		if vErr != nil {
			gs.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
		track, err := gs.db.GetTrackByID(trackID)
		if err != nil {
			gs.respondWithStorageError(w, r, err, "Track")
			return
		}
		audioPath = track.AudioPath
	}

	file, err := os.Open(audioPath)
	if err != nil {
		gs.respondWithError(w, r, http.StatusInternalServerError, "Error opening audio file", err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		gs.respondWithError(w, r, http.StatusInternalServerError, "Error reading file info", err)
		return
	}

	w.Header().Set("Content-Type", gs.extractor.GetContentType(audioPath))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", stat.Size()))
	w.Header().Set("Accept-Ranges", "bytes")

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		gs.handleRangeRequest(w, file, stat.Size(), rangeHeader)
		return
	}

	if _, err := io.Copy(w, file); err != nil {
		gs.logger.WithError(err).WithField("path", audioPath).Warn("Error streaming file")
	}
}

// handleRangeRequest implements single-range byte serving for seeking
func (gs *GrooveServer) handleRangeRequest(w http.ResponseWriter, file *os.File, fileSize int64, rangeHeader string) {
	ranges := strings.TrimPrefix(rangeHeader, "bytes=")
	rangeParts := strings.Split(ranges, "-")

	start, err := strconv.ParseInt(rangeParts[0], 10, 64)
	if err != nil {
		start = 0
	}

	end := fileSize - 1
	if len(rangeParts) > 1 && rangeParts[1] != "" {
		if parsed, err := strconv.ParseInt(rangeParts[1], 10, 64); err == nil {
			end = parsed
		}
	}

	if start < 0 || end >= fileSize || start > end {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	contentLength := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", contentLength))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		gs.logger.WithError(err).WithField("path", file.Name()).Warn("Error seeking in file")
		return
	}
	if _, err := io.CopyN(w, file, contentLength); err != nil {
		gs.logger.WithError(err).WithField("path", file.Name()).Warn("Error streaming range")
	}
}

// handleCover serves embedded cover art cached by the extractor
func (gs *GrooveServer) handleCover(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) < 3 || pathParts[2] == "" {
		gs.respondWithError(w, r, http.StatusBadRequest, "Cover ID is required", nil)
		return
	}

	data, exists := gs.extractor.GetCover(pathParts[2])
	if !exists {
		gs.respondWithError(w, r, http.StatusNotFound, "Cover not found", nil)
		return
	}

	w.Header().Set("Content-Type", gs.extractor.GetCoverMimeType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
