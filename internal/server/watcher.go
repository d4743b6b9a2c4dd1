package server

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// startFileWatcher initializes fsnotify monitoring over the media library.
func (gs *GrooveServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	gs.watcher = watcher

	go gs.watchFiles()

	if err := gs.addDirectoryToWatcher(gs.config.Media.LibraryPath); err != nil {
		return err
	}

	gs.logger.WithField("library_path", gs.config.Media.LibraryPath).Info("File watcher started")
	return nil
}

// addDirectoryToWatcher recursively registers dir and its subdirectories.
func (gs *GrooveServer) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return gs.watcher.Add(path)
		}
		return nil
	})
}

func (gs *GrooveServer) watchFiles() {
	defer gs.watcher.Close()

	for {
		select {
		case event, ok := <-gs.watcher.Events:
			if !ok {
				return
			}
			gs.handleFileEvent(event)

		case err, ok := <-gs.watcher.Errors:
			if !ok {
				return
			}
			gs.logger.WithError(err).Error("File watcher error")
		}
	}
}

func (gs *GrooveServer) handleFileEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isAudioFile := gs.extractor.IsAudioFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isAudioFile:
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // let the file finish writing
			gs.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isAudioFile:
		go gs.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			gs.watcher.Add(event.Name)
			gs.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile imports a freshly written audio file into the library.
func (gs *GrooveServer) handleNewFile(filePath string) {
	gs.logger.WithField("file_path", filePath).Info("New audio file detected")

	exists, err := gs.db.TrackExists(filePath)
	if err != nil {
		gs.logger.WithError(err).WithField("file_path", filePath).Error("Error checking if track exists")
		return
	}
	if exists {
		gs.logger.WithField("file_path", filePath).Debug("Track already exists in database")
		return
	}

	track, err := gs.extractor.ExtractFromFile(filePath)
	if err != nil {
		gs.logger.WithError(err).WithField("file_path", filePath).Error("Error extracting metadata")
		return
	}

	id, err := gs.db.InsertTrack(track)
	if err != nil {
		gs.logger.WithError(err).Error("Error inserting new track into database")
		return
	}
	gs.trackCache.Clear()

	gs.logger.WithFields(logrus.Fields{
		"artist": track.Artist,
		"title":  track.Title,
		"id":     id,
	}).Info("Added new track")
}

// handleRemovedFile drops track rows whose audio file disappeared.
func (gs *GrooveServer) handleRemovedFile(filePath string) {
	gs.logger.WithField("file_path", filePath).Info("Audio file removed")

	if err := gs.db.RemoveTrackByPath(filePath); err != nil {
		gs.logger.WithError(err).WithField("file_path", filePath).Error("Error removing track from database")
		return
	}
	gs.trackCache.Clear()

	gs.logger.WithField("file_path", filePath).Info("Removed track from database")
}

// stopFileWatcher closes the watcher (idempotent).
func (gs *GrooveServer) stopFileWatcher() {
	if gs.watcher != nil {
		gs.watcher.Close()
	}
}
