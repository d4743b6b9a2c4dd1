package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mdfaizan0/groove/internal/auth"
	"github.com/mdfaizan0/groove/internal/cache"
	"github.com/mdfaizan0/groove/internal/config"
	"github.com/mdfaizan0/groove/internal/database"
	"github.com/mdfaizan0/groove/internal/metadata"
	"github.com/mdfaizan0/groove/internal/ngrok"
	"github.com/mdfaizan0/groove/internal/player"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// GrooveServer is the main streaming server
type GrooveServer struct {
	db           *database.Database
	config       *config.Config
	logger       *logrus.Logger
	watcher      *fsnotify.Watcher
	extractor    *metadata.Extractor
	trackCache   *cache.TrackCache
	authService  *auth.Service
	ngrokService *ngrok.Service
	transport    *player.RemoteTransport
	engine       *player.Engine
	httpServer   *http.Server
}

// NewGrooveServer creates a new server instance
func NewGrooveServer(cfg *config.Config, db *database.Database, logger *logrus.Logger) (*GrooveServer, error) {
	authService, err := auth.NewService(&cfg.Auth)
	if err != nil {
		return nil, err
	}

	ngrokService, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		ngrokService = nil
	}

	transport := player.NewRemoteTransport()

	server := &GrooveServer{
		db:           db,
		config:       cfg,
		logger:       logger,
		extractor:    metadata.NewExtractor(cfg.Media.SupportedFormats, logger),
		trackCache:   cache.NewTrackCache(),
		authService:  authService,
		ngrokService: ngrokService,
		transport:    transport,
		engine:       player.NewEngine(transport, db, logger),
	}

	return server, nil
}

// ScanMediaLibrary walks the library directory and adds unseen tracks
// to the database using a worker pool.
func (gs *GrooveServer) ScanMediaLibrary() error {
	if !gs.config.Media.ScanOnStartup {
		gs.logger.Info("Skipping library scan (disabled in config)")
		return nil
	}

	gs.logger.WithField("library_path", gs.config.Media.LibraryPath).Info("Scanning media library")

	var wg sync.WaitGroup
	var trackCount int64
	jobs := make(chan string, 100)

	numWorkers := runtime.NumCPU()
	for i := 0; i < numWorkers; i++ {
		go func() {
			for path := range jobs {
				gs.importTrack(path, &trackCount)
				wg.Done()
			}
		}()
	}

	walkErr := filepath.Walk(gs.config.Media.LibraryPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if gs.extractor.IsAudioFile(path) {
			wg.Add(1)
			jobs <- path
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	gs.logger.WithField("count", atomic.LoadInt64(&trackCount)).Info("Library scan complete")
	return walkErr
}

func (gs *GrooveServer) importTrack(path string, counter *int64) {
	exists, err := gs.db.TrackExists(path)
	if err != nil {
		gs.logger.WithError(err).WithField("path", path).Error("Failed to check track existence")
		return
	}
	if exists {
		return
	}

	track, err := gs.extractor.ExtractFromFile(path)
	if err != nil {
		gs.logger.WithError(err).WithField("path", path).Error("Failed to extract metadata")
		return
	}

	if _, err := gs.db.InsertTrack(track); err != nil {
		gs.logger.WithError(err).WithField("path", path).Error("Failed to insert track")
		return
	}
	atomic.AddInt64(counter, 1)
}

// Routes builds the HTTP handler with the full middleware chain
func (gs *GrooveServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", gs.handleHome)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(gs.config.Server.StaticDir))))
	mux.HandleFunc("/health", gs.handleHealthCheck)
	mux.HandleFunc("/stream/", gs.handleStreamTrack)
	mux.HandleFunc("/covers/", gs.handleCover)

	mux.HandleFunc("/api/auth/login", gs.handleAuthLogin)
	mux.HandleFunc("/api/auth/logout", gs.handleAuthLogout)
	mux.HandleFunc("/api/auth/register", gs.handleAuthRegister)

	mux.HandleFunc("/api/tracks", gs.handleGetTracks)
	mux.HandleFunc("/api/tracks/", gs.handleTrackByID)
	mux.HandleFunc("/api/categories", gs.handleCategories)
	mux.HandleFunc("/api/categories/", gs.handleCategoryByID)
	mux.HandleFunc("/api/search", gs.handleSearch)

	mux.HandleFunc("/api/playlists", gs.handlePlaylists)
	mux.HandleFunc("/api/playlists/", gs.handlePlaylistSubtree)

	mux.HandleFunc("/api/recently-played", gs.handleRecentlyPlayed)

	mux.HandleFunc("/api/podcasts", gs.handlePodcasts)
	mux.HandleFunc("/api/podcasts/", gs.handlePodcastSubtree)

	mux.HandleFunc("/api/player/state", gs.handlePlayerState)
	mux.HandleFunc("/api/player/play", gs.handlePlayerPlay)
	mux.HandleFunc("/api/player/pause", gs.handlePlayerPause)
	mux.HandleFunc("/api/player/seek", gs.handlePlayerSeek)
	mux.HandleFunc("/api/player/volume", gs.handlePlayerVolume)
	mux.HandleFunc("/api/player/mute", gs.handlePlayerMute)
	mux.HandleFunc("/api/player/next", gs.handlePlayerNext)
	mux.HandleFunc("/api/player/previous", gs.handlePlayerPrevious)
	mux.HandleFunc("/api/player/queue", gs.handlePlayerQueue)
	mux.HandleFunc("/api/player/events", gs.handlePlayerEvents)
	mux.HandleFunc("/api/player/commands", gs.handlePlayerCommands)

	mux.HandleFunc("/api/admin/upload", gs.handleUploadTrack)

	var handler http.Handler = mux
	handler = gs.authMiddleware(handler)
	handler = gs.corsMiddleware(handler)
	handler = gs.requestLoggingMiddleware(handler)
	handler = gs.panicRecoveryMiddleware(handler)
	return handler
}

// Start runs the server until the context is cancelled
func (gs *GrooveServer) Start(ctx context.Context) error {
	if gs.config.Media.WatchForChanges {
		if err := gs.startFileWatcher(); err != nil {
			gs.logger.WithError(err).Warn("Could not start file watcher")
		}
	}

	localAddress := "http://" + gs.config.GetAddress()

	gs.logger.WithFields(logrus.Fields{
		"address": gs.config.GetAddress(),
		"local":   localAddress,
	}).Info("Groove server starting")

	if gs.ngrokService != nil {
		if err := gs.ngrokService.StartTunnel(ctx, localAddress); err != nil {
			gs.logger.WithError(err).Warn("Could not start ngrok tunnel")
		}
	}

	gs.httpServer = &http.Server{
		Addr:        gs.config.GetAddress(),
		Handler:     gs.Routes(),
		ReadTimeout: time.Duration(gs.config.Server.ReadTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gs.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		gs.Shutdown()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Shutdown gracefully stops the server and its collaborators
func (gs *GrooveServer) Shutdown() {
	gs.logger.Info("Shutting down Groove server")

	gs.stopFileWatcher()

	if gs.ngrokService != nil {
		gs.ngrokService.Stop()
	}

	// Drain in-flight requests before closing the engine so no handler is
	// still reporting events into a closing transport.
	if gs.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		gs.httpServer.Shutdown(ctx)
	}

	gs.engine.Close()

	gs.logger.Info("Groove server shutdown complete")
}

// handleHome serves the SPA index file
func (gs *GrooveServer) handleHome(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(gs.config.Server.StaticDir, "index.html"))
}

// respondJSON writes a JSON body, logging encode failures
func (gs *GrooveServer) respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		gs.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
