package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mdfaizan0/groove/internal/config"
	"github.com/mdfaizan0/groove/internal/database"
	"github.com/mdfaizan0/groove/internal/server"
	"github.com/mdfaizan0/groove/pkg/models"

	"github.com/sirupsen/logrus"
)

type testEnv struct {
	db      *database.Database
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDir := t.TempDir()
	mediaDir := filepath.Join(testDir, "media")
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		t.Fatalf("Failed to create media directory: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:        "8080",
			Host:        "localhost",
			StaticDir:   filepath.Join(testDir, "static"),
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Database: config.DatabaseConfig{
			Path:           filepath.Join(testDir, "test.db"),
			MaxConnections: 10,
		},
		Media: config.MediaConfig{
			LibraryPath:      mediaDir,
			SupportedFormats: []string{".mp3", ".flac", ".wav", ".m4a"},
			WatchForChanges:  false,
			ScanOnStartup:    false,
		},
		Auth: config.AuthConfig{
			Enabled:           true,
			UsersFilePath:     filepath.Join(testDir, "users.toml"),
			TokenDuration:     "1h",
			AllowRegistration: true,
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "text",
		},
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	grooveServer, err := server.NewGrooveServer(cfg, db, logger)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	t.Cleanup(grooveServer.Shutdown)

	return &testEnv{db: db, handler: grooveServer.Routes()}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()

	rr := env.do(t, "POST", "/api/auth/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Registration failed with status %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, "POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Login failed with status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("Expected a non-empty token")
	}
	return resp.Token
}

func (env *testEnv) seedTracks(t *testing.T, titles ...string) []int {
	t.Helper()

	ids := make([]int, 0, len(titles))
	for _, title := range titles {
		id, err := env.db.InsertTrack(models.Track{
			Title:     title,
			Artist:    "Integration Artist",
			Duration:  180,
			AudioPath: filepath.Join("media", title+".mp3"),
		})
		if err != nil {
			t.Fatalf("Failed to seed track %q: %v", title, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t)

	protected := []string{"/api/tracks", "/api/playlists", "/api/recently-played", "/api/player/state"}
	for _, path := range protected {
		rr := env.do(t, "GET", path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: expected 401, got %d", path, rr.Code)
		}
	}

	// Health stays reachable without a token
	rr := env.do(t, "GET", "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health: expected 200, got %d", rr.Code)
	}
}

func TestPlaylistLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "password123")
	trackIDs := env.seedTracks(t, "first", "second", "third")

	// Create
	rr := env.do(t, "POST", "/api/playlists", token, map[string]string{"name": "Morning Mix"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Create playlist: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var playlist models.Playlist
	if err := json.NewDecoder(rr.Body).Decode(&playlist); err != nil {
		t.Fatalf("Failed to decode playlist: %v", err)
	}
	if playlist.Name != "Morning Mix" || playlist.TracksCount != 0 {
		t.Errorf("Unexpected playlist: %+v", playlist)
	}

	playlistPath := "/api/playlists/" + strconv.Itoa(playlist.ID)

	// Append three tracks, expect sequential positions
	for i, trackID := range trackIDs {
		rr = env.do(t, "POST", playlistPath, token, map[string]int{"trackId": trackID})
		if rr.Code != http.StatusCreated {
			t.Fatalf("Append track %d: expected 201, got %d: %s", trackID, rr.Code, rr.Body.String())
		}
		var entry models.PlaylistTrack
		if err := json.NewDecoder(rr.Body).Decode(&entry); err != nil {
			t.Fatalf("Failed to decode entry: %v", err)
		}
		if entry.Position != i+1 {
			t.Errorf("Append %d: expected position %d, got %d", trackID, i+1, entry.Position)
		}
	}

	// Duplicate append is a conflict
	rr = env.do(t, "POST", playlistPath, token, map[string]int{"trackId": trackIDs[0]})
	if rr.Code != http.StatusConflict {
		t.Errorf("Duplicate append: expected 409, got %d", rr.Code)
	}

	// Listing returns position order
	rr = env.do(t, "GET", playlistPath, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("List playlist: expected 200, got %d", rr.Code)
	}
	var entries []models.PlaylistEntry
	if err := json.NewDecoder(rr.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Position != i+1 {
			t.Errorf("Entry %d: expected position %d, got %d", i, i+1, entry.Position)
		}
	}

	// Remove the middle track, remaining positions close the gap
	rr = env.do(t, "DELETE", playlistPath+"/"+strconv.Itoa(trackIDs[1]), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Remove track: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, "GET", playlistPath, token, nil)
	entries = nil
	if err := json.NewDecoder(rr.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode entries after removal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after removal, got %d", len(entries))
	}
	wantIDs := []int{trackIDs[0], trackIDs[2]}
	for i, entry := range entries {
		if entry.ID != wantIDs[i] {
			t.Errorf("Entry %d: expected track %d, got %d", i, wantIDs[i], entry.ID)
		}
		if entry.Position != i+1 {
			t.Errorf("Entry %d: expected position %d, got %d", i, i+1, entry.Position)
		}
	}

	// Rename
	rr = env.do(t, "PATCH", playlistPath, token, map[string]string{"name": "Evening Mix"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Rename: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var renamed models.Playlist
	if err := json.NewDecoder(rr.Body).Decode(&renamed); err != nil {
		t.Fatalf("Failed to decode renamed playlist: %v", err)
	}
	if renamed.Name != "Evening Mix" {
		t.Errorf("Expected renamed playlist, got %q", renamed.Name)
	}

	// Delete, then the playlist is gone
	rr = env.do(t, "DELETE", playlistPath, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Delete playlist: expected 200, got %d", rr.Code)
	}
	rr = env.do(t, "GET", playlistPath, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Get deleted playlist: expected 404, got %d", rr.Code)
	}
}

func TestPlaylistOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.login(t, "alice", "password123")
	bobToken := env.login(t, "bob", "password456")
	trackIDs := env.seedTracks(t, "shared")

	rr := env.do(t, "POST", "/api/playlists", aliceToken, map[string]string{"name": "Private"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Create playlist: expected 201, got %d", rr.Code)
	}
	var playlist models.Playlist
	if err := json.NewDecoder(rr.Body).Decode(&playlist); err != nil {
		t.Fatalf("Failed to decode playlist: %v", err)
	}
	playlistPath := "/api/playlists/" + strconv.Itoa(playlist.ID)

	// Another user sees 404, not 403, for every operation
	if rr := env.do(t, "GET", playlistPath, bobToken, nil); rr.Code != http.StatusNotFound {
		t.Errorf("Foreign GET: expected 404, got %d", rr.Code)
	}
	if rr := env.do(t, "POST", playlistPath, bobToken, map[string]int{"trackId": trackIDs[0]}); rr.Code != http.StatusNotFound {
		t.Errorf("Foreign append: expected 404, got %d", rr.Code)
	}
	if rr := env.do(t, "DELETE", playlistPath, bobToken, nil); rr.Code != http.StatusNotFound {
		t.Errorf("Foreign delete: expected 404, got %d", rr.Code)
	}

	// Owner still has it
	if rr := env.do(t, "GET", playlistPath, aliceToken, nil); rr.Code != http.StatusOK {
		t.Errorf("Owner GET after foreign attempts: expected 200, got %d", rr.Code)
	}
}

func TestPlayerFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "password123")
	trackIDs := env.seedTracks(t, "one", "two")

	// Starting playback updates state and queues a load command
	rr := env.do(t, "POST", "/api/player/play", token, map[string]int{"trackId": trackIDs[0]})
	if rr.Code != http.StatusOK {
		t.Fatalf("Play: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var state struct {
		Track     *models.Track `json:"track"`
		IsPlaying bool          `json:"isPlaying"`
		IsLoading bool          `json:"isLoading"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if state.Track == nil || state.Track.ID != trackIDs[0] {
		t.Fatalf("Expected track %d in state, got %+v", trackIDs[0], state.Track)
	}
	if !state.IsPlaying || !state.IsLoading {
		t.Errorf("Expected playing and loading state, got playing=%v loading=%v", state.IsPlaying, state.IsLoading)
	}

	rr = env.do(t, "GET", "/api/player/commands", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Drain commands: expected 200, got %d", rr.Code)
	}
	var commands []struct {
		Action  string `json:"action"`
		TrackID int    `json:"trackId"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&commands); err != nil {
		t.Fatalf("Failed to decode commands: %v", err)
	}
	if len(commands) == 0 || commands[0].Action != "load" || commands[0].TrackID != trackIDs[0] {
		t.Fatalf("Expected load command for track %d, got %+v", trackIDs[0], commands)
	}

	// Queue drains exactly once
	rr = env.do(t, "GET", "/api/player/commands", token, nil)
	commands = nil
	if err := json.NewDecoder(rr.Body).Decode(&commands); err != nil {
		t.Fatalf("Failed to decode commands: %v", err)
	}
	if len(commands) != 0 {
		t.Errorf("Expected empty command queue after drain, got %+v", commands)
	}

	// Client events are accepted
	rr = env.do(t, "POST", "/api/player/events", token, map[string]interface{}{
		"type": "canplay",
	})
	if rr.Code != http.StatusOK {
		t.Errorf("Report event: expected 200, got %d", rr.Code)
	}
}

func TestStreamRangeRequests(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "password123")

	content := make([]byte, 100)
	for i := range content {
		content[i] = byte(i)
	}
	audioPath := filepath.Join(t.TempDir(), "ranged.mp3")
	if err := os.WriteFile(audioPath, content, 0644); err != nil {
		t.Fatalf("Failed to write audio file: %v", err)
	}
	trackID, err := env.db.InsertTrack(models.Track{
		Title:     "Ranged",
		Artist:    "Integration Artist",
		Duration:  180,
		AudioPath: audioPath,
	})
	if err != nil {
		t.Fatalf("Failed to seed track: %v", err)
	}

	streamPath := "/stream/" + strconv.Itoa(trackID)

	stream := func(rangeHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", streamPath, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if rangeHeader != "" {
			req.Header.Set("Range", rangeHeader)
		}
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		return rr
	}

	// Full request returns the whole file
	rr := stream("")
	if rr.Code != http.StatusOK {
		t.Fatalf("Full stream: expected 200, got %d", rr.Code)
	}
	if !bytes.Equal(rr.Body.Bytes(), content) {
		t.Errorf("Full stream returned %d bytes, want %d", rr.Body.Len(), len(content))
	}

	// A bounded range returns exactly those bytes
	rr = stream("bytes=10-19")
	if rr.Code != http.StatusPartialContent {
		t.Fatalf("Range stream: expected 206, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes 10-19/100" {
		t.Errorf("Content-Range = %q, want %q", got, "bytes 10-19/100")
	}
	if !bytes.Equal(rr.Body.Bytes(), content[10:20]) {
		t.Errorf("Range body = %v, want %v", rr.Body.Bytes(), content[10:20])
	}

	// An open-ended range runs to the end of the file
	rr = stream("bytes=90-")
	if rr.Code != http.StatusPartialContent {
		t.Fatalf("Open range: expected 206, got %d", rr.Code)
	}
	if !bytes.Equal(rr.Body.Bytes(), content[90:]) {
		t.Errorf("Open range body = %v, want %v", rr.Body.Bytes(), content[90:])
	}

	// Out-of-bounds ranges are rejected
	rr = stream("bytes=50-200")
	if rr.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("Overlong range: expected 416, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes */100" {
		t.Errorf("416 Content-Range = %q, want %q", got, "bytes */100")
	}
}

