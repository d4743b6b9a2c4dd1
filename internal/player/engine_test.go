package player

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mdfaizan0/groove/pkg/models"

	"github.com/sirupsen/logrus"
)

// fakeTransport records commands and lets tests inject media events.
type fakeTransport struct {
	mutex    sync.Mutex
	commands []Command
	events   chan Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 64)}
}

func (ft *fakeTransport) record(cmd Command) {
	ft.mutex.Lock()
	defer ft.mutex.Unlock()
	ft.commands = append(ft.commands, cmd)
}

func (ft *fakeTransport) Load(trackID int)         { ft.record(Command{Action: "load", TrackID: trackID}) }
func (ft *fakeTransport) Play()                    { ft.record(Command{Action: "play"}) }
func (ft *fakeTransport) Pause()                   { ft.record(Command{Action: "pause"}) }
func (ft *fakeTransport) Seek(seconds int)         { ft.record(Command{Action: "seek", Seconds: seconds}) }
func (ft *fakeTransport) SetVolume(volume float64) { ft.record(Command{Action: "volume", Volume: volume}) }
func (ft *fakeTransport) SetMuted(muted bool)      { ft.record(Command{Action: "mute", Muted: muted}) }
func (ft *fakeTransport) Events() <-chan Event     { return ft.events }
func (ft *fakeTransport) Close()                   { close(ft.events) }

func (ft *fakeTransport) actions() []string {
	ft.mutex.Lock()
	defer ft.mutex.Unlock()

	out := make([]string, len(ft.commands))
	for i, cmd := range ft.commands {
		out[i] = cmd.Action
	}
	return out
}

// fakeHistory is an in-memory history sink, upserting per track like
// the real store.
type fakeHistory struct {
	mutex sync.Mutex
	rows  map[int]int
	calls int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{rows: make(map[int]int)}
}

func (fh *fakeHistory) UpsertRecentlyPlayed(userID string, trackID, lastPosition int) error {
	fh.mutex.Lock()
	defer fh.mutex.Unlock()

	fh.calls++
	fh.rows[trackID] = lastPosition
	return nil
}

func (fh *fakeHistory) positions() map[int]int {
	fh.mutex.Lock()
	defer fh.mutex.Unlock()

	out := make(map[int]int, len(fh.rows))
	for trackID, pos := range fh.rows {
		out[trackID] = pos
	}
	return out
}

func (fh *fakeHistory) callCount() int {
	fh.mutex.Lock()
	defer fh.mutex.Unlock()
	return fh.calls
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(t *testing.T) (*Engine, *fakeTransport, *fakeHistory) {
	t.Helper()

	transport := newFakeTransport()
	history := newFakeHistory()
	engine := NewEngine(transport, history, testLogger())
	engine.SetActiveUser("alice")
	t.Cleanup(engine.Close)
	return engine, transport, history
}

// waitForState polls until the engine state satisfies the predicate.
// Event handling runs on the engine's own goroutine.
func waitForState(t *testing.T, engine *Engine, check func(*State) bool) *State {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		state := engine.GetState()
		if check(state) {
			return state
		}
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for state, last: %+v", state)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func sampleTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			ID:       i + 1,
			Title:    string(rune('A' + i)),
			Artist:   "Test Artist",
			Duration: 200,
		}
	}
	return tracks
}

func TestPlayPlaylistQueueNavigation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	tracks := sampleTracks(3)

	engine.PlayPlaylist(tracks, 1)
	state := engine.GetState()
	if state.Track == nil || state.Track.ID != tracks[1].ID {
		t.Fatalf("Expected track B current, got %+v", state.Track)
	}
	if state.CurrentIndex != 1 {
		t.Errorf("Expected index 1, got %d", state.CurrentIndex)
	}
	if !state.IsPlaying {
		t.Error("Expected playback to start")
	}

	engine.PlayNext()
	state = engine.GetState()
	if state.Track.ID != tracks[2].ID || state.CurrentIndex != 2 {
		t.Fatalf("Expected track C at index 2, got track %d at %d", state.Track.ID, state.CurrentIndex)
	}

	// At the end of the queue PlayNext does nothing.
	engine.PlayNext()
	state = engine.GetState()
	if state.CurrentIndex != 2 {
		t.Errorf("Expected index to stay 2, got %d", state.CurrentIndex)
	}

	engine.PlayPrevious()
	engine.PlayPrevious()
	state = engine.GetState()
	if state.CurrentIndex != 0 || state.Track.ID != tracks[0].ID {
		t.Fatalf("Expected track A at index 0, got track %d at %d", state.Track.ID, state.CurrentIndex)
	}

	// At the start of the queue PlayPrevious does nothing.
	engine.PlayPrevious()
	if got := engine.GetState().CurrentIndex; got != 0 {
		t.Errorf("Expected index to stay 0, got %d", got)
	}
}

func TestPlayPlaylistInvalidStart(t *testing.T) {
	engine, transport, _ := newTestEngine(t)

	engine.PlayPlaylist(nil, 0)
	engine.PlayPlaylist(sampleTracks(2), 5)
	engine.PlayPlaylist(sampleTracks(2), -1)

	if state := engine.GetState(); state.Track != nil {
		t.Errorf("Expected no current track, got %+v", state.Track)
	}
	if actions := transport.actions(); len(actions) != 0 {
		t.Errorf("Expected no transport commands, got %v", actions)
	}
}

func TestAutoAdvanceOnEnded(t *testing.T) {
	engine, transport, _ := newTestEngine(t)
	tracks := sampleTracks(2)

	engine.PlayPlaylist(tracks, 0)
	transport.events <- Event{Type: EventEnded}

	state := waitForState(t, engine, func(s *State) bool {
		return s.Track != nil && s.Track.ID == tracks[1].ID
	})
	if state.CurrentIndex != 1 {
		t.Errorf("Expected index 1 after auto-advance, got %d", state.CurrentIndex)
	}
	if !state.IsPlaying {
		t.Error("Expected playback to continue after auto-advance")
	}

	// Ended on the last queue item stops playback without looping.
	transport.events <- Event{Type: EventEnded}
	state = waitForState(t, engine, func(s *State) bool { return !s.IsPlaying })
	if state.CurrentIndex != 1 {
		t.Errorf("Expected index to stay 1, got %d", state.CurrentIndex)
	}
	if state.Track.ID != tracks[1].ID {
		t.Errorf("Expected track B to remain current, got %d", state.Track.ID)
	}
}

func TestResumeDoesNotReload(t *testing.T) {
	engine, transport, _ := newTestEngine(t)
	track := sampleTracks(1)[0]

	engine.PlayTrack(&track)
	transport.events <- Event{Type: EventLoadedMetadata, Duration: 200}
	transport.events <- Event{Type: EventTimeUpdate, Time: 30}
	waitForState(t, engine, func(s *State) bool { return s.CurrentTime == 30 })

	engine.Pause()
	engine.PlayTrack(&track)

	state := engine.GetState()
	if !state.IsPlaying {
		t.Error("Expected playback resumed")
	}
	if state.CurrentTime != 30 {
		t.Errorf("Resume reset playhead to %d", state.CurrentTime)
	}

	loads := 0
	for _, action := range transport.actions() {
		if action == "load" {
			loads++
		}
	}
	if loads != 1 {
		t.Errorf("Expected a single load, got %d", loads)
	}
}

func TestLoadingIsLevelTriggered(t *testing.T) {
	engine, transport, _ := newTestEngine(t)
	track := sampleTracks(1)[0]

	engine.PlayTrack(&track)
	if !engine.GetState().IsLoading {
		t.Error("Expected loading after source switch")
	}

	transport.events <- Event{Type: EventCanPlay}
	waitForState(t, engine, func(s *State) bool { return !s.IsLoading })

	// A buffering stall mid-track re-enters loading.
	transport.events <- Event{Type: EventWaiting}
	waitForState(t, engine, func(s *State) bool { return s.IsLoading })

	transport.events <- Event{Type: EventCanPlay}
	waitForState(t, engine, func(s *State) bool { return !s.IsLoading })
}

func TestPausePersistsProgress(t *testing.T) {
	engine, transport, history := newTestEngine(t)
	track := sampleTracks(1)[0]

	engine.PlayTrack(&track)
	transport.events <- Event{Type: EventLoadedMetadata, Duration: 200}
	transport.events <- Event{Type: EventTimeUpdate, Time: 42}
	waitForState(t, engine, func(s *State) bool { return s.CurrentTime == 42 })

	engine.Pause()

	positions := history.positions()
	if len(positions) != 1 {
		t.Fatalf("Expected one history row, got %d", len(positions))
	}
	if positions[track.ID] != 42 {
		t.Errorf("Expected last position 42, got %d", positions[track.ID])
	}

	// Replaying and pausing again updates the same row.
	engine.PlayTrack(&track)
	transport.events <- Event{Type: EventTimeUpdate, Time: 90}
	waitForState(t, engine, func(s *State) bool { return s.CurrentTime == 90 })
	engine.Pause()

	positions = history.positions()
	if len(positions) != 1 {
		t.Fatalf("Expected history to stay one row, got %d", len(positions))
	}
	if positions[track.ID] != 90 {
		t.Errorf("Expected last position 90, got %d", positions[track.ID])
	}
}

func TestPodcastEpisodesSkipHistory(t *testing.T) {
	engine, transport, history := newTestEngine(t)

	episode := models.EpisodeItem(
		models.Episode{ID: 7, CollectionID: 3, Title: "Pilot", Duration: 1800},
		models.Podcast{ID: 3, Title: "Test Show"},
	)

	engine.PlayTrack(&episode)
	transport.events <- Event{Type: EventTimeUpdate, Time: 120}
	waitForState(t, engine, func(s *State) bool { return s.CurrentTime == 120 })
	engine.Pause()

	if calls := history.callCount(); calls != 0 {
		t.Errorf("Expected no history writes for podcast episode, got %d", calls)
	}
}

func TestUnauthenticatedHistoryIsSkipped(t *testing.T) {
	transport := newFakeTransport()
	history := newFakeHistory()
	engine := NewEngine(transport, history, testLogger())
	t.Cleanup(engine.Close)

	track := sampleTracks(1)[0]
	engine.PlayTrack(&track)
	engine.Pause()

	if calls := history.callCount(); calls != 0 {
		t.Errorf("Expected no history writes without a user, got %d", calls)
	}
}

func TestSeekClamps(t *testing.T) {
	engine, transport, _ := newTestEngine(t)
	track := sampleTracks(1)[0]

	engine.PlayTrack(&track)
	transport.events <- Event{Type: EventLoadedMetadata, Duration: 200}
	waitForState(t, engine, func(s *State) bool { return s.Duration == 200 })

	engine.Seek(-10)
	if got := engine.GetState().CurrentTime; got != 0 {
		t.Errorf("Expected seek clamped to 0, got %d", got)
	}

	engine.Seek(9999)
	if got := engine.GetState().CurrentTime; got != 200 {
		t.Errorf("Expected seek clamped to 200, got %d", got)
	}

	engine.Seek(60)
	if got := engine.GetState().CurrentTime; got != 60 {
		t.Errorf("Expected playhead at 60, got %d", got)
	}
}

func TestVolumeMirroredFromTransport(t *testing.T) {
	engine, transport, _ := newTestEngine(t)

	engine.ChangeVolume(0.5)
	// Not applied until the transport reports it.
	if got := engine.GetState().Volume; got != 1.0 {
		t.Errorf("Expected volume unchanged before transport event, got %f", got)
	}

	transport.events <- Event{Type: EventVolumeChange, Volume: 0.5}
	waitForState(t, engine, func(s *State) bool { return s.Volume == 0.5 })

	engine.ToggleMuted()
	transport.events <- Event{Type: EventVolumeChange, Volume: 0.5, Muted: true}
	state := waitForState(t, engine, func(s *State) bool { return s.IsMuted })
	if state.Volume != 0.5 {
		t.Errorf("Expected volume preserved across mute, got %f", state.Volume)
	}
}
