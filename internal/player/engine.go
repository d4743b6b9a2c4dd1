package player

import (
	"sync"

	"github.com/mdfaizan0/groove/pkg/models"

	"github.com/sirupsen/logrus"
)

// HistorySink receives listening progress. Writes are best-effort; the
// engine logs failures and keeps playing.
type HistorySink interface {
	UpsertRecentlyPlayed(userID string, trackID, lastPosition int) error
}

// Engine drives the single playback handle: it owns the queue, the
// current track, and all transport commands, and it keeps the history
// sink informed of listening progress.
type Engine struct {
	transport Transport
	state     *StateManager
	history   HistorySink
	logger    *logrus.Logger

	mutex  sync.Mutex
	userID string
	done   chan struct{}
}

// NewEngine creates an engine around the given transport and starts
// consuming its events.
func NewEngine(transport Transport, history HistorySink, logger *logrus.Logger) *Engine {
	engine := &Engine{
		transport: transport,
		state:     NewStateManager(),
		history:   history,
		logger:    logger,
		done:      make(chan struct{}),
	}
	go engine.run()
	return engine
}

// GetState returns a copy of the current playback state.
func (e *Engine) GetState() *State {
	return e.state.GetState()
}

// Subscribe adds a listener for playback state changes.
func (e *Engine) Subscribe() <-chan *State {
	return e.state.Subscribe()
}

// Unsubscribe removes a state listener.
func (e *Engine) Unsubscribe(ch <-chan *State) {
	e.state.Unsubscribe(ch)
}

// SetActiveUser sets the user listening progress is attributed to. An
// empty user disables history writes.
func (e *Engine) SetActiveUser(userID string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.userID = userID
}

// PlayTrack starts the given track, or resumes it if it is already the
// current one.
func (e *Engine) PlayTrack(track *models.Track) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.playTrack(track)
}

func (e *Engine) playTrack(track *models.Track) {
	if track == nil {
		return
	}

	current := e.state.GetState().Track
	if current != nil && current.ID == track.ID {
		// Same track: resume from the current position, no reload.
		e.transport.Play()
		e.state.SetPlaying(true)
		return
	}

	e.state.SetTrack(track)
	e.transport.Load(track.ID)
	e.transport.Play()
	e.state.SetPlaying(true)
	e.recordProgress(track, 0)
}

// Pause pauses playback and persists the current position.
func (e *Engine) Pause() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	state := e.state.GetState()
	e.transport.Pause()
	e.state.SetPlaying(false)

	// Skip persistence while a new source is still loading; the playhead
	// would belong to the previous track.
	if state.Track != nil && !state.IsLoading {
		e.recordProgress(state.Track, state.CurrentTime)
	}
}

// Seek moves the playhead, clamped to [0, duration].
func (e *Engine) Seek(seconds int) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	state := e.state.GetState()
	if state.Track == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if state.Duration > 0 && seconds > state.Duration {
		seconds = state.Duration
	}
	e.transport.Seek(seconds)
	e.state.SetTime(seconds, state.Duration)
}

// ChangeVolume asks the transport for a new volume. State is updated
// when the transport reports the change back, not optimistically.
func (e *Engine) ChangeVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	e.transport.SetVolume(volume)
}

// ToggleMuted flips the mute flag via the transport.
func (e *Engine) ToggleMuted() {
	muted := e.state.GetState().IsMuted
	e.transport.SetMuted(!muted)
}

// PlayPlaylist replaces the queue and starts playback at startIndex.
func (e *Engine) PlayPlaylist(tracks []models.Track, startIndex int) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if len(tracks) == 0 || startIndex < 0 || startIndex >= len(tracks) {
		return
	}
	e.state.SetQueue(tracks, startIndex)
	e.playTrack(&tracks[startIndex])
}

// PlayNext advances the queue cursor. No-op at the end of the queue.
func (e *Engine) PlayNext() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.playNext()
}

func (e *Engine) playNext() {
	state := e.state.GetState()
	if len(state.Queue) == 0 || state.CurrentIndex >= len(state.Queue)-1 {
		return
	}
	next := state.CurrentIndex + 1
	e.state.SetIndex(next)
	e.playTrack(&state.Queue[next])
}

// PlayPrevious retreats the queue cursor. No-op at the start of the queue.
func (e *Engine) PlayPrevious() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	state := e.state.GetState()
	if len(state.Queue) == 0 || state.CurrentIndex <= 0 {
		return
	}
	previous := state.CurrentIndex - 1
	e.state.SetIndex(previous)
	e.playTrack(&state.Queue[previous])
}

// Stop clears the queue and current track.
func (e *Engine) Stop() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.transport.Pause()
	e.state.Clear()
}

// Close shuts down the transport and the event loop.
func (e *Engine) Close() {
	e.transport.Close()
	<-e.done
}

func (e *Engine) run() {
	defer close(e.done)
	for event := range e.transport.Events() {
		e.handleEvent(event)
	}
}

func (e *Engine) handleEvent(event Event) {
	switch event.Type {
	case EventLoadStart, EventWaiting:
		e.state.SetLoading(true)
	case EventLoadedMetadata:
		state := e.state.GetState()
		e.state.SetTime(state.CurrentTime, event.Duration)
		e.state.SetLoading(false)
	case EventCanPlay:
		e.state.SetLoading(false)
	case EventTimeUpdate:
		state := e.state.GetState()
		duration := state.Duration
		if event.Duration > 0 {
			duration = event.Duration
		}
		e.state.SetTime(event.Time, duration)
	case EventVolumeChange:
		e.state.SetVolume(event.Volume, event.Muted)
	case EventEnded:
		e.mutex.Lock()
		state := e.state.GetState()
		if len(state.Queue) > 0 && state.CurrentIndex < len(state.Queue)-1 {
			e.playNext()
		} else {
			e.state.SetPlaying(false)
		}
		e.mutex.Unlock()
	}
}

func (e *Engine) recordProgress(track *models.Track, position int) {
	// Podcast episodes are not resumable listening history.
	if track.Podcast != nil {
		return
	}
	if e.history == nil || e.userID == "" {
		return
	}
	if err := e.history.UpsertRecentlyPlayed(e.userID, track.ID, position); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"track_id": track.ID,
			"user_id":  e.userID,
		}).Warn("Failed to record listening progress")
	}
}
