package player

import (
	"sync"
	"time"

	"github.com/mdfaizan0/groove/pkg/models"
)

// State represents the current playback and queue state
type State struct {
	Track        *models.Track  `json:"track,omitempty"`
	Queue        []models.Track `json:"queue"`
	CurrentIndex int            `json:"currentIndex"` // -1 when no queue item is active
	IsPlaying    bool           `json:"isPlaying"`
	IsLoading    bool           `json:"isLoading"`
	CurrentTime  int            `json:"currentTime"` // in seconds
	Duration     int            `json:"duration"`    // in seconds
	Volume       float64        `json:"volume"`      // 0.0 to 1.0
	IsMuted      bool           `json:"isMuted"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// StateManager manages playback state and notifies listeners
type StateManager struct {
	state     *State
	mutex     sync.RWMutex
	listeners []chan *State
}

// NewStateManager creates a new playback state manager
func NewStateManager() *StateManager {
	return &StateManager{
		state: &State{
			CurrentIndex: -1,
			Volume:       1.0,
			UpdatedAt:    time.Now(),
		},
		listeners: make([]chan *State, 0),
	}
}

// GetState returns a copy of the current state (thread-safe)
func (sm *StateManager) GetState() *State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	stateCopy := *sm.state
	stateCopy.Queue = append([]models.Track(nil), sm.state.Queue...)
	return &stateCopy
}

// SetTrack switches to a new current track and resets the playhead
func (sm *StateManager) SetTrack(track *models.Track) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Track = track
	sm.state.CurrentTime = 0
	sm.state.Duration = 0
	sm.state.IsLoading = track != nil
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// SetQueue replaces the queue and current index
func (sm *StateManager) SetQueue(queue []models.Track, index int) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Queue = append([]models.Track(nil), queue...)
	sm.state.CurrentIndex = index
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// SetIndex moves the queue cursor without replacing the queue
func (sm *StateManager) SetIndex(index int) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.CurrentIndex = index
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// SetPlaying updates the playing/paused flag
func (sm *StateManager) SetPlaying(isPlaying bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.IsPlaying = isPlaying
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// SetLoading updates the level-triggered loading flag
func (sm *StateManager) SetLoading(isLoading bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.IsLoading = isLoading
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// SetTime updates the playhead position and known duration
func (sm *StateManager) SetTime(currentTime, duration int) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.CurrentTime = currentTime
	if duration > 0 {
		sm.state.Duration = duration
	}
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// SetVolume updates volume and mute state
func (sm *StateManager) SetVolume(volume float64, isMuted bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Volume = volume
	sm.state.IsMuted = isMuted
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Clear resets the current track and queue (playback stopped)
func (sm *StateManager) Clear() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Track = nil
	sm.state.Queue = nil
	sm.state.CurrentIndex = -1
	sm.state.IsPlaying = false
	sm.state.IsLoading = false
	sm.state.CurrentTime = 0
	sm.state.Duration = 0
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Subscribe adds a listener for state changes
func (sm *StateManager) Subscribe() <-chan *State {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	ch := make(chan *State, 10) // Buffered channel to prevent blocking
	sm.listeners = append(sm.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (sm *StateManager) Unsubscribe(ch <-chan *State) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for i, listener := range sm.listeners {
		if listener == ch {
			close(listener)
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners sends state updates to all subscribers (must be called with lock held)
func (sm *StateManager) notifyListeners() {
	stateCopy := *sm.state
	kept := sm.listeners[:0]
	for _, listener := range sm.listeners {
		select {
		case listener <- &stateCopy:
			kept = append(kept, listener)
		default:
			// Channel is full, drop the subscriber
			close(listener)
		}
	}
	sm.listeners = kept
}
