package player

import "sync"

// EventType identifies a transport notification.
type EventType string

const (
	EventLoadStart      EventType = "loadstart"
	EventWaiting        EventType = "waiting"
	EventCanPlay        EventType = "canplay"
	EventLoadedMetadata EventType = "loadedmetadata"
	EventTimeUpdate     EventType = "timeupdate"
	EventVolumeChange   EventType = "volumechange"
	EventEnded          EventType = "ended"
)

// Event is a notification from the transport about the state of the
// single playback handle it owns.
type Event struct {
	Type     EventType `json:"type"`
	Time     int       `json:"time,omitempty"`
	Duration int       `json:"duration,omitempty"`
	Volume   float64   `json:"volume,omitempty"`
	Muted    bool      `json:"muted,omitempty"`
}

// Command is a directive the engine issues to the transport.
type Command struct {
	Action  string  `json:"action"` // load, play, pause, seek, volume, mute
	TrackID int     `json:"trackId,omitempty"`
	Seconds int     `json:"seconds,omitempty"`
	Volume  float64 `json:"volume,omitempty"`
	Muted   bool    `json:"muted,omitempty"`
}

// Transport is the single media handle the engine drives. Implementations
// report what actually happened through Events; the engine never assumes a
// command succeeded until the corresponding event arrives.
type Transport interface {
	Load(trackID int)
	Play()
	Pause()
	Seek(seconds int)
	SetVolume(volume float64)
	SetMuted(muted bool)
	Events() <-chan Event
	Close()
}

// RemoteTransport bridges the engine to a web client that owns the real
// audio element. Engine commands are queued for the client to drain, and
// client-reported media events are fed back as transport events.
type RemoteTransport struct {
	mutex   sync.Mutex
	pending []Command
	events  chan Event
	closed  bool
}

// NewRemoteTransport creates a transport with no connected client yet.
func NewRemoteTransport() *RemoteTransport {
	return &RemoteTransport{
		events: make(chan Event, 64),
	}
}

func (rt *RemoteTransport) enqueue(cmd Command) {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	if rt.closed {
		return
	}
	rt.pending = append(rt.pending, cmd)
}

// Load queues a source switch for the client.
func (rt *RemoteTransport) Load(trackID int) {
	rt.enqueue(Command{Action: "load", TrackID: trackID})
}

// Play queues a play directive.
func (rt *RemoteTransport) Play() {
	rt.enqueue(Command{Action: "play"})
}

// Pause queues a pause directive.
func (rt *RemoteTransport) Pause() {
	rt.enqueue(Command{Action: "pause"})
}

// Seek queues a playhead move.
func (rt *RemoteTransport) Seek(seconds int) {
	rt.enqueue(Command{Action: "seek", Seconds: seconds})
}

// SetVolume queues a volume change.
func (rt *RemoteTransport) SetVolume(volume float64) {
	rt.enqueue(Command{Action: "volume", Volume: volume})
}

// SetMuted queues a mute toggle.
func (rt *RemoteTransport) SetMuted(muted bool) {
	rt.enqueue(Command{Action: "mute", Muted: muted})
}

// DrainCommands returns and clears the queued directives. Called by the
// player commands endpoint on each client poll.
func (rt *RemoteTransport) DrainCommands() []Command {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	cmds := rt.pending
	rt.pending = nil
	return cmds
}

// Report feeds a client-observed media event back to the engine. Events
// are dropped when the engine is not keeping up rather than blocking the
// reporting request.
func (rt *RemoteTransport) Report(event Event) {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	if rt.closed {
		return
	}

	// Send under the mutex: Close also holds it when closing the channel,
	// and the default case keeps the send from blocking.
	select {
	case rt.events <- event:
	default:
	}
}

// Events returns the stream of client-reported media events.
func (rt *RemoteTransport) Events() <-chan Event {
	return rt.events
}

// Close stops the event stream.
func (rt *RemoteTransport) Close() {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	if rt.closed {
		return
	}
	rt.closed = true
	close(rt.events)
}
