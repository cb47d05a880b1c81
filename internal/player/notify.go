package player

import "sync"

// Event names the notifications the orchestrator emits
type Event string

const (
	EventStopped             Event = "stopped"
	EventLoading             Event = "loading"
	EventPlaying             Event = "playing"
	EventPaused              Event = "paused"
	EventEnded               Event = "ended"
	EventProgress            Event = "progress"
	EventTrackData           Event = "trackdata"
	EventInteractionRequired Event = "interactionrequired"
	EventError               Event = "error"
)

// Notification is the payload delivered to handlers and observers
type Notification struct {
	Event     Event      `json:"event"`
	Backend   BackendID  `json:"backend,omitempty"`
	State     State      `json:"state"`
	Progress  *Progress  `json:"progress,omitempty"`
	TrackData *TrackData `json:"track,omitempty"`
	Err       error      `json:"-"`
	Error     string     `json:"error,omitempty"`
}

// Handler receives notifications on the dispatcher goroutine, in emission order
type Handler func(Notification)

// registry holds one handler per event plus any number of observers that see every notification.  Handlers are
// resolved when a notification is emitted, not when it is delivered.
type registry struct {
	mu        sync.RWMutex
	handlers  map[Event]Handler
	observers []Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[Event]Handler)}
}

// set replaces the handler for ev.  A nil handler removes it.
func (r *registry) set(ev Event, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == nil {
		delete(r.handlers, ev)
		return
	}
	r.handlers[ev] = h
}

func (r *registry) observe(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, h)
}

// targets returns everything that should receive a notification for ev
func (r *registry) targets(ev Event) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, 0, len(r.observers)+1)
	if h, ok := r.handlers[ev]; ok {
		out = append(out, h)
	}
	return append(out, r.observers...)
}
