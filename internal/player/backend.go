package player

import "time"

// Backend is the contract every playback backend fulfils.  All methods are called on the orchestrator's loop, and a
// backend reports what actually happened through its Host rather than through return values.
type Backend interface {
	ID() BackendID
	// PlayURL starts loading url.  It may defer the work until the backend's external dependency is ready.
	PlayURL(url string) error
	Play() error
	Pause() error
	Stop() error
	Seek(positionMS int64) error
	// Progress calls report with the elapsed position.  report must be called on the loop, either before Progress
	// returns or later via Host.Post.
	Progress(report func(elapsedMS int64)) error
}

// Validator is implemented by backends that can reject a URL up front.  ValidateURL runs before any state change.
type Validator interface {
	ValidateURL(url string) error
}

// Unlocker is implemented by backends owning a native audio element that must be primed from within the first user
// initiated PlayURL call.
type Unlocker interface {
	Unlock() error
}

// Factory constructs a backend bound to its host
type Factory func(host Host, opts Options) (Backend, error)

// Host is a backend's handle back to the orchestrator.  Reports from a backend that is not the current one are
// ignored, so a backend that was switched away from cannot disturb the newer playback.  Methods must be called on the
// loop, except Post which may be called from anywhere.
type Host interface {
	SetState(s State)
	SetDuration(durationMS int64)
	// End reports a natural end of track.  The state becomes STOPPED and ended is published, both only when the player
	// was not already stopped, so a repeated terminal event from the backend changes nothing.
	End()
	TrackData(data TrackData)
	// InteractionRequired tells the embedder the user has to interact with the backend's surface before playback
	InteractionRequired()
	// SetNotice shows or hides the backend's "needs interaction" affordance
	SetNotice(visible bool)
	// Fail publishes an error that occurred outside of a public call
	Fail(err error)

	// State returns the orchestrator's current state
	State() State
	// Current reports whether this backend is the one receiving control calls
	Current() bool
	// Generation changes on every PlayURL and Stop.  Deferred work compares it to decide whether it is stale.
	Generation() uint64
	TouchMobile() bool
	Logger() Logger

	Post(fn func()) bool
	AfterFunc(d time.Duration, fn func()) *Timer
}

// Logger is the subset of the logging package that backends use
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Surface is where backends render.  It owns one container per backend inside the mount point.
type Surface interface {
	// Show makes the given backend's container the only visible one
	Show(id BackendID)
	// SetNotice toggles the interaction notice inside a backend's container
	SetNotice(id BackendID, visible bool)
}

// NopSurface is used when nothing is rendered, e.g. for audio-only backends
type NopSurface struct{}

func (NopSurface) Show(BackendID)            {}
func (NopSurface) SetNotice(BackendID, bool) {}

// Unimplemented can be embedded by a backend under construction.  Every operation fails with ErrNotImplemented.
type Unimplemented struct{}

func (Unimplemented) PlayURL(string) error       { return ErrNotImplemented }
func (Unimplemented) Play() error                { return ErrNotImplemented }
func (Unimplemented) Pause() error               { return ErrNotImplemented }
func (Unimplemented) Stop() error                { return ErrNotImplemented }
func (Unimplemented) Seek(int64) error           { return ErrNotImplemented }
func (Unimplemented) Progress(func(int64)) error { return ErrNotImplemented }
