package player

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/PizzaHomicide/crossplay/internal/log"
)

// Orchestrator owns the playback state machine and routes every control call to the current backend
type Orchestrator struct {
	opts     Options
	logger   *log.Logger
	loop     *Loop
	dispatch *Loop
	registry *registry
	surface  Surface

	// Everything below is confined to the loop
	state         State
	current       BackendID
	currentURL    string
	elapsedMS     int64
	durationMS    int64
	backends      map[BackendID]Backend
	ticker        *Ticker
	audioUnlocked bool
	generation    uint64
	closed        bool
}

// New validates the options and eagerly constructs one backend per enabled type for which a factory is given
func New(opts Options, factories map[BackendID]Factory) (*Orchestrator, error) {
	if opts.MountPoint == "" {
		return nil, ErrMountPointRequired
	}
	opts = opts.withDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = log.L()
	}
	logger = logger.With("mount_point", opts.MountPoint)

	o := &Orchestrator{
		opts:     opts,
		logger:   logger,
		loop:     NewLoop("orchestrator", logger),
		dispatch: NewLoop("callbacks", logger),
		registry: newRegistry(),
		surface:  opts.Surface,
		state:    StateStopped,
		backends: make(map[BackendID]Backend),
	}

	var buildErr error
	_ = o.loop.Call(func() {
		for _, id := range BackendIDs {
			if !opts.Enabled(id) {
				continue
			}
			factory, ok := factories[id]
			if !ok {
				logger.Warn("No factory registered for enabled backend", "backend", id)
				continue
			}
			b, err := factory(&reporter{o: o, id: id}, opts)
			if err != nil {
				buildErr = fmt.Errorf("creating %s backend: %w", id, err)
				return
			}
			o.backends[id] = b
			logger.Debug("Backend created", "backend", id)
		}
	})
	if buildErr != nil {
		o.Close()
		return nil, buildErr
	}

	logger.Info("Player created", "backends", len(o.backends), "progress_interval", opts.ProgressInterval)
	return o, nil
}

// On registers the handler for an event, replacing any previous one
func (o *Orchestrator) On(ev Event, h Handler) {
	o.registry.set(ev, h)
}

// Observe adds a handler that receives every notification
func (o *Orchestrator) Observe(h Handler) {
	o.registry.observe(h)
}

// PlayURL classifies url, stops whatever is playing and hands the URL to the selected backend.  The returned backend
// id is known synchronously; the actual load completes later through state notifications.
func (o *Orchestrator) PlayURL(url string) (BackendID, error) {
	var (
		id  BackendID
		err error
	)
	if cerr := o.loop.Call(func() { id, err = o.playURL(url) }); cerr != nil {
		return "", cerr
	}
	return id, err
}

func (o *Orchestrator) playURL(url string) (BackendID, error) {
	if o.closed {
		return "", ErrClosed
	}

	// Must happen inside the first user initiated call, before any deferred work
	o.unlockAudio()

	id := Classify(url)
	b, ok := o.backends[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBackendDisabled, id)
	}
	if v, ok := b.(Validator); ok {
		if err := v.ValidateURL(url); err != nil {
			return "", err
		}
	}

	if o.state != StateStopped && o.current != "" {
		o.logger.Debug("Stopping previous backend", "backend", o.current)
		if err := o.backends[o.current].Stop(); err != nil {
			o.logger.Warn("Failed to stop previous backend", "backend", o.current, "error", err)
		}
	}

	o.generation++
	o.current = id
	o.currentURL = url
	o.elapsedMS = 0
	o.durationMS = 0
	o.stopTicker()
	o.surface.Show(id)
	o.setState(StateLoading)

	o.logger.Info("Playing URL", "backend", id, "url", url)
	if err := b.PlayURL(url); err != nil {
		o.setState(StateStopped)
		return "", fmt.Errorf("%s backend: %w", id, err)
	}
	return id, nil
}

// unlockAudio primes every native audio element once
func (o *Orchestrator) unlockAudio() {
	if o.audioUnlocked {
		return
	}
	o.audioUnlocked = true
	for _, id := range BackendIDs {
		if u, ok := o.backends[id].(Unlocker); ok {
			if err := u.Unlock(); err != nil {
				o.logger.Warn("Failed to unlock audio element", "backend", id, "error", err)
			}
		}
	}
}

// Play resumes the current backend
func (o *Orchestrator) Play() error {
	return o.control("play", func(b Backend) error { return b.Play() })
}

// Pause pauses the current backend
func (o *Orchestrator) Pause() error {
	return o.control("pause", func(b Backend) error { return b.Pause() })
}

// Seek moves the current backend to positionMS
func (o *Orchestrator) Seek(positionMS int64) error {
	return o.control("seek", func(b Backend) error { return b.Seek(positionMS) })
}

// TogglePlayPause pauses when playing and resumes when paused.  In any other state it does nothing.
func (o *Orchestrator) TogglePlayPause() error {
	return o.control("toggle", func(b Backend) error {
		switch o.state {
		case StatePlaying:
			return b.Pause()
		case StatePaused:
			return b.Play()
		default:
			return nil
		}
	})
}

// Stop stops the current backend.  Any retry or async result scheduled for the previous URL becomes stale.
func (o *Orchestrator) Stop() error {
	return o.control("stop", func(b Backend) error {
		o.generation++
		err := b.Stop()
		// Backends that never became ready cannot report the stop themselves
		o.setState(StateStopped)
		return err
	})
}

// control runs fn against the current backend on the loop.  Before the first PlayURL there is nothing to control.
func (o *Orchestrator) control(name string, fn func(Backend) error) error {
	var err error
	if cerr := o.loop.Call(func() {
		if o.closed {
			err = ErrClosed
			return
		}
		b, ok := o.backends[o.current]
		if !ok {
			return
		}
		o.logger.Debug("Control call", "op", name, "backend", o.current, "state", o.state)
		if ferr := fn(b); ferr != nil {
			err = fmt.Errorf("%s on %s backend: %w", name, o.current, ferr)
		}
	}); cerr != nil {
		return cerr
	}
	return err
}

// State returns a snapshot of the observable state
func (o *Orchestrator) State() Snapshot {
	var snap Snapshot
	_ = o.loop.Call(func() { snap = o.snapshot() })
	return snap
}

func (o *Orchestrator) snapshot() Snapshot {
	return Snapshot{
		State:      o.state,
		Backend:    o.current,
		URL:        o.currentURL,
		ElapsedMS:  o.elapsedMS,
		DurationMS: o.durationMS,
	}
}

// Close tears down every backend and stops the loops.  Pending notifications are still delivered.
func (o *Orchestrator) Close() error {
	var errs []error
	if cerr := o.loop.Call(func() {
		if o.closed {
			return
		}
		o.closed = true
		o.generation++
		o.stopTicker()
		for _, id := range BackendIDs {
			if c, ok := o.backends[id].(io.Closer); ok {
				if err := c.Close(); err != nil {
					errs = append(errs, fmt.Errorf("closing %s backend: %w", id, err))
				}
			}
		}
	}); cerr != nil {
		return nil
	}
	o.loop.Close()
	o.dispatch.Close()
	o.logger.Info("Player closed")
	return errors.Join(errs...)
}

// setState is the only place the state changes.  Repeating the current state does nothing.
func (o *Orchestrator) setState(s State) {
	if s == o.state {
		return
	}
	prev := o.state
	o.state = s
	o.stopTicker()
	o.logger.Debug("State changed", "from", prev, "to", s, "backend", o.current)

	switch s {
	case StateStopped:
		o.currentURL = ""
		o.elapsedMS = 0
		o.durationMS = 0
		o.emit(Notification{Event: EventStopped})
	case StateLoading:
		o.emit(Notification{Event: EventLoading})
	case StatePlaying:
		o.ticker = o.loop.Every(o.opts.ProgressInterval, o.pollProgress)
		o.emit(Notification{Event: EventPlaying})
	case StatePaused:
		o.emit(Notification{Event: EventPaused})
	}
}

func (o *Orchestrator) stopTicker() {
	o.ticker.Stop()
	o.ticker = nil
}

// pollProgress asks the current backend for its position.  A failing backend is stopped so the ticker never outlives
// the PLAYING state.
func (o *Orchestrator) pollProgress() {
	if o.state != StatePlaying {
		return
	}
	id := o.current
	b := o.backends[id]
	gen := o.generation
	err := b.Progress(func(elapsedMS int64) {
		if gen != o.generation || o.state != StatePlaying {
			return
		}
		o.elapsedMS = elapsedMS
		o.emit(Notification{Event: EventProgress, Progress: &Progress{ElapsedMS: elapsedMS, DurationMS: o.durationMS}})
	})
	if err == nil {
		return
	}

	o.logger.Error("Failed to read playback progress", "backend", id, "error", err)
	o.stopTicker()
	o.emit(errorNotification(fmt.Errorf("progress from %s backend: %w", id, err)))
	o.generation++
	if serr := b.Stop(); serr != nil {
		o.logger.Warn("Failed to stop backend after progress error", "backend", id, "error", serr)
	}
	o.setState(StateStopped)
}

// emit stamps the notification with the current backend and state and queues it for the dispatcher
func (o *Orchestrator) emit(n Notification) {
	if n.Backend == "" {
		n.Backend = o.current
	}
	n.State = o.state
	targets := o.registry.targets(n.Event)
	if len(targets) == 0 {
		return
	}
	o.dispatch.Post(func() {
		for _, h := range targets {
			h(n)
		}
	})
}

func errorNotification(err error) Notification {
	return Notification{Event: EventError, Err: err, Error: err.Error()}
}

// sync waits for every task queued so far, including notifications they emitted.  Used by tests.
func (o *Orchestrator) sync() {
	_ = o.loop.Call(func() {})
	_ = o.dispatch.Call(func() {})
}

// reporter is the Host handed to one backend
type reporter struct {
	o  *Orchestrator
	id BackendID
}

func (r *reporter) Current() bool { return r.o.current == r.id && !r.o.closed }

func (r *reporter) SetState(s State) {
	if !r.Current() {
		r.o.logger.Trace("Ignoring state from inactive backend", "backend", r.id, "state", s)
		return
	}
	r.o.setState(s)
}

func (r *reporter) SetDuration(durationMS int64) {
	if r.Current() {
		r.o.durationMS = durationMS
	}
}

func (r *reporter) End() {
	if !r.Current() || r.o.state == StateStopped {
		return
	}
	r.o.setState(StateStopped)
	r.o.emit(Notification{Event: EventEnded})
}

func (r *reporter) TrackData(data TrackData) {
	if r.Current() {
		r.o.emit(Notification{Event: EventTrackData, TrackData: &data})
	}
}

func (r *reporter) InteractionRequired() {
	if r.Current() {
		r.o.emit(Notification{Event: EventInteractionRequired})
	}
}

func (r *reporter) SetNotice(visible bool) {
	r.o.surface.SetNotice(r.id, visible)
}

// Fail publishes regardless of whether the backend is current, errors are facts about the backend itself
func (r *reporter) Fail(err error) {
	r.o.logger.Error("Backend failure", "backend", r.id, "error", err)
	n := errorNotification(err)
	n.Backend = r.id
	r.o.emit(n)
}

func (r *reporter) State() State       { return r.o.state }
func (r *reporter) Generation() uint64 { return r.o.generation }
func (r *reporter) TouchMobile() bool  { return r.o.opts.TouchMobile }
func (r *reporter) Logger() Logger     { return r.o.logger.With("backend", r.id) }

func (r *reporter) Post(fn func()) bool { return r.o.loop.Post(fn) }

func (r *reporter) AfterFunc(d time.Duration, fn func()) *Timer {
	return r.o.loop.AfterFunc(d, fn)
}
