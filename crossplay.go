// Package crossplay plays media from an arbitrary URL through whichever backend understands it.  A URL is classified
// to one of the soundcloud, youtube, dropbox or plain web link backends, and every backend is driven through the same
// state machine and reports through the same set of callbacks.
package crossplay

import (
	"errors"
	"io"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

type (
	BackendID    = player.BackendID
	State        = player.State
	Progress     = player.Progress
	TrackData    = player.TrackData
	Snapshot     = player.Snapshot
	Notification = player.Notification
	Options      = player.Options
)

const (
	StreamingWidget = player.StreamingWidget
	VideoEmbed      = player.VideoEmbed
	DirectLink      = player.DirectLink
	CloudFile       = player.CloudFile

	StateStopped = player.StateStopped
	StateLoading = player.StateLoading
	StatePlaying = player.StatePlaying
	StatePaused  = player.StatePaused
)

var (
	ErrMountPointRequired = player.ErrMountPointRequired
	ErrInvalidURL         = player.ErrInvalidURL
	ErrBackendDisabled    = player.ErrBackendDisabled
	ErrReadinessTimeout   = player.ErrReadinessTimeout
	ErrClosed             = player.ErrClosed
)

// DefaultOptions returns options with every backend enabled and the default timings
func DefaultOptions(mountPoint string) Options { return player.DefaultOptions(mountPoint) }

// Classify returns the backend a URL would be played with
func Classify(url string) BackendID { return player.Classify(url) }

// Player is the public face of the orchestrator
type Player struct {
	o *player.Orchestrator
	// Resources the player was built with, closed after the orchestrator
	closers []io.Closer
}

// New creates a player from explicit backend factories
func New(opts Options, factories map[BackendID]player.Factory) (*Player, error) {
	o, err := player.New(opts, factories)
	if err != nil {
		return nil, err
	}
	return &Player{o: o}, nil
}

// PlayURL starts playing url and returns the backend chosen for it.  Loading completes asynchronously.
func (p *Player) PlayURL(url string) (BackendID, error) { return p.o.PlayURL(url) }

func (p *Player) Play() error            { return p.o.Play() }
func (p *Player) Pause() error           { return p.o.Pause() }
func (p *Player) TogglePlayPause() error { return p.o.TogglePlayPause() }
func (p *Player) Stop() error            { return p.o.Stop() }
func (p *Player) Seek(positionMS int64) error {
	return p.o.Seek(positionMS)
}

// State returns a snapshot of what is playing
func (p *Player) State() Snapshot { return p.o.State() }

// OnStopped replaces the stopped handler.  Handlers run one at a time on a dedicated goroutine and may call back into
// the player.
func (p *Player) OnStopped(fn func()) { p.on(player.EventStopped, fn) }
func (p *Player) OnLoading(fn func()) { p.on(player.EventLoading, fn) }
func (p *Player) OnPlaying(fn func()) { p.on(player.EventPlaying, fn) }
func (p *Player) OnPaused(fn func())  { p.on(player.EventPaused, fn) }

// OnEnded fires after OnStopped when a track played to its end
func (p *Player) OnEnded(fn func()) { p.on(player.EventEnded, fn) }

func (p *Player) OnProgress(fn func(Progress)) {
	if fn == nil {
		p.o.On(player.EventProgress, nil)
		return
	}
	p.o.On(player.EventProgress, func(n player.Notification) {
		if n.Progress != nil {
			fn(*n.Progress)
		}
	})
}

func (p *Player) OnTrackData(fn func(TrackData)) {
	if fn == nil {
		p.o.On(player.EventTrackData, nil)
		return
	}
	p.o.On(player.EventTrackData, func(n player.Notification) {
		if n.TrackData != nil {
			fn(*n.TrackData)
		}
	})
}

// OnInteractionRequired fires when the user has to tap the backend's surface before playback can start
func (p *Player) OnInteractionRequired(fn func(BackendID)) {
	if fn == nil {
		p.o.On(player.EventInteractionRequired, nil)
		return
	}
	p.o.On(player.EventInteractionRequired, func(n player.Notification) { fn(n.Backend) })
}

// OnError receives errors that happen outside of a call, e.g. a backend that never became ready
func (p *Player) OnError(fn func(error)) {
	if fn == nil {
		p.o.On(player.EventError, nil)
		return
	}
	p.o.On(player.EventError, func(n player.Notification) { fn(n.Err) })
}

// Observe adds a handler that sees every notification, alongside the single per event handlers
func (p *Player) Observe(fn func(Notification)) { p.o.Observe(fn) }

func (p *Player) on(ev player.Event, fn func()) {
	if fn == nil {
		p.o.On(ev, nil)
		return
	}
	p.o.On(ev, func(player.Notification) { fn() })
}

// Close stops the player and releases every backend
func (p *Player) Close() error {
	errs := []error{p.o.Close()}
	for _, c := range p.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
