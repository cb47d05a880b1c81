package backend

import (
	"fmt"
	"regexp"

	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

// audioAdapter drives a native audio element.  It backs the direct link and cloud file backends, which differ only in
// how the URL is rewritten before loading.  Commands reach the element through an ordered queue of their own, starting
// the element can take seconds and must not hold up the orchestrator loop.
type audioAdapter struct {
	id         player.BackendID
	host       player.Host
	logger     player.Logger
	baseLogger *log.Logger
	newElement ElementFactory
	rewrite    func(string) string

	// Created on first use and kept for the life of the backend
	element  AudioElement
	commands *player.Loop
}

// NewDirectLink returns the factory for the backend that plays arbitrary URLs on the audio element
func NewDirectLink(newElement ElementFactory) player.Factory {
	return func(host player.Host, opts player.Options) (player.Backend, error) {
		return newAudioAdapter(player.DirectLink, host, opts, newElement, nil), nil
	}
}

// NewCloudFile returns the factory for dropbox share links.  The link is rewritten to deliver the raw file instead of
// the preview page.
func NewCloudFile(newElement ElementFactory) player.Factory {
	return func(host player.Host, opts player.Options) (player.Backend, error) {
		return newAudioAdapter(player.CloudFile, host, opts, newElement, CloudFileURL), nil
	}
}

var queryPattern = regexp.MustCompile(`\?.*`)

// CloudFileURL strips any query string and asks for the raw download
func CloudFileURL(url string) string {
	return queryPattern.ReplaceAllString(url, "") + "?dl=1"
}

func newAudioAdapter(id player.BackendID, host player.Host, opts player.Options, newElement ElementFactory, rewrite func(string) string) *audioAdapter {
	if rewrite == nil {
		rewrite = func(url string) string { return url }
	}
	return &audioAdapter{
		id:         id,
		host:       host,
		logger:     host.Logger(),
		baseLogger: opts.Logger,
		newElement: newElement,
		rewrite:    rewrite,
	}
}

func (a *audioAdapter) ID() player.BackendID { return a.id }

// ensureElement lazily creates the element and binds its events to the loop
func (a *audioAdapter) ensureElement() (AudioElement, error) {
	if a.element != nil {
		return a.element, nil
	}
	el, err := a.newElement(string(a.id))
	if err != nil {
		return nil, fmt.Errorf("creating audio element: %w", err)
	}
	el.OnEvent(func(ev AudioEvent) {
		a.host.Post(func() { a.handleEvent(ev) })
	})
	a.element = el
	a.commands = player.NewLoop(string(a.id)+"-element", a.baseLogger)
	return el, nil
}

// send queues fn for the element.  A failure is handed back to the loop, where onErr runs unless playback moved on.
func (a *audioAdapter) send(op string, fn func(AudioElement) error, onErr func(error)) {
	if a.commands == nil {
		return
	}
	el, gen := a.element, a.host.Generation()
	a.commands.Post(func() {
		err := fn(el)
		if err == nil {
			return
		}
		a.host.Post(func() {
			if gen != a.host.Generation() || !a.host.Current() {
				a.logger.Debug("Dropping stale element error", "op", op, "error", err)
				return
			}
			onErr(fmt.Errorf("%s %s: %w", a.id, op, err))
		})
	})
}

// stopWith ends playback because the element failed
func (a *audioAdapter) stopWith(err error) {
	a.host.SetState(player.StateStopped)
	a.host.Fail(err)
}

// publish reports a failed control call without touching the state
func (a *audioAdapter) publish(err error) {
	a.host.Fail(err)
}

// handleEvent maps element events onto the state machine.  Runs on the loop.
func (a *audioAdapter) handleEvent(ev AudioEvent) {
	a.logger.Trace("Audio element event", "event", ev.Type)
	switch ev.Type {
	case AudioWaiting:
		a.host.SetState(player.StateLoading)
	case AudioPlaying:
		a.host.SetState(player.StatePlaying)
		a.host.SetDuration(a.duration())
	case AudioPaused:
		a.host.SetState(player.StatePaused)
	case AudioEnded:
		a.host.End()
	case AudioFailed:
		if !a.host.Current() {
			return
		}
		a.host.SetState(player.StateStopped)
		a.host.Fail(fmt.Errorf("%s: %w", a.id, ev.Err))
	}
}

func (a *audioAdapter) duration() int64 {
	d, err := a.element.Duration()
	if err != nil {
		a.logger.Debug("Duration unavailable", "error", err)
		return 0
	}
	return d
}

// Unlock primes the element from within the first user initiated call.  The element starts in the background.
func (a *audioAdapter) Unlock() error {
	if _, err := a.ensureElement(); err != nil {
		return err
	}
	a.commands.Post(func() {
		if err := a.element.Unlock(); err != nil {
			a.logger.Warn("Failed to unlock audio element", "error", err)
		}
	})
	return nil
}

func (a *audioAdapter) PlayURL(url string) error {
	if _, err := a.ensureElement(); err != nil {
		return err
	}
	src := a.rewrite(url)
	a.logger.Debug("Loading source", "src", src)
	a.send("load", func(el AudioElement) error { return el.Load(src) }, a.stopWith)
	return nil
}

func (a *audioAdapter) Play() error {
	a.send("play", AudioElement.Play, a.publish)
	return nil
}

func (a *audioAdapter) Pause() error {
	a.send("pause", AudioElement.Pause, a.publish)
	return nil
}

func (a *audioAdapter) Stop() error {
	a.send("unload", AudioElement.Unload, a.publish)
	a.host.SetState(player.StateStopped)
	return nil
}

func (a *audioAdapter) Seek(positionMS int64) error {
	a.send("seek", func(el AudioElement) error { return el.Seek(positionMS) }, a.publish)
	return nil
}

func (a *audioAdapter) Progress(report func(int64)) error {
	if a.element == nil {
		report(0)
		return nil
	}
	pos, err := a.element.Position()
	if err != nil {
		return err
	}
	report(pos)
	return nil
}

// Close waits for queued commands, then releases the element
func (a *audioAdapter) Close() error {
	if a.element == nil {
		return nil
	}
	a.commands.Close()
	return a.element.Close()
}
