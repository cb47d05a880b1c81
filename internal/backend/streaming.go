package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/PizzaHomicide/crossplay/internal/player"
	"github.com/PizzaHomicide/crossplay/internal/soundcloud"
)

// WidgetEvents are the widget callbacks the streaming backend binds.  They may fire on any goroutine.
type WidgetEvents struct {
	Ready  func()
	Play   func()
	Pause  func()
	Finish func()
}

// Sound is what the widget knows about the loaded sound
type Sound struct {
	ID           int64
	Title        string
	DurationMS   int64
	PermalinkURL string
}

// Widget is one embedded streaming widget
type Widget interface {
	Load(url string, autoPlay bool) error
	Play() error
	Pause() error
	SeekTo(positionMS int64) error
	Position() (int64, error)
	CurrentSound() (Sound, error)
}

// WidgetAPI loads the widget script and creates widgets inside the backend's container
type WidgetAPI interface {
	// Load blocks until the widget script is available
	Load(ctx context.Context) error
	// Create embeds a widget for url and binds events to it
	Create(url string, events WidgetEvents) (Widget, error)
}

// Resolver looks up streamable tracks over the streaming service HTTP API
type Resolver interface {
	Resolve(ctx context.Context, pageURL string) (soundcloud.Track, error)
	StreamURLWithClientID(t soundcloud.Track) string
}

// StreamingConfig holds the collaborators of the streaming widget backend.  Resolver and NewElement are used when a
// client id is configured, WidgetAPI otherwise.
type StreamingConfig struct {
	Resolver   Resolver
	NewElement ElementFactory
	WidgetAPI  WidgetAPI
}

// NewStreamingWidget returns the factory for the soundcloud backend
func NewStreamingWidget(cfg StreamingConfig) player.Factory {
	return func(host player.Host, opts player.Options) (player.Backend, error) {
		ctx, cancel := context.WithCancel(context.Background())
		s := &streamingAdapter{
			host:       host,
			logger:     host.Logger(),
			ctx:        ctx,
			cancel:     cancel,
			httpMode:   opts.StreamingClientID != "",
			firstPlay:  true,
			maskWindow: opts.SeekMaskWindow,
			pendingMS:  -1,
		}
		if s.httpMode {
			if cfg.Resolver == nil || cfg.NewElement == nil {
				cancel()
				return nil, fmt.Errorf("http mode needs a resolver and an audio element")
			}
			s.resolver = cfg.Resolver
			s.audio = newAudioAdapter(player.StreamingWidget, host, opts, cfg.NewElement, nil)
			return s, nil
		}

		if cfg.WidgetAPI == nil {
			cancel()
			return nil, fmt.Errorf("widget mode needs a widget api")
		}
		s.api = cfg.WidgetAPI
		s.ready = newReadiness(host, opts, s.loadScript)
		return s, nil
	}
}

// streamingAdapter has two modes.  In HTTP mode tracks are resolved over the API and streamed on an audio element, so
// element events map 1:1 onto states.  In widget mode the embeddable widget plays the track.
type streamingAdapter struct {
	host   player.Host
	logger player.Logger
	ctx    context.Context
	cancel context.CancelFunc

	httpMode bool
	resolver Resolver
	audio    *audioAdapter

	api       WidgetAPI
	ready     *readiness
	widget    Widget
	firstPlay bool

	// The widget lags behind seeks on some devices, so for a short window after a seek the requested position is
	// reported instead of querying the widget.
	maskWindow time.Duration
	pendingMS  int64
	maskTimer  *player.Timer
}

func (s *streamingAdapter) ID() player.BackendID { return player.StreamingWidget }

func (s *streamingAdapter) Unlock() error {
	if s.httpMode {
		return s.audio.Unlock()
	}
	return nil
}

func (s *streamingAdapter) PlayURL(url string) error {
	if s.httpMode {
		s.resolveAndPlay(url)
		return nil
	}
	s.playWidget(url)
	return nil
}

// resolveAndPlay resolves off the loop and loads the stream once the result is back, unless playback moved on
func (s *streamingAdapter) resolveAndPlay(url string) {
	gen := s.host.Generation()
	go func() {
		track, err := s.resolver.Resolve(s.ctx, url)
		s.host.Post(func() {
			if s.host.Generation() != gen {
				s.logger.Debug("Discarding stale resolve", "url", url)
				return
			}
			if err != nil {
				s.host.SetState(player.StateStopped)
				s.host.Fail(fmt.Errorf("soundcloud: %w", err))
				return
			}
			s.host.TrackData(player.TrackData{
				ID:           track.ID,
				Title:        track.Title,
				Artist:       track.User.Username,
				Genre:        track.Genre,
				DurationMS:   track.Duration,
				PermalinkURL: track.PermalinkURL,
				ArtworkURL:   track.ArtworkURL,
				StreamURL:    track.StreamURL,
			})
			if err := s.audio.PlayURL(s.resolver.StreamURLWithClientID(track)); err != nil {
				s.host.SetState(player.StateStopped)
				s.host.Fail(fmt.Errorf("soundcloud: %w", err))
			}
		})
	}()
}

// loadScript fetches the widget script off the loop
func (s *streamingAdapter) loadScript() {
	go func() {
		err := s.api.Load(s.ctx)
		s.host.Post(func() {
			if err != nil {
				s.ready.fail(fmt.Errorf("loading soundcloud widget api: %w", err))
				return
			}
			s.ready.markReady()
		})
	}()
}

func (s *streamingAdapter) playWidget(url string) {
	if !s.ready.await(func() { s.playWidget(url) }) {
		return
	}

	touch := s.host.TouchMobile()
	if s.widget == nil {
		w, err := s.api.Create(url, WidgetEvents{
			Ready:  func() { s.host.Post(s.onReady) },
			Play:   func() { s.host.Post(s.onPlay) },
			Pause:  func() { s.host.Post(s.onPause) },
			Finish: func() { s.host.Post(s.onFinish) },
		})
		if err != nil {
			s.host.SetState(player.StateStopped)
			s.host.Fail(fmt.Errorf("creating soundcloud widget: %w", err))
			return
		}
		s.widget = w
	} else {
		autoPlay := !(s.firstPlay && touch)
		if err := s.widget.Load(url, autoPlay); err != nil {
			s.host.SetState(player.StateStopped)
			s.host.Fail(fmt.Errorf("loading soundcloud widget: %w", err))
			return
		}
	}

	if touch && s.firstPlay {
		s.host.SetNotice(true)
		s.host.InteractionRequired()
	}
}

func (s *streamingAdapter) onReady() {
	if s.host.TouchMobile() || s.widget == nil {
		return
	}
	if err := s.widget.Play(); err != nil {
		s.logger.Warn("Failed to auto play widget", "error", err)
	}
}

func (s *streamingAdapter) onPlay() {
	wasFirst := s.firstPlay
	s.firstPlay = false
	s.host.SetState(player.StatePlaying)
	if sound, err := s.widget.CurrentSound(); err != nil {
		s.logger.Debug("Current sound unavailable", "error", err)
	} else {
		s.host.SetDuration(sound.DurationMS)
	}
	if wasFirst && s.host.TouchMobile() {
		s.host.SetNotice(false)
	}
}

// onPause also fires for the pause issued by Stop, which must not resurrect a stopped player
func (s *streamingAdapter) onPause() {
	if s.host.State() != player.StatePlaying {
		return
	}
	s.host.SetState(player.StatePaused)
}

// onFinish only ends playback from PLAYING, some platforms fire finish twice
func (s *streamingAdapter) onFinish() {
	if s.host.State() != player.StatePlaying {
		return
	}
	s.host.End()
}

func (s *streamingAdapter) Play() error {
	if s.httpMode {
		return s.audio.Play()
	}
	if s.widget == nil {
		return nil
	}
	return s.widget.Play()
}

func (s *streamingAdapter) Pause() error {
	if s.httpMode {
		return s.audio.Pause()
	}
	if s.widget == nil {
		return nil
	}
	if err := s.widget.Pause(); err != nil {
		return err
	}
	// A pause before the widget started playing must not skip PLAYING
	if s.host.State() == player.StatePlaying {
		s.host.SetState(player.StatePaused)
	}
	return nil
}

func (s *streamingAdapter) Stop() error {
	if s.httpMode {
		return s.audio.Stop()
	}
	var err error
	if s.widget != nil {
		err = s.widget.Pause()
	}
	s.host.SetState(player.StateStopped)
	return err
}

func (s *streamingAdapter) Seek(positionMS int64) error {
	if s.httpMode {
		return s.audio.Seek(positionMS)
	}
	if s.widget == nil {
		return nil
	}
	if s.maskWindow > 0 {
		s.pendingMS = positionMS
		s.maskTimer.Stop()
		s.maskTimer = s.host.AfterFunc(s.maskWindow, func() { s.pendingMS = -1 })
	}
	return s.widget.SeekTo(positionMS)
}

func (s *streamingAdapter) Progress(report func(int64)) error {
	if s.httpMode {
		return s.audio.Progress(report)
	}
	if s.pendingMS >= 0 {
		report(s.pendingMS)
		return nil
	}
	if s.widget == nil {
		report(0)
		return nil
	}
	pos, err := s.widget.Position()
	if err != nil {
		return err
	}
	report(pos)
	return nil
}

func (s *streamingAdapter) Close() error {
	s.cancel()
	s.maskTimer.Stop()
	if s.httpMode {
		return s.audio.Close()
	}
	return nil
}
