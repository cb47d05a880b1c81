package backend

import (
	"context"
	"fmt"
	"regexp"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

// VideoState mirrors the embed SDK's player states
type VideoState int

const (
	VideoUnstarted VideoState = -1
	VideoEnded     VideoState = 0
	VideoPlaying   VideoState = 1
	VideoPaused    VideoState = 2
	VideoBuffering VideoState = 3
	VideoCued      VideoState = 5
)

func (s VideoState) String() string {
	switch s {
	case VideoUnstarted:
		return "unstarted"
	case VideoEnded:
		return "ended"
	case VideoPlaying:
		return "playing"
	case VideoPaused:
		return "paused"
	case VideoBuffering:
		return "buffering"
	case VideoCued:
		return "cued"
	default:
		return fmt.Sprintf("VideoState(%d)", int(s))
	}
}

// VideoEvents are the SDK callbacks the video backend binds.  They may fire on any goroutine.
type VideoEvents struct {
	Ready       func()
	StateChange func(VideoState)
	Error       func(code int)
}

// VideoPlayer is one embedded video player
type VideoPlayer interface {
	// Load starts playing the video at startSeconds
	Load(videoID string, startSeconds float64) error
	// Cue prepares the video without starting playback
	Cue(videoID string, startSeconds float64) error
	Play() error
	Pause() error
	Stop() error
	SeekTo(positionMS int64) error
	CurrentTimeMS() (int64, error)
	DurationMS() (int64, error)
}

// VideoAPI loads the embed SDK and creates players inside the backend's container
type VideoAPI interface {
	// Load blocks until the SDK is available
	Load(ctx context.Context) error
	NewPlayer(videoID string, events VideoEvents) (VideoPlayer, error)
}

// The SDK accepts a start offset, a small one avoids a black first frame
const videoStartSeconds = 0.1

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`/(?:embed|shorts)/([A-Za-z0-9_-]+)`),
}

// ExtractVideoID returns the video id of a watch, short link, embed or shorts URL
func ExtractVideoID(url string) (string, bool) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// NewVideoEmbed returns the factory for the youtube backend
func NewVideoEmbed(api VideoAPI) player.Factory {
	return func(host player.Host, opts player.Options) (player.Backend, error) {
		if api == nil {
			return nil, fmt.Errorf("video embed needs a video api")
		}
		ctx, cancel := context.WithCancel(context.Background())
		v := &videoAdapter{
			host:      host,
			logger:    host.Logger(),
			api:       api,
			ctx:       ctx,
			cancel:    cancel,
			firstPlay: true,
		}
		v.ready = newReadiness(host, opts, v.setup)
		return v, nil
	}
}

type videoAdapter struct {
	host   player.Host
	logger player.Logger
	api    VideoAPI
	ctx    context.Context
	cancel context.CancelFunc

	ready     *readiness
	player    VideoPlayer
	firstPlay bool
	// The player is created with the first requested video
	initialID string
}

func (v *videoAdapter) ID() player.BackendID { return player.VideoEmbed }

func (v *videoAdapter) ValidateURL(url string) error {
	if _, ok := ExtractVideoID(url); !ok {
		return fmt.Errorf("%w: no youtube video id in %q", player.ErrInvalidURL, url)
	}
	return nil
}

func (v *videoAdapter) PlayURL(url string) error {
	id, ok := ExtractVideoID(url)
	if !ok {
		return fmt.Errorf("%w: no youtube video id in %q", player.ErrInvalidURL, url)
	}
	v.playVideo(id)
	return nil
}

// setup loads the SDK off the loop, then creates the player.  Readiness is reached on the player's ready event.
func (v *videoAdapter) setup() {
	id := v.initialID
	go func() {
		err := v.api.Load(v.ctx)
		v.host.Post(func() {
			if err != nil {
				v.ready.fail(fmt.Errorf("loading youtube iframe api: %w", err))
				return
			}
			p, err := v.api.NewPlayer(id, VideoEvents{
				Ready:       func() { v.host.Post(v.onReady) },
				StateChange: func(s VideoState) { v.host.Post(func() { v.onStateChange(s) }) },
				Error:       func(code int) { v.host.Post(func() { v.onError(code) }) },
			})
			if err != nil {
				v.ready.fail(fmt.Errorf("creating youtube player: %w", err))
				return
			}
			v.player = p
		})
	}()
}

func (v *videoAdapter) playVideo(id string) {
	if v.initialID == "" {
		v.initialID = id
	}
	if !v.ready.await(func() { v.playVideo(id) }) {
		return
	}

	var err error
	if v.firstPlay && v.host.TouchMobile() {
		v.host.SetNotice(true)
		v.host.InteractionRequired()
		err = v.player.Cue(id, videoStartSeconds)
	} else {
		err = v.player.Load(id, videoStartSeconds)
	}
	if err != nil {
		v.host.SetState(player.StateStopped)
		v.host.Fail(fmt.Errorf("loading youtube video %s: %w", id, err))
	}
}

func (v *videoAdapter) onReady() {
	if v.player == nil {
		return
	}
	v.ready.markReady()
}

func (v *videoAdapter) onStateChange(s VideoState) {
	v.logger.Trace("Video state change", "state", s)
	switch s {
	case VideoPlaying:
		if v.firstPlay && v.host.TouchMobile() {
			v.host.SetNotice(false)
		}
		v.firstPlay = false
		v.host.SetState(player.StatePlaying)
		d, err := v.player.DurationMS()
		if err != nil {
			v.logger.Debug("Video duration unavailable", "error", err)
			return
		}
		v.host.SetDuration(d)
	case VideoPaused:
		v.host.SetState(player.StatePaused)
	case VideoBuffering:
		v.host.SetState(player.StateLoading)
	case VideoEnded:
		v.host.End()
	}
}

// onError is fatal for the backend while it is still initialising.  Afterwards it only ends the current video.
func (v *videoAdapter) onError(code int) {
	err := fmt.Errorf("youtube player error %d", code)
	if !v.ready.ready {
		v.ready.fail(err)
		return
	}
	if !v.host.Current() {
		return
	}
	v.host.SetState(player.StateStopped)
	v.host.Fail(err)
}

func (v *videoAdapter) usable() bool {
	return v.player != nil && v.ready.ready
}

func (v *videoAdapter) Play() error {
	if !v.usable() {
		return nil
	}
	return v.player.Play()
}

func (v *videoAdapter) Pause() error {
	if !v.usable() {
		return nil
	}
	return v.player.Pause()
}

func (v *videoAdapter) Stop() error {
	if !v.usable() {
		return nil
	}
	err := v.player.Stop()
	v.host.SetState(player.StateStopped)
	return err
}

func (v *videoAdapter) Seek(positionMS int64) error {
	if !v.usable() {
		return nil
	}
	return v.player.SeekTo(positionMS)
}

func (v *videoAdapter) Progress(report func(int64)) error {
	if !v.usable() {
		return nil
	}
	pos, err := v.player.CurrentTimeMS()
	if err != nil {
		return err
	}
	report(pos)
	return nil
}

func (v *videoAdapter) Close() error {
	v.cancel()
	return nil
}
