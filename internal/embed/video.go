package embed

import (
	"context"
	"fmt"

	"github.com/ysmood/gson"

	"github.com/PizzaHomicide/crossplay/internal/backend"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

const iframeAPIURL = "https://www.youtube.com/iframe_api"

// VideoAPI hosts youtube iframe players on the page
type VideoAPI struct {
	host *Host
}

// Load injects the iframe API and resolves once it called onYouTubeIframeAPIReady
func (a *VideoAPI) Load(ctx context.Context) error {
	_, err := a.host.evalCtx(ctx, `(src) => {
		if (window.YT && window.YT.Player) return true;
		return new Promise((resolve, reject) => {
			const prev = window.onYouTubeIframeAPIReady;
			window.onYouTubeIframeAPIReady = () => { if (prev) prev(); resolve(true); };
			window.crossplay.loadScript(src).catch(reject);
		});
	}`, iframeAPIURL)
	if err != nil {
		return fmt.Errorf("failed to load iframe api: %w", err)
	}
	return nil
}

// NewPlayer creates a player for videoID in the video container.  Readiness is signalled through events.Ready.
func (a *VideoAPI) NewPlayer(videoID string, events backend.VideoEvents) (backend.VideoPlayer, error) {
	id := newElementID("yt")
	a.host.router.register(id, videoHandler(events))

	_, err := a.host.eval(`(id, backend, videoId) => {
		const el = document.createElement('div');
		el.id = id;
		window.crossplay.container(backend).appendChild(el);
		window.crossplay.videos[id] = new YT.Player(id, {
			videoId: videoId,
			width: '100%',
			height: '100%',
			playerVars: { controls: 0, rel: 0, playsinline: 1 },
			events: {
				onReady: () => window.crossplay.emit(id, 'ready'),
				onStateChange: e => window.crossplay.emit(id, 'state', e.data),
				onError: e => window.crossplay.emit(id, 'error', e.data),
			},
		});
		return true;
	}`, id, string(player.VideoEmbed), videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to create video player: %w", err)
	}
	a.host.logger.Debug("Video player created", "id", id, "video_id", videoID)
	return &videoPlayer{host: a.host, id: id}, nil
}

func videoHandler(events backend.VideoEvents) func(string, gson.JSON) {
	return func(event string, data gson.JSON) {
		switch event {
		case "ready":
			if events.Ready != nil {
				events.Ready()
			}
		case "state":
			if events.StateChange != nil {
				events.StateChange(backend.VideoState(data.Int()))
			}
		case "error":
			if events.Error != nil {
				events.Error(data.Int())
			}
		}
	}
}

type videoPlayer struct {
	host *Host
	id   string
}

func (p *videoPlayer) call(method string, args ...interface{}) (gson.JSON, error) {
	if args == nil {
		args = []interface{}{}
	}
	return p.host.eval(`(id, method, args) => window.crossplay.videos[id][method](...args)`, p.id, method, args)
}

// exec calls a method whose result is discarded, some return the player itself which cannot be serialised
func (p *videoPlayer) exec(method string, args ...interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	_, err := p.host.eval(`(id, method, args) => { window.crossplay.videos[id][method](...args); return true; }`, p.id, method, args)
	return err
}

func (p *videoPlayer) Load(videoID string, startSeconds float64) error {
	return p.exec("loadVideoById", videoID, startSeconds, "small")
}

func (p *videoPlayer) Cue(videoID string, startSeconds float64) error {
	return p.exec("cueVideoById", videoID, startSeconds, "small")
}

func (p *videoPlayer) Play() error  { return p.exec("playVideo") }
func (p *videoPlayer) Pause() error { return p.exec("pauseVideo") }
func (p *videoPlayer) Stop() error  { return p.exec("stopVideo") }

func (p *videoPlayer) SeekTo(positionMS int64) error {
	return p.exec("seekTo", float64(positionMS)/1000, true)
}

func (p *videoPlayer) CurrentTimeMS() (int64, error) {
	v, err := p.call("getCurrentTime")
	if err != nil {
		return 0, err
	}
	return int64(v.Num() * 1000), nil
}

func (p *videoPlayer) DurationMS() (int64, error) {
	v, err := p.call("getDuration")
	if err != nil {
		return 0, err
	}
	return int64(v.Num() * 1000), nil
}
