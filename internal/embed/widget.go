package embed

import (
	"context"
	"fmt"

	"github.com/ysmood/gson"

	"github.com/PizzaHomicide/crossplay/internal/backend"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

const widgetScriptURL = "https://w.soundcloud.com/player/api.js"

// WidgetAPI hosts soundcloud widgets on the page
type WidgetAPI struct {
	host *Host
}

// Load injects the widget script once and waits for it
func (a *WidgetAPI) Load(ctx context.Context) error {
	_, err := a.host.evalCtx(ctx, `(src) => (window.SC && window.SC.Widget) ? true : window.crossplay.loadScript(src)`, widgetScriptURL)
	if err != nil {
		return fmt.Errorf("failed to load widget script: %w", err)
	}
	return nil
}

// Create embeds a widget iframe for url in the streaming container and binds its events
func (a *WidgetAPI) Create(url string, events backend.WidgetEvents) (backend.Widget, error) {
	id := newElementID("sc")
	a.host.router.register(id, widgetHandler(events))

	_, err := a.host.eval(`(id, backend, url) => {
		const iframe = document.createElement('iframe');
		iframe.id = id;
		iframe.allow = 'autoplay';
		iframe.src = 'https://w.soundcloud.com/player/?url=' + encodeURIComponent(url);
		window.crossplay.container(backend).appendChild(iframe);
		const w = SC.Widget(iframe);
		const E = SC.Widget.Events;
		w.bind(E.READY, () => window.crossplay.emit(id, 'ready'));
		w.bind(E.PLAY, () => window.crossplay.emit(id, 'play'));
		w.bind(E.PAUSE, () => window.crossplay.emit(id, 'pause'));
		w.bind(E.FINISH, () => window.crossplay.emit(id, 'finish'));
		window.crossplay.widgets[id] = w;
		return true;
	}`, id, string(player.StreamingWidget), url)
	if err != nil {
		return nil, fmt.Errorf("failed to create widget: %w", err)
	}
	a.host.logger.Debug("Widget created", "id", id, "url", url)
	return &widget{host: a.host, id: id}, nil
}

// widgetHandler maps widget events coming from the page onto the backend callbacks
func widgetHandler(events backend.WidgetEvents) func(string, gson.JSON) {
	return func(event string, _ gson.JSON) {
		var fn func()
		switch event {
		case "ready":
			fn = events.Ready
		case "play":
			fn = events.Play
		case "pause":
			fn = events.Pause
		case "finish":
			fn = events.Finish
		}
		if fn != nil {
			fn()
		}
	}
}

type widget struct {
	host *Host
	id   string
}

func (w *widget) call(method string, args ...interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	_, err := w.host.eval(`(id, method, args) => { window.crossplay.widgets[id][method](...args); return true; }`, w.id, method, args)
	return err
}

// getter resolves one of the widget's callback style getters
func (w *widget) getter(method string) (gson.JSON, error) {
	return w.host.eval(`(id, method) => new Promise(resolve => window.crossplay.widgets[id][method](resolve))`, w.id, method)
}

func (w *widget) Load(url string, autoPlay bool) error {
	return w.call("load", url, map[string]interface{}{"auto_play": autoPlay})
}

func (w *widget) Play() error  { return w.call("play") }
func (w *widget) Pause() error { return w.call("pause") }

func (w *widget) SeekTo(positionMS int64) error { return w.call("seekTo", positionMS) }

func (w *widget) Position() (int64, error) {
	v, err := w.getter("getPosition")
	if err != nil {
		return 0, err
	}
	return int64(v.Num()), nil
}

func (w *widget) CurrentSound() (backend.Sound, error) {
	v, err := w.getter("getCurrentSound")
	if err != nil {
		return backend.Sound{}, err
	}
	if v.Nil() {
		return backend.Sound{}, fmt.Errorf("widget has no current sound")
	}
	return backend.Sound{
		ID:           int64(v.Get("id").Int()),
		Title:        v.Get("title").Str(),
		DurationMS:   int64(v.Get("duration").Num()),
		PermalinkURL: v.Get("permalink_url").Str(),
	}, nil
}
