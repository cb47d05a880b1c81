package embed

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/devices"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/ysmood/gson"

	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

// bindingName is the function exposed to the page.  Every vendor callback is forwarded through it.
const bindingName = "crossplayEvent"

const defaultCommandTimeout = 5 * time.Second

// Config configures the browser that hosts the vendor players
type Config struct {
	MountPoint string
	// BrowserBin overrides the browser binary, otherwise rod downloads or finds one
	BrowserBin string
	// ControlURL connects to an already running browser instead of launching one
	ControlURL string
	// Show runs the browser with a visible window
	Show bool
	// TouchMobile emulates a touch phone so vendor players apply their mobile restrictions
	TouchMobile    bool
	CommandTimeout time.Duration
	Logger         *log.Logger
}

// Host is a browser page that holds one container per backend inside the mount point.  It renders the vendor widget
// and iframe players for the streaming and video backends.
type Host struct {
	cfg      Config
	logger   *log.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	unbind   func() error
	router   *router
}

// New launches (or connects to) a browser and loads the host page
func New(ctx context.Context, cfg Config) (*Host, error) {
	if cfg.MountPoint == "" {
		return nil, player.ErrMountPointRequired
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.L()
	}

	h := &Host{
		cfg:    cfg,
		logger: logger.With("component", "embed"),
		router: newRouter(),
	}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(!cfg.Show).
			Set("autoplay-policy", "no-user-gesture-required")
		if cfg.BrowserBin != "" {
			l = l.Bin(cfg.BrowserBin)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		h.launcher = l
		controlURL = u
	}
	h.logger.Debug("Connecting to browser", "control_url", controlURL)

	h.browser = rod.New().ControlURL(controlURL)
	if err := h.browser.Connect(); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := h.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to open host page: %w", err)
	}
	h.page = page

	if cfg.TouchMobile {
		if err := page.Emulate(devices.IPhoneX); err != nil {
			h.Close()
			return nil, fmt.Errorf("failed to emulate touch device: %w", err)
		}
	}

	unbind, err := page.Expose(bindingName, func(payload gson.JSON) (interface{}, error) {
		h.router.dispatch(payload)
		return nil, nil
	})
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to expose event binding: %w", err)
	}
	h.unbind = unbind

	html, err := renderHostPage(cfg.MountPoint)
	if err != nil {
		h.Close()
		return nil, err
	}
	if err := page.SetDocumentContent(html); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to load host page: %w", err)
	}

	h.logger.Info("Embed host ready", "mount_point", cfg.MountPoint, "touch_mobile", cfg.TouchMobile)
	return h, nil
}

// Show makes the backend's container the only visible one
func (h *Host) Show(id player.BackendID) {
	if _, err := h.eval(`(id) => window.crossplay.show(id)`, string(id)); err != nil {
		h.logger.Warn("Failed to switch container", "backend", id, "error", err)
	}
}

// SetNotice toggles the "tap to play" notice inside a backend's container
func (h *Host) SetNotice(id player.BackendID, visible bool) {
	if _, err := h.eval(`(id, visible) => window.crossplay.notice(id, visible)`, string(id), visible); err != nil {
		h.logger.Warn("Failed to toggle notice", "backend", id, "error", err)
	}
}

// Widgets returns the streaming widget API hosted by this page
func (h *Host) Widgets() *WidgetAPI { return &WidgetAPI{host: h} }

// Videos returns the video iframe API hosted by this page
func (h *Host) Videos() *VideoAPI { return &VideoAPI{host: h} }

// Close closes the page and the browser, if it was launched by the host
func (h *Host) Close() error {
	var firstErr error
	if h.unbind != nil {
		_ = h.unbind()
	}
	if h.browser != nil {
		if h.launcher != nil {
			firstErr = h.browser.Close()
		} else if h.page != nil {
			firstErr = h.page.Close()
		}
	}
	if h.launcher != nil {
		h.launcher.Cleanup()
	}
	return firstErr
}

// eval runs a JavaScript function on the page with the command timeout applied
func (h *Host) eval(js string, args ...interface{}) (gson.JSON, error) {
	return h.evalCtx(context.Background(), js, args...)
}

func (h *Host) evalCtx(ctx context.Context, js string, args ...interface{}) (gson.JSON, error) {
	if h.page == nil {
		return gson.New(nil), fmt.Errorf("embed host has no page")
	}
	p := h.page.Context(ctx).Timeout(h.cfg.CommandTimeout)
	defer p.CancelTimeout()
	res, err := p.Eval(js, args...)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

// newElementID returns a unique DOM id for a vendor player
func newElementID(kind string) string {
	return "crossplay-" + kind + "-" + uuid.NewString()
}

// router forwards events coming from the page to the Go side handler registered for the element
type router struct {
	mu       sync.RWMutex
	handlers map[string]func(event string, data gson.JSON)
}

func newRouter() *router {
	return &router{handlers: make(map[string]func(string, gson.JSON))}
}

func (r *router) register(id string, fn func(event string, data gson.JSON)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = fn
}

func (r *router) dispatch(payload gson.JSON) {
	id := payload.Get("id").Str()
	r.mu.RLock()
	fn, ok := r.handlers[id]
	r.mu.RUnlock()
	if !ok {
		log.Debug("Event for unknown element", "id", id)
		return
	}
	fn(payload.Get("event").Str(), payload.Get("data"))
}

var hostPage = template.Must(template.New("host").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
  .crossplay-container { position: relative; width: 100%; height: 100%; }
  .crossplay-container iframe { border: 0; width: 100%; height: 100%; }
  .crossplay-notice { display: none; position: absolute; inset: 0; align-items: center; justify-content: center; pointer-events: none; }
</style>
</head>
<body>
<div id="{{.MountPoint}}">
{{- range .Backends}}
  <div id="{{$.MountPoint}}-{{.}}" class="crossplay-container" data-backend="{{.}}" style="display:none">
    <div class="crossplay-notice">Tap to play</div>
  </div>
{{- end}}
</div>
<script>
window.crossplay = {
  mount: {{.MountPoint}},
  widgets: {},
  videos: {},
  container(id) { return document.getElementById(this.mount + '-' + id); },
  show(id) {
    document.querySelectorAll('.crossplay-container').forEach(c => {
      c.style.display = c.dataset.backend === id ? 'block' : 'none';
    });
  },
  notice(id, visible) {
    const n = this.container(id).querySelector('.crossplay-notice');
    n.style.display = visible ? 'flex' : 'none';
  },
  emit(id, event, data) {
    window.{{.Binding}}({id: id, event: event, data: data === undefined ? null : data});
  },
  loadScript(src) {
    return new Promise((resolve, reject) => {
      const s = document.createElement('script');
      s.src = src;
      s.onload = () => resolve(true);
      s.onerror = () => reject(new Error('failed to load ' + src));
      document.head.appendChild(s);
    });
  },
};
</script>
</body>
</html>
`))

func renderHostPage(mountPoint string) (string, error) {
	var buf bytes.Buffer
	err := hostPage.Execute(&buf, struct {
		MountPoint string
		Backends   []player.BackendID
		Binding    template.JS
	}{
		MountPoint: mountPoint,
		Backends:   player.BackendIDs,
		Binding:    template.JS(bindingName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render host page: %w", err)
	}
	return buf.String(), nil
}
