package embed

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/PizzaHomicide/crossplay/internal/backend"
	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

func TestRenderHostPage(t *testing.T) {
	html, err := renderHostPage("stage")
	require.NoError(t, err)

	assert.Contains(t, html, `<div id="stage">`)
	for _, id := range player.BackendIDs {
		assert.Contains(t, html, `id="stage-`+string(id)+`"`)
	}
	assert.Contains(t, html, "window.crossplayEvent(")
	assert.Contains(t, html, `mount: "stage"`)
}

func TestNewRequiresMountPoint(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, player.ErrMountPointRequired)
}

func TestRouterDispatch(t *testing.T) {
	r := newRouter()

	var got []string
	var data gson.JSON
	r.register("a", func(event string, d gson.JSON) {
		got = append(got, event)
		data = d
	})

	r.dispatch(gson.New(map[string]interface{}{"id": "a", "event": "state", "data": 2}))
	r.dispatch(gson.New(map[string]interface{}{"id": "unknown", "event": "ready"}))

	assert.Equal(t, []string{"state"}, got)
	assert.Equal(t, 2, data.Int())
}

func TestWidgetHandler(t *testing.T) {
	var got []string
	h := widgetHandler(backend.WidgetEvents{
		Ready:  func() { got = append(got, "ready") },
		Play:   func() { got = append(got, "play") },
		Pause:  func() { got = append(got, "pause") },
		Finish: func() { got = append(got, "finish") },
	})

	for _, ev := range []string{"ready", "play", "bogus", "pause", "finish"} {
		h(ev, gson.New(nil))
	}
	assert.Equal(t, []string{"ready", "play", "pause", "finish"}, got)
}

func TestVideoHandler(t *testing.T) {
	var (
		ready  bool
		states []backend.VideoState
		codes  []int
	)
	h := videoHandler(backend.VideoEvents{
		Ready:       func() { ready = true },
		StateChange: func(s backend.VideoState) { states = append(states, s) },
		Error:       func(code int) { codes = append(codes, code) },
	})

	h("ready", gson.New(nil))
	h("state", gson.New(1))
	h("state", gson.New(0))
	h("error", gson.New(150))

	assert.True(t, ready)
	assert.Equal(t, []backend.VideoState{backend.VideoPlaying, backend.VideoEnded}, states)
	assert.Equal(t, []int{150}, codes)

	// Missing callbacks are tolerated
	assert.NotPanics(t, func() { videoHandler(backend.VideoEvents{})("state", gson.New(1)) })
}

// TestHostInBrowser drives a real browser.  It needs one installed and is opt in.
func TestHostInBrowser(t *testing.T) {
	if testing.Short() || os.Getenv("CROSSPLAY_E2E_BROWSER") == "" {
		t.Skip("set CROSSPLAY_E2E_BROWSER to run browser tests")
	}

	h, err := New(context.Background(), Config{
		MountPoint: "stage",
		BrowserBin: os.Getenv("CROSSPLAY_E2E_BROWSER"),
		Logger:     log.Nop(),
	})
	require.NoError(t, err)
	defer h.Close()

	h.Show(player.VideoEmbed)
	v, err := h.eval(`() => document.getElementById('stage-youtube').style.display`)
	require.NoError(t, err)
	assert.Equal(t, "block", v.Str())
	v, err = h.eval(`() => document.getElementById('stage-soundcloud').style.display`)
	require.NoError(t, err)
	assert.Equal(t, "none", v.Str())

	h.SetNotice(player.VideoEmbed, true)
	v, err = h.eval(`() => document.querySelector('#stage-youtube .crossplay-notice').style.display`)
	require.NoError(t, err)
	assert.Equal(t, "flex", v.Str())

	// Events emitted by page scripts reach the registered element handler
	var mu sync.Mutex
	var events []string
	h.router.register("ping", func(event string, _ gson.JSON) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})
	_, err = h.eval(`() => { window.crossplay.emit('ping', 'ready'); return true; }`)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1 && events[0] == "ready"
	}, 5*time.Second, 10*time.Millisecond)
}
