package crossplay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/crossplay/internal/config"
	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

// scripted is a backend the test drives by hand through its host
type scripted struct {
	id   BackendID
	host player.Host
	mu   *sync.Mutex
	log  *[]string
}

func (s *scripted) ID() BackendID { return s.id }

func (s *scripted) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.log = append(*s.log, string(s.id)+":"+call)
}

func (s *scripted) PlayURL(string) error         { s.record("playurl"); return nil }
func (s *scripted) Play() error                  { s.record("play"); s.host.SetState(player.StatePlaying); return nil }
func (s *scripted) Pause() error                 { s.record("pause"); s.host.SetState(player.StatePaused); return nil }
func (s *scripted) Stop() error                  { s.record("stop"); return nil }
func (s *scripted) Seek(int64) error             { s.record("seek"); return nil }
func (s *scripted) Progress(r func(int64)) error { r(1234); return nil }

type fixture struct {
	p     *Player
	hosts map[BackendID]player.Host
	mu    sync.Mutex
	calls []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{hosts: make(map[BackendID]player.Host)}
	factories := make(map[BackendID]player.Factory)
	for _, id := range player.BackendIDs {
		id := id
		factories[id] = func(host player.Host, _ player.Options) (player.Backend, error) {
			f.hosts[id] = host
			return &scripted{id: id, host: host, mu: &f.mu, log: &f.calls}, nil
		}
	}
	opts := DefaultOptions("test")
	opts.ProgressInterval = 10 * time.Millisecond
	opts.Logger = log.Nop()

	p, err := New(opts, factories)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	f.p = p
	return f
}

// report runs fn on the player's loop, where backends live
func (f *fixture) report(id BackendID, fn func(h player.Host)) {
	h := f.hosts[id]
	done := make(chan struct{})
	h.Post(func() {
		fn(h)
		close(done)
	})
	<-done
}

func TestNewRequiresMountPoint(t *testing.T) {
	_, err := New(Options{}, nil)
	assert.ErrorIs(t, err, ErrMountPointRequired)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, VideoEmbed, Classify("https://youtu.be/abc123"))
	assert.Equal(t, VideoEmbed, Classify("https://www.youtube.com/watch?v=abc123"))
	assert.Equal(t, StreamingWidget, Classify("https://soundcloud.com/x/y"))
	assert.Equal(t, CloudFile, Classify("https://www.dropbox.com/s/x/file.mp3?dl=0"))
	assert.Equal(t, DirectLink, Classify("not a url"))
}

func TestTypedSubscriptions(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var got []string
	add := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	}
	seen := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}

	f.p.OnLoading(func() { add("loading") })
	f.p.OnPlaying(func() { add("playing") })
	f.p.OnPaused(func() { add("paused") })
	f.p.OnStopped(func() { add("stopped") })
	f.p.OnEnded(func() { add("ended") })
	f.p.OnTrackData(func(d TrackData) { add("track:" + d.Title) })
	f.p.OnInteractionRequired(func(id BackendID) { add("interaction:" + string(id)) })
	f.p.OnError(func(err error) { add("error:" + err.Error()) })

	progress := make(chan Progress, 100)
	f.p.OnProgress(func(p Progress) {
		select {
		case progress <- p:
		default:
		}
	})

	id, err := f.p.PlayURL("https://soundcloud.com/x/y")
	require.NoError(t, err)
	assert.Equal(t, StreamingWidget, id)

	f.report(StreamingWidget, func(h player.Host) {
		h.TrackData(player.TrackData{Title: "Song"})
		h.InteractionRequired()
		h.SetDuration(5000)
		h.SetState(player.StatePlaying)
	})

	select {
	case p := <-progress:
		assert.Equal(t, int64(1234), p.ElapsedMS)
		assert.Equal(t, int64(5000), p.DurationMS)
	case <-time.After(time.Second):
		t.Fatal("no progress")
	}

	require.NoError(t, f.p.TogglePlayPause())
	f.report(StreamingWidget, func(h player.Host) {
		h.End()
		h.Fail(errors.New("boom"))
	})

	want := []string{"loading", "track:Song", "interaction:soundcloud", "playing", "paused", "stopped", "ended", "error:boom"}
	require.Eventually(t, func() bool { return len(seen()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, seen())
}

func TestHandlersCanBeCleared(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	count := 0
	f.p.OnLoading(func() {
		mu.Lock()
		defer mu.Unlock()
		count++
	})
	f.p.OnLoading(nil)

	_, err := f.p.PlayURL("https://example.com/a.mp3")
	require.NoError(t, err)
	// State queues behind the notification
	assert.Equal(t, StateLoading, f.p.State().State)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}

func TestControlsReachCurrentBackend(t *testing.T) {
	f := newFixture(t)

	_, err := f.p.PlayURL("https://example.com/a.mp3")
	require.NoError(t, err)
	require.NoError(t, f.p.Seek(1000))
	require.NoError(t, f.p.Pause())
	require.NoError(t, f.p.Play())
	require.NoError(t, f.p.Stop())

	snap := f.p.State()
	assert.Equal(t, StateStopped, snap.State)
	assert.Equal(t, DirectLink, snap.Backend)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"weblink:playurl", "weblink:seek", "weblink:pause", "weblink:play", "weblink:stop"}, f.calls)
}

func TestCloseIsFinal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.p.Close())

	_, err := f.p.PlayURL("https://example.com/a.mp3")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.p.Play(), ErrClosed)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Player: config.PlayerConfig{
			MountPoint:       "stage",
			ProgressInterval: 250 * time.Millisecond,
			DisabledBackends: []string{"youtube", "dropbox"},
			TouchMobile:      true,
			RetryBackoff:     100 * time.Millisecond,
			ReadyTimeout:     3 * time.Second,
			SeekMaskWindow:   time.Second,
		},
		SoundCloud: config.SoundCloudConfig{ClientID: "abc"},
	}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "stage", opts.MountPoint)
	assert.Equal(t, 250*time.Millisecond, opts.ProgressInterval)
	assert.True(t, opts.EnableStreamingWidget)
	assert.False(t, opts.EnableVideoEmbed)
	assert.True(t, opts.EnableDirectLink)
	assert.False(t, opts.EnableCloudFile)
	assert.Equal(t, "abc", opts.StreamingClientID)
	assert.True(t, opts.TouchMobile)
	assert.Equal(t, 100*time.Millisecond, opts.RetryBackoff)
	assert.Equal(t, 3*time.Second, opts.ReadyTimeout)
	assert.Equal(t, time.Second, opts.SeekMaskWindow)

	cfg.Player.DisableSeekMask = true
	assert.Zero(t, OptionsFromConfig(cfg).SeekMaskWindow)
}

func TestFromConfigWithoutBrowser(t *testing.T) {
	cfg := &config.Config{
		Player: config.PlayerConfig{MountPoint: "stage"},
		Embed:  config.EmbedConfig{Disabled: true},
		Audio:  config.AudioConfig{Path: "crossplay-test-no-such-mpv"},
	}

	p, err := FromConfig(context.Background(), cfg, log.Nop())
	require.NoError(t, err)
	defer p.Close()

	_, err = p.PlayURL("https://youtu.be/abc123")
	assert.ErrorIs(t, err, ErrBackendDisabled)
	_, err = p.PlayURL("https://soundcloud.com/x/y")
	assert.ErrorIs(t, err, ErrBackendDisabled)
}

func TestFromConfigRequiresMountPoint(t *testing.T) {
	_, err := FromConfig(context.Background(), &config.Config{}, log.Nop())
	assert.ErrorIs(t, err, ErrMountPointRequired)
}
