package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/player"
	"github.com/PizzaHomicide/crossplay/internal/soundcloud"
)

const waitFor = 2 * time.Second

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, waitFor, 5*time.Millisecond, msg)
}

// journal is a goroutine safe call log
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) record(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (j *journal) count(call string) int {
	n := 0
	for _, c := range j.list() {
		if c == call {
			n++
		}
	}
	return n
}

func (j *journal) has(call string) bool {
	for _, c := range j.list() {
		if c == call {
			return true
		}
	}
	return false
}

type fakeElement struct {
	journal
	mu       sync.Mutex
	handler  func(AudioEvent)
	position int64
	duration int64
	// starting blocks Unlock and Load until closed, like a process that is slow to come up
	starting chan struct{}
	loadErr  error
}

func (e *fakeElement) start() {
	if e.starting != nil {
		<-e.starting
	}
}

func (e *fakeElement) Unlock() error {
	e.start()
	e.record("unlock")
	return nil
}

func (e *fakeElement) Load(src string) error {
	e.start()
	e.record("load:%s", src)
	return e.loadErr
}

func (e *fakeElement) Play() error           { e.record("play"); return nil }
func (e *fakeElement) Pause() error          { e.record("pause"); return nil }
func (e *fakeElement) Unload() error         { e.record("unload"); return nil }
func (e *fakeElement) Close() error          { e.record("close"); return nil }

func (e *fakeElement) Seek(positionMS int64) error {
	e.record("seek:%d", positionMS)
	return nil
}

func (e *fakeElement) Position() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position, nil
}

func (e *fakeElement) Duration() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration, nil
}

func (e *fakeElement) OnEvent(fn func(AudioEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = fn
}

func (e *fakeElement) emit(ev AudioEvent) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

// elementPool hands out one fake element per backend name
type elementPool struct {
	mu       sync.Mutex
	els      map[string]*fakeElement
	starting chan struct{}
	loadErr  error
}

func newElementPool() *elementPool {
	return &elementPool{els: make(map[string]*fakeElement)}
}

func (p *elementPool) factory(name string) (AudioElement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &fakeElement{duration: 200000, starting: p.starting, loadErr: p.loadErr}
	p.els[name] = el
	return el, nil
}

func (p *elementPool) get(name string) *fakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.els[name]
}

type fakeWidget struct {
	journal
	mu       sync.Mutex
	position int64
	sound    Sound
}

func (w *fakeWidget) Load(url string, autoPlay bool) error {
	w.record("load:%s:%t", url, autoPlay)
	return nil
}

func (w *fakeWidget) Play() error  { w.record("play"); return nil }
func (w *fakeWidget) Pause() error { w.record("pause"); return nil }

func (w *fakeWidget) SeekTo(positionMS int64) error {
	w.record("seek:%d", positionMS)
	return nil
}

func (w *fakeWidget) Position() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position, nil
}

func (w *fakeWidget) CurrentSound() (Sound, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sound, nil
}

type fakeWidgetAPI struct {
	mu      sync.Mutex
	release chan struct{}
	loadErr error
	widget  *fakeWidget
	events  WidgetEvents
	created []string
}

func (a *fakeWidgetAPI) Load(ctx context.Context) error {
	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return a.loadErr
}

func (a *fakeWidgetAPI) Create(url string, events WidgetEvents) (Widget, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, url)
	a.events = events
	a.widget = &fakeWidget{position: 1000, sound: Sound{ID: 1, Title: "Song", DurationMS: 240000}}
	return a.widget, nil
}

func (a *fakeWidgetAPI) state() (*fakeWidget, WidgetEvents, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.widget, a.events, len(a.created)
}

type fakeVideoPlayer struct {
	journal
	mu       sync.Mutex
	position int64
}

func (p *fakeVideoPlayer) Load(id string, _ float64) error { p.record("load:%s", id); return nil }
func (p *fakeVideoPlayer) Cue(id string, _ float64) error  { p.record("cue:%s", id); return nil }
func (p *fakeVideoPlayer) Play() error                     { p.record("play"); return nil }
func (p *fakeVideoPlayer) Pause() error                    { p.record("pause"); return nil }
func (p *fakeVideoPlayer) Stop() error                     { p.record("stop"); return nil }
func (p *fakeVideoPlayer) DurationMS() (int64, error)      { return 180000, nil }

func (p *fakeVideoPlayer) SeekTo(positionMS int64) error {
	p.record("seek:%d", positionMS)
	return nil
}

func (p *fakeVideoPlayer) CurrentTimeMS() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, nil
}

type fakeVideoAPI struct {
	mu        sync.Mutex
	release   chan struct{}
	loadErr   error
	player    *fakeVideoPlayer
	events    VideoEvents
	createdID []string
}

func (a *fakeVideoAPI) Load(ctx context.Context) error {
	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return a.loadErr
}

func (a *fakeVideoAPI) NewPlayer(videoID string, events VideoEvents) (VideoPlayer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.createdID = append(a.createdID, videoID)
	a.events = events
	a.player = &fakeVideoPlayer{}
	return a.player, nil
}

func (a *fakeVideoAPI) state() (*fakeVideoPlayer, VideoEvents, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.player, a.events, len(a.createdID)
}

type fakeResolver struct {
	release chan struct{}
	track   soundcloud.Track
	err     error
}

func (r *fakeResolver) Resolve(ctx context.Context, _ string) (soundcloud.Track, error) {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return soundcloud.Track{}, ctx.Err()
		}
	}
	return r.track, r.err
}

func (r *fakeResolver) StreamURLWithClientID(t soundcloud.Track) string {
	return t.StreamURL + "?client_id=test"
}

type noticeSurface struct {
	mu      sync.Mutex
	shown   []player.BackendID
	notices map[player.BackendID]bool
}

func (s *noticeSurface) Show(id player.BackendID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, id)
}

func (s *noticeSurface) SetNotice(id player.BackendID, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notices == nil {
		s.notices = make(map[player.BackendID]bool)
	}
	s.notices[id] = visible
}

func (s *noticeSurface) notice(id player.BackendID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notices[id]
}

// recorder collects every notification the orchestrator publishes
type recorder struct {
	mu    sync.Mutex
	notes []player.Notification
}

func (r *recorder) handle(n player.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) all(ev player.Event) []player.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []player.Notification
	for _, n := range r.notes {
		if n.Event == ev {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) count(ev player.Event) int { return len(r.all(ev)) }

func (r *recorder) lastProgress() int64 {
	ps := r.all(player.EventProgress)
	if len(ps) == 0 {
		return -1
	}
	return ps[len(ps)-1].Progress.ElapsedMS
}

func (r *recorder) hasProgress(elapsedMS int64) bool {
	for _, n := range r.all(player.EventProgress) {
		if n.Progress.ElapsedMS == elapsedMS {
			return true
		}
	}
	return false
}

func (r *recorder) firstError() error {
	errs := r.all(player.EventError)
	if len(errs) == 0 {
		return nil
	}
	return errs[0].Err
}

type fixture struct {
	o        *player.Orchestrator
	rec      *recorder
	pool     *elementPool
	widget   *fakeWidgetAPI
	video    *fakeVideoAPI
	resolver *fakeResolver
	surface  *noticeSurface
}

func newFixture(t *testing.T, mutate func(*player.Options, *fixture)) *fixture {
	t.Helper()
	f := &fixture{
		rec:      &recorder{},
		pool:     newElementPool(),
		widget:   &fakeWidgetAPI{},
		video:    &fakeVideoAPI{},
		resolver: &fakeResolver{},
		surface:  &noticeSurface{},
	}

	opts := player.DefaultOptions("test")
	opts.ProgressInterval = 10 * time.Millisecond
	opts.RetryBackoff = 10 * time.Millisecond
	opts.ReadyTimeout = time.Second
	opts.SeekMaskWindow = 100 * time.Millisecond
	opts.Logger = log.Nop()
	opts.Surface = f.surface
	if mutate != nil {
		mutate(&opts, f)
	}

	o, err := player.New(opts, map[player.BackendID]player.Factory{
		player.StreamingWidget: NewStreamingWidget(StreamingConfig{
			Resolver:   f.resolver,
			NewElement: f.pool.factory,
			WidgetAPI:  f.widget,
		}),
		player.VideoEmbed: NewVideoEmbed(f.video),
		player.DirectLink: NewDirectLink(f.pool.factory),
		player.CloudFile:  NewCloudFile(f.pool.factory),
	})
	require.NoError(t, err)
	o.Observe(f.rec.handle)
	t.Cleanup(func() { _ = o.Close() })
	f.o = o
	return f
}

func (f *fixture) state() player.State { return f.o.State().State }

func (f *fixture) waitState(t *testing.T, s player.State) {
	t.Helper()
	eventually(t, func() bool { return f.state() == s }, "waiting for state "+s.String())
}

var errBoom = errors.New("boom")
