package models

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/crossplay/internal/events"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

type fakeController struct {
	mu    sync.Mutex
	calls []string
	err   error
	snap  player.Snapshot
}

func (f *fakeController) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeController) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) PlayURL(url string) (player.BackendID, error) {
	if err := f.record("playurl:" + url); err != nil {
		return "", err
	}
	return player.Classify(url), nil
}

func (f *fakeController) Play() error            { return f.record("play") }
func (f *fakeController) Pause() error           { return f.record("pause") }
func (f *fakeController) TogglePlayPause() error { return f.record("toggle") }
func (f *fakeController) Stop() error            { return f.record("stop") }
func (f *fakeController) Seek(ms int64) error    { return f.record(fmt.Sprintf("seek:%d", ms)) }
func (f *fakeController) State() player.Snapshot { return f.snap }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestApp(t *testing.T, ctrl *fakeController, opts Options) (AppModel, events.Subscriber) {
	t.Helper()
	sub := make(events.Subscriber, 8)
	m := NewAppModel(ctrl, sub, opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(AppModel), sub
}

// update feeds msg to the model and runs the resulting command, if any.  After a NotificationMsg that command waits on
// the subscriber, so use notify unless a notification is already queued.
func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	if cmd == nil {
		return next.(AppModel), nil
	}
	return next.(AppModel), cmd()
}

// notify applies a player notification without waiting for the next one
func notify(t *testing.T, m AppModel, n player.Notification) AppModel {
	t.Helper()
	next, cmd := m.Update(NotificationMsg{Notification: n})
	require.NotNil(t, cmd, "the app keeps listening")
	return next.(AppModel)
}

func TestNowPlayingApply(t *testing.T) {
	m := NewNowPlayingModel(player.Snapshot{})
	m.Resize(80, 24)
	assert.Contains(t, m.View(), "Nothing loaded")

	m.Apply(player.Notification{Event: player.EventLoading, Backend: player.StreamingWidget, State: player.StateLoading})
	m.Apply(player.Notification{Event: player.EventTrackData, State: player.StateLoading, TrackData: &player.TrackData{Title: "Song", Artist: "Band", DurationMS: 240000}})
	m.Apply(player.Notification{Event: player.EventInteractionRequired, State: player.StateLoading})
	assert.Equal(t, player.StateLoading, m.State())
	assert.Contains(t, m.View(), "Tap the player page")

	m.Apply(player.Notification{Event: player.EventPlaying, State: player.StatePlaying})
	m.Apply(player.Notification{Event: player.EventProgress, State: player.StatePlaying, Progress: &player.Progress{ElapsedMS: 65000, DurationMS: 240000}})
	elapsed, duration := m.Position()
	assert.Equal(t, int64(65000), elapsed)
	assert.Equal(t, int64(240000), duration)

	view := m.View()
	assert.Contains(t, view, "Song")
	assert.Contains(t, view, "Band")
	assert.Contains(t, view, "1:05 / 4:00")
	assert.NotContains(t, view, "Tap the player page")

	m.Apply(player.Notification{Event: player.EventError, State: player.StatePlaying, Error: "decode failed"})
	assert.Contains(t, m.View(), "decode failed")

	m.Apply(player.Notification{Event: player.EventLoading, Backend: player.DirectLink, State: player.StateLoading})
	view = m.View()
	assert.NotContains(t, view, "Song", "track data belongs to the previous URL")
	assert.NotContains(t, view, "decode failed")
}

func TestNowPlayingKeys(t *testing.T) {
	ctrl := &fakeController{}
	m, _ := newTestApp(t, ctrl, Options{})

	m = notify(t, m, player.Notification{
		Event:    player.EventProgress,
		State:    player.StatePlaying,
		Progress: &player.Progress{ElapsedMS: 5000, DurationMS: 12000},
	})

	m, msg := update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Nil(t, msg)
	m, _ = update(t, m, runes("s"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})

	assert.Equal(t, []string{"toggle", "stop", "seek:12000", "seek:0"}, ctrl.list())

	_, msg = update(t, m, runes("q"))
	assert.Equal(t, tea.QuitMsg{}, msg)
}

func TestNotificationsKeepListening(t *testing.T) {
	ctrl := &fakeController{}
	m, sub := newTestApp(t, ctrl, Options{})

	sub <- player.Notification{Event: player.EventPaused, State: player.StatePaused}
	m, msg := update(t, m, NotificationMsg{Notification: player.Notification{Event: player.EventPlaying, State: player.StatePlaying}})
	assert.Equal(t, player.StatePlaying, m.nowPlaying.State())
	require.IsType(t, NotificationMsg{}, msg, "the next notification is awaited")
	assert.Equal(t, player.EventPaused, msg.(NotificationMsg).Notification.Event)

	close(sub)
	_, msg = update(t, m, msg)
	assert.Equal(t, BusClosedMsg{}, msg)
	_, msg = update(t, m, BusClosedMsg{})
	assert.Equal(t, tea.QuitMsg{}, msg)
}

func TestOpenURLFlow(t *testing.T) {
	ctrl := &fakeController{}
	var mu sync.Mutex
	var remembered []string
	m, _ := newTestApp(t, ctrl, Options{Remember: func(url string) error {
		mu.Lock()
		defer mu.Unlock()
		remembered = append(remembered, url)
		return nil
	}})

	next, _ := m.Update(runes("o"))
	m = next.(AppModel)
	assert.Equal(t, ModalOpenURL, m.activeModal)

	// Keys go to the prompt, not the player controls
	next, _ = m.Update(runes("https://youtu.be/abc"))
	m = next.(AppModel)
	assert.Empty(t, ctrl.list())
	assert.Contains(t, m.View(), "Plays with")
	assert.Contains(t, m.View(), "youtube")

	m, msg := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, PlayURLMsg{URL: "https://youtu.be/abc"}, msg)

	m, msg = update(t, m, msg)
	assert.Equal(t, ModalNone, m.activeModal)
	require.Equal(t, PlayStartedMsg{URL: "https://youtu.be/abc", Backend: player.VideoEmbed}, msg)

	m, _ = update(t, m, msg)
	assert.Equal(t, []string{"https://youtu.be/abc"}, m.history.URLs())
	assert.Equal(t, []string{"playurl:https://youtu.be/abc"}, ctrl.list())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"https://youtu.be/abc"}, remembered)
}

func TestOpenURLEscape(t *testing.T) {
	m, _ := newTestApp(t, &fakeController{}, Options{})
	next, _ := m.Update(runes("o"))
	m = next.(AppModel)

	m, msg := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, CloseViewMsg{}, msg)
	m, _ = update(t, m, msg)
	assert.Equal(t, ModalNone, m.activeModal)
	assert.Equal(t, ViewNowPlaying, m.activeView)
}

func TestPlayFailureIsShown(t *testing.T) {
	ctrl := &fakeController{err: player.ErrBackendDisabled}
	m, _ := newTestApp(t, ctrl, Options{InitialURL: "https://youtu.be/abc"})

	msg := m.playURL("https://youtu.be/abc")()
	require.IsType(t, ControlErrMsg{}, msg)
	assert.True(t, errors.Is(msg.(ControlErrMsg).Error, player.ErrBackendDisabled))

	m, _ = update(t, m, msg)
	assert.Contains(t, m.View(), "backend disabled")
	assert.Empty(t, m.history.URLs())
}

func TestHistoryViewPlaysSelection(t *testing.T) {
	ctrl := &fakeController{}
	m, _ := newTestApp(t, ctrl, Options{RecentURLs: []string{"https://a.example/1.mp3", "https://youtu.be/abc"}})

	next, _ := m.Update(runes("r"))
	m = next.(AppModel)
	assert.Equal(t, ViewHistory, m.activeView)
	assert.Contains(t, m.View(), "Recently played")

	m, _ = update(t, m, runes("j"))
	m, msg := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, PlayURLMsg{URL: "https://youtu.be/abc"}, msg)

	m, _ = update(t, m, msg)
	assert.Equal(t, ViewNowPlaying, m.activeView)
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestApp(t, &fakeController{}, Options{})

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlH})
	m = next.(AppModel)
	assert.Equal(t, ModalHelp, m.activeModal)
	assert.Contains(t, m.View(), "Help: Now Playing")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(AppModel)
	assert.Equal(t, ModalNone, m.activeModal)
}
