package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://www.youtube.com/watch?v=abc123", "abc123", true},
		{"https://www.youtube.com/watch?list=x&v=a-b_C9&t=10", "a-b_C9", true},
		{"https://youtu.be/abc123", "abc123", true},
		{"https://youtu.be/abc123?t=42", "abc123", true},
		{"https://www.youtube.com/embed/xyz789", "xyz789", true},
		{"https://www.youtube.com/shorts/short1", "short1", true},
		{"https://www.youtube.com/", "", false},
		{"https://www.youtube.com/watch?list=x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVideoInvalidURLRejectedUpFront(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.o.PlayURL("https://www.youtube.com/feed/trending")
	require.ErrorIs(t, err, player.ErrInvalidURL)

	snap := f.o.State()
	assert.Equal(t, player.StateStopped, snap.State)
	assert.Equal(t, player.BackendID(""), snap.Backend)
	_, _, created := f.video.state()
	assert.Zero(t, created)
}

// readyVideo plays url and completes the SDK handshake
func readyVideo(t *testing.T, f *fixture, url string) *fakeVideoPlayer {
	t.Helper()
	_, err := f.o.PlayURL(url)
	require.NoError(t, err)

	eventually(t, func() bool { _, _, n := f.video.state(); return n == 1 }, "player created")
	p, events, _ := f.video.state()
	events.Ready()
	return p
}

func TestVideoRetriesUntilReady(t *testing.T) {
	f := newFixture(t, func(_ *player.Options, f *fixture) {
		f.video.release = make(chan struct{})
	})

	id, err := f.o.PlayURL("https://youtu.be/abc123")
	require.NoError(t, err)
	assert.Equal(t, player.VideoEmbed, id)

	// Several backoffs pass while the SDK is loading
	time.Sleep(50 * time.Millisecond)
	_, _, created := f.video.state()
	assert.Zero(t, created)
	assert.Equal(t, player.StateLoading, f.state())

	close(f.video.release)
	eventually(t, func() bool { _, _, n := f.video.state(); return n == 1 }, "player created")
	p, events, _ := f.video.state()
	f.video.mu.Lock()
	assert.Equal(t, []string{"abc123"}, f.video.createdID)
	f.video.mu.Unlock()

	events.Ready()
	eventually(t, func() bool { return p.has("load:abc123") }, "retried play after readiness")

	events.StateChange(VideoPlaying)
	f.waitState(t, player.StatePlaying)
	assert.Equal(t, int64(180000), f.o.State().DurationMS)

	events.StateChange(VideoBuffering)
	f.waitState(t, player.StateLoading)
	events.StateChange(VideoPaused)
	f.waitState(t, player.StatePaused)
	events.StateChange(VideoEnded)
	f.waitState(t, player.StateStopped)
	eventually(t, func() bool { return f.rec.count(player.EventEnded) == 1 }, "ended published")
}

func TestVideoRepeatedEndedFiresOnce(t *testing.T) {
	f := newFixture(t, nil)
	readyVideo(t, f, "https://youtu.be/abc123")
	_, events, _ := f.video.state()

	events.StateChange(VideoPlaying)
	f.waitState(t, player.StatePlaying)

	events.StateChange(VideoEnded)
	events.StateChange(VideoEnded)
	f.waitState(t, player.StateStopped)
	eventually(t, func() bool { return f.rec.count(player.EventEnded) == 1 }, "ended published")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.rec.count(player.EventEnded))
	assert.Equal(t, 1, f.rec.count(player.EventStopped))
}

func TestVideoReadinessTimeout(t *testing.T) {
	f := newFixture(t, func(o *player.Options, f *fixture) {
		o.ReadyTimeout = 50 * time.Millisecond
		// Never released, the SDK never loads
		f.video.release = make(chan struct{})
	})

	_, err := f.o.PlayURL("https://youtu.be/abc123")
	require.NoError(t, err)

	f.waitState(t, player.StateStopped)
	eventually(t, func() bool { return f.rec.firstError() != nil }, "timeout published")
	assert.ErrorIs(t, f.rec.firstError(), player.ErrReadinessTimeout)

	// Later plays are silently dropped
	_, err = f.o.PlayURL("https://youtu.be/def456")
	require.NoError(t, err)
	assert.Equal(t, player.StateStopped, f.state())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, f.rec.count(player.EventError))
}

func TestVideoStopCancelsPendingRetry(t *testing.T) {
	f := newFixture(t, func(_ *player.Options, f *fixture) {
		f.video.release = make(chan struct{})
	})

	_, err := f.o.PlayURL("https://youtu.be/abc123")
	require.NoError(t, err)
	require.NoError(t, f.o.Stop())
	assert.Equal(t, player.StateStopped, f.state())

	close(f.video.release)
	eventually(t, func() bool { _, _, n := f.video.state(); return n == 1 }, "player created")
	p, events, _ := f.video.state()
	events.Ready()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, p.list())
	assert.Equal(t, player.StateStopped, f.state())
}

func TestVideoTouchMobileFirstPlayCues(t *testing.T) {
	f := newFixture(t, func(o *player.Options, _ *fixture) {
		o.TouchMobile = true
	})

	p := readyVideo(t, f, "https://www.youtube.com/watch?v=abc123")
	eventually(t, func() bool { return p.has("cue:abc123") }, "first play cued")
	assert.False(t, p.has("load:abc123"))
	assert.True(t, f.surface.notice(player.VideoEmbed))
	eventually(t, func() bool { return f.rec.count(player.EventInteractionRequired) == 1 }, "interaction required")
	assert.Equal(t, player.VideoEmbed, f.rec.all(player.EventInteractionRequired)[0].Backend)

	_, events, _ := f.video.state()
	events.StateChange(VideoPlaying)
	f.waitState(t, player.StatePlaying)
	assert.False(t, f.surface.notice(player.VideoEmbed))

	_, err := f.o.PlayURL("https://www.youtube.com/watch?v=def456")
	require.NoError(t, err)
	eventually(t, func() bool { return p.has("load:def456") }, "second play loads")
	assert.Equal(t, 1, f.rec.count(player.EventInteractionRequired))
}

func TestVideoErrorBeforeReadyIsPermanent(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.o.PlayURL("https://youtu.be/abc123")
	require.NoError(t, err)
	eventually(t, func() bool { _, _, n := f.video.state(); return n == 1 }, "player created")
	p, events, _ := f.video.state()

	events.Error(2)
	f.waitState(t, player.StateStopped)
	eventually(t, func() bool { return f.rec.firstError() != nil }, "error published")
	assert.ErrorContains(t, f.rec.firstError(), "youtube player error 2")

	// A late ready does not revive the backend
	events.Ready()
	_, err = f.o.PlayURL("https://youtu.be/abc123")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, p.list())
}

func TestVideoErrorAfterReadyStopsPlayback(t *testing.T) {
	f := newFixture(t, nil)

	p := readyVideo(t, f, "https://youtu.be/abc123")
	eventually(t, func() bool { return p.has("load:abc123") }, "loaded")
	_, events, _ := f.video.state()
	events.StateChange(VideoPlaying)
	f.waitState(t, player.StatePlaying)

	events.Error(150)
	f.waitState(t, player.StateStopped)

	// The backend stays usable for the next video
	_, err := f.o.PlayURL("https://youtu.be/def456")
	require.NoError(t, err)
	eventually(t, func() bool { return p.has("load:def456") }, "next video loads")
}

func TestVideoControlsIgnoredBeforeReady(t *testing.T) {
	f := newFixture(t, func(_ *player.Options, f *fixture) {
		f.video.release = make(chan struct{})
	})

	_, err := f.o.PlayURL("https://youtu.be/abc123")
	require.NoError(t, err)
	assert.NoError(t, f.o.Play())
	assert.NoError(t, f.o.Pause())
	assert.NoError(t, f.o.Seek(1000))
	assert.Equal(t, player.StateLoading, f.state())
}

func TestVideoProgress(t *testing.T) {
	f := newFixture(t, nil)

	p := readyVideo(t, f, "https://youtu.be/abc123")
	p.mu.Lock()
	p.position = 4200
	p.mu.Unlock()

	_, events, _ := f.video.state()
	events.StateChange(VideoPlaying)
	eventually(t, func() bool { return f.rec.hasProgress(4200) }, "progress from player")

	require.NoError(t, f.o.Seek(9000))
	assert.True(t, p.has("seek:9000"))
}
