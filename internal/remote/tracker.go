package remote

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

const noTrack = dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")

// propertySetter is satisfied by *prop.Properties
type propertySetter interface {
	SetMust(iface, property string, v interface{})
}

// tracker follows the player notifications and derives the MPRIS status, position and metadata from them.  Every
// PlayURL gets a fresh track id so clients can tell tracks apart.
type tracker struct {
	mu      sync.Mutex
	seq     uint64
	state   player.State
	backend player.BackendID
	elapsed int64
	length  int64
	track   *player.TrackData
}

func newTracker(snap player.Snapshot) *tracker {
	t := &tracker{
		state:   snap.State,
		backend: snap.Backend,
		elapsed: snap.ElapsedMS,
		length:  snap.DurationMS,
	}
	if snap.Backend != "" {
		t.seq = 1
	}
	return t
}

func (t *tracker) trackPath() dbus.ObjectPath {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pathLocked()
}

func (t *tracker) pathLocked() dbus.ObjectPath {
	if t.seq == 0 {
		return noTrack
	}
	return dbus.ObjectPath(fmt.Sprintf("/org/crossplay/track/%d", t.seq))
}

func (t *tracker) metadata() map[string]dbus.Variant {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metadataLocked()
}

func (t *tracker) metadataLocked() map[string]dbus.Variant {
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(t.pathLocked()),
	}
	if t.length > 0 {
		md["mpris:length"] = dbus.MakeVariant(t.length * 1000)
	}
	if t.backend != "" {
		md["xesam:title"] = dbus.MakeVariant(string(t.backend))
	}
	if d := t.track; d != nil {
		if d.Title != "" {
			md["xesam:title"] = dbus.MakeVariant(d.Title)
		}
		if d.Artist != "" {
			md["xesam:artist"] = dbus.MakeVariant([]string{d.Artist})
		}
		if d.Genre != "" {
			md["xesam:genre"] = dbus.MakeVariant([]string{d.Genre})
		}
		if d.PermalinkURL != "" {
			md["xesam:url"] = dbus.MakeVariant(d.PermalinkURL)
		}
		if d.ArtworkURL != "" {
			md["mpris:artUrl"] = dbus.MakeVariant(d.ArtworkURL)
		}
	}
	return md
}

// apply folds one notification into the tracked status and pushes whatever changed to props
func (t *tracker) apply(n player.Notification, props propertySetter) {
	t.mu.Lock()
	prev := playbackStatus(t.state)
	t.state = n.State
	metaChanged := false
	var position *int64

	switch n.Event {
	case player.EventLoading:
		t.seq++
		t.backend = n.Backend
		t.track = nil
		t.elapsed, t.length = 0, 0
		metaChanged = true
		position = &t.elapsed
	case player.EventProgress:
		if n.Progress != nil {
			t.elapsed = n.Progress.ElapsedMS
			position = &t.elapsed
			if n.Progress.DurationMS != t.length {
				t.length = n.Progress.DurationMS
				metaChanged = true
			}
		}
	case player.EventTrackData:
		if n.TrackData != nil {
			d := *n.TrackData
			t.track = &d
			if t.length == 0 && d.DurationMS > 0 {
				t.length = d.DurationMS
			}
			metaChanged = true
		}
	}

	status := playbackStatus(t.state)
	statusChanged := status != prev
	var md map[string]dbus.Variant
	if metaChanged {
		md = t.metadataLocked()
	}
	var pos int64
	if position != nil {
		pos = *position * 1000
	}
	t.mu.Unlock()

	if statusChanged {
		props.SetMust(playerIface, "PlaybackStatus", status)
	}
	if md != nil {
		props.SetMust(playerIface, "Metadata", md)
	}
	if position != nil {
		props.SetMust(playerIface, "Position", pos)
	}
}

// playbackStatus maps the player state onto the three MPRIS statuses.  Loading counts as playing since playback was
// requested and starts on its own.
func playbackStatus(s player.State) string {
	switch s {
	case player.StatePlaying, player.StateLoading:
		return "Playing"
	case player.StatePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}
