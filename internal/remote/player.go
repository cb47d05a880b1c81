package remote

import (
	"github.com/godbus/dbus/v5"

	"github.com/PizzaHomicide/crossplay/internal/log"
)

// playerObject implements the org.mpris.MediaPlayer2.Player methods.  Control failures are logged rather than
// returned, desktop clients have nothing useful to do with them.
type playerObject struct {
	ctrl   Controller
	logger *log.Logger
	emit   func(positionMS int64)
	// track returns the object path of the current track
	track func() dbus.ObjectPath
}

// There is no queue, so Next and Previous do nothing.  CanGoNext and CanGoPrevious are false.
func (p *playerObject) Next() *dbus.Error     { return nil }
func (p *playerObject) Previous() *dbus.Error { return nil }

func (p *playerObject) Pause() *dbus.Error {
	p.check("Pause", p.ctrl.Pause())
	return nil
}

func (p *playerObject) PlayPause() *dbus.Error {
	p.check("PlayPause", p.ctrl.TogglePlayPause())
	return nil
}

func (p *playerObject) Stop() *dbus.Error {
	p.check("Stop", p.ctrl.Stop())
	return nil
}

func (p *playerObject) Play() *dbus.Error {
	p.check("Play", p.ctrl.Play())
	return nil
}

// Seek moves relative to the current position.  Offset is in microseconds.
func (p *playerObject) Seek(offset int64) *dbus.Error {
	snap := p.ctrl.State()
	target := snap.ElapsedMS + offset/1000
	if target < 0 {
		target = 0
	}
	if snap.DurationMS > 0 && target > snap.DurationMS {
		// Seeking past the end behaves like Next, which without a queue means stopping
		p.check("Stop", p.ctrl.Stop())
		return nil
	}
	p.seek(target)
	return nil
}

// SetPosition seeks to an absolute position in microseconds.  Requests for a track other than the current one are
// stale and ignored.
func (p *playerObject) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	snap := p.ctrl.State()
	if trackID != p.track() {
		p.logger.Debug("Ignoring SetPosition for stale track", "track", trackID)
		return nil
	}
	if position < 0 || (snap.DurationMS > 0 && position/1000 > snap.DurationMS) {
		return nil
	}
	p.seek(position / 1000)
	return nil
}

func (p *playerObject) OpenUri(uri string) *dbus.Error {
	if _, err := p.ctrl.PlayURL(uri); err != nil {
		p.logger.Warn("MPRIS OpenUri failed", "uri", uri, "error", err)
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerObject) seek(positionMS int64) {
	if err := p.ctrl.Seek(positionMS); err != nil {
		p.check("Seek", err)
		return
	}
	if p.emit != nil {
		p.emit(positionMS)
	}
}

func (p *playerObject) check(method string, err error) {
	if err != nil {
		p.logger.Warn("MPRIS call failed", "method", method, "error", err)
	}
}
