package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/PizzaHomicide/crossplay/internal/events"
	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

const (
	objectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	rootIface   = "org.mpris.MediaPlayer2"
	playerIface = "org.mpris.MediaPlayer2.Player"
	busName     = "org.mpris.MediaPlayer2.crossplay"
)

var ErrNameTaken = errors.New("mpris bus name already owned")

// Controller is the part of the player a desktop remote can drive
type Controller interface {
	PlayURL(url string) (player.BackendID, error)
	Play() error
	Pause() error
	TogglePlayPause() error
	Stop() error
	Seek(positionMS int64) error
	State() player.Snapshot
}

// MprisPlayer exposes the player on the session bus so desktop media keys and applets can control it
type MprisPlayer struct {
	conn    *dbus.Conn
	props   *prop.Properties
	bus     *events.Bus
	tracker *tracker
	logger  *log.Logger
}

// RegisterMprisPlayer connects to the session bus, exports the MPRIS2 interfaces and claims the crossplay bus name.
// Status is only published once Run is consuming notifications.
func RegisterMprisPlayer(ctrl Controller, bus *events.Bus, logger *log.Logger) (*MprisPlayer, error) {
	if logger == nil {
		logger = log.L()
	}
	logger = logger.With("component", "mpris")

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	m := &MprisPlayer{conn: conn, bus: bus, logger: logger}
	if err := m.export(ctrl); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return m, nil
}

func (m *MprisPlayer) export(ctrl Controller) error {
	snap := ctrl.State()
	m.tracker = newTracker(snap)
	obj := &playerObject{ctrl: ctrl, logger: m.logger, emit: m.emitSeeked, track: m.tracker.trackPath}
	if err := m.conn.Export(obj, objectPath, playerIface); err != nil {
		return fmt.Errorf("failed to export player interface: %w", err)
	}
	if err := m.conn.Export(rootObject{}, objectPath, rootIface); err != nil {
		return fmt.Errorf("failed to export root interface: %w", err)
	}

	mediaPlayer := map[string]*prop.Prop{
		"CanQuit":             {Value: false, Writable: false, Emit: prop.EmitFalse},
		"CanRaise":            {Value: false, Writable: false, Emit: prop.EmitFalse},
		"HasTrackList":        {Value: false, Writable: false, Emit: prop.EmitFalse},
		"Identity":            {Value: "crossplay", Writable: false, Emit: prop.EmitFalse},
		"SupportedUriSchemes": {Value: []string{"http", "https"}, Writable: false, Emit: prop.EmitFalse},
		"SupportedMimeTypes":  {Value: []string{"audio/mpeg", "audio/ogg", "audio/wav", "audio/aac"}, Writable: false, Emit: prop.EmitFalse},
	}
	mprisPlayer := map[string]*prop.Prop{
		"PlaybackStatus": {Value: playbackStatus(snap.State), Writable: false, Emit: prop.EmitTrue},
		"LoopStatus":     {Value: "None", Writable: false, Emit: prop.EmitFalse},
		"Rate":           {Value: 1.0, Writable: false, Emit: prop.EmitFalse},
		"MinimumRate":    {Value: 1.0, Writable: false, Emit: prop.EmitFalse},
		"MaximumRate":    {Value: 1.0, Writable: false, Emit: prop.EmitFalse},
		"Metadata":       {Value: m.tracker.metadata(), Writable: false, Emit: prop.EmitTrue},
		"Volume":         {Value: 1.0, Writable: false, Emit: prop.EmitFalse},
		// Position changes continuously, clients poll it and listen for Seeked
		"Position":      {Value: snap.ElapsedMS * 1000, Writable: false, Emit: prop.EmitFalse},
		"CanGoNext":     {Value: false, Writable: false, Emit: prop.EmitFalse},
		"CanGoPrevious": {Value: false, Writable: false, Emit: prop.EmitFalse},
		"CanPlay":       {Value: true, Writable: false, Emit: prop.EmitFalse},
		"CanPause":      {Value: true, Writable: false, Emit: prop.EmitFalse},
		"CanSeek":       {Value: true, Writable: false, Emit: prop.EmitFalse},
		"CanControl":    {Value: true, Writable: false, Emit: prop.EmitFalse},
	}

	props, err := prop.Export(m.conn, objectPath, map[string]map[string]*prop.Prop{
		rootIface:   mediaPlayer,
		playerIface: mprisPlayer,
	})
	if err != nil {
		return fmt.Errorf("failed to export properties: %w", err)
	}
	m.props = props

	n := &introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       rootIface,
				Methods:    introspect.Methods(rootObject{}),
				Properties: props.Introspection(rootIface),
			},
			{
				Name:       playerIface,
				Methods:    introspect.Methods(obj),
				Properties: props.Introspection(playerIface),
				Signals: []introspect.Signal{{
					Name: "Seeked",
					Args: []introspect.Arg{{Name: "Position", Type: "x"}},
				}},
			},
		},
	}
	if err := m.conn.Export(introspect.NewIntrospectable(n), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	reply, err := m.conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return ErrNameTaken
	}
	m.logger.Info("MPRIS player registered", "name", busName)
	return nil
}

// Run mirrors player notifications into the MPRIS properties until ctx is cancelled or the bus closes
func (m *MprisPlayer) Run(ctx context.Context) error {
	sub := m.bus.Subscribe()
	defer m.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-sub:
			if !ok {
				return nil
			}
			m.tracker.apply(n, m.props)
		}
	}
}

func (m *MprisPlayer) Close() error {
	if _, err := m.conn.ReleaseName(busName); err != nil {
		m.logger.Debug("Failed to release bus name", "error", err)
	}
	return m.conn.Close()
}

func (m *MprisPlayer) emitSeeked(positionMS int64) {
	if err := m.conn.Emit(objectPath, playerIface+".Seeked", positionMS*1000); err != nil {
		m.logger.Debug("Failed to emit Seeked", "error", err)
	}
}

// rootObject implements the org.mpris.MediaPlayer2 methods.  Neither is supported, CanRaise and CanQuit say so.
type rootObject struct{}

func (rootObject) Raise() *dbus.Error { return nil }
func (rootObject) Quit() *dbus.Error  { return nil }
