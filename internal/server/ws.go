package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

const pingInterval = 15 * time.Second

var errUnknownAction = errors.New("unknown action")

// wsMessage is sent to event stream clients
type wsMessage struct {
	Type         string               `json:"type"`
	State        *player.Snapshot     `json:"state,omitempty"`
	Notification *player.Notification `json:"notification,omitempty"`
	Action       string               `json:"action,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// wsCommand is received from event stream clients
type wsCommand struct {
	Action     string `json:"action"`
	URL        string `json:"url,omitempty"`
	PositionMS int64  `json:"position_ms,omitempty"`
}

// handleEvents streams every player notification to the client, preceded by the current state.  Clients may send
// commands on the same connection.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Error("WebSocket accept failed", "error", err)
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	ctx := r.Context()
	snap := s.ctrl.State()
	if err := wsjson.Write(ctx, conn, wsMessage{Type: "state", State: &snap}); err != nil {
		s.logger.Debug("Failed to send initial state", "error", err)
		return
	}
	s.logger.Debug("Event stream connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	commands := make(chan wsCommand, 16)
	go func() {
		defer close(done)
		for {
			var cmd wsCommand
			if err := wsjson.Read(ctx, conn, &cmd); err != nil {
				if ws.CloseStatus(err) != ws.StatusNormalClosure {
					s.logger.Debug("WebSocket read error", "error", err)
				}
				return
			}
			select {
			case commands <- cmd:
			default:
				s.logger.Warn("Command queue full, dropping command", "action", cmd.Action)
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-done:
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.logger.Debug("WebSocket ping failed", "error", err)
				return
			}
		case n, ok := <-sub:
			if !ok {
				conn.Close(ws.StatusGoingAway, "shutting down")
				return
			}
			if err := wsjson.Write(ctx, conn, wsMessage{Type: "event", Notification: &n}); err != nil {
				s.logger.Debug("Failed to send event", "error", err)
				return
			}
		case cmd := <-commands:
			if err := s.runCommand(cmd); err != nil {
				_ = wsjson.Write(ctx, conn, wsMessage{Type: "error", Action: cmd.Action, Error: err.Error()})
			}
		}
	}
}

func (s *Server) runCommand(cmd wsCommand) error {
	switch cmd.Action {
	case "play_url":
		_, err := s.ctrl.PlayURL(cmd.URL)
		return err
	case "play":
		return s.ctrl.Play()
	case "pause":
		return s.ctrl.Pause()
	case "toggle":
		return s.ctrl.TogglePlayPause()
	case "stop":
		return s.ctrl.Stop()
	case "seek":
		return s.ctrl.Seek(cmd.PositionMS)
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, cmd.Action)
	}
}
