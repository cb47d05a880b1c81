package models

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/PizzaHomicide/crossplay/internal/events"
	"github.com/PizzaHomicide/crossplay/internal/player"
)

// NotificationMsg carries a player notification into the update loop
type NotificationMsg struct {
	Notification player.Notification
}

// BusClosedMsg is sent when the notification bus shuts down
type BusClosedMsg struct{}

// PlayURLMsg asks the app to start playing a URL
type PlayURLMsg struct {
	URL string
}

// PlayStartedMsg is sent when the player accepted a URL
type PlayStartedMsg struct {
	URL     string
	Backend player.BackendID
}

// ControlErrMsg is sent when a player call fails
type ControlErrMsg struct {
	Action string
	Error  error
}

// CloseViewMsg asks the app to return to the now playing view
type CloseViewMsg struct{}

// waitForNotification blocks on the subscription and turns the next notification into a message.  The app
// re-issues it after every notification.
func waitForNotification(sub events.Subscriber) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-sub
		if !ok {
			return BusClosedMsg{}
		}
		return NotificationMsg{Notification: n}
	}
}

func send(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
