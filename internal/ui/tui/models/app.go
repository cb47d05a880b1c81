package models

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/PizzaHomicide/crossplay/internal/events"
	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/player"
	kb "github.com/PizzaHomicide/crossplay/internal/ui/tui/keybindings"
)

// seekStep is how far the arrow keys move the playhead
const seekStep = 10 * time.Second

// Controller is the part of the player the TUI drives
type Controller interface {
	PlayURL(url string) (player.BackendID, error)
	Play() error
	Pause() error
	TogglePlayPause() error
	Stop() error
	Seek(positionMS int64) error
	State() player.Snapshot
}

// Options configures the app model
type Options struct {
	// InitialURL is played as soon as the program starts
	InitialURL  string
	RecentURLs  []string
	HistorySize int
	// Remember persists a URL once the player accepted it.  Optional.
	Remember func(url string) error
}

// AppModel is the main application model that coordinates all child models.  It is the high level wrapper.
type AppModel struct {
	ctrl          Controller
	sub           events.Subscriber
	opts          Options
	activeView    View  // Track the current active 'main view'
	activeModal   Modal // Track the current active 'modal overlay' if any
	width, height int

	nowPlaying *NowPlayingModel
	history    *HistoryModel
	urlInput   *URLInputModel
	help       *HelpModel
}

// NewAppModel creates the model.  sub must be subscribed to every player event.
func NewAppModel(ctrl Controller, sub events.Subscriber, opts Options) AppModel {
	return AppModel{
		ctrl:        ctrl,
		sub:         sub,
		opts:        opts,
		activeView:  ViewNowPlaying,
		activeModal: ModalNone,
		nowPlaying:  NewNowPlayingModel(ctrl.State()),
		history:     NewHistoryModel(opts.RecentURLs, opts.HistorySize),
		urlInput:    NewURLInputModel(),
		help:        NewHelpModel(),
	}
}

func (m AppModel) Init() tea.Cmd {
	log.Info("Initialising crossplay TUI")
	cmds := []tea.Cmd{waitForNotification(m.sub), m.nowPlaying.Init()}
	if m.opts.InitialURL != "" {
		cmds = append(cmds, m.playURL(m.opts.InitialURL))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the models as appropriate
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextGlobal) {
		case kb.ActionQuit:
			log.Info("Quit command received.  Shutting down...")
			return m, tea.Quit
		case kb.ActionToggleHelp:
			log.Debug("Help requested", "active_view", m.activeView)
			// Disable/toggle modal if one already active
			if m.activeModal != ModalNone {
				m.activeModal = ModalNone
			} else {
				m.help.SetContext(m.activeView)
				m.activeModal = ModalHelp
			}
			return m, nil
		case kb.ActionBack:
			// The URL prompt handles its own escape
			if m.activeModal == ModalHelp {
				m.activeModal = ModalNone
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.nowPlaying.Resize(msg.Width, msg.Height)
		m.history.Resize(msg.Width, msg.Height)
		m.urlInput.Resize(msg.Width, msg.Height)
		m.help.Resize(msg.Width, msg.Height)
		return m, nil

	case NotificationMsg:
		n := msg.Notification
		if n.Event != player.EventProgress {
			log.Debug("Player notification", "event", n.Event, "backend", n.Backend, "state", n.State)
		}
		m.nowPlaying.Apply(n)
		return m, waitForNotification(m.sub)

	case BusClosedMsg:
		log.Info("Player closed, leaving the TUI")
		return m, tea.Quit

	case PlayURLMsg:
		m.activeModal = ModalNone
		m.activeView = ViewNowPlaying
		return m, m.playURL(msg.URL)

	case PlayStartedMsg:
		log.Info("Playing URL", "url", msg.URL, "backend", msg.Backend)
		m.nowPlaying.SetURL(msg.URL)
		m.history.Push(msg.URL)
		return m, nil

	case ControlErrMsg:
		log.Warn("Player call failed", "action", msg.Action, "error", msg.Error)
		m.nowPlaying.SetError(msg.Error)
		return m, nil

	case CloseViewMsg:
		m.activeModal = ModalNone
		m.activeView = ViewNowPlaying
		return m, nil
	}

	// The spinner keeps ticking whichever view is active
	if _, ok := msg.(tea.KeyMsg); !ok {
		if cmd := m.nowPlaying.Update(msg); cmd != nil {
			var next tea.Cmd
			m, next = m.delegate(msg)
			return m, tea.Batch(cmd, next)
		}
	}
	return m.delegate(msg)
}

// delegate hands msg to the active modal, or else the active view
func (m AppModel) delegate(msg tea.Msg) (AppModel, tea.Cmd) {
	switch m.activeModal {
	case ModalHelp:
		return m, m.help.Update(msg)
	case ModalOpenURL:
		return m, m.urlInput.Update(msg)
	}

	switch m.activeView {
	case ViewHistory:
		return m, m.history.Update(msg)
	case ViewNowPlaying:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			return m.handleNowPlayingKey(keyMsg)
		}
	}
	return m, nil
}

func (m AppModel) handleNowPlayingKey(msg tea.KeyMsg) (AppModel, tea.Cmd) {
	switch kb.GetActionByKey(msg, kb.ContextNowPlaying) {
	case kb.ActionQuit:
		return m, tea.Quit
	case kb.ActionTogglePlay:
		return m, m.control("toggle", m.ctrl.TogglePlayPause)
	case kb.ActionStop:
		return m, m.control("stop", m.ctrl.Stop)
	case kb.ActionSeekForward:
		return m, m.seekBy(seekStep)
	case kb.ActionSeekBackward:
		return m, m.seekBy(-seekStep)
	case kb.ActionOpenURL:
		m.activeModal = ModalOpenURL
		return m, m.urlInput.Open()
	case kb.ActionShowHistory:
		m.activeView = ViewHistory
		return m, nil
	}
	return m, nil
}

func (m AppModel) seekBy(step time.Duration) tea.Cmd {
	elapsed, duration := m.nowPlaying.Position()
	target := max(elapsed+step.Milliseconds(), 0)
	if duration > 0 {
		target = min(target, duration)
	}
	return m.control("seek", func() error { return m.ctrl.Seek(target) })
}

// control runs a player call off the UI goroutine, the player blocks until its loop ran the call
func (m AppModel) control(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return ControlErrMsg{Action: action, Error: err}
		}
		return nil
	}
}

func (m AppModel) playURL(url string) tea.Cmd {
	ctrl, remember := m.ctrl, m.opts.Remember
	return func() tea.Msg {
		id, err := ctrl.PlayURL(url)
		if err != nil {
			return ControlErrMsg{Action: "play", Error: err}
		}
		if remember != nil {
			if err := remember(url); err != nil {
				log.Warn("Failed to save recent URL", "error", err)
			}
		}
		return PlayStartedMsg{URL: url, Backend: id}
	}
}

func (m AppModel) View() string {
	switch m.activeModal {
	case ModalHelp:
		return m.help.View()
	case ModalOpenURL:
		return m.urlInput.View()
	}

	switch m.activeView {
	case ViewHistory:
		return m.history.View()
	default:
		return m.nowPlaying.View()
	}
}
