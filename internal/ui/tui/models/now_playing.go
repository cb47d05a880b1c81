package models

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PizzaHomicide/crossplay/internal/player"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/crossplay/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/styles"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/util"
)

// NowPlayingModel renders what the player is doing, rebuilt from its notifications
type NowPlayingModel struct {
	width, height int
	state         player.State
	backend       player.BackendID
	url           string
	track         *player.TrackData
	elapsedMS     int64
	durationMS    int64
	ended         bool
	needsTap      bool // The backend is waiting for the user to interact with the player page
	lastErr       error
	spinner       spinner.Model
}

// NewNowPlayingModel starts from a snapshot of the player
func NewNowPlayingModel(snap player.Snapshot) *NowPlayingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return &NowPlayingModel{
		state:      snap.State,
		backend:    snap.Backend,
		url:        snap.URL,
		elapsedMS:  snap.ElapsedMS,
		durationMS: snap.DurationMS,
		spinner:    s,
	}
}

func (m *NowPlayingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *NowPlayingModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	}
	return nil
}

// Apply folds a notification into the model
func (m *NowPlayingModel) Apply(n player.Notification) {
	m.state = n.State
	switch n.Event {
	case player.EventLoading:
		m.backend = n.Backend
		m.track = nil
		m.elapsedMS, m.durationMS = 0, 0
		m.ended = false
		m.needsTap = false
		m.lastErr = nil
	case player.EventPlaying:
		m.needsTap = false
		m.ended = false
	case player.EventEnded:
		m.ended = true
	case player.EventProgress:
		if n.Progress != nil {
			m.elapsedMS = n.Progress.ElapsedMS
			m.durationMS = n.Progress.DurationMS
		}
	case player.EventTrackData:
		if n.TrackData != nil {
			d := *n.TrackData
			m.track = &d
			if m.durationMS == 0 {
				m.durationMS = d.DurationMS
			}
		}
	case player.EventInteractionRequired:
		m.needsTap = true
	case player.EventError:
		m.lastErr = n.Err
		if m.lastErr == nil && n.Error != "" {
			m.lastErr = errors.New(n.Error)
		}
	}
}

// SetURL records the URL handed to the player
func (m *NowPlayingModel) SetURL(url string) {
	m.url = url
}

// SetError shows a failed control call
func (m *NowPlayingModel) SetError(err error) {
	m.lastErr = err
}

// Position returns the last known elapsed and total time
func (m *NowPlayingModel) Position() (elapsedMS, durationMS int64) {
	return m.elapsedMS, m.durationMS
}

func (m *NowPlayingModel) State() player.State { return m.state }

func (m *NowPlayingModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

func (m *NowPlayingModel) View() string {
	header := styles.Header(m.width, "crossplay")
	inner := max(m.width-8, 10)

	var b strings.Builder
	status := styles.StateBadge(m.state)
	if m.state == player.StateLoading {
		status = m.spinner.View() + " " + status
	}
	if m.backend != "" {
		status += "  " + styles.Muted.Render(string(m.backend))
	}
	if m.ended {
		status += "  " + styles.Muted.Render("(ended)")
	}
	b.WriteString(status + "\n\n")

	switch {
	case m.track != nil && m.track.Title != "":
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(util.TruncateString(m.track.Title, inner)) + "\n")
		if m.track.Artist != "" {
			b.WriteString(styles.Info.Render(util.TruncateString(m.track.Artist, inner)) + "\n")
		}
	case m.url == "":
		b.WriteString(styles.Muted.Render("Nothing loaded.  Press o to open a URL.") + "\n")
	}
	if m.url != "" {
		b.WriteString(styles.Url.Render(util.TruncateString(m.url, inner)) + "\n")
	}
	b.WriteString("\n" + m.renderProgress(inner) + "\n")

	if m.needsTap && m.state != player.StatePlaying {
		b.WriteString("\n" + styles.Info.Render("Tap the player page to start playback") + "\n")
	}
	if m.lastErr != nil {
		b.WriteString("\n" + styles.Error.Render(util.TruncateString("Error: "+m.lastErr.Error(), inner)) + "\n")
	}

	footer := components.KeyBindingsBar(m.width, kb.ContextBindings[kb.ContextNowPlaying])
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		styles.ContentBox(m.width-2, b.String(), 1),
		"",
		footer,
	)
}

// renderProgress draws a position bar sized to width with the times beside it
func (m *NowPlayingModel) renderProgress(width int) string {
	times := util.FormatPosition(m.elapsedMS)
	if m.durationMS > 0 {
		times += " / " + util.FormatPosition(m.durationMS)
	}
	barWidth := width - len(times) - 1
	if barWidth < 5 {
		return times
	}
	filled := 0
	if m.durationMS > 0 {
		filled = int(int64(barWidth) * min(m.elapsedMS, m.durationMS) / m.durationMS)
	}
	bar := styles.ProgressFilled.Render(strings.Repeat("━", filled)) +
		styles.ProgressEmpty.Render(strings.Repeat("─", barWidth-filled))
	return bar + " " + times
}
