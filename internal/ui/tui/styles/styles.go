package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

var (
	// Text styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	Info = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#DEDEDE"))

	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888"))

	Url = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#43BF6D")).
		Underline(true)

	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF5F87")).
		Bold(true)

	FilterStatus = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC")).
			Padding(0, 2)

	ProgressFilled = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	ProgressEmpty = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))
)

var stateColors = map[player.State]lipgloss.Color{
	player.StateStopped: lipgloss.Color("#888888"),
	player.StateLoading: lipgloss.Color("#F2C94C"),
	player.StatePlaying: lipgloss.Color("#43BF6D"),
	player.StatePaused:  lipgloss.Color("#56B6F4"),
}

// StateBadge renders the playback state as a coloured label
func StateBadge(s player.State) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#1A1A1A")).
		Background(stateColors[s]).
		Padding(0, 1).
		Render(s.String())
}

// Layout helpers
func Header(width int, title string) string {
	return Title.
		Width(width).
		Align(lipgloss.Center).
		Render(title)
}

func ContentBox(width int, content string, padding int) string {
	return lipgloss.NewStyle().
		Width(width).
		Padding(padding).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#555555")).
		Render(content)
}

func CenteredView(width int, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func CenteredText(width int, text string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(text)
}
