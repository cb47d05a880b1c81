package models

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PizzaHomicide/crossplay/internal/player"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/crossplay/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/styles"
)

// URLInputModel is the prompt for a URL to play.  It previews which backend the URL would go to.
type URLInputModel struct {
	width, height int
	input         textinput.Model
}

func NewURLInputModel() *URLInputModel {
	input := textinput.New()
	input.Placeholder = "https://..."
	input.Prompt = "URL: "
	input.CharLimit = 2048
	return &URLInputModel{input: input}
}

// Open clears and focuses the prompt
func (m *URLInputModel) Open() tea.Cmd {
	m.input.SetValue("")
	return m.input.Focus()
}

func (m *URLInputModel) Value() string {
	return strings.TrimSpace(m.input.Value())
}

func (m *URLInputModel) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch kb.GetActionByKey(keyMsg, kb.ContextURLInput) {
		case kb.ActionSubmit:
			url := m.Value()
			if url == "" {
				return nil
			}
			m.input.Blur()
			return send(PlayURLMsg{URL: url})
		case kb.ActionBack:
			m.input.Blur()
			return send(CloseViewMsg{})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *URLInputModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-20, 10)
}

func (m *URLInputModel) View() string {
	preview := styles.Muted.Render("Paste a soundcloud, youtube, dropbox or direct media link")
	if url := m.Value(); url != "" {
		preview = styles.Info.Render("Plays with: ") + styles.Url.Render(string(player.Classify(url)))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, m.input.View(), "", preview)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.Header(m.width, "Open URL"),
		"",
		styles.ContentBox(m.width-2, content, 1),
		"",
		components.KeyBindingsBar(m.width, kb.ContextBindings[kb.ContextURLInput]),
	)
}
