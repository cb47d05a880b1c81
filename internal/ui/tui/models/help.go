package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	kb "github.com/PizzaHomicide/crossplay/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/styles"
)

// HelpModel displays contextual help with scrolling
type HelpModel struct {
	width, height int
	context       View
	viewport      viewport.Model
}

func NewHelpModel() *HelpModel {
	return &HelpModel{
		context:  ViewNowPlaying,
		viewport: viewport.New(0, 0),
	}
}

// SetContext switches the help content to the given view
func (m *HelpModel) SetContext(context View) {
	m.context = context
	m.updateContent()
}

func (m *HelpModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextHelp) {
		case kb.ActionMoveUp, kb.ActionMoveDown, kb.ActionPageUp, kb.ActionPageDown:
			m.viewport, cmd = m.viewport.Update(msg)
		case kb.ActionMoveTop:
			m.viewport.GotoTop()
		case kb.ActionMoveBottom:
			m.viewport.GotoBottom()
		}
	}
	return cmd
}

// Resize updates the dimensions
func (m *HelpModel) Resize(width, height int) {
	m.width = width
	m.height = height

	// Account for borders, header, footer and spacing
	m.viewport.Width = max(width-4, 1)
	m.viewport.Height = max(height-10, 1)

	m.updateContent()
}

// updateContent generates help content and updates the viewport
func (m *HelpModel) updateContent() {
	m.viewport.SetContent(m.generateHelpContent())
	m.viewport.GotoTop()
}

func (m *HelpModel) View() string {
	header := styles.Header(m.width, "Help: "+m.contextTitle())

	scrollText := "↑/↓: Scroll • PgUp/PgDn: Page scroll • Home/End: Goto top/bottom • ESC: Return"
	footer := styles.CenteredText(m.width, styles.Info.Render(scrollText))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		styles.ContentBox(m.width-2, m.viewport.View(), 1),
		"",
		footer,
	)
}

func (m *HelpModel) contextTitle() string {
	switch m.context {
	case ViewHistory:
		return "Recently Played"
	default:
		return "Now Playing"
	}
}

// formatKeybindingSection formats a section of keybindings with aligned colons
func (m *HelpModel) formatKeybindingSection(title string, bindings []kb.Binding, skipActions map[kb.Action]bool) string {
	if len(bindings) == 0 {
		return ""
	}

	keyText := func(b kb.Binding) string {
		if b.KeyMap.Secondary != "" {
			return b.KeyMap.Primary + " or " + b.KeyMap.Secondary
		}
		return b.KeyMap.Primary
	}

	maxKeyWidth := 0
	for _, binding := range bindings {
		if skipActions[binding.Action] {
			continue
		}
		maxKeyWidth = max(maxKeyWidth, utf8.RuneCountInString(keyText(binding)))
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
	b.WriteString("\n\n")
	for _, binding := range bindings {
		if skipActions[binding.Action] {
			continue
		}
		text := keyText(binding)
		padding := strings.Repeat(" ", maxKeyWidth-utf8.RuneCountInString(text))
		b.WriteString(fmt.Sprintf("• %s%s : %s\n",
			lipgloss.NewStyle().Bold(true).Render(text),
			padding,
			binding.KeyMap.Help))
	}
	return b.String()
}

func (m *HelpModel) generateHelpContent() string {
	var b strings.Builder
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

	b.WriteString(titleStyle.Render(m.contextTitle()))
	b.WriteString("\n\n")
	b.WriteString(m.contextDescription())
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Keybindings"))
	b.WriteString("\n\n")
	b.WriteString(m.formatKeybindingSection("Global commands:", kb.ContextBindings[kb.ContextGlobal], nil))

	globalActions := make(map[kb.Action]bool)
	for _, binding := range kb.ContextBindings[kb.ContextGlobal] {
		globalActions[binding.Action] = true
	}

	contextName := kb.ContextNowPlaying
	if m.context == ViewHistory {
		contextName = kb.ContextHistory
	}
	b.WriteString("\n")
	b.WriteString(m.formatKeybindingSection(m.contextTitle()+" commands:", kb.ContextBindings[contextName], globalActions))

	b.WriteString("\n")
	if m.context == ViewHistory {
		b.WriteString(m.formatKeybindingSection("When in search mode:", kb.ContextBindings[kb.ContextSearchMode], nil))
	} else {
		b.WriteString(m.formatKeybindingSection("In the URL prompt:", kb.ContextBindings[kb.ContextURLInput], nil))
	}
	return b.String()
}

func (m *HelpModel) contextDescription() string {
	switch m.context {
	case ViewHistory:
		return "The URLs you played most recently, newest first.\n\n" +
			"Press Enter to play one again.  The search matches both the URL and the backend that plays it, " +
			"so searching for 'youtube' finds youtu.be links too."
	default:
		return "Shows what the player is doing and lets you control it.\n\n" +
			"soundcloud and youtube links play through their embedded players in a browser page, dropbox " +
			"and any other link play through the native audio element.  Some devices need a tap on the player " +
			"page before playback can start, the status line says so when that happens."
	}
}
