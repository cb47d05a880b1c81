package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/PizzaHomicide/crossplay/internal/player"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/crossplay/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/styles"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/util"
)

// HistoryModel lists recently played URLs, most recent first, with a fuzzy filter
type HistoryModel struct {
	width, height  int
	limit          int
	urls           []string
	filtered       []string
	cursor         int
	searchInput    textinput.Model
	searchMode     bool
	viewportOffset int // For scrolling
}

// NewHistoryModel creates the list.  A limit of zero keeps every URL.
func NewHistoryModel(urls []string, limit int) *HistoryModel {
	input := textinput.New()
	input.Placeholder = "Filter URLs..."
	input.Width = 30

	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	urls = append([]string(nil), urls...)
	return &HistoryModel{
		limit:       limit,
		urls:        urls,
		filtered:    urls,
		searchInput: input,
	}
}

// Push moves url to the top of the list
func (m *HistoryModel) Push(url string) {
	out := []string{url}
	for _, u := range m.urls {
		if u != url {
			out = append(out, u)
		}
	}
	if m.limit > 0 && len(out) > m.limit {
		out = out[:m.limit]
	}
	m.urls = out
	m.applyFilter()
}

// URLs returns the list in display order
func (m *HistoryModel) URLs() []string {
	return m.urls
}

// Filtered returns the entries matching the current filter
func (m *HistoryModel) Filtered() []string {
	return m.filtered
}

// Selected returns the URL under the cursor, or "" when the list is empty
func (m *HistoryModel) Selected() string {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return ""
	}
	return m.filtered[m.cursor]
}

func (m *HistoryModel) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.searchMode {
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return cmd
		}
		return nil
	}
	if m.searchMode {
		return m.handleSearchModeKeyMsg(keyMsg)
	}
	return m.handleKeyMsg(keyMsg)
}

func (m *HistoryModel) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch kb.GetActionByKey(msg, kb.ContextHistory) {
	case kb.ActionSelect:
		if url := m.Selected(); url != "" {
			return send(PlayURLMsg{URL: url})
		}
	case kb.ActionEnableSearch:
		m.searchMode = true
		return m.searchInput.Focus()
	case kb.ActionMoveDown:
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}
	case kb.ActionMoveUp:
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}
	case kb.ActionPageDown:
		m.cursor += m.pageSize()
		m.ensureCursorVisible()
	case kb.ActionPageUp:
		m.cursor -= m.pageSize()
		m.ensureCursorVisible()
	case kb.ActionMoveTop:
		m.cursor = 0
		m.ensureCursorVisible()
	case kb.ActionMoveBottom:
		m.cursor = len(m.filtered) - 1
		m.ensureCursorVisible()
	default:
		if kb.GetActionByKey(msg, kb.ContextGlobal) == kb.ActionBack {
			return send(CloseViewMsg{})
		}
	}
	return nil
}

func (m *HistoryModel) handleSearchModeKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch kb.GetActionByKey(msg, kb.ContextSearchMode) {
	case kb.ActionBack:
		// Cancels search, clearing the filter
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.applyFilter()
		return nil
	case kb.ActionSearchComplete:
		m.searchMode = false
		m.searchInput.Blur()
		m.applyFilter()
		return nil
	}

	// Let the text input model handle other keys
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	// Apply filters as we type
	m.applyFilter()
	return cmd
}

// applyFilter ranks the URLs against the search input.  The backend name takes part so "youtube" finds youtu.be links.
func (m *HistoryModel) applyFilter() {
	query := m.searchInput.Value()
	if query == "" {
		m.filtered = m.urls
	} else {
		targets := make([]string, len(m.urls))
		for i, u := range m.urls {
			targets[i] = string(player.Classify(u)) + " " + u
		}
		ranks := fuzzy.RankFindFold(query, targets)
		// Keep history order among matches rather than rank order
		matched := make(map[int]bool, len(ranks))
		for _, r := range ranks {
			matched[r.OriginalIndex] = true
		}
		filtered := make([]string, 0, len(ranks))
		for i, u := range m.urls {
			if matched[i] {
				filtered = append(filtered, u)
			}
		}
		m.filtered = filtered
	}
	m.ensureCursorVisible()
}

func (m *HistoryModel) listHeight() int {
	// Subtract space for header, footer, and margins
	return max(m.height-10, 1)
}

func (m *HistoryModel) pageSize() int {
	return max(m.listHeight()-1, 1)
}

// ensureCursorVisible clamps the cursor and adjusts the viewport offset to keep it visible
func (m *HistoryModel) ensureCursorVisible() {
	if len(m.filtered) == 0 {
		m.cursor = 0
		m.viewportOffset = 0
		return
	}
	m.cursor = min(max(m.cursor, 0), len(m.filtered)-1)

	visibleCount := min(len(m.filtered), m.listHeight())
	if m.cursor < m.viewportOffset {
		m.viewportOffset = m.cursor
	}
	if m.cursor >= m.viewportOffset+visibleCount {
		m.viewportOffset = m.cursor - visibleCount + 1
	}
	m.viewportOffset = min(m.viewportOffset, max(0, len(m.filtered)-visibleCount))
}

func (m *HistoryModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.ensureCursorVisible()
}

func (m *HistoryModel) View() string {
	header := styles.Header(m.width, "Recently played")
	content := m.renderList()

	if m.searchMode {
		searchPrompt := styles.Title.Render("Search: ") + m.searchInput.View()
		content = lipgloss.JoinVertical(lipgloss.Left, searchPrompt, content)
	}

	footer := components.KeyBindingsBar(m.width, kb.WithoutNavigation(kb.ContextBindings[kb.ContextHistory]))
	return fmt.Sprintf("%s\n\n%s\n\n%s", header, content, footer)
}

func (m *HistoryModel) renderList() string {
	if len(m.filtered) == 0 {
		if m.searchInput.Value() != "" {
			return styles.CenteredText(m.width, "No URLs match your filter")
		}
		return styles.CenteredText(m.width, "Nothing played yet")
	}

	selectedStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7D56F4")).
		Width(m.width-4).
		Padding(0, 1)
	normalStyle := lipgloss.NewStyle().
		Width(m.width-4).
		Padding(0, 1)

	start := m.viewportOffset
	end := min(start+m.listHeight(), len(m.filtered))
	urlWidth := max(m.width-24, 10)

	var b strings.Builder
	for i := start; i < end; i++ {
		u := m.filtered[i]
		line := util.PadRight(string(player.Classify(u)), 12) + util.TruncateString(u, urlWidth)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(normalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if len(m.filtered) > end-start {
		b.WriteString(styles.CenteredText(m.width-4, fmt.Sprintf("Showing %d-%d of %d", start+1, end, len(m.filtered))))
	}
	return styles.ContentBox(m.width-2, b.String(), 1)
}
