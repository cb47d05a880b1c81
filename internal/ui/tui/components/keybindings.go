package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	kb "github.com/PizzaHomicide/crossplay/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/styles"
)

// keyStyle is used to highlight keyboard shortcuts in UI
var keyStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#7D56F4")).
	Bold(true)

// KeyBindingsBar creates a styled footer showing the primary key of each binding
// width: The width of the screen to center the bar
// bindings: The list of keybindings to display
func KeyBindingsBar(width int, bindings []kb.Binding) string {
	var parts []string
	for _, b := range bindings {
		parts = append(parts, fmt.Sprintf("%s: %s",
			keyStyle.Render(b.KeyMap.Primary),
			b.KeyMap.Help))
	}

	keyBar := styles.Info.Render(strings.Join(parts, " • "))
	return styles.CenteredText(width, keyBar)
}
