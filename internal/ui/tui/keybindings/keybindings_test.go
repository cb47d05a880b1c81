package keybindings

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNoDuplicateKeyBindings(t *testing.T) {
	// Check each context individually
	for contextName, bindings := range ContextBindings {
		t.Run(fmt.Sprintf("Context_%s", contextName), func(t *testing.T) {
			keyToAction := make(map[string]Action)

			for _, binding := range bindings {
				// Check primary key
				if existingAction, exists := keyToAction[binding.KeyMap.Primary]; exists {
					t.Errorf("Duplicate key binding '%s' in context '%s': "+
						"first assigned to action '%s', then to '%s'",
						binding.KeyMap.Primary, contextName, existingAction, binding.Action)
				} else {
					keyToAction[binding.KeyMap.Primary] = binding.Action
				}

				// Check secondary key if it exists
				if binding.KeyMap.Secondary != "" {
					if existingAction, exists := keyToAction[binding.KeyMap.Secondary]; exists {
						t.Errorf("Duplicate key binding '%s' in context '%s': "+
							"first assigned to action '%s', then to '%s'",
							binding.KeyMap.Secondary, contextName, existingAction, binding.Action)
					} else {
						keyToAction[binding.KeyMap.Secondary] = binding.Action
					}
				}
			}
		})
	}
}

func TestGetActionByKey(t *testing.T) {
	tests := []struct {
		name    string
		msg     tea.KeyMsg
		context ContextName
		want    Action
	}{
		{name: "space bar", msg: tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, context: ContextNowPlaying, want: ActionTogglePlay},
		{name: "secondary key", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")}, context: ContextNowPlaying, want: ActionTogglePlay},
		{name: "arrow", msg: tea.KeyMsg{Type: tea.KeyRight}, context: ContextNowPlaying, want: ActionSeekForward},
		{name: "navigation included", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}, context: ContextHistory, want: ActionMoveDown},
		{name: "not bound in context", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")}, context: ContextHistory, want: ""},
		{name: "unknown context", msg: tea.KeyMsg{Type: tea.KeyEnter}, context: "nope", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetActionByKey(tt.msg, tt.context); got != tt.want {
				t.Errorf("GetActionByKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatKeyHelp(t *testing.T) {
	if got := FormatKeyHelp(nowPlayingBindings[0]); got != "space/p: Play/pause" {
		t.Errorf("FormatKeyHelp() = %q", got)
	}
	if got := GetActionKey(ActionStop, nowPlayingBindings); got != "s" {
		t.Errorf("GetActionKey() = %q", got)
	}
}

func TestWithoutNavigation(t *testing.T) {
	got := WithoutNavigation(ContextBindings[ContextHistory])
	if len(got) != 2 || got[0].Action != ActionSelect || got[1].Action != ActionEnableSearch {
		t.Errorf("WithoutNavigation() = %v", got)
	}
}
