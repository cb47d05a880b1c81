package keybindings

import tea "github.com/charmbracelet/bubbletea"

// Action represents a specific action that can be triggered by a key
type Action string

// Define all possible actions
const (
	// Global actions
	ActionQuit       Action = "quit"
	ActionToggleHelp Action = "toggle_help"
	ActionBack       Action = "back" // General purpose "go back" or "cancel"

	// Navigation actions
	ActionMoveUp     Action = "move_up"
	ActionMoveDown   Action = "move_down"
	ActionPageUp     Action = "page_up"
	ActionPageDown   Action = "page_down"
	ActionMoveTop    Action = "move_top"
	ActionMoveBottom Action = "move_bottom"

	// Now playing actions
	ActionTogglePlay   Action = "toggle_play"
	ActionStop         Action = "stop"
	ActionSeekForward  Action = "seek_forward"
	ActionSeekBackward Action = "seek_backward"
	ActionOpenURL      Action = "open_url"
	ActionShowHistory  Action = "show_history"

	// History and URL input actions
	ActionSelect Action = "select"
	ActionSubmit Action = "submit"

	// Search mode actions
	ActionEnableSearch   Action = "enable_search"
	ActionSearchComplete Action = "search_complete"
)

// ContextName represents a specific UI context in the application that has its own keybinds
type ContextName string

const (
	ContextGlobal     ContextName = "global"
	ContextNowPlaying ContextName = "now_playing"
	ContextHistory    ContextName = "history"
	ContextURLInput   ContextName = "url_input"
	ContextSearchMode ContextName = "search_mode"
	ContextHelp       ContextName = "help"
)

var ContextBindings = map[ContextName][]Binding{
	ContextGlobal:     globalBindings,
	ContextNowPlaying: nowPlayingBindings,
	ContextHistory:    historyBindings,
	ContextURLInput:   urlInputBindings,
	ContextSearchMode: searchModeBindings,
	ContextHelp:       helpBindings,
}

// KeyMap stores the mappings from actions to key sequences for each context
type KeyMap struct {
	Primary   string
	Secondary string // Optional alternative key
	Help      string // Description for help screen
}

// Binding maps an action to its keys and help text
type Binding struct {
	Action Action
	KeyMap KeyMap
}

// navigationBindings contains general navigation bindings for consistent navigation across the app
var navigationBindings = []Binding{
	{
		Action: ActionMoveUp,
		KeyMap: KeyMap{
			Primary:   "up",
			Secondary: "k",
			Help:      "Move cursor up",
		},
	},
	{
		Action: ActionMoveDown,
		KeyMap: KeyMap{
			Primary:   "down",
			Secondary: "j",
			Help:      "Move cursor down",
		},
	},
	{
		Action: ActionPageUp,
		KeyMap: KeyMap{
			Primary: "pgup",
			Help:    "Move up one page",
		},
	},
	{
		Action: ActionPageDown,
		KeyMap: KeyMap{
			Primary: "pgdown",
			Help:    "Move down one page",
		},
	},
	{
		Action: ActionMoveTop,
		KeyMap: KeyMap{
			Primary: "home",
			Help:    "Move top of view",
		},
	},
	{
		Action: ActionMoveBottom,
		KeyMap: KeyMap{
			Primary: "end",
			Help:    "Move bottom of view",
		},
	},
}

// globalBindings contains key bindings that work across all views
var globalBindings = []Binding{
	{
		Action: ActionQuit,
		KeyMap: KeyMap{
			Primary: "ctrl+c",
			Help:    "Quit application",
		},
	},
	{
		Action: ActionToggleHelp,
		KeyMap: KeyMap{
			Primary: "ctrl+h",
			Help:    "Toggle help screen",
		},
	},
	{
		Action: ActionBack,
		KeyMap: KeyMap{
			Primary: "esc",
			Help:    "Go back/cancel current action",
		},
	},
}

// nowPlayingBindings contains key bindings specific to the now playing view
var nowPlayingBindings = []Binding{
	{
		Action: ActionTogglePlay,
		KeyMap: KeyMap{
			Primary:   "space",
			Secondary: "p",
			Help:      "Play/pause",
		},
	},
	{
		Action: ActionStop,
		KeyMap: KeyMap{
			Primary: "s",
			Help:    "Stop",
		},
	},
	{
		Action: ActionSeekForward,
		KeyMap: KeyMap{
			Primary:   "right",
			Secondary: "l",
			Help:      "Seek forward 10 seconds",
		},
	},
	{
		Action: ActionSeekBackward,
		KeyMap: KeyMap{
			Primary:   "left",
			Secondary: "h",
			Help:      "Seek back 10 seconds",
		},
	},
	{
		Action: ActionOpenURL,
		KeyMap: KeyMap{
			Primary:   "o",
			Secondary: "ctrl+o",
			Help:      "Open a URL",
		},
	},
	{
		Action: ActionShowHistory,
		KeyMap: KeyMap{
			Primary:   "r",
			Secondary: "ctrl+r",
			Help:      "Recently played URLs",
		},
	},
	{
		Action: ActionQuit,
		KeyMap: KeyMap{
			Primary: "q",
			Help:    "Quit application",
		},
	},
}

// helpBindings contains key bindings specific to the help view
var helpBindings = withNavigation([]Binding{})

// historyBindings contains key bindings specific to the recent URL list
var historyBindings = withNavigation([]Binding{
	{
		Action: ActionSelect,
		KeyMap: KeyMap{
			Primary: "enter",
			Help:    "Play selected URL",
		},
	},
	{
		Action: ActionEnableSearch,
		KeyMap: KeyMap{
			Primary:   "/",
			Secondary: "ctrl+f",
			Help:      "Search recent URLs",
		},
	},
})

// urlInputBindings contains key bindings for when the URL prompt is open
var urlInputBindings = []Binding{
	{
		Action: ActionSubmit,
		KeyMap: KeyMap{
			Primary: "enter",
			Help:    "Play the entered URL",
		},
	},
	{
		Action: ActionBack,
		KeyMap: KeyMap{
			Primary: "esc",
			Help:    "Close the prompt",
		},
	},
}

// searchModeBindings contains key bindings specific for when search mode is active
var searchModeBindings = []Binding{
	{
		Action: ActionBack,
		KeyMap: KeyMap{
			Primary:   "esc",
			Secondary: "ctrl+f",
			Help:      "Exit search mode and remove the filter",
		},
	},
	{
		Action: ActionSearchComplete,
		KeyMap: KeyMap{
			Primary: "enter",
			Help:    "Apply the search filter and return control to the list",
		},
	},
}

// GetActionKey returns the primary key for an action
func GetActionKey(action Action, bindings []Binding) string {
	for _, binding := range bindings {
		if binding.Action == action {
			return binding.KeyMap.Primary
		}
	}
	return ""
}

// GetActionByKey returns just the action for a given key, or an empty Action if not found
func GetActionByKey(keyMsg tea.KeyMsg, name ContextName) Action {
	if bindings, exists := ContextBindings[name]; exists {
		key := keyName(keyMsg)
		for _, binding := range bindings {
			if binding.KeyMap.Primary == key || binding.KeyMap.Secondary == key {
				return binding.Action
			}
		}
	}
	return ""
}

// keyName normalises the space bar, which renders as a literal blank
func keyName(keyMsg tea.KeyMsg) string {
	if keyMsg.Type == tea.KeySpace {
		return "space"
	}
	key := keyMsg.String()
	if key == " " {
		return "space"
	}
	return key
}

// FormatKeyHelp formats a key binding for display in help text
func FormatKeyHelp(binding Binding) string {
	if binding.KeyMap.Secondary != "" {
		return binding.KeyMap.Primary + "/" + binding.KeyMap.Secondary + ": " + binding.KeyMap.Help
	}
	return binding.KeyMap.Primary + ": " + binding.KeyMap.Help
}

// WithoutNavigation drops the shared navigation bindings, leaving what is specific to a context
func WithoutNavigation(bindings []Binding) []Binding {
	nav := make(map[Action]bool, len(navigationBindings))
	for _, b := range navigationBindings {
		nav[b.Action] = true
	}
	var out []Binding
	for _, b := range bindings {
		if !nav[b.Action] {
			out = append(out, b)
		}
	}
	return out
}

// withNavigation is a helper function to include navigation bindings in other binding sets
func withNavigation(bindings []Binding) []Binding {
	return append(append([]Binding{}, navigationBindings...), bindings...)
}
