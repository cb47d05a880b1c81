package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/PizzaHomicide/crossplay/internal/events"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui/models"
)

type (
	Controller = models.Controller
	Options    = models.Options
)

// Run shows the now playing screen until the user quits, ctx is cancelled or the bus closes
func Run(ctx context.Context, ctrl Controller, bus *events.Bus, opts Options) error {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	p := tea.NewProgram(models.NewAppModel(ctrl, sub, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
