package main

import (
	"github.com/spf13/cobra"

	"github.com/PizzaHomicide/crossplay/internal/config"
	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/ui/tui"
)

var playCmd = &cobra.Command{
	Use:   "play [url]",
	Short: "Open the interactive player, optionally starting with a URL",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().Bool("show-browser", false, "Show the browser window that hosts the soundcloud and youtube players")
}

func runPlay(cmd *cobra.Command, args []string) error {
	showBrowser, _ := cmd.Flags().GetBool("show-browser")
	a, err := setup(cmd.Context(), func(cfg *config.Config) {
		if showBrowser {
			cfg.Embed.ShowBrowser = true
		}
	})
	if err != nil {
		return err
	}
	defer a.close()

	runRemote, closeRemote := a.startRemote(cmd.Context())
	defer closeRemote()
	go func() {
		if err := runRemote(); err != nil {
			log.Warn("MPRIS stopped", "error", err)
		}
	}()

	opts := tui.Options{
		RecentURLs:  a.cfg.UI.RecentURLs,
		HistorySize: a.cfg.UI.HistorySize,
		Remember: func(url string) error {
			return config.RememberURL(url, a.cfg.UI.HistorySize)
		},
	}
	if len(args) == 1 {
		opts.InitialURL = args[0]
	}

	if err := tui.Run(cmd.Context(), a.player, a.bus, opts); err != nil {
		log.Error("Unhandled error while running TUI", "error", err)
		return err
	}
	return nil
}
