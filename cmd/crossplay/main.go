package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PizzaHomicide/crossplay"
	"github.com/PizzaHomicide/crossplay/internal/config"
	"github.com/PizzaHomicide/crossplay/internal/events"
	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/remote"
	"github.com/PizzaHomicide/crossplay/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "crossplay",
	Short:         "Play soundcloud, youtube, dropbox and direct media links through one player",
	Version:       version.GetVersionInfo(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables that override the config file",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Print(config.EnvHelp())
	},
}

func init() {
	rootCmd.AddCommand(playCmd, serveCmd, envCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is what every command needs: the config, a logger and a running player publishing to a bus
type app struct {
	cfg    *config.Config
	logger *log.Logger
	player *crossplay.Player
	bus    *events.Bus
}

// setup loads the config, initialises logging and builds the player.  mutate may adjust the config first.
func setup(ctx context.Context, mutate func(*config.Config)) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		// It is unrecoverable if we cannot produce an application config
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger, err := log.New(log.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}
	log.SetDefaultLogger(logger)
	log.Info("Starting up crossplay", "version", version.GetVersion(), "build_time", version.GetBuildTime())

	p, err := crossplay.FromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Close()
		return nil, err
	}

	bus := events.NewBus()
	p.Observe(bus.Publish)
	return &app{cfg: cfg, logger: logger, player: p, bus: bus}, nil
}

// startRemote registers the MPRIS player when enabled.  Without a session bus the desktop controls are skipped.
func (a *app) startRemote(ctx context.Context) (run func() error, closeFn func()) {
	noop := func() error { return nil }
	if !a.cfg.Remote.MPRIS {
		return noop, func() {}
	}
	mp, err := remote.RegisterMprisPlayer(a.player, a.bus, a.logger)
	if err != nil {
		log.Warn("MPRIS unavailable", "error", err)
		return noop, func() {}
	}
	return func() error { return mp.Run(ctx) }, func() { _ = mp.Close() }
}

func (a *app) close() {
	if err := a.player.Close(); err != nil {
		log.Warn("Error while closing the player", "error", err)
	}
	a.bus.Close()
	log.Info("crossplay shutting down.  Goodbye!")
	a.logger.Close()
}
