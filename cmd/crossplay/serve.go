package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/PizzaHomicide/crossplay/internal/config"
	"github.com/PizzaHomicide/crossplay/internal/server"
	"github.com/PizzaHomicide/crossplay/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the player headless behind the HTTP and WebSocket control API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("address", "", "Address for the control API, overrides server.address")
}

func runServe(cmd *cobra.Command, _ []string) error {
	address, _ := cmd.Flags().GetString("address")
	a, err := setup(cmd.Context(), func(cfg *config.Config) {
		if address != "" {
			cfg.Server.Address = address
		}
	})
	if err != nil {
		return err
	}
	defer a.close()

	var metricsHandler http.Handler
	if !a.cfg.Server.DisableMetrics {
		metrics := telemetry.New()
		a.player.Observe(metrics.Observe)
		metricsHandler = metrics.Handler()
	}

	srv := server.New(a.player, a.bus, server.Config{
		Address: a.cfg.Server.Address,
		Metrics: metricsHandler,
		Logger:  a.logger,
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	runRemote, closeRemote := a.startRemote(ctx)
	defer closeRemote()

	g.Go(func() error { return srv.Run(ctx) })
	g.Go(runRemote)
	return g.Wait()
}
