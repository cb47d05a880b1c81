package crossplay

import (
	"context"
	"fmt"

	"github.com/PizzaHomicide/crossplay/internal/backend"
	"github.com/PizzaHomicide/crossplay/internal/config"
	"github.com/PizzaHomicide/crossplay/internal/embed"
	"github.com/PizzaHomicide/crossplay/internal/log"
	"github.com/PizzaHomicide/crossplay/internal/mpv"
	"github.com/PizzaHomicide/crossplay/internal/player"
	"github.com/PizzaHomicide/crossplay/internal/soundcloud"
)

// OptionsFromConfig maps the player section of the configuration onto orchestrator options
func OptionsFromConfig(cfg *config.Config) Options {
	pc := cfg.Player
	opts := player.DefaultOptions(pc.MountPoint)
	opts.ProgressInterval = pc.ProgressInterval
	opts.EnableStreamingWidget = pc.BackendEnabled(string(StreamingWidget))
	opts.EnableVideoEmbed = pc.BackendEnabled(string(VideoEmbed))
	opts.EnableDirectLink = pc.BackendEnabled(string(DirectLink))
	opts.EnableCloudFile = pc.BackendEnabled(string(CloudFile))
	opts.StreamingClientID = cfg.SoundCloud.ClientID
	opts.TouchMobile = pc.TouchMobile
	opts.RetryBackoff = pc.RetryBackoff
	opts.ReadyTimeout = pc.ReadyTimeout
	opts.SeekMaskWindow = pc.SeekMaskWindow
	if pc.DisableSeekMask {
		opts.SeekMaskWindow = 0
	}
	return opts
}

// FromConfig builds a player with the production backends: mpv for the native audio element, the soundcloud HTTP API
// when a client id is configured and a browser page for the widget and video embeds.  Without the browser the embed
// based backends are disabled.
func FromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Player, error) {
	if logger == nil {
		logger = log.L()
	}
	opts := OptionsFromConfig(cfg)
	opts.Logger = logger
	if opts.MountPoint == "" {
		return nil, ErrMountPointRequired
	}

	newElement := mpv.Factory(mpv.Config{
		Path:   cfg.Audio.Path,
		Args:   cfg.Audio.Args,
		Logger: logger,
	})

	var resolver backend.Resolver
	if cfg.SoundCloud.ClientID != "" {
		resolver = soundcloud.NewClient(cfg.SoundCloud.ClientID, cfg.SoundCloud.APIBase, cfg.SoundCloud.ResolveTimeout, logger)
	}

	// The page is only needed by the youtube backend and the soundcloud widget mode
	needsPage := opts.EnableVideoEmbed || (opts.EnableStreamingWidget && resolver == nil)
	var host *embed.Host
	switch {
	case needsPage && cfg.Embed.Disabled:
		logger.Info("Embed host disabled, widget and video backends are unavailable")
		opts.EnableVideoEmbed = false
		if resolver == nil {
			opts.EnableStreamingWidget = false
		}
	case needsPage:
		h, err := embed.New(ctx, embed.Config{
			MountPoint:  opts.MountPoint,
			BrowserBin:  cfg.Embed.BrowserBin,
			ControlURL:  cfg.Embed.ControlURL,
			Show:        cfg.Embed.ShowBrowser,
			TouchMobile: opts.TouchMobile,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start embed host: %w", err)
		}
		host = h
		opts.Surface = h
	}

	factories := map[BackendID]player.Factory{
		DirectLink: backend.NewDirectLink(newElement),
		CloudFile:  backend.NewCloudFile(newElement),
	}
	streaming := backend.StreamingConfig{Resolver: resolver, NewElement: newElement}
	if host != nil {
		streaming.WidgetAPI = host.Widgets()
		factories[VideoEmbed] = backend.NewVideoEmbed(host.Videos())
	}
	factories[StreamingWidget] = backend.NewStreamingWidget(streaming)

	p, err := New(opts, factories)
	if err != nil {
		if host != nil {
			_ = host.Close()
		}
		return nil, err
	}
	if host != nil {
		p.closers = append(p.closers, host)
	}
	return p, nil
}
