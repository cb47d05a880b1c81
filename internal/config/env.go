package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix     = "CROSSPLAY_CONFIG_"
	envConfigPath = envPrefix + "PATH"
)

type envVar struct {
	name  string
	desc  string
	apply func(*Config, string) error
}

var supportedEnvVars = []envVar{
	{
		// Only here for documentation purposes.  Does not override any values in the config as this environment variable
		// points to where the config should be loaded.  It is handled prior to loading the config.
		name:  envConfigPath,
		desc:  "Sets the path to the config file.  Default: OS-specific config directory",
		apply: func(c *Config, s string) error { return nil },
	},
	{
		name:  envPrefix + "PLAYER_MOUNT_POINT",
		desc:  "Sets the container identifier the backends render into.  Default: crossplay",
		apply: func(c *Config, s string) error { c.Player.MountPoint = s; return nil },
	},
	{
		name: envPrefix + "PLAYER_PROGRESS_INTERVAL",
		desc: "Sets how often progress is polled while playing, e.g. 500ms.  Default: 1s",
		apply: func(c *Config, s string) error {
			return parseDuration(s, &c.Player.ProgressInterval)
		},
	},
	{
		name: envPrefix + "PLAYER_DISABLED_BACKENDS",
		desc: "Comma separated list of backends to disable.  Any of: soundcloud, youtube, weblink, dropbox.  Default: None",
		apply: func(c *Config, s string) error {
			c.Player.DisabledBackends = nil
			for _, id := range strings.Split(s, ",") {
				if id = strings.TrimSpace(id); id != "" {
					c.Player.DisabledBackends = append(c.Player.DisabledBackends, id)
				}
			}
			return nil
		},
	},
	{
		name: envPrefix + "PLAYER_TOUCH_MOBILE",
		desc: "Enables the touch-mobile interaction workarounds.  Default: false",
		apply: func(c *Config, s string) error {
			return parseBool(s, &c.Player.TouchMobile)
		},
	},
	{
		name: envPrefix + "PLAYER_RETRY_BACKOFF",
		desc: "Sets the delay between attempts to play on a backend that is still initialising.  Default: 500ms",
		apply: func(c *Config, s string) error {
			return parseDuration(s, &c.Player.RetryBackoff)
		},
	},
	{
		name: envPrefix + "PLAYER_READY_TIMEOUT",
		desc: "Sets how long a backend may take to initialise before it is marked as failed.  Default: 10s",
		apply: func(c *Config, s string) error {
			return parseDuration(s, &c.Player.ReadyTimeout)
		},
	},
	{
		name: envPrefix + "PLAYER_SEEK_MASK_WINDOW",
		desc: "Sets how long the soundcloud widget reports the requested seek position after seeking.  Default: 2s",
		apply: func(c *Config, s string) error {
			return parseDuration(s, &c.Player.SeekMaskWindow)
		},
	},
	{
		name:  envPrefix + "SOUNDCLOUD_CLIENT_ID",
		desc:  "Sets the soundcloud API client id.  Enables direct streaming instead of the widget.  Default: None",
		apply: func(c *Config, s string) error { c.SoundCloud.ClientID = s; return nil },
	},
	{
		name:  envPrefix + "SOUNDCLOUD_API_BASE",
		desc:  "Sets the soundcloud API base URL.  Default: https://api.soundcloud.com",
		apply: func(c *Config, s string) error { c.SoundCloud.APIBase = s; return nil },
	},
	{
		name:  envPrefix + "AUDIO_PATH",
		desc:  "Sets the path to the mpv binary.  Default: mpv",
		apply: func(c *Config, s string) error { c.Audio.Path = s; return nil },
	},
	{
		name:  envPrefix + "AUDIO_ARGS",
		desc:  "Sets additional mpv arguments.  Default: None",
		apply: func(c *Config, s string) error { c.Audio.Args = s; return nil },
	},
	{
		name: envPrefix + "EMBED_DISABLED",
		desc: "Disables the browser that hosts the widget and video embeds.  Default: false",
		apply: func(c *Config, s string) error {
			return parseBool(s, &c.Embed.Disabled)
		},
	},
	{
		name:  envPrefix + "EMBED_BROWSER_BIN",
		desc:  "Sets the path to a chromium binary.  Default: auto-detected",
		apply: func(c *Config, s string) error { c.Embed.BrowserBin = s; return nil },
	},
	{
		name:  envPrefix + "EMBED_CONTROL_URL",
		desc:  "Sets the devtools URL of an already running browser.  Default: None",
		apply: func(c *Config, s string) error { c.Embed.ControlURL = s; return nil },
	},
	{
		name:  envPrefix + "SERVER_ADDRESS",
		desc:  "Sets the listen address of the control API.  Default: 127.0.0.1:7420",
		apply: func(c *Config, s string) error { c.Server.Address = s; return nil },
	},
	{
		name: envPrefix + "REMOTE_MPRIS",
		desc: "Exposes the player over MPRIS2 on the session bus.  Default: false",
		apply: func(c *Config, s string) error {
			return parseBool(s, &c.Remote.MPRIS)
		},
	},
	{
		name:  envPrefix + "LOGGING_LEVEL",
		desc:  "Sets the logging level.  One of: trace, debug, info, warn, error.  Default: info",
		apply: func(c *Config, s string) error { c.Logging.Level = s; return nil },
	},
	{
		name:  envPrefix + "LOGGING_FILE_PATH",
		desc:  "Sets the logging file path.  Default: OS-specific",
		apply: func(c *Config, s string) error { c.Logging.FilePath = s; return nil },
	},
}

func applyEnvVarOverrides(c *Config) error {
	for _, envVar := range supportedEnvVars {
		if value := os.Getenv(envVar.name); value != "" {
			if err := envVar.apply(c, value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar.name, err)
			}
		}
	}
	return nil
}

// EnvHelp returns a description of every supported environment variable, one per line
func EnvHelp() string {
	var b strings.Builder
	for _, envVar := range supportedEnvVars {
		fmt.Fprintf(&b, "  %s\n      %s\n", envVar.name, envVar.desc)
	}
	return b.String()
}

func parseDuration(s string, dst *time.Duration) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func parseBool(s string, dst *bool) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
