package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Player     PlayerConfig     `yaml:"player,omitempty"`
	SoundCloud SoundCloudConfig `yaml:"soundcloud,omitempty"`
	Audio      AudioConfig      `yaml:"audio,omitempty"`
	Embed      EmbedConfig      `yaml:"embed,omitempty"`
	Server     ServerConfig     `yaml:"server,omitempty"`
	Remote     RemoteConfig     `yaml:"remote,omitempty"`
	UI         UIConfig         `yaml:"ui,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
}

// PlayerConfig contains the orchestrator settings
type PlayerConfig struct {
	// Identifier of the container the backends render into.  Required.
	MountPoint       string        `yaml:"mount_point,omitempty"`
	ProgressInterval time.Duration `yaml:"progress_interval,omitempty"`
	// Backends listed here are not constructed.  One or more of: soundcloud, youtube, weblink, dropbox
	DisabledBackends []string `yaml:"disabled_backends,omitempty"`
	// Treat the device as a touch-mobile platform that requires extra user interaction before media can start
	TouchMobile     bool          `yaml:"touch_mobile,omitempty"`
	RetryBackoff    time.Duration `yaml:"retry_backoff,omitempty"`
	ReadyTimeout    time.Duration `yaml:"ready_timeout,omitempty"`
	SeekMaskWindow  time.Duration `yaml:"seek_mask_window,omitempty"`
	DisableSeekMask bool          `yaml:"disable_seek_mask,omitempty"`
}

// SoundCloudConfig contains settings for the streaming service HTTP API
type SoundCloudConfig struct {
	// When set, soundcloud URLs are resolved over the HTTP API and streamed directly instead of using the widget
	ClientID       string        `yaml:"client_id,omitempty"`
	APIBase        string        `yaml:"api_base,omitempty"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout,omitempty"`
}

// AudioConfig contains settings for the mpv process that backs the native audio element
type AudioConfig struct {
	Path string `yaml:"path,omitempty"`
	Args string `yaml:"args,omitempty"`
}

// EmbedConfig contains settings for the browser page that hosts the widget and video embeds
type EmbedConfig struct {
	Disabled bool `yaml:"disabled,omitempty"`
	// Path to a chromium binary.  When empty, rod downloads or locates one.
	BrowserBin string `yaml:"browser_bin,omitempty"`
	// Connect to an already running browser instead of launching one
	ControlURL  string `yaml:"control_url,omitempty"`
	ShowBrowser bool   `yaml:"show_browser,omitempty"`
}

// ServerConfig contains settings for the HTTP control API used by `crossplay serve`
type ServerConfig struct {
	Address        string `yaml:"address,omitempty"`
	DisableMetrics bool   `yaml:"disable_metrics,omitempty"`
}

// RemoteConfig contains desktop remote control settings
type RemoteConfig struct {
	MPRIS bool `yaml:"mpris,omitempty"`
}

// UIConfig contains settings for the interactive player
type UIConfig struct {
	HistorySize int `yaml:"history_size,omitempty"`
	// Most recent first.  Maintained by the TUI.
	RecentURLs []string `yaml:"recent_urls,omitempty"`
}

// LoggingConfig contains log related settings
type LoggingConfig struct {
	Level    string `yaml:"level,omitempty"`
	FilePath string `yaml:"file_path,omitempty"`
}

// Load builds a configuration struct from multiple sources using these steps:
// 1. Create a base config with default values
// 2. If no config file exists on disk, save the default config to that location
// 3. Apply 'dynamic' properties.  Dynamic properties are those that are determined at runtime, for example log file location which is different per OS.
// 4. Load & merge the config file, overwriting any defaults with user-specified values
// 5. Apply environment variable overrides
func Load() (*Config, error) {
	// 1. Start with base defaults
	cfg := createBaseDefaultConfig()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to determine config file path: %w", err)
	}

	// 2. If no config file exists on disk, then write a default one
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		// If there is an error saving the default config, then still let the application startup using the defaults.
		_ = save(cfg, configPath)
	}

	// 3. Apply dynamic defaults if necessary
	applyDynamicDefaults(cfg)

	// 4. Load the config from disk and merge it into the base defaults
	fileConfig, err := loadFromDisk(configPath)
	if err != nil {
		return nil, err
	}
	// Overrides the config with any values coming from the loaded file
	if err = mergo.Merge(cfg, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("error merging config loaded from disk: %w", err)
	}

	// 5. Apply the environment variable overrides which take precedence
	if err = applyEnvVarOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// BackendEnabled reports whether the named backend is absent from the disabled list
func (c PlayerConfig) BackendEnabled(id string) bool {
	for _, disabled := range c.DisabledBackends {
		if disabled == id {
			return false
		}
	}
	return true
}

// RememberURL moves url to the front of the recent URL list on disk, keeping at most limit entries
func RememberURL(url string, limit int) error {
	return UpdateConfig(func(cfg *Config) {
		cfg.UI.RecentURLs = pushRecent(cfg.UI.RecentURLs, url, limit)
	})
}

func pushRecent(recent []string, url string, limit int) []string {
	out := []string{url}
	for _, u := range recent {
		if u != url {
			out = append(out, u)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// applyDynamicDefaults sets runtime-determined default values for any properties that haven't been explicitly configured.
// Unlike static defaults, these values might change between runs based on the environment or system configuration.
func applyDynamicDefaults(cfg *Config) {
	cfg.Logging.FilePath = defaultLogFilePath()
}

// loadFromDisk loads the YAML config from disk and returns the unmarshalled Config
func loadFromDisk(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return cfg, nil
}

func save(cfg *Config, configPath string) error {
	// Create config dir if not exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// UpdateConfig reads the existing config, applies the update function, and saves it back to disk
func UpdateConfig(updateFn func(*Config)) error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("unable to determine config file path: %w", err)
	}

	cfg, err := loadFromDisk(configPath)
	if err != nil {
		return fmt.Errorf("error loading config file from disk: %w", err)
	}

	updateFn(cfg)

	return save(cfg, configPath)
}

// getConfigPath returns the path to the config file.  Uses the environment variable override if present, else tries
// to use OS config location defaults.
func getConfigPath() (string, error) {
	configPath := os.Getenv(envConfigPath)
	if configPath != "" {
		return configPath, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "crossplay", "config.yaml"), nil
}

// createBaseDefaultConfig creates a config with all default values
func createBaseDefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			MountPoint:       "crossplay",
			ProgressInterval: time.Second,
			RetryBackoff:     500 * time.Millisecond,
			ReadyTimeout:     10 * time.Second,
			SeekMaskWindow:   2 * time.Second,
		},
		SoundCloud: SoundCloudConfig{
			APIBase:        "https://api.soundcloud.com",
			ResolveTimeout: 10 * time.Second,
		},
		Audio: AudioConfig{
			Path: "mpv",
		},
		Server: ServerConfig{
			Address: "127.0.0.1:7420",
		},
		UI: UIConfig{
			HistorySize: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultLogFilePath returns the path to the log file.  Tries to use expected OS location defaults.
func defaultLogFilePath() string {
	var basePath string
	homedir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to logging in the current directory if home directory cannot be determined
		return filepath.Join(".", "crossplay.log")
	}

	switch runtime.GOOS {
	case "windows":
		// Windows:  %LOCALAPPDATA%\crossplay\logs
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			basePath = filepath.Join(appData, "crossplay", "logs")
		} else {
			basePath = filepath.Join(homedir, "AppData", "local", "crossplay", "logs")
		}
	case "darwin":
		// macOS:  ~/Library/Logs/crossplay
		basePath = filepath.Join(homedir, "Library", "Logs", "crossplay")
	default:
		// Linux/BSD:  XDG_STATE_HOME
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			basePath = filepath.Join(xdgState, "crossplay", "logs")
		} else {
			basePath = filepath.Join(homedir, ".local", "state", "crossplay", "logs")
		}
	}

	if err = os.MkdirAll(basePath, 0700); err != nil {
		return filepath.Join(".", "crossplay.log")
	}
	return filepath.Join(basePath, "crossplay.log")
}
