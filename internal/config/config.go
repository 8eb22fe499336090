// Package config loads voicenotes settings from TOML with env overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jwulff/voicenotes/internal/daemon"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	BackendDaemon = "daemon"

	defaultLocale             = "en-US"
	defaultProcessingDelayMS  = 1000
	defaultMaxRestartFailures = 3
	defaultPersona            = "Droplist"
	defaultStateDirLinux      = ".local/state/voicenotes"
	defaultConfigDir          = ".config/voicenotes"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Recognizer struct {
		Backend    string `toml:"backend"` // daemon
		SocketPath string `toml:"socket_path"`
		Locale     string `toml:"locale"`
	} `toml:"recognizer"`

	Recording struct {
		ProcessingDelayMS  int `toml:"processing_delay_ms"`
		MaxRestartFailures int `toml:"max_restart_failures"`
	} `toml:"recording"`

	Export struct {
		Dir         string `toml:"dir"`
		OpenCommand string `toml:"open_command"` // e.g. "open -R"; file path is appended
	} `toml:"export"`

	Archive struct {
		Enabled bool   `toml:"enabled"`
		DBPath  string `toml:"db_path"`
	} `toml:"archive"`

	Chat struct {
		Persona string `toml:"persona"`
	} `toml:"chat"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if runtime.GOOS == "darwin" {
		stateDir = filepath.Join(home, "Library", "Application Support", "voicenotes")
	}

	cfg := &Config{}

	cfg.Recognizer.Backend = BackendDaemon
	cfg.Recognizer.SocketPath = daemon.SocketPath()
	cfg.Recognizer.Locale = defaultLocale

	cfg.Recording.ProcessingDelayMS = defaultProcessingDelayMS
	cfg.Recording.MaxRestartFailures = defaultMaxRestartFailures

	cfg.Export.Dir = "."

	cfg.Archive.Enabled = true
	cfg.Archive.DBPath = filepath.Join(stateDir, "voicenotes.sqlite")

	cfg.Chat.Persona = defaultPersona

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "voicenotes.log")

	return cfg, nil
}

// DefaultPath returns ~/.config/voicenotes/config.toml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultConfigDir, "config.toml")
}

// Load loads config from file, applying defaults and env overrides. A
// missing file is created from the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultPath()
	}

	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects settings the app cannot run with.
func (c *Config) Validate() error {
	if c.Recognizer.Backend != BackendDaemon {
		return fmt.Errorf("recognizer.backend %q not supported (want %q)", c.Recognizer.Backend, BackendDaemon)
	}
	if c.Recording.ProcessingDelayMS < 0 {
		return fmt.Errorf("recording.processing_delay_ms must be >= 0 (got %d)", c.Recording.ProcessingDelayMS)
	}
	if c.Recording.MaxRestartFailures < 1 {
		return fmt.Errorf("recording.max_restart_failures must be >= 1 (got %d)", c.Recording.MaxRestartFailures)
	}
	return nil
}

// ProcessingDelay is the pause between stopping and returning to ready.
func (c *Config) ProcessingDelay() time.Duration {
	return time.Duration(c.Recording.ProcessingDelayMS) * time.Millisecond
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath), filepath.Dir(cfg.Archive.DBPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VOICENOTES_SOCKET"); v != "" {
		cfg.Recognizer.SocketPath = v
	}
	if v := os.Getenv("VOICENOTES_LOCALE"); v != "" {
		cfg.Recognizer.Locale = v
	}
	if v := os.Getenv("VOICENOTES_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("VOICENOTES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VOICENOTES_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("VOICENOTES_ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = v != "0" && strings.ToLower(v) != "false"
	}
}
