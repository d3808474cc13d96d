package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// UserConfigDir is the directory for user-level config, relative to $HOME.
	UserConfigDir = ".config/beehere"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Environment variables read by the loader.
const (
	EnvAPIURL   = "BEEHERE_API_URL"
	EnvDatabase = "BEEHERE_DB"
	EnvTimeout  = "BEEHERE_TIMEOUT"
	EnvLogLevel = "BEEHERE_LOG_LEVEL"
)

// Overrides are values set on the command line. They win over every other
// layer. Zero fields are ignored; Timeout uses a pointer so an explicit 0
// can switch a configured timeout off.
type Overrides struct {
	APIURL   string
	Database string
	Timeout  *time.Duration
	LogLevel string
}

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger   *slog.Logger
	userPath string
	getenv   func(string) string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithUserConfigPath overrides the user config location. An empty path
// disables the user layer.
func WithUserConfigPath(path string) LoaderOption {
	return func(l *Loader) { l.userPath = path }
}

// WithGetenv overrides the environment lookup.
func WithGetenv(getenv func(string) string) LoaderOption {
	return func(l *Loader) {
		if getenv != nil {
			l.getenv = getenv
		}
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, userPath: userConfigPath(), getenv: os.Getenv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with layered precedence:
//  1. Default config
//  2. User config (~/.config/beehere/config.yaml), if present
//  3. Explicit config file (--config), which must exist when named
//  4. Environment variables (BEEHERE_*)
//  5. Command-line overrides
//
// The merged result is validated against the schema.
func (l *Loader) Load(explicitPath string, ov Overrides) (*Config, error) {
	config := DefaultConfig()

	if l.userPath != "" {
		userConfig, err := LoadFromFile(l.userPath)
		switch {
		case err == nil:
			l.logger.Debug("Loaded user config", slog.String("path", l.userPath))
			config.Merge(userConfig)
		case errors.Is(err, fs.ErrNotExist):
			l.logger.Debug("No user config", slog.String("path", l.userPath))
		default:
			return nil, err
		}
	}

	if explicitPath != "" {
		fileConfig, err := LoadFromFile(explicitPath)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", explicitPath))
		config.Merge(fileConfig)
	}

	envConfig, err := l.fromEnv()
	if err != nil {
		return nil, err
	}
	config.Merge(envConfig)

	config.Merge(&Config{APIURL: ov.APIURL, Database: ov.Database, LogLevel: ov.LogLevel})
	if ov.Timeout != nil {
		config.Timeout = *ov.Timeout
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (l *Loader) fromEnv() (*Config, error) {
	c := &Config{
		APIURL:   l.getenv(EnvAPIURL),
		Database: l.getenv(EnvDatabase),
		LogLevel: l.getenv(EnvLogLevel),
	}
	if raw := l.getenv(EnvTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return c, nil
}

// EnsureUserConfig creates the user config file with defaults if it
// doesn't exist.
func (l *Loader) EnsureUserConfig() error {
	if l.userPath == "" {
		return errors.New("no user config path")
	}
	if _, err := os.Stat(l.userPath); err == nil {
		return nil
	}

	if err := DefaultConfig().SaveToFile(l.userPath); err != nil {
		return err
	}
	l.logger.Info("Created default user config", slog.String("path", l.userPath))
	return nil
}

func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}
