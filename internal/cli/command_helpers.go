package cli

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/completesearch/completesearch-cli/internal/logger"
	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/files"
	"github.com/completesearch/completesearch-cli/pkg/history"
	"github.com/completesearch/completesearch-cli/pkg/models"
)

// CommandContext loads settings once and builds what commands share
type CommandContext struct {
	ConfigPath string
	Settings   *models.Settings
	Logger     *zap.Logger
}

// NewCommandContext resolves the settings file and reads it. An explicit
// path from --config must exist.
func NewCommandContext(configPath string) (*CommandContext, error) {
	path := files.SettingsPath(configPath)
	if configPath != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("settings file %s: %w", path, err)
		}
	}

	settings, err := files.ReadSettings(path)
	if err != nil {
		return nil, err
	}
	files.ResolveDataPaths(settings)

	return &CommandContext{
		ConfigPath: path,
		Settings:   settings,
		Logger:     zap.NewNop(),
	}, nil
}

// InitLogger builds the logger from the logging settings. An empty file
// writes to stderr.
func (c *CommandContext) InitLogger(file string) error {
	l, err := logger.NewLogger(c.Settings.Logging.Env, c.Settings.Logging.Level, file)
	if err != nil {
		return err
	}
	c.Logger = l
	return nil
}

// NewClient builds the backend client for the configured server.
func (c *CommandContext) NewClient(opts ...backend.Option) (*backend.Client, error) {
	timeout := time.Duration(c.Settings.Backend.TimeoutMs) * time.Millisecond
	opts = append([]backend.Option{
		backend.WithLogger(c.Logger),
		backend.WithTimeout(timeout),
	}, opts...)
	return backend.NewClient(c.Settings.Backend.BaseURL, opts...)
}

// OpenHistory opens the history database.
func (c *CommandContext) OpenHistory() (*history.Store, error) {
	return history.Open(c.Settings.History.Path, c.Settings.History.MaxEntries)
}
