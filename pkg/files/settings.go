package files

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/completesearch/completesearch-cli/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	ProjectDir   = ".csearch"
	AppName      = "csearch"
	SettingsFile = "settings.yaml"
	HistoryFile  = "history.db"
	LogFile      = "csearch.log"
	ConfigEnvVar = "CSEARCH_CONFIG"
)

// SettingsPath returns the settings file to use. An explicit path wins, then
// $CSEARCH_CONFIG, then a project-local .csearch/settings.yaml, then the user
// config directory. The returned path may not exist.
func SettingsPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(ConfigEnvVar); env != "" {
		return env
	}
	local := filepath.Join(ProjectDir, SettingsFile)
	if fileExists(local) {
		return local
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName, SettingsFile)
	}
	return local
}

// DataDir returns the directory holding the history database and log file.
func DataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	return ProjectDir
}

// ReadSettings loads settings from path. A missing file yields the defaults.
func ReadSettings(path string) (*models.Settings, error) {
	settings := models.DefaultSettings()

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	content = expandEnvVars(content)

	if err := yaml.Unmarshal(content, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML %s: %w", path, err)
	}

	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}

	return settings, nil
}

// WriteSettings writes settings to path, creating parent directories.
func WriteSettings(path string, settings *models.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for settings: %w", err)
	}

	content, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings to YAML: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", path, err)
	}

	return nil
}

// ResolveDataPaths fills in the history and log locations that were left
// empty in the settings.
func ResolveDataPaths(settings *models.Settings) {
	if settings.History.Path == "" {
		settings.History.Path = filepath.Join(DataDir(), HistoryFile)
	}
	if settings.Logging.File == "" {
		settings.Logging.File = filepath.Join(DataDir(), LogFile)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
