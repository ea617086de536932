// config.go: settings struct for sheetreview and the functions to load it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// APISettings describes the sheet review backend.
type APISettings struct {
	BaseURL   string        // base URL of the review API, with trailing slash
	Timeout   time.Duration // per-request timeout
	UserAgent string        // User-Agent header sent with every request
	RateLimit float64       // requests per second, 0 disables client-side limiting
}

// LedgerSettings selects where the contribution counter is persisted.
type LedgerSettings struct {
	Backend string // file, sqlite or memory
	Path    string // state file or database path; empty uses the config directory
}

// ProgressSettings controls the verification progress view.
type ProgressSettings struct {
	TotalExpected int           // number of sheets expected nationwide
	CacheTTL      time.Duration // how long a fetched snapshot is reused
}

// NotificationSettings controls outcome notifications.
type NotificationSettings struct {
	Console bool          // print notifications to the terminal
	URLs    []string      // shoutrrr service URLs for push notifications
	Timeout time.Duration // push delivery timeout
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
	Listen  string // host:port for the /metrics listener
}

// SentrySettings controls opt-in error reporting.
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// Settings contains all configuration options for sheetreview.
type Settings struct {
	Debug bool // true to enable debug mode

	API          APISettings
	Ledger       LedgerSettings
	Progress     ProgressSettings
	Logging      logger.LoggingConfig
	Notification NotificationSettings
	Metrics      MetricsSettings
	Sentry       SentrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, binds environment variables and reads config.yaml.
// A missing config file is created from the embedded template.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Category(errors.CategoryFileParsing).
			Build()
	}

	return nil
}

// createDefaultConfig writes the embedded template into dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(fmt.Errorf("error creating directories for config file: %w", err)).
			Category(errors.CategoryFileIO).
			Context("path", dir).
			Build()
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.New(fmt.Errorf("error writing default config file: %w", err)).
			Category(errors.CategoryFileIO).
			Context("path", configPath).
			Build()
	}

	fmt.Fprintln(os.Stderr, "Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
