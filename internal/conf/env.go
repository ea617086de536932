// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SHEETREVIEW"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "SHEETREVIEW_DEBUG", validateEnvBool},

		{"api.baseurl", "SHEETREVIEW_API_BASEURL", validateEnvURL},
		{"api.timeout", "SHEETREVIEW_API_TIMEOUT", validateEnvDuration},
		{"api.useragent", "SHEETREVIEW_API_USERAGENT", nil},
		{"api.ratelimit", "SHEETREVIEW_API_RATELIMIT", validateEnvNonNegativeFloat},

		{"ledger.backend", "SHEETREVIEW_LEDGER_BACKEND", validateEnvLedgerBackend},
		{"ledger.path", "SHEETREVIEW_LEDGER_PATH", nil},

		{"progress.totalexpected", "SHEETREVIEW_PROGRESS_TOTALEXPECTED", validateEnvPositiveInt},
		{"progress.cachettl", "SHEETREVIEW_PROGRESS_CACHETTL", validateEnvDuration},

		{"notification.console", "SHEETREVIEW_NOTIFICATION_CONSOLE", validateEnvBool},

		{"metrics.enabled", "SHEETREVIEW_METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "SHEETREVIEW_METRICS_LISTEN", nil},

		{"sentry.enabled", "SHEETREVIEW_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "SHEETREVIEW_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative, got %s", d)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than 0, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 {
		return fmt.Errorf("must not be negative, got %g", f)
	}
	return nil
}

func validateEnvLedgerBackend(value string) error {
	switch strings.TrimSpace(value) {
	case LedgerBackendFile, LedgerBackendSQLite, LedgerBackendMemory:
		return nil
	default:
		return fmt.Errorf("ledger backend must be one of %s, %s, %s", LedgerBackendFile, LedgerBackendSQLite, LedgerBackendMemory)
	}
}
