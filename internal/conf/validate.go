// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Ledger backends.
const (
	LedgerBackendFile   = "file"
	LedgerBackendSQLite = "sqlite"
	LedgerBackendMemory = "memory"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateAPISettings(&settings.API); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLedgerSettings(&settings.Ledger); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateProgressSettings(&settings.Progress); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMetricsSettings(&settings.Metrics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateAPISettings checks the base URL and normalizes it to end in a slash
func validateAPISettings(settings *APISettings) error {
	var errs []string

	u, err := url.Parse(settings.BaseURL)
	switch {
	case settings.BaseURL == "":
		errs = append(errs, "api base URL must not be empty")
	case err != nil:
		errs = append(errs, fmt.Sprintf("invalid api base URL: %v", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Sprintf("api base URL must use http or https, got '%s'", u.Scheme))
	case u.Host == "":
		errs = append(errs, "api base URL must include a host")
	default:
		if !strings.HasSuffix(settings.BaseURL, "/") {
			settings.BaseURL += "/"
		}
	}

	if settings.Timeout < 0 {
		errs = append(errs, "api timeout must not be negative")
	}
	if settings.RateLimit < 0 {
		errs = append(errs, "api rate limit must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("api settings errors: %v", errs)
	}
	return nil
}

func validateLedgerSettings(settings *LedgerSettings) error {
	switch settings.Backend {
	case LedgerBackendFile, LedgerBackendSQLite, LedgerBackendMemory:
		return nil
	case "":
		settings.Backend = LedgerBackendFile
		return nil
	default:
		return fmt.Errorf("ledger backend '%s' is not one of %s, %s, %s",
			settings.Backend, LedgerBackendFile, LedgerBackendSQLite, LedgerBackendMemory)
	}
}

func validateProgressSettings(settings *ProgressSettings) error {
	var errs []string

	if settings.TotalExpected <= 0 {
		errs = append(errs, "progress total expected must be greater than 0")
	}
	if settings.CacheTTL < 0 {
		errs = append(errs, "progress cache TTL must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("progress settings errors: %v", errs)
	}
	return nil
}

func validateMetricsSettings(settings *MetricsSettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("metrics listen address '%s' is invalid: %w", settings.Listen, err)
	}
	return nil
}
