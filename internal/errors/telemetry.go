// Package errors - telemetry integration (optional)
package errors

import (
	"regexp"
	"sync/atomic"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var globalTelemetryReporter atomic.Pointer[TelemetryReporter]

// SetTelemetryReporter sets the global telemetry reporter. Passing nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
		return
	}
	globalTelemetryReporter.Store(&reporter)
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	if p := globalTelemetryReporter.Load(); p != nil {
		return *p
	}
	return nil
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	reporter := GetTelemetryReporter()
	if reporter == nil || !reporter.IsEnabled() || ee.IsReported() {
		return
	}
	reporter.ReportError(ee)
}

var (
	urlQueryRegex  = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	captchaRegex   = regexp.MustCompile(`(?i)"?captcha"?\s*[:=]\s*"?[^"\s,}]+"?`)
	tokenRegex     = regexp.MustCompile(`(?i)(token|dsn|key)[=:]\S+`)
	longHexRegex   = regexp.MustCompile(`[0-9a-fA-F]{32,}`)
	longTokenRegex = regexp.MustCompile(`[A-Za-z0-9_\-]{80,}`)
)

// ScrubMessage removes query strings, captcha tokens and key-like values
// from a message before it leaves the process.
func ScrubMessage(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = captchaRegex.ReplaceAllString(scrubbed, "captcha=[REDACTED]")
	scrubbed = tokenRegex.ReplaceAllString(scrubbed, "$1=[REDACTED]")
	scrubbed = longTokenRegex.ReplaceAllString(scrubbed, "[TOKEN_REDACTED]")
	scrubbed = longHexRegex.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
	return scrubbed
}
