// Package telemetry reports internal failures to Sentry when the volunteer
// opts in. Messages are scrubbed of URLs, tokens and captcha values first,
// and user-caused outcomes are never sent.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
)

const componentName = "telemetry"

// reportable lists the categories worth a Sentry event. Validation,
// conflicts, missing sheets and connectivity problems are expected during
// normal use.
var reportable = map[errors.ErrorCategory]bool{
	errors.CategoryHTTP:          true,
	errors.CategoryFileIO:        true,
	errors.CategoryFileParsing:   true,
	errors.CategoryDatabase:      true,
	errors.CategoryConfiguration: true,
	errors.CategoryIntegration:   true,
	errors.CategoryGeneric:       true,
}

// SentryReporter implements errors.TelemetryReporter on its own hub.
type SentryReporter struct {
	hub *sentry.Hub
	log logger.Logger
}

// Option adjusts the Sentry client options.
type Option func(*sentry.ClientOptions)

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) { o.Transport = t }
}

// NewSentryReporter creates a reporter for dsn.
func NewSentryReporter(dsn, release string, opts ...Option) (*SentryReporter, error) {
	options := sentry.ClientOptions{
		Dsn:              dsn,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          release,
		BeforeSend:       applyPrivacyFilters,
	}
	for _, opt := range opts {
		opt(&options)
	}

	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}

	return &SentryReporter{
		hub: sentry.NewHub(client, sentry.NewScope()),
		log: logger.Global().Module(componentName),
	}, nil
}

// Init installs a SentryReporter as the global error reporter when
// settings.Sentry.Enabled is set. It returns nil when reporting is off.
func Init(settings *conf.Settings, release string, opts ...Option) (*SentryReporter, error) {
	if !settings.Sentry.Enabled {
		return nil, nil
	}
	r, err := NewSentryReporter(settings.Sentry.DSN, release, opts...)
	if err != nil {
		return nil, err
	}
	errors.SetTelemetryReporter(r)
	r.log.Info("error reporting enabled", logger.String("release", release))
	return r, nil
}

func (r *SentryReporter) IsEnabled() bool {
	return r != nil && r.hub.Client() != nil
}

// ReportError sends ee if its category is reportable. Each error is sent at
// most once.
func (r *SentryReporter) ReportError(ee *errors.EnhancedError) {
	if !r.IsEnabled() || ee == nil || ee.IsReported() || !reportable[errors.CategoryOf(ee)] {
		return
	}
	ee.MarkReported()

	component := ee.GetComponent()
	message := errors.ScrubMessage(ee.Error())
	title := fmt.Sprintf("%s %s error", component, ee.GetCategory())

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetTag("category", ee.GetCategory())
		scope.SetFingerprint([]string{title})

		event := sentry.NewEvent()
		event.Level = levelFor(ee.GetPriority())
		event.Timestamp = ee.GetTimestamp()
		event.Message = message
		for k, v := range ee.GetContext() {
			if str, ok := v.(string); ok {
				v = errors.ScrubMessage(str)
			}
			event.Extra[k] = v
		}
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		r.hub.CaptureEvent(event)
	})
}

// levelFor maps an error priority to a Sentry level. Errors without an
// explicit priority are reported as errors.
func levelFor(priority string) sentry.Level {
	switch priority {
	case errors.PriorityCritical:
		return sentry.LevelFatal
	case errors.PriorityMedium:
		return sentry.LevelWarning
	case errors.PriorityLow:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

// Flush waits up to timeout for queued events to be sent.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	if !r.IsEnabled() {
		return true
	}
	return r.hub.Flush(timeout)
}

// applyPrivacyFilters strips host and user details from every event.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}
