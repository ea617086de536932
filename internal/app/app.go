// Package app wires the review engine together for one command run: the API
// client, the contribution ledger, notifications, progress, metrics and
// error reporting, all built from conf.Settings.
package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirekapreview/reviewer/internal/buildinfo"
	"github.com/sirekapreview/reviewer/internal/catalog"
	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/httpclient"
	"github.com/sirekapreview/reviewer/internal/ledger"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/notification"
	"github.com/sirekapreview/reviewer/internal/observability"
	"github.com/sirekapreview/reviewer/internal/progress"
	"github.com/sirekapreview/reviewer/internal/review"
	"github.com/sirekapreview/reviewer/internal/sheets"
	"github.com/sirekapreview/reviewer/internal/telemetry"
)

const (
	componentName = "app"

	// flushTimeout bounds how long Close waits for queued error reports.
	flushTimeout = 2 * time.Second
)

// App holds the engine components shared by every command.
type App struct {
	Settings *conf.Settings
	Client   *sheets.Client
	Ledger   *ledger.Ledger
	Notifier *notification.Dispatcher
	Progress *progress.Aggregator
	Metrics  *observability.Metrics

	http     *httpclient.Client
	reporter *telemetry.SentryReporter
	log      logger.Logger
}

type options struct {
	console   io.Writer
	transport http.RoundTripper
	build     *buildinfo.Context
	telemetry []telemetry.Option
}

// Option configures New.
type Option func(*options)

// WithConsole sets where console notifications are printed. Without it no
// console provider is registered.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithTransport replaces the HTTP transport, e.g. with httpmock in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithBuildInfo sets the version used for the User-Agent and telemetry release.
func WithBuildInfo(b *buildinfo.Context) Option {
	return func(o *options) { o.build = b }
}

// WithTelemetryOptions passes options through to the Sentry reporter.
func WithTelemetryOptions(opts ...telemetry.Option) Option {
	return func(o *options) { o.telemetry = append(o.telemetry, opts...) }
}

// InitLogging builds the central logger from settings and installs it as
// the global logger. Debug mode lowers the console level to debug.
func InitLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = string(logger.LogLevelDebug)
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = string(logger.LogLevelDebug)
			cfg.Console = &console
		}
	}

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Context("operation", "init-logging").
			Build()
	}
	logger.SetGlobal(cl)
	return cl, nil
}

// New builds every component from settings. The caller must Close the App.
func New(ctx context.Context, settings *conf.Settings, opts ...Option) (*App, error) {
	if settings == nil {
		return nil, errors.Newf("settings are nil").
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Settings: settings,
		log:      logger.Global().Module(componentName),
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryGeneric).
			Component(componentName).
			Context("operation", "init-metrics").
			Build()
	}
	a.Metrics = m

	a.reporter, err = telemetry.Init(settings, o.build.Release(), o.telemetry...)
	if err != nil {
		a.log.Warn("error reporting disabled", logger.Error(err))
	}

	userAgent := settings.API.UserAgent
	if userAgent == "" || userAgent == "sheetreview" {
		userAgent = o.build.UserAgent()
	}
	a.http = httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.API.Timeout,
		UserAgent:      userAgent,
		RateLimit:      settings.API.RateLimit,
		Transport:      o.transport,
	})

	a.Client, err = sheets.NewClient(settings.API.BaseURL, a.http,
		sheets.WithMetrics(m.Review))
	if err != nil {
		a.http.Close()
		return nil, err
	}

	store, err := ledger.NewStoreFromSettings(settings, logger.Global().Module("ledger"))
	if err != nil {
		a.http.Close()
		return nil, err
	}
	a.Ledger, err = ledger.New(ctx, store, nil, ledger.WithMetrics(m.Review))
	if err != nil {
		_ = store.Close()
		a.http.Close()
		return nil, err
	}

	a.Notifier, err = notification.NewDispatcherFromSettings(&settings.Notification, o.console,
		notification.WithMetrics(m.Notification))
	if err != nil {
		_ = a.Ledger.Close()
		a.http.Close()
		return nil, err
	}

	a.Progress = progress.NewAggregator(a.Client, progress.Config{
		TotalExpected: settings.Progress.TotalExpected,
		CacheTTL:      settings.Progress.CacheTTL,
		FetchTimeout:  settings.API.Timeout,
	}, progress.WithMetrics(m.Review))

	a.log.Debug("engine ready",
		logger.String("api", settings.API.BaseURL),
		logger.String("ledger_backend", settings.Ledger.Backend),
		logger.Int("contributed", a.Ledger.Count()),
		logger.Any("notification_providers", a.Notifier.Providers()))
	return a, nil
}

// NewCatalog returns a catalog over the collection that mode browses.
func (a *App) NewCatalog(mode review.Mode) (*catalog.Catalog, error) {
	return catalog.New(a.Client, mode.Collection(), catalog.WithMetrics(a.Metrics.Review))
}

// NewSession returns a review session backed by cat and the App's client,
// ledger and notifier.
func (a *App) NewSession(mode review.Mode, cat *catalog.Catalog, opts ...review.Option) (*review.Session, error) {
	deps := review.Deps{
		Submitter: a.Client,
		Details:   a.Client,
		Ledger:    a.Ledger,
		Catalog:   cat,
		Notifier:  a.Notifier,
	}
	return review.NewSession(mode, deps, append([]review.Option{review.WithMetrics(a.Metrics.Review)}, opts...)...)
}

// StartMetricsEndpoint serves /metrics until ctx is cancelled. It does
// nothing when metrics are disabled.
func (a *App) StartMetricsEndpoint(ctx context.Context) (*observability.Endpoint, error) {
	if !a.Settings.Metrics.Enabled {
		return nil, nil
	}
	endpoint, err := observability.NewEndpoint(a.Settings, a.Metrics)
	if err != nil {
		return nil, err
	}
	if err := endpoint.Start(ctx); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			Component(componentName).
			Context("listen", a.Settings.Metrics.Listen).
			Build()
	}
	return endpoint, nil
}

// Close releases the ledger store and idle connections and flushes pending
// error reports.
func (a *App) Close() error {
	var errs []error
	if a.Ledger != nil {
		if err := a.Ledger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.http != nil {
		a.http.Close()
	}
	if a.reporter.IsEnabled() {
		a.reporter.Flush(flushTimeout)
	}
	return errors.Join(errs...)
}
