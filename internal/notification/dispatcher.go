package notification

import (
	"context"
	"io"
	"time"

	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
)

const (
	componentName = "notification"

	// DefaultSendTimeout bounds a single provider delivery.
	DefaultSendTimeout = 10 * time.Second
)

// Dispatcher fans a notification out to its providers. A failing provider
// is logged and does not stop delivery to the others.
type Dispatcher struct {
	providers []Provider
	timeout   time.Duration
	log       logger.Logger
	metrics   *metrics.NotificationMetrics
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithLogger(log logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

func WithMetrics(m *metrics.NotificationMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithSendTimeout overrides DefaultSendTimeout.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher returns a dispatcher over providers. Nil providers are skipped.
func NewDispatcher(providers []Provider, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		timeout: DefaultSendTimeout,
		log:     logger.Global().Module(componentName),
	}
	for _, p := range providers {
		if p != nil {
			d.providers = append(d.providers, p)
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify delivers n to every provider and returns the joined delivery
// errors. Callers usually only log them.
func (d *Dispatcher) Notify(ctx context.Context, n *Notification) error {
	if d == nil || n == nil {
		return nil
	}
	d.metrics.IncrementDispatchTotal()

	var errs []error
	for _, p := range d.providers {
		if err := d.send(ctx, p, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) send(ctx context.Context, p Provider, n *Notification) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := p.Send(sendCtx, n.Clone())
	status := metrics.ResultSuccess
	if err != nil {
		status = metrics.ResultError
		d.log.Warn("notification delivery failed",
			logger.String("provider", p.Name()),
			logger.String("notification_id", n.ID),
			logger.String("type", string(n.Type)),
			logger.Error(err))
	}
	d.metrics.RecordDelivery(p.Name(), string(n.Type), status, time.Since(start))
	return err
}

// Providers returns the names of the configured providers.
func (d *Dispatcher) Providers() []string {
	names := make([]string, 0, len(d.providers))
	for _, p := range d.providers {
		names = append(names, p.Name())
	}
	return names
}

// NewDispatcherFromSettings builds the console and shoutrrr providers that
// settings enable. console may be nil when console output is not wanted.
func NewDispatcherFromSettings(settings *conf.NotificationSettings, console io.Writer, opts ...DispatcherOption) (*Dispatcher, error) {
	var providers []Provider
	if settings.Console && console != nil {
		providers = append(providers, NewConsoleProvider(console))
	}
	if len(settings.URLs) > 0 {
		push, err := NewShoutrrrProvider(settings.URLs, settings.Timeout)
		if err != nil {
			return nil, err
		}
		providers = append(providers, push)
	}
	return NewDispatcher(providers, append(opts, WithSendTimeout(settings.Timeout))...), nil
}
