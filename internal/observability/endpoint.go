package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/logger"
	metricspkg "github.com/sirekapreview/reviewer/internal/observability/metrics"
)

const readHeaderTimeout = 5 * time.Second

// Endpoint serves /metrics while a command runs.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	addr          net.Addr
	done          chan struct{}
	log           logger.Logger
}

// NewEndpoint returns an Endpoint for settings.Metrics.Listen. It fails when
// metrics are disabled in settings. It logs through the global logger as
// configured at the time of the call.
func NewEndpoint(settings *conf.Settings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Metrics.Enabled {
		return nil, fmt.Errorf("metrics not enabled in settings")
	}

	return &Endpoint{
		listenAddress: settings.Metrics.Listen,
		metrics:       metrics,
		log:           logger.Global().Module("metrics"),
	}, nil
}

// Start binds the listen address and serves in the background until ctx is
// cancelled. A bind failure is returned to the caller.
func (e *Endpoint) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	listener, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return fmt.Errorf("metrics listener on %s: %w", e.listenAddress, err)
	}

	e.addr = listener.Addr()
	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		e.log.Info("metrics endpoint starting", logger.String("address", listener.Addr().String()))
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics HTTP server error", logger.Error(err))
		}
	}()

	go e.gracefulShutdown(ctx)

	return nil
}

// Addr returns the bound address once Start has succeeded.
func (e *Endpoint) Addr() net.Addr {
	return e.addr
}

// Done is closed once the server has stopped.
func (e *Endpoint) Done() <-chan struct{} {
	return e.done
}

func (e *Endpoint) gracefulShutdown(ctx context.Context) {
	<-ctx.Done()
	e.log.Info("stopping metrics endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(shutdownCtx); err != nil {
		e.log.Error("metrics server shutdown error", logger.Error(err))
	}
}
