// Package miniserve is a minimal HTTP/1.1 server. App binds the listener and serves
// every connection in its own goroutine, routing requests with a router.Router.
package miniserve

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/indigo-web/miniserve/config"
	"github.com/indigo-web/miniserve/internal/metrics"
	httpserver "github.com/indigo-web/miniserve/internal/server/http"
	"github.com/indigo-web/miniserve/internal/tracing"
	"github.com/indigo-web/miniserve/router"
	"github.com/indigo-web/miniserve/transport"
)

type hooks struct {
	OnStart, OnStop func()
}

type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracing.Tracer
	hooks   hooks

	mu      sync.Mutex
	tcp     *transport.TCP
	stopped bool
}

// New returns a new App instance. Nil config means config.Default().
func New(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}

	return &App{
		cfg:     cfg,
		logger:  slog.Default().With("component", "server"),
		metrics: metrics.New(false),
		tracer:  tracing.New(nil),
	}
}

func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMetrics replaces the metrics the app reports to, so they can be shared with
// other components and exposed together.
func (a *App) WithMetrics(m *metrics.Metrics) *App {
	a.metrics = m
	return a
}

func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// NotifyOnStart calls the callback once the listener is bound, so the server is
// able to accept connections.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback once the listener is closed and all the clients
// are served.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Serve binds the configured address and serves until Stop is called. Failing to
// bind is returned immediately. The router must not be modified afterward.
func (a *App) Serve(r *router.Router) error {
	tcp := transport.NewTCP()
	if err := tcp.Bind(a.cfg.NET.Addr); err != nil {
		return err
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		tcp.Close()
		return nil
	}
	a.tcp = tcp
	a.mu.Unlock()

	server := httpserver.NewServer(a.cfg, r, a.logger, a.metrics, a.tracer)
	a.logger.Info("listening", "addr", tcp.Addr().String(), "routes", r.Routes())
	callIfNotNil(a.hooks.OnStart)

	err := tcp.Listen(a.cfg.NET, func(conn net.Conn) {
		server.Serve(context.Background(), conn)
	})

	tcp.Close()
	tcp.Wait()
	callIfNotNil(a.hooks.OnStop)

	return err
}

// Addr returns the bound address, or nil if the app isn't serving.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tcp == nil {
		return nil
	}

	return a.tcp.Addr()
}

// Stop closes the listener. Serve returns after the already accepted connections
// are served.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	if a.tcp != nil {
		a.tcp.Close()
	}
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
