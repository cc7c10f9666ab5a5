// Package admin serves the operational endpoints: prometheus metrics, a websocket
// stream of actor heartbeats and a health check. It runs on its own listener, apart
// from the application's server.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHandler routes /metrics, /heartbeats and /healthz.
func NewHandler(gatherer prometheus.Gatherer, hub *Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Method(http.MethodGet, "/heartbeats", hub)

	return r
}

type Server struct {
	srv    *http.Server
	hub    *Hub
	logger *slog.Logger
	l      net.Listener
}

func New(addr string, gatherer prometheus.Gatherer, hub *Hub, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(gatherer, hub),
			ReadHeaderTimeout: 10 * time.Second,
		},
		hub:    hub,
		logger: logger,
	}
}

// Start binds the listener and serves in background. Binding errors are returned
// right away.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.l = l
	s.logger.Info("admin server is listening", "addr", l.Addr().String())

	go func() {
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server failed", "err", err)
		}
	}()

	return nil
}

// Addr returns the bound address. It's nil until Start succeeds.
func (s *Server) Addr() net.Addr {
	if s.l == nil {
		return nil
	}

	return s.l.Addr()
}

// Shutdown disconnects heartbeat subscribers, as hijacked connections aren't
// tracked by http.Server, and then stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.srv.Shutdown(ctx)
}
