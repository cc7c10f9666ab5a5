// Package http drives a single connection: it reads bytes until a request is
// decoded, routes it, runs the handler and writes the response back.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/miniserve/config"
	"github.com/indigo-web/miniserve/http"
	"github.com/indigo-web/miniserve/http/status"
	"github.com/indigo-web/miniserve/internal/codec/http1"
	"github.com/indigo-web/miniserve/internal/metrics"
	"github.com/indigo-web/miniserve/internal/tracing"
	"github.com/indigo-web/miniserve/router"
	"github.com/indigo-web/miniserve/transport"
)

// unmatched replaces the path in metric labels for requests no route was found for,
// so arbitrary paths don't blow up the series cardinality.
const unmatched = "<unmatched>"

type Server struct {
	cfg     *config.Config
	router  *router.Router
	decoder *http1.Decoder
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

func NewServer(
	cfg *config.Config, r *router.Router, logger *slog.Logger, m *metrics.Metrics, tracer tracing.Tracer,
) *Server {
	return &Server{
		cfg:     cfg,
		router:  r,
		decoder: http1.NewDecoder(cfg),
		logger:  logger,
		metrics: m,
		tracer:  tracer,
	}
}

// Serve processes requests from the connection until either side wants to close it.
// The connection is always closed on return.
func (s *Server) Serve(ctx context.Context, conn net.Conn) {
	connID := uniuri.NewLen(8)
	logger := s.logger.With("conn", connID, "remote", conn.RemoteAddr().String())
	logger.Debug("connection accepted")

	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	client := transport.NewClient(conn, s.cfg.NET.ReadTimeout, make([]byte, s.cfg.NET.ReadBufferSize))
	enc := http1.NewEncoder(make([]byte, 0, s.cfg.NET.WriteBufferSize))
	c := connection{
		Server: s,
		id:     connID,
		client: client,
		enc:    enc,
		logger: logger,
	}

	for c.HandleRequest(ctx) {
	}

	_ = client.Close()
	logger.Debug("connection closed")
}

type connection struct {
	*Server
	id     string
	client transport.Client
	enc    *http1.Encoder
	logger *slog.Logger
}

// HandleRequest serves a single request. It returns whether the connection may be
// reused for the next one.
func (c *connection) HandleRequest(ctx context.Context) (keepAlive bool) {
	var readErr error
	data := c.client.Buffered()

	for {
		state, decoded, n, err := c.decoder.Decode(data)
		switch state {
		case http1.Completed:
			c.client.Consume(n)
			return c.dispatch(ctx, decoded) && readErr == nil
		case http1.Error:
			c.reject(err)
			return false
		}

		if readErr != nil {
			switch {
			case len(data) == 0:
				c.logger.Debug("peer is gone", "reason", readErr)
			case isTimeout(readErr):
				c.reject(status.ErrRequestTimeout)
			default:
				c.reject(status.ErrIncompleteRequest)
			}

			return false
		}

		data, readErr = c.client.Read()
	}
}

func (c *connection) dispatch(ctx context.Context, decoded http1.Decoded) (keepAlive bool) {
	start := time.Now()
	request := decoded.Request
	ctx, span := c.tracer.Request(ctx, request.Method().String(), decoded.Path, c.id)

	var (
		code    status.Code
		payload []byte
		label   = decoded.Path
	)

	if handler, found := c.router.Resolve(decoded.Path); found {
		response := c.call(ctx, handler, request)
		code, payload = response.Code(), c.enc.Response(response)
	} else {
		code, payload, label = status.NotFound, c.enc.Error(status.NotFound, status.ErrNotFound.Error()), unmatched
	}

	err := c.client.Write(payload)
	tracing.Finish(span, uint16(code))
	c.metrics.Request(label, uint16(code), time.Since(start))
	c.logger.Info("request served",
		"method", request.Method().String(),
		"path", decoded.Path,
		"code", uint16(code),
		"took", time.Since(start),
	)

	if err != nil {
		c.logger.Debug("failed to write the response", "err", err)
		return false
	}

	return c.cfg.NET.KeepAlive && decoded.KeepAlive()
}

// call runs the handler, turning a panic into 500 Internal Server Error.
func (c *connection) call(ctx context.Context, handler router.Handler, request http.Request) (response http.Response) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked", "panic", r, "stack", string(debug.Stack()))
			c.metrics.Panic()
			response = http.Fail(status.InternalServerError)
		}
	}()

	return handler.Handle(ctx, request)
}

// reject answers a request that could not be decoded. The connection is closed
// afterward, therefore write errors are irrelevant.
func (c *connection) reject(err error) {
	var httpErr status.HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = status.ErrBadRequest.(status.HTTPError)
	}

	c.logger.Debug("rejecting request", "code", uint16(httpErr.Code), "reason", httpErr.Message)
	c.metrics.DecodeError(uint16(httpErr.Code))
	_ = c.client.Write(c.enc.Error(httpErr.Code, httpErr.Message))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
