package http

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/miniserve/config"
	"github.com/indigo-web/miniserve/http"
	"github.com/indigo-web/miniserve/http/status"
	"github.com/indigo-web/miniserve/internal/metrics"
	"github.com/indigo-web/miniserve/internal/tracing"
	"github.com/indigo-web/miniserve/router"
	"github.com/indigo-web/miniserve/transport/dummy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const (
	page     = "<p>hi</p>"
	pageResp = "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 9\r\n\r\n" + page
)

func plain(code int, reason, body string) string {
	return "HTTP/1.1 " + strconv.Itoa(code) + " " + reason + "\r\nContent-Type: text/plain\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n" + body
}

func getRouter() *router.Router {
	return router.New().
		Route("/", router.Static(http.HTML(page))).
		Route("/echo", router.Func(func(request http.Request) http.Response {
			body, ok := request.Body()
			if !ok {
				return http.Fail(status.MethodNotAllowed)
			}

			return http.OK(http.JSON(body))
		})).
		Route("/fail", router.Func(func(http.Request) http.Response {
			return http.Fail(status.InternalServerError)
		})).
		Route("/panic", router.Func(func(http.Request) http.Response {
			panic("oh no")
		}))
}

func getServer(keepAlive bool) (*Server, *metrics.Metrics) {
	cfg := config.Default()
	cfg.NET.KeepAlive = keepAlive
	m := metrics.New(false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewServer(cfg, getRouter(), logger, m, tracing.New(nil)), m
}

func serve(t *testing.T, keepAlive bool, conn *dummy.Conn) string {
	t.Helper()
	server, _ := getServer(keepAlive)
	server.Serve(context.Background(), conn)
	require.True(t, conn.Closed())

	return string(conn.Written())
}

func TestServer(t *testing.T) {
	t.Run("static page", func(t *testing.T) {
		conn := dummy.NewConnString("GET / HTTP/1.1\r\n\r\n")
		require.Equal(t, pageResp, serve(t, false, conn))
	})

	t.Run("post body", func(t *testing.T) {
		conn := dummy.NewConnString("POST /echo HTTP/1.1\r\nContent-Length: 7\r\n\r\n{\"a\":1}")
		want := "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 7\r\n\r\n{\"a\":1}"
		require.Equal(t, want, serve(t, false, conn))
	})

	t.Run("dispersed request", func(t *testing.T) {
		conn := dummy.NewConnString("GE", "T / HT", "TP/1.1\r", "\n\r", "\n")
		require.Equal(t, pageResp, serve(t, false, conn))
	})

	t.Run("dispersed body", func(t *testing.T) {
		conn := dummy.NewConnString("POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhe", "llo")
		want := "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 5\r\n\r\nhello"
		require.Equal(t, want, serve(t, false, conn))
	})

	t.Run("no route", func(t *testing.T) {
		conn := dummy.NewConnString("GET /unknown HTTP/1.1\r\n\r\n")
		require.Equal(t, plain(404, "Not Found", "No valid route"), serve(t, false, conn))
	})

	t.Run("query is a part of the path", func(t *testing.T) {
		conn := dummy.NewConnString("GET /?x=1 HTTP/1.1\r\n\r\n")
		require.Equal(t, plain(404, "Not Found", "No valid route"), serve(t, false, conn))
	})

	t.Run("handler failed", func(t *testing.T) {
		conn := dummy.NewConnString("GET /fail HTTP/1.1\r\n\r\n")
		require.Equal(t, plain(500, "Internal Server Error", "Handler failed"), serve(t, false, conn))
	})

	t.Run("handler panicked", func(t *testing.T) {
		server, m := getServer(false)
		conn := dummy.NewConnString("GET /panic HTTP/1.1\r\n\r\n")
		server.Serve(context.Background(), conn)
		require.Equal(t, plain(500, "Internal Server Error", "Handler failed"), string(conn.Written()))
		want := `
# HELP miniserve_handler_panics_total Handler panics recovered by the dispatcher
# TYPE miniserve_handler_panics_total counter
miniserve_handler_panics_total 1
`
		require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "miniserve_handler_panics_total"))
	})

	t.Run("method not allowed", func(t *testing.T) {
		conn := dummy.NewConnString("PUT / HTTP/1.1\r\n\r\n")
		require.Equal(t, plain(405, "Method Not Allowed", "Not implemented"), serve(t, false, conn))
	})

	t.Run("get on a post handler", func(t *testing.T) {
		conn := dummy.NewConnString("GET /echo HTTP/1.1\r\n\r\n")
		require.Equal(t, plain(405, "Method Not Allowed", "Handler failed"), serve(t, false, conn))
	})

	t.Run("malformed request line", func(t *testing.T) {
		conn := dummy.NewConnString("GET /\r\n\r\n")
		require.Equal(t, plain(400, "Bad Request", "malformed request line"), serve(t, false, conn))
	})

	t.Run("unsupported version", func(t *testing.T) {
		conn := dummy.NewConnString("GET / HTTP/2.0\r\n\r\n")
		want := plain(505, "HTTP Version Not Supported", "HTTP version not supported")
		require.Equal(t, want, serve(t, false, conn))
	})

	t.Run("eof on empty buffer", func(t *testing.T) {
		conn := dummy.NewConn()
		require.Empty(t, serve(t, false, conn))
	})

	t.Run("eof on partial request", func(t *testing.T) {
		conn := dummy.NewConnString("GET / HTTP/1.1\r\nHost: x")
		want := plain(400, "Bad Request", "connection closed before the request was complete")
		require.Equal(t, want, serve(t, false, conn))
	})

	t.Run("idle timeout", func(t *testing.T) {
		conn := dummy.NewConn().EndWith(dummy.TimeoutError{})
		require.Empty(t, serve(t, false, conn))
	})

	t.Run("timeout on partial request", func(t *testing.T) {
		conn := dummy.NewConnString("GET / HT").EndWith(dummy.TimeoutError{})
		want := plain(408, "Request Timeout", "request was not received in time")
		require.Equal(t, want, serve(t, false, conn))
	})
}

func TestServer_KeepAlive(t *testing.T) {
	const request = "GET / HTTP/1.1\r\n\r\n"

	t.Run("disabled", func(t *testing.T) {
		conn := dummy.NewConnString(request + request)
		require.Equal(t, pageResp, serve(t, false, conn))
	})

	t.Run("pipelined", func(t *testing.T) {
		conn := dummy.NewConnString(request + request)
		require.Equal(t, pageResp+pageResp, serve(t, true, conn))
	})

	t.Run("sequential", func(t *testing.T) {
		conn := dummy.NewConnString(request, request, request)
		require.Equal(t, strings.Repeat(pageResp, 3), serve(t, true, conn))
	})

	t.Run("connection close", func(t *testing.T) {
		conn := dummy.NewConnString("GET / HTTP/1.1\r\nConnection: close\r\n\r\n", request)
		require.Equal(t, pageResp, serve(t, true, conn))
	})

	t.Run("http/1.0", func(t *testing.T) {
		conn := dummy.NewConnString("GET / HTTP/1.0\r\n\r\n", request)
		require.Equal(t, pageResp, serve(t, true, conn))

		conn = dummy.NewConnString("GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", request)
		require.Equal(t, pageResp+pageResp, serve(t, true, conn))
	})

	t.Run("error breaks the loop", func(t *testing.T) {
		conn := dummy.NewConnString(request, "GET /\r\n\r\n", request)
		want := pageResp + plain(400, "Bad Request", "malformed request line")
		require.Equal(t, want, serve(t, true, conn))
	})
}

func TestServer_Metrics(t *testing.T) {
	server, m := getServer(true)
	conn := dummy.NewConnString(
		"GET / HTTP/1.1\r\n\r\n",
		"GET /a HTTP/1.1\r\n\r\n",
		"GET /b HTTP/1.1\r\n\r\n",
		"GET / HTTP/1.1\r\n\r\n",
	)

	done := make(chan struct{})
	go func() {
		server.Serve(context.Background(), conn)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "connection wasn't served in time")
	}

	require.Equal(t, 4, strings.Count(string(conn.Written()), "HTTP/1.1 "))
	// "/" and every unmatched path share a single series each
	series, err := testutil.GatherAndCount(m.Registry(), "miniserve_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, series)
}
