package miniserve

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/miniserve/chat"
	"github.com/indigo-web/miniserve/chat/transcript"
	"github.com/indigo-web/miniserve/config"
	"github.com/indigo-web/miniserve/internal/metrics"
	"github.com/indigo-web/miniserve/router"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var nopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixedRandom int

func (f fixedRandom) Index(context.Context) (int, error) {
	return int(f), nil
}

func getConfig() *config.Config {
	cfg := config.Default()
	cfg.NET.Addr = "127.0.0.1:0"
	cfg.NET.AcceptLoopInterruptPeriod = 50 * time.Millisecond

	return cfg
}

// run serves the router in background until the test is over.
func run(t *testing.T, cfg *config.Config, r *router.Router) (*App, string) {
	t.Helper()

	started := make(chan struct{})
	errCh := make(chan error, 1)
	app := New(cfg).WithLogger(nopLogger).NotifyOnStart(func() {
		close(started)
	})

	go func() {
		errCh <- app.Serve(r)
	}()

	select {
	case <-started:
	case err := <-errCh:
		require.FailNow(t, "failed to start", err)
	case <-time.After(time.Second):
		require.FailNow(t, "server didn't start in time")
	}

	t.Cleanup(func() {
		app.Stop()
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			require.Fail(t, "server didn't stop in time")
		}
	})

	return app, "http://" + app.Addr().String()
}

func getChatbot(t *testing.T, cfg *config.Config, generator chat.Generator, m *metrics.Metrics) *Chatbot {
	t.Helper()

	bot, err := NewChatbot(cfg, Collaborators{
		Generator: generator,
		Random:    fixedRandom(0),
		Store:     transcript.Discard,
	}, nopLogger, m)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, bot.Close(context.Background()))
	})

	return bot
}

// the server doesn't keep connections alive by default, so neither does the client
var client = &http.Client{
	Transport: &http.Transport{DisableKeepAlives: true},
}

func do(t *testing.T, method, url, body string) (int, string, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, resp.Header.Get("Content-Type"), string(data)
}

func TestChatbot(t *testing.T) {
	cfg := getConfig()
	bot := getChatbot(t, cfg, chat.Canned{Responses: []string{"A", "B"}}, metrics.New(false))
	_, url := run(t, cfg, bot.Router)

	t.Run("index", func(t *testing.T) {
		code, contentType, body := do(t, http.MethodGet, url+"/", "")
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "text/html", contentType)
		require.Contains(t, body, "<html")
	})

	t.Run("chat", func(t *testing.T) {
		code, contentType, body := do(t, http.MethodPost, url+"/chat", `{"messages":["hi"]}`)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "application/json", contentType)
		require.Equal(t, `{"messages":["hi","A"]}`, body)
	})

	t.Run("non-json body", func(t *testing.T) {
		code, _, body := do(t, http.MethodPost, url+"/chat", "definitely not json")
		require.Equal(t, http.StatusInternalServerError, code)
		require.Equal(t, "Handler failed", body)
	})

	t.Run("unknown route", func(t *testing.T) {
		code, _, body := do(t, http.MethodGet, url+"/unknown", "")
		require.Equal(t, http.StatusNotFound, code)
		require.NotEmpty(t, body)
	})

	t.Run("unsupported method", func(t *testing.T) {
		code, _, _ := do(t, http.MethodPut, url+"/chat", "{}")
		require.Equal(t, http.StatusMethodNotAllowed, code)
	})

	t.Run("cancel", func(t *testing.T) {
		code, _, body := do(t, http.MethodPost, url+"/cancel", "")
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, `{"type":"Ok"}`, body)
	})
}

func TestChatbot_Cancel(t *testing.T) {
	cfg := getConfig()
	m := metrics.New(false)
	bot := getChatbot(t, cfg, chat.NewCanned(time.Hour), m)
	_, url := run(t, cfg, bot.Router)

	result := make(chan string, 1)
	go func() {
		_, _, body := do(t, http.MethodPost, url+"/chat", `{"messages":["hi"]}`)
		result <- body
	}()

	var body string
	require.Eventually(t, func() bool {
		do(t, http.MethodPost, url+"/cancel", "")

		select {
		case body = <-result:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 3*time.Second, time.Millisecond)

	require.Equal(t, `{"type":"Cancelled"}`, body)
	want := `
# HELP miniserve_actor_calls_total Actor calls by outcome
# TYPE miniserve_actor_calls_total counter
miniserve_actor_calls_total{outcome="cancelled"} 1
`
	require.Eventually(t, func() bool {
		return testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "miniserve_actor_calls_total") == nil
	}, time.Second, time.Millisecond)
}

func TestApp(t *testing.T) {
	t.Run("raw connection", func(t *testing.T) {
		cfg := getConfig()
		_, url := run(t, cfg, router.New())

		conn, err := net.Dial("tcp", strings.TrimPrefix(url, "http://"))
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte("GET /unknown HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)
		data, err := io.ReadAll(conn)
		require.NoError(t, err)
		want := "HTTP/1.1 404 Not Found\r\nContent-Type: text/plain\r\nContent-Length: 14\r\n\r\nNo valid route"
		require.Equal(t, want, string(data))
	})

	t.Run("bind failure", func(t *testing.T) {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer busy.Close()

		cfg := getConfig()
		cfg.NET.Addr = busy.Addr().String()
		require.Error(t, New(cfg).WithLogger(nopLogger).Serve(router.New()))
	})

	t.Run("stop", func(t *testing.T) {
		stopped := make(chan struct{})
		app := New(getConfig()).WithLogger(nopLogger).NotifyOnStop(func() {
			close(stopped)
		})

		started := make(chan struct{})
		app.NotifyOnStart(func() {
			close(started)
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- app.Serve(router.New())
		}()

		<-started
		require.NotNil(t, app.Addr())
		app.Stop()
		require.NoError(t, <-errCh)
		<-stopped
	})

	t.Run("stop before serve", func(t *testing.T) {
		app := New(getConfig()).WithLogger(nopLogger)
		app.Stop()
		require.NoError(t, app.Serve(router.New()))
	})
}
