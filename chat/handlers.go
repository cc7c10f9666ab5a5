package chat

import (
	"context"
	_ "embed"

	"github.com/indigo-web/miniserve/http"
	"github.com/indigo-web/miniserve/http/method"
	"github.com/indigo-web/miniserve/http/status"
	"github.com/indigo-web/miniserve/router"
	json "github.com/json-iterator/go"
)

//go:embed index.html
var indexPage string

// Chat is the conversation as exchanged with the page.
type Chat struct {
	Messages []string `json:"messages"`
}

// Status is a tagged response without a payload.
type Status struct {
	Type string `json:"type"`
}

var (
	StatusOK        = Status{Type: "Ok"}
	StatusCancelled = Status{Type: "Cancelled"}
)

var okBody, _ = json.MarshalToString(StatusOK)

// Runner is what the handlers need from the actor owning the Bot.
type Runner interface {
	Submit(ctx context.Context, history []string) (Reply, bool, error)
	Cancel() bool
}

type Handlers struct {
	runner Runner
}

func NewHandlers(runner Runner) *Handlers {
	return &Handlers{runner: runner}
}

// Register adds GET /, POST /chat and POST /cancel to the router.
func (h *Handlers) Register(r *router.Router) *router.Router {
	return r.
		Route("/", router.Static(http.HTML(indexPage))).
		Route("/chat", router.JSON(h.Chat)).
		Route("/cancel", router.Func(h.Cancel))
}

// Chat returns either the Chat with the reply appended or StatusCancelled.
func (h *Handlers) Chat(ctx context.Context, chat Chat) (any, error) {
	reply, ok, err := h.runner.Submit(ctx, chat.Messages)
	switch {
	case err != nil:
		return nil, err
	case !ok:
		return StatusCancelled, nil
	case reply.Err != nil:
		return nil, reply.Err
	}

	return Chat{Messages: reply.Messages}, nil
}

// Cancel abandons the reply currently being generated, if any.
func (h *Handlers) Cancel(request http.Request) http.Response {
	if request.Method() != method.POST {
		return http.Fail(status.MethodNotAllowed)
	}

	h.runner.Cancel()

	return http.OK(http.JSON(okBody))
}
