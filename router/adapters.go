package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/indigo-web/miniserve/http"
	"github.com/indigo-web/miniserve/http/status"
	json "github.com/json-iterator/go"
)

// HandlerFunc is the plain function form of a Handler.
type HandlerFunc func(ctx context.Context, request http.Request) http.Response

func (h HandlerFunc) Handle(ctx context.Context, request http.Request) http.Response {
	return h(ctx, request)
}

// Func adapts a handler that doesn't care about the context.
func Func(fn func(http.Request) http.Response) Handler {
	return HandlerFunc(func(_ context.Context, request http.Request) http.Response {
		return fn(request)
	})
}

// Static always responds with the same content, regardless of the method.
func Static(content http.Content) Handler {
	response := http.OK(content)

	return HandlerFunc(func(context.Context, http.Request) http.Response {
		return response
	})
}

// ErrDecode is returned by Decode when the request body isn't the expected JSON.
var ErrDecode = errors.New("malformed JSON body")

// JSON adapts a typed handler. The POST body is decoded into In, the returned Out
// is encoded back as the JSON response. GET requests are rejected with 405, any
// decoding or encoding failure is 500. Errors returned by fn are answered with
// their status code if they are status.HTTPError, with 500 otherwise.
func JSON[In, Out any](fn func(ctx context.Context, in In) (Out, error)) Handler {
	return HandlerFunc(func(ctx context.Context, request http.Request) http.Response {
		in, err := Decode[In](request)
		if err != nil {
			return http.Error(err)
		}

		out, err := fn(ctx, in)
		if err != nil {
			return http.Error(err)
		}

		text, err := json.MarshalToString(out)
		if err != nil {
			return http.Fail(status.InternalServerError)
		}

		return http.OK(http.JSON(text))
	})
}

// Decode unmarshals the POST body of the request into T.
func Decode[T any](request http.Request) (value T, err error) {
	body, ok := request.Body()
	if !ok {
		return value, status.ErrMethodNotAllowed
	}

	if err = json.UnmarshalFromString(body, &value); err != nil {
		return value, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return value, nil
}
