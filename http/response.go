package http

import (
	"errors"

	"github.com/indigo-web/miniserve/http/mime"
	"github.com/indigo-web/miniserve/http/status"
)

// Content is either an HTML page or a JSON document. The tag defines the
// Content-Type it is sent with.
type Content struct {
	mime mime.MIME
	text string
}

func HTML(text string) Content {
	return Content{mime: mime.HTML, text: text}
}

func JSON(text string) Content {
	return Content{mime: mime.JSON, text: text}
}

func (c Content) MIME() mime.MIME {
	return c.mime
}

func (c Content) Text() string {
	return c.text
}

func (c Content) IsHTML() bool {
	return c.mime == mime.HTML
}

func (c Content) IsJSON() bool {
	return c.mime == mime.JSON
}

// Response is either a Content on success or a bare status code on failure.
type Response struct {
	content Content
	code    status.Code
}

// OK wraps the content into a successful response.
func OK(content Content) Response {
	return Response{content: content, code: status.OK}
}

// Fail returns a failed response carrying only the status code.
func Fail(code status.Code) Response {
	return Response{code: code}
}

// Error converts an error into a failed response. A (wrapped) status.HTTPError keeps
// its own code, everything else becomes 500.
func Error(err error) Response {
	var httpErr status.HTTPError
	if errors.As(err, &httpErr) {
		return Fail(httpErr.Code)
	}

	return Fail(status.InternalServerError)
}

// Content returns the content of a successful response.
func (r Response) Content() (Content, bool) {
	return r.content, r.code == status.OK
}

func (r Response) Code() status.Code {
	return r.code
}

func (r Response) Failed() bool {
	return r.code != status.OK
}
