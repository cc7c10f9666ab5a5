package http

import (
	"github.com/indigo-web/miniserve/http/method"
)

// Request is what a handler gets: either a GET without payload or a POST carrying
// a UTF-8 text body. It is a value and is never modified after decoding.
type Request struct {
	method method.Method
	body   string
}

// Get returns a payload-less GET request.
func Get() Request {
	return Request{method: method.GET}
}

// Post returns a POST request carrying the body.
func Post(body string) Request {
	return Request{method: method.POST, body: body}
}

func (r Request) Method() method.Method {
	return r.method
}

// Body returns the POST payload. The second return value is false for GET requests.
func (r Request) Body() (string, bool) {
	if r.method != method.POST {
		return "", false
	}

	return r.body, true
}

func (r Request) String() string {
	if r.method == method.POST {
		return "POST(" + r.body + ")"
	}

	return r.method.String()
}
