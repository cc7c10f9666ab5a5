package http1

import (
	"strconv"

	"github.com/indigo-web/miniserve/http"
	"github.com/indigo-web/miniserve/http/headers"
	"github.com/indigo-web/miniserve/http/mime"
	"github.com/indigo-web/miniserve/http/status"
)

const (
	protocol      = "HTTP/1.1 "
	contentType   = "Content-Type"
	contentLength = "Content-Length"
	colonsp       = ": "
	crlf          = "\r\n"
)

// HandlerFailed is the explanation sent along with a status code a handler failed with.
const HandlerFailed = "Handler failed"

// Encoder renders responses into a single buffer, which is reused between calls.
// Therefore, the returned slice is valid only until the next call.
type Encoder struct {
	buff []byte
}

func NewEncoder(buff []byte) *Encoder {
	return &Encoder{buff: buff[:0]}
}

// Encode renders the status line, the headers in the order they were passed and the
// body. Headers are emitted verbatim, no Content-Length is added implicitly.
func (e *Encoder) Encode(code status.Code, hdrs []headers.Header, body string) []byte {
	e.buff = e.buff[:0]
	e.statusLine(code)

	for _, header := range hdrs {
		e.header(header.Key, header.Value)
	}

	e.buff = append(e.buff, crlf...)
	e.buff = append(e.buff, body...)

	return e.buff
}

// Response renders a handler's response. A success is sent with its Content-Type and
// the exact Content-Length, a failure carries a generic explanation only.
func (e *Encoder) Response(response http.Response) []byte {
	content, ok := response.Content()
	if !ok {
		return e.Error(response.Code(), HandlerFailed)
	}

	return e.typed(status.OK, content.MIME(), content.Text())
}

// Error renders a failure with a short human-readable explanation as its body.
func (e *Encoder) Error(code status.Code, explanation string) []byte {
	return e.typed(code, mime.Plain, explanation)
}

func (e *Encoder) typed(code status.Code, contentMIME mime.MIME, body string) []byte {
	e.buff = e.buff[:0]
	e.statusLine(code)
	e.header(contentType, contentMIME)
	e.contentLength(len(body))
	e.buff = append(e.buff, crlf...)
	e.buff = append(e.buff, body...)

	return e.buff
}

func (e *Encoder) statusLine(code status.Code) {
	e.buff = append(e.buff, protocol...)
	e.buff = strconv.AppendUint(e.buff, uint64(code), 10)
	e.buff = append(e.buff, ' ')
	e.buff = append(e.buff, status.Text(code)...)
	e.buff = append(e.buff, crlf...)
}

func (e *Encoder) header(key, value string) {
	e.buff = append(e.buff, key...)
	e.buff = append(e.buff, colonsp...)
	e.buff = append(e.buff, value...)
	e.buff = append(e.buff, crlf...)
}

func (e *Encoder) contentLength(value int) {
	e.buff = append(e.buff, contentLength...)
	e.buff = append(e.buff, colonsp...)
	e.buff = strconv.AppendInt(e.buff, int64(value), 10)
	e.buff = append(e.buff, crlf...)
}
