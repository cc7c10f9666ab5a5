package http1

import (
	"bytes"
	"unicode/utf8"

	"github.com/indigo-web/miniserve/config"
	"github.com/indigo-web/miniserve/http"
	"github.com/indigo-web/miniserve/http/headers"
	"github.com/indigo-web/miniserve/http/method"
	"github.com/indigo-web/miniserve/http/proto"
	"github.com/indigo-web/miniserve/http/status"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// State represents the outcome of a single decoding attempt
type State uint8

const (
	// Pending means that the buffer doesn't contain a whole request yet. The caller
	// must read more and retry from the very beginning of the buffer.
	Pending State = iota + 1
	// Completed means that a request was decoded. The number of bytes it took is
	// returned alongside.
	Completed
	// Error means that the request is malformed. The returned error is always
	// a status.HTTPError.
	Error
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Decoded is a request, normalised down to what handlers and routing need.
type Decoded struct {
	Request http.Request
	// Path is the whole request target, query included.
	Path    string
	Proto   proto.Proto
	Headers *headers.Headers
}

// KeepAlive reports whether the client is willing to reuse the connection.
func (d Decoded) KeepAlive() bool {
	connection := d.Headers.Value("connection")

	switch d.Proto {
	case proto.HTTP10:
		return strcomp.EqualFold(connection, "keep-alive")
	case proto.HTTP11:
		return !strcomp.EqualFold(connection, "close")
	default:
		return false
	}
}

// Decoder is stateless: every call parses the buffer from its very beginning, so
// nothing except the bytes themselves is kept between attempts. Decoding the same
// complete buffer twice yields identical results.
type Decoder struct {
	maxRequestLine int
	maxHeaders     int
	maxHeaderSpace int
	maxBodySize    int
}

func NewDecoder(cfg *config.Config) *Decoder {
	return &Decoder{
		maxRequestLine: cfg.URI.MaxRequestLine,
		maxHeaders:     cfg.Headers.MaxNumber,
		maxHeaderSpace: cfg.Headers.MaxSpace,
		maxBodySize:    cfg.Body.MaxSize,
	}
}

// Decode tries to extract a single request from the head of data. Header values,
// path and body are copied, so the buffer may be reused as soon as Decode returns.
func (d *Decoder) Decode(data []byte) (state State, decoded Decoded, n int, err error) {
	lf := bytes.IndexByte(data, '\n')
	if lf == -1 {
		if len(data) > d.maxRequestLine {
			return Error, decoded, 0, status.ErrURITooLong
		}

		return Pending, decoded, 0, nil
	}

	if lf > d.maxRequestLine {
		return Error, decoded, 0, status.ErrURITooLong
	}

	var reqMethod method.Method
	reqMethod, decoded.Path, decoded.Proto, err = d.requestLine(trimCR(data[:lf]))
	if err != nil {
		return Error, decoded, 0, err
	}

	offset := lf + 1
	headersStart := offset
	decoded.Headers = headers.NewPrealloc(8)
	contentLength := -1

	for {
		lf = bytes.IndexByte(data[offset:], '\n')
		if lf == -1 {
			if len(data)-headersStart > d.maxHeaderSpace {
				return Error, decoded, 0, status.ErrHeaderFieldsTooLarge
			}

			return Pending, decoded, 0, nil
		}

		line := trimCR(data[offset : offset+lf])
		offset += lf + 1

		if len(line) == 0 {
			break
		}

		if decoded.Headers.Len() >= d.maxHeaders {
			return Error, decoded, 0, status.ErrTooManyHeaders
		}

		if offset-headersStart > d.maxHeaderSpace {
			return Error, decoded, 0, status.ErrHeaderFieldsTooLarge
		}

		key, value, err := splitHeader(line)
		if err != nil {
			return Error, decoded, 0, err
		}

		switch {
		case strcomp.EqualFold(uf.B2S(key), "content-length"):
			length, ok := parseContentLength(value)
			if !ok || (contentLength != -1 && contentLength != length) {
				return Error, decoded, 0, status.ErrBadContentLength
			}

			contentLength = length
		case strcomp.EqualFold(uf.B2S(key), "transfer-encoding"):
			return Error, decoded, 0, status.ErrUnsupportedTransfer
		}

		decoded.Headers.Add(string(key), string(value))
	}

	if contentLength > d.maxBodySize {
		return Error, decoded, 0, status.ErrBodyTooLarge
	}

	var body []byte
	if contentLength > 0 {
		if len(data)-offset < contentLength {
			return Pending, decoded, 0, nil
		}

		body = data[offset : offset+contentLength]
		offset += contentLength
	}

	switch reqMethod {
	case method.GET:
		// a body of a GET request is consumed, but never surfaced
		decoded.Request = http.Get()
	case method.POST:
		if !utf8.Valid(body) {
			return Error, decoded, 0, status.ErrBadEncoding
		}

		decoded.Request = http.Post(string(body))
	}

	return Completed, decoded, offset, nil
}

func (d *Decoder) requestLine(line []byte) (m method.Method, path string, protocol proto.Proto, err error) {
	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return m, path, protocol, status.ErrBadRequestLine
	}

	token := uf.B2S(line[:sp])
	if !method.IsToken(token) {
		return m, path, protocol, status.ErrBadMethod
	}

	rest := line[sp+1:]
	sp = bytes.IndexByte(rest, ' ')
	if sp <= 0 {
		return m, path, protocol, status.ErrBadRequestLine
	}

	target, rawProto := rest[:sp], rest[sp+1:]
	if bytes.IndexByte(rawProto, ' ') != -1 || !validTarget(target) {
		return m, path, protocol, status.ErrBadRequestLine
	}

	protocol = proto.FromBytes(rawProto)
	if protocol == proto.Unknown {
		if proto.IsHTTP(rawProto) {
			return m, path, protocol, status.ErrHTTPVersionNotSupported
		}

		return m, path, protocol, status.ErrBadRequestLine
	}

	m = method.Parse(token)
	if m != method.GET && m != method.POST {
		return m, path, protocol, status.ErrMethodNotAllowed
	}

	return m, string(target), protocol, nil
}

func splitHeader(line []byte) (key, value []byte, err error) {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return nil, nil, status.ErrBadHeader
	}

	key = line[:colon]
	for _, char := range key {
		if char <= ' ' || char == 0x7f {
			return nil, nil, status.ErrBadHeader
		}
	}

	return key, trimOWS(line[colon+1:]), nil
}

func parseContentLength(value []byte) (length int, ok bool) {
	if len(value) == 0 || len(value) > 18 {
		return 0, false
	}

	for _, char := range value {
		if char < '0' || char > '9' {
			return 0, false
		}

		length = length*10 + int(char-'0')
	}

	return length, true
}

func validTarget(target []byte) bool {
	for _, char := range target {
		if char <= ' ' || char == 0x7f {
			return false
		}
	}

	return len(target) > 0
}

func trimCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}

	return b
}

// trimOWS strips optional whitespace (spaces and tabs) around a header value.
func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}

	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}

	return b
}
