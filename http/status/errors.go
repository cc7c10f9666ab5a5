package status

// HTTPError is an error that knows which status code it must be answered with.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrBadRequestLine          = NewError(BadRequest, "malformed request line")
	ErrBadHeader               = NewError(BadRequest, "malformed header field")
	ErrBadContentLength        = NewError(BadRequest, "bad Content-Length value")
	ErrBadMethod               = NewError(BadRequest, "malformed request method")
	ErrBadEncoding             = NewError(BadRequest, "request body is not valid UTF-8")
	ErrIncompleteRequest       = NewError(BadRequest, "connection closed before the request was complete")
	ErrRequestTimeout          = NewError(RequestTimeout, "request was not received in time")
	ErrNotFound                = NewError(NotFound, "No valid route")
	ErrMethodNotAllowed        = NewError(MethodNotAllowed, "Not implemented")
	ErrBodyTooLarge            = NewError(RequestEntityTooLarge, "request body is too large")
	ErrURITooLong              = NewError(RequestURITooLong, "request URI too long")
	ErrHeaderFieldsTooLarge    = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders          = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrUnsupportedTransfer     = NewError(NotImplemented, "transfer codings are not supported")
	ErrInternalServerError     = NewError(InternalServerError, "internal server error")
)
