package proto

import "github.com/indigo-web/utils/uf"

type Proto uint8

const (
	Unknown Proto = iota
	HTTP10
	HTTP11
)

func (p Proto) String() string {
	switch p {
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	default:
		return "UNKNOWN"
	}
}

// FromBytes recognises exactly HTTP/1.0 and HTTP/1.1. Anything else returns Unknown,
// callers must tell apart a malformed token from a foreign version by IsHTTP.
func FromBytes(raw []byte) Proto {
	switch uf.B2S(raw) {
	case "HTTP/1.1":
		return HTTP11
	case "HTTP/1.0":
		return HTTP10
	default:
		return Unknown
	}
}

// IsHTTP reports whether the token looks like HTTP/<major>.<minor>.
func IsHTTP(raw []byte) bool {
	const prefix = "HTTP/"

	if len(raw) != len(prefix)+3 || uf.B2S(raw[:len(prefix)]) != prefix {
		return false
	}

	version := raw[len(prefix):]

	return isDigit(version[0]) && version[1] == '.' && isDigit(version[2])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
