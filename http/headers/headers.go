package headers

import (
	"iter"

	"github.com/indigo-web/utils/strcomp"
)

type Header struct {
	Key, Value string
}

// Headers is an ordered list of header fields. Lookups are case-insensitive and
// linear, which is fine for the handful of headers a request usually carries.
// Order of insertion is kept, so the same type serves response headers, which
// must be emitted verbatim.
type Headers struct {
	pairs []Header
}

func New() *Headers {
	return new(Headers)
}

// NewPrealloc returns an instance with pre-allocated space for n pairs.
func NewPrealloc(n int) *Headers {
	return &Headers{pairs: make([]Header, 0, n)}
}

// NewFromPairs builds headers from alternating key-value strings. An odd trailing
// key is ignored.
func NewFromPairs(kv ...string) *Headers {
	h := NewPrealloc(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		h.Add(kv[i], kv[i+1])
	}

	return h
}

// Add appends a new pair. Existing pairs with the same key are kept.
func (h *Headers) Add(key, value string) *Headers {
	h.pairs = append(h.pairs, Header{Key: key, Value: value})
	return h
}

// Value returns the first value of the key, or an empty string.
func (h *Headers) Value(key string) string {
	value, _ := h.Get(key)
	return value
}

// Get returns the first value of the key.
func (h *Headers) Get(key string) (string, bool) {
	for _, pair := range h.pairs {
		if strcomp.EqualFold(pair.Key, key) {
			return pair.Value, true
		}
	}

	return "", false
}

// Values returns all the values of the key in their original order.
func (h *Headers) Values(key string) (values []string) {
	for _, pair := range h.pairs {
		if strcomp.EqualFold(pair.Key, key) {
			values = append(values, pair.Value)
		}
	}

	return values
}

func (h *Headers) Has(key string) bool {
	_, found := h.Get(key)
	return found
}

// Pairs exposes the underlying storage. It must not be modified.
func (h *Headers) Pairs() []Header {
	return h.pairs
}

// Iter walks the pairs in insertion order.
func (h *Headers) Iter() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range h.pairs {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

func (h *Headers) Len() int {
	return len(h.pairs)
}

func (h *Headers) Clear() {
	h.pairs = h.pairs[:0]
}
