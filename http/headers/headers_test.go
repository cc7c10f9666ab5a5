package headers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaders(t *testing.T) {
	t.Run("case-insensitive lookup", func(t *testing.T) {
		h := NewFromPairs("Content-Length", "13", "hello", "world")
		require.Equal(t, "13", h.Value("content-length"))
		require.Equal(t, "13", h.Value("CONTENT-LENGTH"))
		require.Equal(t, "world", h.Value("Hello"))
		require.True(t, h.Has("HELLO"))
		require.False(t, h.Has("missing"))
		require.Empty(t, h.Value("missing"))
	})

	t.Run("multiple values keep order", func(t *testing.T) {
		h := New().Add("Accept", "one").Add("X", "y").Add("accept", "two")
		require.Equal(t, []string{"one", "two"}, h.Values("ACCEPT"))
		require.Equal(t, "one", h.Value("accept"))
	})

	t.Run("insertion order", func(t *testing.T) {
		h := New().Add("B", "1").Add("A", "2").Add("C", "3")
		var keys []string
		for key := range h.Iter() {
			keys = append(keys, key)
		}

		require.Equal(t, []string{"B", "A", "C"}, keys)
		require.Equal(t, 3, h.Len())
	})

	t.Run("odd pairs", func(t *testing.T) {
		h := NewFromPairs("a", "b", "dangling")
		require.Equal(t, 1, h.Len())
	})

	t.Run("clear", func(t *testing.T) {
		h := NewFromPairs("a", "b")
		h.Clear()
		require.Zero(t, h.Len())
		require.False(t, h.Has("a"))
	})
}
