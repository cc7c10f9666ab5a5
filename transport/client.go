package transport

import (
	"net"
	"time"

	"github.com/indigo-web/miniserve/internal/timer"
)

// Client wraps a connection, accumulating everything read from it until the
// consumer explicitly discards the bytes it has processed.
type Client interface {
	// Read reads a chunk of data from the connection and returns everything buffered
	// so far, including the bytes that weren't consumed yet.
	Read() ([]byte, error)
	// Buffered returns the accumulated, not yet consumed data without reading.
	Buffered() []byte
	// Consume discards the first n bytes of the accumulated data.
	Consume(n int)
	Write([]byte) error
	Conn() net.Conn
	Remote() net.Addr
	Close() error
}

type client struct {
	conn    net.Conn
	buff    []byte
	pending []byte
	timeout time.Duration
}

func NewClient(conn net.Conn, timeout time.Duration, buff []byte) Client {
	return &client{
		conn:    conn,
		buff:    buff,
		timeout: timeout,
	}
}

// Read reads data into the internal buffer and appends it to the pending bytes.
// Timeouts are handled automatically.
func (c *client) Read() ([]byte, error) {
	if err := c.conn.SetReadDeadline(timer.Deadline(c.timeout)); err != nil {
		return c.pending, err
	}

	n, err := c.conn.Read(c.buff)
	c.pending = append(c.pending, c.buff[:n]...)

	return c.pending, err
}

func (c *client) Buffered() []byte {
	return c.pending
}

// Consume shifts the unconsumed tail to the beginning, so the pending buffer
// doesn't grow across keep-alive requests.
func (c *client) Consume(n int) {
	if n >= len(c.pending) {
		c.pending = c.pending[:0]
		return
	}

	c.pending = c.pending[:copy(c.pending, c.pending[n:])]
}

func (c *client) Write(b []byte) error {
	_, err := c.conn.Write(b)
	return err
}

// Conn unwraps the underlying net.Conn.
func (c *client) Conn() net.Conn {
	return c.conn
}

// Remote returns the remote address of the connection.
func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *client) Close() error {
	return c.conn.Close()
}
