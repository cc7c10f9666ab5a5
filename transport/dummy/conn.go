package dummy

import (
	"io"
	"net"
	"sync"
	"time"
)

var _ net.Conn = new(Conn)

// Conn is a net.Conn replaying the chunks it was initialised with, one per Read,
// and recording everything written to it. Once chunks are exhausted, it reports
// the configured error (io.EOF by default).
type Conn struct {
	mu     sync.Mutex
	chunks [][]byte
	end    error
	data   []byte
	closed bool
	nop    bool
}

func NewConn(chunks ...[]byte) *Conn {
	return &Conn{
		chunks: chunks,
		end:    io.EOF,
	}
}

// NewConnString is a shorthand for NewConn with string chunks.
func NewConnString(chunks ...string) *Conn {
	conn := NewConn()
	for _, chunk := range chunks {
		conn.chunks = append(conn.chunks, []byte(chunk))
	}

	return conn
}

// EndWith sets the error returned after all the chunks are read.
func (c *Conn) EndWith(err error) *Conn {
	c.end = err
	return c
}

// Nop disables recording of written data.
func (c *Conn) Nop() *Conn {
	c.nop = true
	return c
}

func (c *Conn) Read(b []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, net.ErrClosed
	}

	if len(c.chunks) == 0 {
		return 0, c.end
	}

	n = copy(b, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}

	return n, nil
}

func (c *Conn) Write(b []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, net.ErrClosed
	}

	if !c.nop {
		c.data = append(c.data, b...)
	}

	return len(b), nil
}

// Written returns a copy of everything written so far.
func (c *Conn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]byte(nil), c.data...)
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *Conn) LocalAddr() net.Addr {
	return addr{}
}

func (c *Conn) RemoteAddr() net.Addr {
	return addr{}
}

func (c *Conn) SetDeadline(time.Time) error {
	return nil
}

func (c *Conn) SetReadDeadline(time.Time) error {
	return nil
}

func (c *Conn) SetWriteDeadline(time.Time) error {
	return nil
}

type addr struct{}

func (addr) Network() string { return "dummy" }
func (addr) String() string  { return "dummy:0" }

// TimeoutError mimics a read deadline being exceeded.
type TimeoutError struct{}

func (TimeoutError) Error() string   { return "i/o timeout" }
func (TimeoutError) Timeout() bool   { return true }
func (TimeoutError) Temporary() bool { return true }
