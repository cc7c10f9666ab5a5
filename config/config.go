package config

import (
	"time"
)

type (
	URI struct {
		// MaxRequestLine limits the length of the request line, including method and protocol.
		// Longer lines are answered with 414 Request URI Too Long.
		MaxRequestLine int
	}

	Headers struct {
		// MaxNumber is the maximal number of header fields in a single request.
		MaxNumber int
		// MaxSpace limits the amount of bytes the whole header block may occupy.
		MaxSpace int
	}

	Body struct {
		// MaxSize is the maximal accepted Content-Length. Bigger bodies are rejected with
		// 413 before being read.
		MaxSize int
	}

	NET struct {
		// Addr is the address the server binds to.
		Addr string
		// ReadBufferSize is the size of a single read from the socket.
		ReadBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, the connection is closed.
		ReadTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often the Accept() call is interrupted
		// in order to check whether it's time to stop.
		AcceptLoopInterruptPeriod time.Duration
		// WriteBufferSize is the initial capacity of the per-connection response buffer.
		WriteBufferSize int
		// KeepAlive enables serving multiple sequential requests over a single connection.
		// Disabled by default, every connection is closed after the first response.
		KeepAlive bool `test:"nullable"`
	}

	Actor struct {
		// MailboxSize is the capacity of the actor mailbox. Callers block once it's full.
		MailboxSize int
		// HeartbeatPeriod is how often the worker reports that a call is still in progress.
		HeartbeatPeriod time.Duration
	}

	Chat struct {
		// GenerateDelay simulates the time the response generator takes.
		GenerateDelay time.Duration
		// RandomDelay simulates the time the random index source takes.
		RandomDelay time.Duration
		// Seed seeds the random index source. Zero means seeding from the clock.
		Seed uint64 `test:"nullable"`
		// DocsDir is a directory the document retriever looks into. Empty disables retrieval.
		DocsDir string `test:"nullable"`
	}

	Transcript struct {
		// Dir enables on-disk transcript storage when set.
		Dir string `test:"nullable"`
		// Bucket enables S3 transcript storage when set. Takes precedence over Dir.
		Bucket string `test:"nullable"`
		// Prefix is prepended to every S3 object key.
		Prefix string `test:"nullable"`
		// Region is the S3 region.
		Region string
		// Endpoint overrides the S3 endpoint, e.g. for MinIO.
		Endpoint string `test:"nullable"`
		// FlushEvery is the number of transcript entries accumulated before being persisted.
		FlushEvery int
	}

	Admin struct {
		// Addr of the admin server exposing /metrics and /heartbeats. Empty disables it.
		Addr string `test:"nullable"`
	}
)

// Config holds settings used across the server, mainly limits, timeouts and
// the wiring of the reference chat deployment.
//
// Always modify defaults (returned via Default()) instead of initializing the
// config manually, as zero values are not meaningful defaults.
type Config struct {
	URI        URI
	Headers    Headers
	Body       Body
	NET        NET
	Actor      Actor
	Chat       Chat
	Transcript Transcript
	Admin      Admin
}

// Default returns default config.
func Default() *Config {
	return &Config{
		URI: URI{
			MaxRequestLine: 8 * 1024,
		},
		Headers: Headers{
			MaxNumber: 64,
			MaxSpace:  16 * 1024,
		},
		Body: Body{
			MaxSize: 4 * 1024 * 1024,
		},
		NET: NET{
			Addr:                      "127.0.0.1:3000",
			ReadBufferSize:            4 * 1024,
			ReadTimeout:               90 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			WriteBufferSize:           2 * 1024,
		},
		Actor: Actor{
			MailboxSize:     1024,
			HeartbeatPeriod: time.Second,
		},
		Chat: Chat{
			GenerateDelay: 2 * time.Second,
			RandomDelay:   2 * time.Second,
		},
		Transcript: Transcript{
			Region:     "us-east-1",
			FlushEvery: 10,
		},
	}
}
