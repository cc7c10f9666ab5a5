package actor

import (
	"log/slog"
	"time"
)

const (
	DefaultMailboxSize = 1024
	DefaultHeartbeat   = time.Second
)

type options struct {
	mailboxSize int
	heartbeat   time.Duration
	logger      *slog.Logger
	observer    Observer
}

func defaultOptions() options {
	return options{
		mailboxSize: DefaultMailboxSize,
		heartbeat:   DefaultHeartbeat,
		logger:      slog.Default().With("component", "actor"),
		observer:    nopObserver{},
	}
}

// Option configures an Actor.
type Option func(*options)

// WithMailboxSize sets how many calls may wait in the queue before Submit blocks.
// Non-positive sizes are ignored.
func WithMailboxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.mailboxSize = n
		}
	}
}

// WithHeartbeat sets how often a long-running call is reported.
// Non-positive periods are ignored.
func WithHeartbeat(period time.Duration) Option {
	return func(o *options) {
		if period > 0 {
			o.heartbeat = period
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// Outcome describes how a call ended.
type Outcome string

const (
	Completed Outcome = "completed"
	Cancelled Outcome = "cancelled"
	Panicked  Outcome = "panicked"
)

// Observer is notified about the worker's progress. Methods are called from the
// worker goroutine, so they must not block for long.
type Observer interface {
	// Heartbeat is called periodically while a call is in progress.
	Heartbeat(elapsed time.Duration, pending int)
	// Finished is called once per processed message.
	Finished(outcome Outcome, took time.Duration)
}

// Observers fans the notifications out to every observer in order.
func Observers(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) Heartbeat(elapsed time.Duration, pending int) {
	for _, o := range m {
		o.Heartbeat(elapsed, pending)
	}
}

func (m multiObserver) Finished(outcome Outcome, took time.Duration) {
	for _, o := range m {
		o.Finished(outcome, took)
	}
}

type nopObserver struct{}

func (nopObserver) Heartbeat(time.Duration, int)    {}
func (nopObserver) Finished(Outcome, time.Duration) {}
