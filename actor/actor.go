// Package actor runs a stateful function on a dedicated goroutine. Calls are queued
// in a bounded mailbox and processed strictly one at a time, in arrival order, so
// the function's state never needs locking. The call in progress may be abandoned
// with Cancel, which affects neither queued calls nor the ones submitted later.
package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-web/miniserve/internal/tracing"
)

// ErrStopped is returned by Submit when the actor doesn't accept calls anymore.
var ErrStopped = errors.New("actor is stopped")

// ErrPanicked is returned by Submit when the function panicked during the call.
var ErrPanicked = errors.New("stateful function panicked")

// Function is a stateful computation owned by exactly one Actor. Call is never
// invoked concurrently with itself. The context is cancelled when the call is
// abandoned; returning early on it is up to the implementation.
type Function[In, Out any] interface {
	Call(ctx context.Context, in In) Out
}

// FunctionFunc adapts a plain function. Any state must be captured by the closure.
type FunctionFunc[In, Out any] func(ctx context.Context, in In) Out

func (f FunctionFunc[In, Out]) Call(ctx context.Context, in In) Out {
	return f(ctx, in)
}

type result[Out any] struct {
	out Out
	ok  bool
	err error
}

type message[In, Out any] struct {
	caller context.Context
	input  In
	reply  chan result[Out]
}

// call is the in-flight invocation. Every call has its own abandon channel, so a
// cancellation can never reach any other call.
type call struct {
	seq       uint64
	abandoned chan struct{}
	once      sync.Once
}

func (c *call) abandon() (first bool) {
	c.once.Do(func() {
		close(c.abandoned)
		first = true
	})

	return first
}

type Actor[In, Out any] struct {
	fn       Function[In, Out]
	mailbox  chan message[In, Out]
	stopped  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	seq      atomic.Uint64

	mu       sync.Mutex
	inflight *call

	heartbeat time.Duration
	logger    *slog.Logger
	observer  Observer
	tracer    tracing.Tracer
}

// New starts the worker goroutine. It runs until Stop is called.
func New[In, Out any](fn Function[In, Out], opts ...Option) *Actor[In, Out] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	a := &Actor[In, Out]{
		fn:        fn,
		mailbox:   make(chan message[In, Out], o.mailboxSize),
		stopped:   make(chan struct{}),
		done:      make(chan struct{}),
		heartbeat: o.heartbeat,
		logger:    o.logger,
		observer:  o.observer,
		tracer:    tracing.New(nil),
	}

	go a.run()

	return a
}

// Submit enqueues the input and waits for the output. ok is false if the call was
// cancelled. If ctx is done before the reply arrives, ctx.Err() is returned; a
// message that is still queued at that moment is skipped by the worker. Values
// carried by ctx (e.g. the trace span) are passed down to the function, its
// cancellation is not.
func (a *Actor[In, Out]) Submit(ctx context.Context, in In) (out Out, ok bool, err error) {
	select {
	case <-a.stopped:
		return out, false, ErrStopped
	default:
	}

	msg := message[In, Out]{
		caller: ctx,
		input:  in,
		reply:  make(chan result[Out], 1),
	}

	select {
	case a.mailbox <- msg:
	case <-a.stopped:
		return out, false, ErrStopped
	case <-ctx.Done():
		return out, false, ctx.Err()
	}

	select {
	case res := <-msg.reply:
		return res.out, res.ok, res.err
	case <-a.done:
		select {
		case res := <-msg.reply:
			return res.out, res.ok, res.err
		default:
			return out, false, ErrStopped
		}
	case <-ctx.Done():
		return out, false, ctx.Err()
	}
}

// Cancel abandons the call in progress. It reports false if the worker is idle or
// the call was already cancelled.
func (a *Actor[In, Out]) Cancel() bool {
	a.mu.Lock()
	c := a.inflight
	a.mu.Unlock()

	if c == nil {
		return false
	}

	return c.abandon()
}

// Pending returns the number of messages waiting in the mailbox.
func (a *Actor[In, Out]) Pending() int {
	return len(a.mailbox)
}

// Stop makes the actor refuse new calls and waits for the worker to exit. The call
// in progress is allowed to finish; queued callers get ErrStopped.
func (a *Actor[In, Out]) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopped)
	})

	<-a.done
}

func (a *Actor[In, Out]) run() {
	defer close(a.done)

	for {
		select {
		case <-a.stopped:
			a.drain()
			return
		default:
		}

		select {
		case <-a.stopped:
			a.drain()
			return
		case msg := <-a.mailbox:
			if msg.caller.Err() != nil {
				a.logger.Debug("skipping a call, the caller has left")
				continue
			}

			a.process(msg)
		}
	}
}

func (a *Actor[In, Out]) drain() {
	for {
		select {
		case msg := <-a.mailbox:
			msg.reply <- result[Out]{err: ErrStopped}
		default:
			return
		}
	}
}

func (a *Actor[In, Out]) process(msg message[In, Out]) {
	c := &call{
		seq:       a.seq.Add(1),
		abandoned: make(chan struct{}),
	}

	a.mu.Lock()
	a.inflight = c
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inflight = nil
		a.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(context.WithoutCancel(msg.caller))
	defer cancel()
	ctx, span := a.tracer.Call(ctx, c.seq)
	defer span.End()

	logger := a.logger.With("seq", c.seq)
	done := make(chan result[Out], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("call panicked", "panic", fmt.Sprint(r))
				done <- result[Out]{err: ErrPanicked}
			}
		}()

		done <- result[Out]{out: a.fn.Call(ctx, msg.input), ok: true}
	}()

	start := time.Now()
	ticker := time.NewTicker(a.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case res := <-done:
			msg.reply <- res
			outcome := Completed
			if res.err != nil {
				outcome = Panicked
			}

			a.observer.Finished(outcome, time.Since(start))
			return
		case <-c.abandoned:
			msg.reply <- result[Out]{}
			cancel()
			tracing.Cancelled(span)
			logger.Info("call cancelled", "after", time.Since(start))
			// the state must not be touched by the next call while this one still runs
			<-done
			a.observer.Finished(Cancelled, time.Since(start))
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			logger.Info("waiting for the call", "seconds", int(elapsed/time.Second))
			a.observer.Heartbeat(elapsed, a.Pending())
		}
	}
}
