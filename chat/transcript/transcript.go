// Package transcript persists chat transcripts. Entries are buffered by a Logger and
// written to a Store in batches.
package transcript

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dchest/uniuri"
)

// Store saves a batch of transcript entries under a unique key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Discard drops everything written to it.
var Discard Store = discard{}

type discard struct{}

func (discard) Put(context.Context, string, []byte) error {
	return nil
}

// NewKey returns a unique, chronologically sortable object name.
func NewKey() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + uniuri.NewLen(8) + ".log"
}

// Logger accumulates entries and persists them every flushEvery entries. It isn't
// safe for concurrent use, as it's meant to be owned by a single actor.
type Logger struct {
	store      Store
	flushEvery int
	entries    []string
}

func NewLogger(store Store, flushEvery int) *Logger {
	if flushEvery < 1 {
		flushEvery = 1
	}

	return &Logger{
		store:      store,
		flushEvery: flushEvery,
	}
}

// Log appends the entry, persisting the batch once it's full. If persisting fails,
// the entries are kept, so the next flush retries them.
func (l *Logger) Log(ctx context.Context, text string) error {
	l.entries = append(l.entries, text)
	if len(l.entries) < l.flushEvery {
		return nil
	}

	return l.Flush(ctx)
}

// Buffered returns the number of entries that are not persisted yet.
func (l *Logger) Buffered() int {
	return len(l.entries)
}

// Flush persists all buffered entries, one per line.
func (l *Logger) Flush(ctx context.Context) error {
	if len(l.entries) == 0 {
		return nil
	}

	var b strings.Builder
	for _, entry := range l.entries {
		b.WriteString(entry)
		b.WriteByte('\n')
	}

	if err := l.store.Put(ctx, NewKey(), []byte(b.String())); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}

	l.entries = l.entries[:0]
	return nil
}

// Close flushes whatever is left.
func (l *Logger) Close(ctx context.Context) error {
	return l.Flush(ctx)
}
