package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution is the frequency at which the coarse clock is updated. Precise enough
// for setting I/O deadlines, which is all it's used for.
const Resolution = 500 * time.Millisecond

var (
	millis = new(atomic.Int64)
	start  sync.Once
)

// Now returns the coarse current time. The clock goroutine is started on the first
// call, so importing the package costs nothing.
func Now() time.Time {
	start.Do(func() {
		millis.Store(time.Now().UnixMilli())

		go func() {
			for {
				time.Sleep(Resolution)
				millis.Store(time.Now().UnixMilli())
			}
		}()
	})

	m := millis.Load()

	return time.Unix(m/1000, (m%1000)*1e6)
}

// Deadline returns the coarse time shifted by the timeout.
func Deadline(timeout time.Duration) time.Time {
	return Now().Add(timeout)
}
