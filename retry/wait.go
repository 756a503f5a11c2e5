package retry

import (
	"math/rand/v2"
	"time"
)

// Wait produces the backoff schedule. Calling it returns a fresh iterator;
// each call to the iterator yields the wait before the next attempt, with
// ok reporting whether the schedule has another value. Do draws a fresh
// iterator per invocation, so schedules restart per retried call.
type Wait func() func() (wait time.Duration, ok bool)

// Expo doubles the wait each attempt, starting at base and capped at max.
// The schedule is infinite.
func Expo(base, max time.Duration) Wait {
	if base <= 0 {
		base = time.Millisecond
	}
	return func() func() (time.Duration, bool) {
		next := base
		return func() (time.Duration, bool) {
			w := next
			if w >= max {
				w = max
			} else {
				next *= 2
			}
			return w, true
		}
	}
}

// Constant waits the same duration between every attempt, without end.
func Constant(d time.Duration) Wait {
	return func() func() (time.Duration, bool) {
		return func() (time.Duration, bool) { return d, true }
	}
}

// Sequence replays the given waits once, in order. When the sequence is
// consumed the schedule is exhausted and the executor gives up.
func Sequence(waits ...time.Duration) Wait {
	return func() func() (time.Duration, bool) {
		i := 0
		return func() (time.Duration, bool) {
			if i >= len(waits) {
				return 0, false
			}
			w := waits[i]
			i++
			return w, true
		}
	}
}

// Jitter perturbs a computed wait. Implementations must never return more
// than the input: jitter narrows toward zero so that concurrent clients
// desynchronise without anyone waiting longer than the base schedule.
type Jitter func(time.Duration) time.Duration

// FullJitter draws uniformly from [0, d].
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d) + 1))
}

// NoJitter returns the wait unchanged.
func NoJitter(d time.Duration) time.Duration { return d }
