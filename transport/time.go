package transport

import "time"

// Instant is a monotonic point in time, represented as a duration since an
// arbitrary epoch. Transports and drivers are agnostic to what that epoch
// is; only differences between instants are meaningful.
type Instant time.Duration

// Add returns the instant offset by d.
func (i Instant) Add(d time.Duration) Instant {
	return Instant(time.Duration(i) + d)
}

// Sub returns the duration between i and other (i - other).
func (i Instant) Sub(other Instant) time.Duration {
	return time.Duration(i) - time.Duration(other)
}

// Before reports whether i is strictly before other, using a
// wraparound-safe half-circle comparison (spec.md §9): "earlier" is
// defined as being behind the reference point by less than half the
// representable range, never by raw subtraction overflow.
func (i Instant) Before(other Instant) bool {
	return i.Sub(other) < 0
}

// Clock is the sole external collaborator for time (spec.md §6). Hosts
// supply an implementation; the core never reads the wall clock itself.
type Clock interface {
	Now() Instant
}
