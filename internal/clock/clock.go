// Package clock abstracts the wall clock so ledger time can be
// controlled in tests.
package clock

import "time"

// Clock supplies a unix-second timestamp. Implementations must be
// non-decreasing within a single invocation.
type Clock interface {
	// Now returns the current time as unix seconds.
	Now() uint64
}

// System reads the operating system clock.
type System struct{}

// Now returns time.Now() as unix seconds.
func (System) Now() uint64 { return uint64(time.Now().Unix()) }
