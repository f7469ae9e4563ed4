package testutil

import (
	"time"
)

// Some time functions used for working with fixed times.

var KnownTime = time.Unix(1601378000, 0).UTC()

func KnownTimeNow() time.Time {
	return KnownTime
}

// KnownTimeAfter returns a clock function that starts at KnownTime and moves step forward on every call.
func KnownTimeAfter(step time.Duration) func() time.Time {
	next := KnownTime
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}
