package runner

import "time"

// Clock tells the runner what time it is. All durations in a Result are
// measured with it, so a manual clock makes runs fully reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
