package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze the window
// fences via SetClock. Production code uses the real clock.
var clock = clockwork.NewRealClock()

// Now returns the engine's notion of current time. The pipeline derives
// snapshot dates from this rather than time.Now so tests stay frozen.
func Now() time.Time {
	return clock.Now()
}

// SetClock swaps the time source for window math. Pass nil to reset to
// real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
