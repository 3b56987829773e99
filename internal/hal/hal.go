// internal/hal/hal.go
package hal

import "time"

// Dir is the configured direction of a pin.
type Dir int

const (
	DirIn Dir = iota
	DirOut
)

// Edge identifies a level transition reported to a watch callback.
type Edge int

const (
	EdgeRise Edge = iota
	EdgeFall
)

// Pin is one GPIO line. Implementations must be safe for use from the
// execution context that owns the surrounding board operation; they are not
// required to be safe for unsynchronized concurrent access.
type Pin interface {
	// Get returns the current level. For output pins this is the driven level.
	Get() bool
	// Put drives the level. The pin must be in output direction.
	Put(level bool)
	// SetDir reconfigures the pin direction.
	SetDir(d Dir)
	// Dir returns the configured direction.
	Dir() Dir
}

// EdgePin is a Pin that can report level transitions. The callback runs on
// the backend's watch context and must only post messages and return, the
// same contract an interrupt service routine has.
type EdgePin interface {
	Pin
	Watch(fn func(Edge))
}

// Clock abstracts time so the simulated board can run on a virtual clock.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// WallClock is the real-time Clock used on hardware backends.
type WallClock struct{}

func (WallClock) Now() time.Time        { return time.Now() }
func (WallClock) Sleep(d time.Duration) { time.Sleep(d) }
