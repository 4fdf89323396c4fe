// Package clock abstracts the wall clock so token expiry can be tested
// deterministically. Production code injects Real(); tests inject Fake().
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
