package clock

import "time"

// Clock lets the settlement engine run against a fixed time in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
