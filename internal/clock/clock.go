package clock

import "time"

// Clock abstracts time for schedulable components and tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns a Clock backed by the wall clock (UTC).
func NewSystemClock() Clock { return systemClock{} }
