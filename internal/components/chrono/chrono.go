package chrono

import "time"

// API is the source of wall clock time.
//
// note: fault injection point
type API interface {
	Now() time.Time
}

// StandardImpl reads the system clock in the local timezone.
type StandardImpl struct{}

func (StandardImpl) Now() time.Time {
	return time.Now()
}

// FixedImpl always returns the same instant, for tests.
type FixedImpl struct {
	Time time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Time
}
