package billing

import "time"

// Clock abstracts time for deterministic testing of time-driven
// transitions (trial expiry, renewal windows).
type Clock interface {
	Now() time.Time
}

// RealClock is the production clock. All timestamps are UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant.
type FixedClock struct {
	FixedTime time.Time
}

func (c FixedClock) Now() time.Time { return c.FixedTime }
