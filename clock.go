package swrcache

import "time"

// Clock provides the time used for freshness decisions.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
