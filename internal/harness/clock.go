package harness

import "time"

// Clock supplies the wall-clock timestamps recorded on a RunReport.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
