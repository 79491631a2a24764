package usecases

import "time"

// Clock supplies the current instant for scheduling and liveness
// decisions. Production code uses WallClock; tests inject fixed instants.
type Clock interface {
	Now() time.Time
}

// WallClock returns wall-clock time localized to the configured timezone.
// Schedules are authored in local wall-clock terms, so day-of-week and
// time-of-day comparisons must not use UTC.
type WallClock struct {
	loc *time.Location
}

func NewWallClock(loc *time.Location) WallClock {
	if loc == nil {
		loc = time.Local
	}
	return WallClock{loc: loc}
}

func (c WallClock) Now() time.Time {
	return time.Now().In(c.loc)
}
