package bus

import "time"

func defaultTimeAfter(d time.Duration) <-chan time.Time {
	return time.After(d)
}
