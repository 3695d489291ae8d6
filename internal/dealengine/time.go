package dealengine

import "time"

func nowPlus(d time.Duration) time.Time {
	return time.Now().Add(d)
}
