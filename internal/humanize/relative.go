// Package humanize formats timestamps for display.
package humanize

import (
	"strconv"
	"time"
)

// RelativeTime renders how long ago then was, as seen at now: "45s", "12m",
// "5h", "3d", and the month and day ("Mar 4") from a week on. Timestamps
// in the future count as "0s".
func RelativeTime(then, now time.Time) string {
	elapsed := now.Sub(then)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < time.Minute:
		return strconv.Itoa(int(elapsed/time.Second)) + "s"
	case elapsed < time.Hour:
		return strconv.Itoa(int(elapsed/time.Minute)) + "m"
	case elapsed < 24*time.Hour:
		return strconv.Itoa(int(elapsed/time.Hour)) + "h"
	case elapsed < 7*24*time.Hour:
		return strconv.Itoa(int(elapsed/(24*time.Hour))) + "d"
	default:
		return then.Format("Jan 2")
	}
}
