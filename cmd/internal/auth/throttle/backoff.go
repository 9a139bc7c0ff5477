package throttle

import "time"

// backoffTable maps attempt count (index) to wait. Counts past the end
// saturate at the last entry.
var backoffTable = [...]time.Duration{
	0,                // unused
	0,                // 1
	0,                // 2
	5 * time.Second,  // 3
	15 * time.Second, // 4
	time.Minute,      // 5
	5 * time.Minute,  // 6
	time.Hour,        // 7
	24 * time.Hour,   // 8
}

// MaxWait is the saturation value of the backoff table.
const MaxWait = 24 * time.Hour

// Backoff returns the wait imposed after the given number of failures.
func Backoff(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	if attempts >= len(backoffTable) {
		return MaxWait
	}
	return backoffTable[attempts]
}
