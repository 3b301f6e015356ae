package core

import "time"

// pollInterval is the sleep used by every gathering/consumer loop while
// waiting for its cursor to advance or a slot's status to reach the
// expected bit pattern.
const pollInterval = 300 * time.Microsecond

func pollSleep() {
	time.Sleep(pollInterval)
}
