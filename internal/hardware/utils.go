package hardware

import (
	"time"

	"golang.org/x/sys/unix"
)

// NowMs reads CLOCK_MONOTONIC in milliseconds, the same timebase gpiocdev
// uses for edge event timestamps.
func NowMs() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return time.Now().UnixMilli()
	}
	return ts.Nano() / int64(time.Millisecond)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
