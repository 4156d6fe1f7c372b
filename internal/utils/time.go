package utils

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

// NowUnixMilli returns the current time as epoch milliseconds, the unit
// email timestamps are stored in.
func NowUnixMilli() int64 {
	return Now().UnixMilli()
}

// DaysToMillis converts a day count to milliseconds for age cutoffs.
func DaysToMillis(days int) int64 {
	return int64(days) * 24 * int64(time.Hour/time.Millisecond)
}
