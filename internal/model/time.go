package model

import (
	"math"
	"strconv"
)

// Timestamp is an epoch-nanosecond count on the simulated clock.
type Timestamp int64

// Duration is a signed nanosecond span between two Timestamps.
type Duration int64

const (
	// TimestampMin is the sentinel "before everything" time.
	TimestampMin Timestamp = math.MinInt64

	Nanosecond  Duration = 1
	Microsecond Duration = 1_000
	Millisecond Duration = 1_000_000
	Second      Duration = 1_000_000_000
)

// Add returns t+d, saturating at the int64 bounds instead of wrapping.
func (t Timestamp) Add(d Duration) Timestamp {
	sum := int64(t) + int64(d)
	if d >= 0 && sum < int64(t) {
		return Timestamp(math.MaxInt64)
	}
	if d < 0 && sum > int64(t) {
		return TimestampMin
	}
	return Timestamp(sum)
}

// Sub returns the signed span t-u.
func (t Timestamp) Sub(u Timestamp) Duration {
	return Duration(int64(t) - int64(u))
}

func (t Timestamp) AppendString(buf []byte) []byte {
	return strconv.AppendInt(buf, int64(t), 10)
}

func (t Timestamp) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Add returns d+e with the same saturation rule as Timestamp.Add.
func (d Duration) Add(e Duration) Duration {
	sum := int64(d) + int64(e)
	if e >= 0 && sum < int64(d) {
		return Duration(math.MaxInt64)
	}
	if e < 0 && sum > int64(d) {
		return Duration(math.MinInt64)
	}
	return Duration(sum)
}

func (d Duration) Nanoseconds() int64 { return int64(d) }
