package model

import (
	"strings"

	"github.com/yanun0323/errors"
)

// ParseDuration converts a latency-config string like "50us", "10ms",
// "1s" or "0" into nanoseconds. The empty string is zero.
func ParseDuration(s string) (Duration, error) {
	if s == "" {
		return 0, nil
	}

	lower := strings.ToLower(strings.TrimSpace(s))
	i := 0
	if i < len(lower) && (lower[i] == '-' || lower[i] == '+') {
		i++
	}
	start := i
	for i < len(lower) && lower[i] >= '0' && lower[i] <= '9' {
		i++
	}
	if i == start {
		return 0, errors.New("invalid duration string: " + s)
	}

	var value int64
	neg := lower[0] == '-'
	for _, c := range lower[start:i] {
		value = value*10 + int64(c-'0')
	}
	if neg {
		value = -value
	}

	switch unit := lower[i:]; unit {
	case "ns":
		return Duration(value), nil
	case "us", "micros":
		return Duration(value) * Microsecond, nil
	case "ms", "millis":
		return Duration(value) * Millisecond, nil
	case "s", "sec":
		return Duration(value) * Second, nil
	case "":
		if value == 0 {
			return 0, nil
		}
		return 0, errors.New("duration string is missing a unit: " + s)
	default:
		return 0, errors.New("unsupported duration unit in: " + s)
	}
}
