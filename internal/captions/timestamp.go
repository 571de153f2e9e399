package captions

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTimestamp renders d as HH:MM:SS.mmm. Negative durations clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, ms)
}

// ParseTimestamp parses HH:MM:SS.mmm or MM:SS.mmm.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	clock, frac, ok := strings.Cut(value, ".")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("timestamp %q: expected milliseconds", value)
	}
	fields := strings.Split(clock, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, fmt.Errorf("timestamp %q: expected HH:MM:SS.mmm or MM:SS.mmm", value)
	}
	if len(fields) == 2 {
		fields = append([]string{"0"}, fields...)
	}
	parts := make([]int64, 0, 4)
	for i, field := range append(fields, frac) {
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil || n < 0 || field == "" || strings.ContainsAny(field, "+-") {
			return 0, fmt.Errorf("timestamp %q: invalid field %q", value, field)
		}
		if (i == 1 || i == 2) && (n > 59 || len(field) != 2) {
			return 0, fmt.Errorf("timestamp %q: field %q out of range", value, field)
		}
		parts = append(parts, n)
	}
	total := time.Duration(parts[0])*time.Hour +
		time.Duration(parts[1])*time.Minute +
		time.Duration(parts[2])*time.Second +
		time.Duration(parts[3])*time.Millisecond
	return total, nil
}
