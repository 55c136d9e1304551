package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Time fields in a manifest are not evaluated as code. Only two shapes are
// accepted:
//
//	duration: "3 hours", "3.hours", "90m", "10800" (bare seconds)
//	instant:  "now", "now - 1 week", "Time.now + 2.days"
var (
	durationRe = regexp.MustCompile(`^(\d+)(?:\s*\.\s*|\s*)([a-z]*)$`)
	instantRe  = regexp.MustCompile(`^(?:time\.)?now(?:\s*([+-])\s*(.+))?$`)
)

var unitDurations = map[string]time.Duration{
	"":        time.Second,
	"s":       time.Second,
	"sec":     time.Second,
	"secs":    time.Second,
	"second":  time.Second,
	"seconds": time.Second,
	"m":       time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"h":       time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"d":       24 * time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
	"w":       7 * 24 * time.Hour,
	"week":    7 * 24 * time.Hour,
	"weeks":   7 * 24 * time.Hour,
}

// ParseDuration parses an integer followed by an optional unit.
func ParseDuration(expr string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", expr)
	}
	unit, ok := unitDurations[m[2]]
	if !ok {
		return 0, fmt.Errorf("invalid duration %q: unknown unit %q", expr, m[2])
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", expr, err)
	}
	if n > int64(1<<63-1)/int64(unit) {
		return 0, fmt.Errorf("invalid duration %q: out of range", expr)
	}
	return time.Duration(n) * unit, nil
}

// ParseInstant parses "now" optionally followed by "+ duration" or
// "- duration", relative to now.
func ParseInstant(expr string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	m := instantRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid instant %q (want \"now\" or \"now +/- <n> <unit>\")", expr)
	}
	if m[1] == "" {
		return now, nil
	}
	d, err := ParseDuration(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q: %w", expr, err)
	}
	if m[1] == "-" {
		d = -d
	}
	return now.Add(d), nil
}
