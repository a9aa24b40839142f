package util

import (
    "strconv"
    "time"
)

// ISOMillis is the wire layout for timestamps: UTC with millisecond precision.
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t in UTC using ISOMillis.
func FormatISO(t time.Time) string {
    return t.UTC().Format(ISOMillis)
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// NextTick returns the first tick of a schedule anchored at start with the
// given period that falls strictly after now.
func NextTick(start, now time.Time, period time.Duration) time.Time {
    if period <= 0 {
        return now
    }
    if now.Before(start) {
        return start.Add(period)
    }
    n := now.Sub(start)/period + 1
    return start.Add(n * period)
}
