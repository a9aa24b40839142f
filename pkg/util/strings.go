package util

import (
    "strconv"
    "strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    s = strings.TrimSpace(s)
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// Prefix returns the first n bytes of s, or s itself when it is shorter.
func Prefix(s string, n int) string {
    if n < 0 {
        return ""
    }
    if len(s) <= n {
        return s
    }
    return s[:n]
}
