package util

import "testing"

func TestParseIntDefault(t *testing.T) {
    if got := ParseIntDefault(" 42 ", 0); got != 42 {
        t.Fatalf("got %d", got)
    }
    if got := ParseIntDefault("x", 7); got != 7 {
        t.Fatalf("got %d", got)
    }
    if got := ParseIntDefault("", 7); got != 7 {
        t.Fatalf("got %d", got)
    }
}

func TestPrefix(t *testing.T) {
    if got := Prefix("610103001", 6); got != "610103" {
        t.Fatalf("got %q", got)
    }
    if got := Prefix("6101", 6); got != "6101" {
        t.Fatalf("got %q", got)
    }
}
