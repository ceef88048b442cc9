// Package testkit holds small assertions shared by package tests
package testkit

import (
	"strings"
	"testing"
	"time"
)

// MustPanic fails unless fn panics and hands back the recovered value
func MustPanic(t *testing.T, fn func()) (recovered any) {
	t.Helper()
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	if recovered == nil {
		t.Fatalf("expected a panic")
	}
	return recovered
}

// MustNotPanic fails if fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic: %v", r)
		}
	}()
	fn()
}

// MustContain fails when s lacks sub; long values are cut in the message
func MustContain(t *testing.T, s, sub string) {
	t.Helper()
	if strings.Contains(s, sub) {
		return
	}
	shown := s
	if len(shown) > 512 {
		shown = shown[:512] + "..."
	}
	t.Fatalf("%q not found in:\n%s", sub, shown)
}

// Eventually polls cond until it holds, failing with msg after within
func Eventually(t *testing.T, within time.Duration, cond func() bool, msg string) {
	t.Helper()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(within)
	for !cond() {
		select {
		case <-tick.C:
		case <-deadline:
			if cond() {
				return
			}
			t.Fatalf("after %s: %s", within, msg)
		}
	}
}

// Swap points *target at v until the test ends; callers must not run in parallel
func Swap[T any](t *testing.T, target *T, v T) {
	t.Helper()
	prev := *target
	*target = v
	t.Cleanup(func() { *target = prev })
}
