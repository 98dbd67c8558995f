// Package test contains helpers for tests
package test

import (
	"context"
	"testing"
	"time"

	"github.com/ridge/solstream/tlog"
)

// Context returns a context carrying a test logger. It is canceled when the
// test finishes.
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(tlog.WithLogger(context.Background(), tlog.NewForTesting(t)))
	t.Cleanup(cancel)
	return ctx
}

// ContextWithTimeout is Context that also expires after timeout with
// context.DeadlineExceeded
func ContextWithTimeout(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(Context(t), timeout)
	t.Cleanup(cancel)
	return ctx
}
