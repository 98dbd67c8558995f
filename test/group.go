package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ridge/parallel"
	"github.com/stretchr/testify/require"
)

// Group returns a parallel.Group running on a test context.
//
// The group is shut down when the test finishes. The test fails if the group
// ends with an error other than context.Canceled.
func Group(t testing.TB) *parallel.Group {
	return newGroup(t, Context(t))
}

// GroupWithTimeout is Group whose context expires after timeout
func GroupWithTimeout(t testing.TB, timeout time.Duration) *parallel.Group {
	return newGroup(t, ContextWithTimeout(t, timeout))
}

func newGroup(t testing.TB, ctx context.Context) *parallel.Group {
	group := parallel.NewGroup(ctx)
	t.Cleanup(func() {
		group.Exit(nil)
		if err := group.Wait(); !errors.Is(err, context.Canceled) {
			require.NoError(t, err)
		}
	})
	return group
}
