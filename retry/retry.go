// Package retry repeats failing operations with delays between attempts
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/ridge/solstream/tlog"
	"go.uber.org/zap"
)

// DelayFn yields the delay before each attempt, one call per attempt. It
// returns false when no more attempts should be made; it must return true on
// the first call.
type DelayFn func() (delay time.Duration, ok bool)

// Config produces independent sequences of delays
type Config interface {
	Delays() DelayFn
}

// FixedConfig waits the same time between attempts
type FixedConfig struct {
	TryAfter    time.Duration // before the first attempt
	RetryAfter  time.Duration // before each later attempt
	MaxAttempts int           // 0 means no limit
}

// Delays implements Config
func (c FixedConfig) Delays() DelayFn {
	attempt := 0
	return func() (time.Duration, bool) {
		attempt++
		if attempt == 1 {
			return c.TryAfter, true
		}
		if c.MaxAttempts > 0 && attempt > c.MaxAttempts {
			return 0, false
		}
		return c.RetryAfter, true
	}
}

// ErrRetriable marks an error as worth another attempt
type ErrRetriable struct {
	err error
}

func (r ErrRetriable) Error() string {
	return r.err.Error()
}

// Unwrap returns the marked error
func (r ErrRetriable) Unwrap() error {
	return r.err
}

// Retriable marks err as worth another attempt. Returns nil for nil.
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return ErrRetriable{err: err}
}

// IsRetriable reports whether err was marked by Retriable
func IsRetriable(err error) bool {
	var r ErrRetriable
	return errors.As(err, &r)
}

// Do calls f until it succeeds, fails with an error not marked by Retriable,
// the delays run out or the context is closed.
//
// When the delays run out the last error is returned without the mark.
func Do(ctx context.Context, c Config, f func() error) error {
	started := time.Now()
	delays := c.Delays()
	var last ErrRetriable
	var lastMessage string

	for attempt := 1; ; attempt++ {
		logger := tlog.Get(ctx).With(zap.Int("attempt", attempt))

		delay, ok := delays()
		if !ok {
			logger.Debug("Giving up", zap.Error(last.err), zap.Duration("elapsed", time.Since(started)))
			return last.err
		}
		if err := Sleep(ctx, delay); err != nil {
			return err
		}

		err := f()
		if !errors.As(err, &last) {
			if attempt > 1 && err == nil {
				logger.Debug("Succeeded after retries", zap.Duration("elapsed", time.Since(started)))
			}
			return err
		}
		if ctx.Err() != nil {
			return last.err
		}
		if msg := last.err.Error(); msg != lastMessage {
			logger.Debug("Will retry", zap.Error(last.err))
			lastMessage = msg
		}
	}
}

// Do1 is Do for functions returning a value
func Do1[T any](ctx context.Context, c Config, f func() (T, error)) (T, error) {
	var res T
	err := Do(ctx, c, func() error {
		var err error
		res, err = f()
		return err
	})
	return res, err
}
