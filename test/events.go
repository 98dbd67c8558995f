package test

import (
	"time"

	"github.com/stretchr/testify/assert"
)

// DefaultWait is how long the helpers below wait for a value
const DefaultWait = 3 * time.Second

func receive[T any](ch <-chan T, timeout time.Duration) (val T, ok bool, timedOut bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case val, ok = <-ch:
		return val, ok, false
	case <-timer.C:
		return val, false, true
	}
}

// AssertReceived asserts that the expected values arrive on ch in order,
// waiting up to DefaultWait for each. Values after them are left in ch.
func AssertReceived[T any](t assert.TestingT, ch <-chan T, expected ...T) bool {
	for i, e := range expected {
		val, ok, timedOut := receive(ch, DefaultWait)
		if timedOut {
			return assert.Fail(t, "timeout", "index: %d", i)
		}
		if !ok {
			return assert.Fail(t, "channel closed", "index: %d", i)
		}
		if !assert.Equal(t, e, val, "index: %d", i) {
			return false
		}
	}
	return true
}

// AssertNothingReceived asserts that no value arrives on ch within the given
// time. A closed channel counts as nothing received.
func AssertNothingReceived[T any](t assert.TestingT, ch <-chan T, within time.Duration) bool {
	val, ok, timedOut := receive(ch, within)
	if timedOut || !ok {
		return true
	}
	return assert.Fail(t, "unexpected value", "%#v", val)
}

// AssertClosed asserts that ch gets closed within DefaultWait, discarding any
// values received before that
func AssertClosed[T any](t assert.TestingT, ch <-chan T) bool {
	deadline := time.Now().Add(DefaultWait)
	for {
		_, ok, timedOut := receive(ch, time.Until(deadline))
		if timedOut {
			return assert.Fail(t, "channel not closed")
		}
		if !ok {
			return true
		}
	}
}
