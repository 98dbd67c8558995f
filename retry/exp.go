package retry

import (
	"math/rand/v2"
	"time"
)

// ExpConfig grows the delay geometrically from Min up to Max
type ExpConfig struct {
	Min   time.Duration
	Max   time.Duration
	Scale float64

	// Jitter randomizes each delay by up to this fraction of it, in both
	// directions
	Jitter float64

	// Instant makes the first attempt wait Min instead of nothing
	Instant bool
}

// DefaultExpConfig suits reconnecting to remote services
var DefaultExpConfig = ExpConfig{
	Min:    500 * time.Millisecond,
	Max:    30 * time.Second,
	Scale:  2,
	Jitter: 0.2,
}

// Delays implements Config
func (c ExpConfig) Delays() DelayFn {
	b := NewExpBackoff(c)
	first := true
	return func() (time.Duration, bool) {
		if first && !c.Instant {
			first = false
			return 0, true
		}
		return b.Backoff(), true
	}
}

// Exponential is the state of an exponential backoff
type Exponential struct {
	config ExpConfig
	next   time.Duration
}

// NewExpBackoff creates an Exponential starting at config.Min
func NewExpBackoff(config ExpConfig) *Exponential {
	return &Exponential{config: config, next: config.Min}
}

// Backoff returns the delay to wait now and advances the state
func (b *Exponential) Backoff() time.Duration {
	delay := b.next
	b.next = time.Duration(float64(b.next) * b.config.Scale)
	if b.next > b.config.Max {
		b.next = b.config.Max
	}
	if b.config.Jitter > 0 {
		delay += time.Duration((rand.Float64()*2 - 1) * b.config.Jitter * float64(delay))
	}
	return delay
}

// Reset starts the sequence over
func (b *Exponential) Reset() {
	b.next = b.config.Min
}
