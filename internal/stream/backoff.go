package stream

import (
	"math/rand"
	"time"
)

// Backoff computes reconnect delays: exponential growth from Min capped
// at Max, with a ±Jitter fraction so a fleet of gateways does not
// reconnect in lockstep.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Jitter float64 // fraction of the delay, e.g. 0.2
}

func DefaultBackoff() Backoff {
	return Backoff{
		Min:    1 * time.Second,
		Max:    30 * time.Second,
		Jitter: 0.2,
	}
}

// Delay returns the wait before reconnect attempt n (first attempt is 1).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	min := b.Min
	if min <= 0 {
		min = time.Second
	}
	max := b.Max
	if max <= 0 {
		max = 30 * time.Second
	}

	d := min
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	if d > max {
		d = max
	}

	if b.Jitter > 0 {
		// Uniform in [d*(1-jitter), d*(1+jitter)], clamped to [0, max].
		span := float64(d) * b.Jitter
		d = time.Duration(float64(d) + (rand.Float64()*2-1)*span)
		if d < 0 {
			d = 0
		}
		if d > max {
			d = max
		}
	}
	return d
}
