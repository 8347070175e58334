package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type recordingBackOff struct {
	backoff.BackOff
	waits *[]time.Duration
}

func (r *recordingBackOff) NextBackOff() time.Duration {
	d := r.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	*r.waits = append(*r.waits, d)
	return 0
}

// WithNoSleepForTest records backoff waits instead of sleeping
func WithNoSleepForTest(waits *[]time.Duration) Option {
	return func(c *Client) {
		c.retry.wrap = func(b backoff.BackOff) backoff.BackOff {
			return &recordingBackOff{BackOff: b, waits: waits}
		}
	}
}

// ScheduleForTest lists the waits a policy would take before giving up
func ScheduleForTest(base, maxWait time.Duration, attempts int) []time.Duration {
	b := retryPolicy{attempts: attempts, base: base, max: maxWait}.schedule(context.Background())
	var out []time.Duration
	for d := b.NextBackOff(); d != backoff.Stop; d = b.NextBackOff() {
		out = append(out, d)
	}
	return out
}

var IsPermanent = isPermanent
