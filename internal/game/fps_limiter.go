package game

import "time"

// spinMargin is how long before the deadline Wait stops sleeping and spins.
const spinMargin = 200 * time.Microsecond

// FPSLimiter paces the frame loop to a fixed frame rate.
type FPSLimiter struct {
	limit    int
	interval time.Duration
	next     time.Time
}

// NewFPSLimiter creates a limiter capped at limit frames per second.
// A limit of 0 or less disables limiting.
func NewFPSLimiter(limit int) *FPSLimiter {
	f := &FPSLimiter{limit: limit}
	if limit > 0 {
		f.interval = time.Second / time.Duration(limit)
	}
	return f
}

// Limit returns the configured cap.
func (f *FPSLimiter) Limit() int { return f.limit }

// Wait blocks until the next frame is due. Deadlines advance by a fixed
// interval so short frames make up for long ones; after a stall longer
// than one interval the schedule restarts from now.
func (f *FPSLimiter) Wait() {
	if f.interval == 0 {
		return
	}
	now := time.Now()
	if f.next.IsZero() || now.Sub(f.next) > f.interval {
		f.next = now
	}
	f.next = f.next.Add(f.interval)
	sleepUntil(f.next)
}

// sleepUntil sleeps through most of the wait and spins the remainder;
// time.Sleep alone overshoots by too much at high frame rates.
func sleepUntil(deadline time.Time) {
	if d := time.Until(deadline) - spinMargin; d > 0 {
		time.Sleep(d)
	}
	for time.Now().Before(deadline) {
		// spin
	}
}
