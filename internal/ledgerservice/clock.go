package ledgerservice

import (
	"sync"
	"time"
)

// clock hands out strictly increasing timestamps with microsecond precision.
//
// Two operations committed one after another on the same account never share
// a timestamp, so history ordering by time matches commit order.
type clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}

	c.last = t

	return t
}
