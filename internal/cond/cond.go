// Package cond provides a condition variable whose waits are bounded by a
// deadline, which sync.Cond cannot express.
package cond

import (
	"sync"
	"time"
)

// Cond is a broadcast-only condition variable. The zero value is not usable;
// create one with New. L must be held when calling WaitUntil or Broadcast.
type Cond struct {
	L  sync.Locker
	ch chan struct{}
}

func New(l sync.Locker) *Cond {
	return &Cond{L: l, ch: make(chan struct{})}
}

// WaitUntil atomically unlocks L and suspends the caller until Broadcast is
// called or the deadline passes, then re-locks L. It returns false if the
// deadline passed first. As with sync.Cond, a woken caller must re-check its
// condition.
func (c *Cond) WaitUntil(deadline time.Time) bool {
	ch := c.ch
	d := time.Until(deadline)
	if d <= 0 {
		return false
	}

	c.L.Unlock()
	timer := time.NewTimer(d)
	defer timer.Stop()

	woken := false
	select {
	case <-ch:
		woken = true
	case <-timer.C:
	}
	c.L.Lock()
	return woken
}

// Broadcast wakes every goroutine waiting on c.
func (c *Cond) Broadcast() {
	close(c.ch)
	c.ch = make(chan struct{})
}
