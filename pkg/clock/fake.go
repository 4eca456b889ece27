package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a deterministic Clock. Time only moves when Advance is called.
// It is safe for concurrent use.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline
// order, without the clock's lock held. A callback may register new
// timers; those fire within the same Advance call if their deadline is
// reached.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
	changed *sync.Cond
}

type fakeWaiter struct {
	deadline time.Time
	callback func()
	channel  chan time.Time
	interval time.Duration
	stopped  bool
	fired    bool
}

// NewFake returns a Fake clock set to initial.
func NewFake(initial time.Time) *Fake {
	f := &Fake{now: initial}
	f.changed = sync.NewCond(&f.mu)
	return f
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers f to run once the clock has advanced by d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := &fakeWaiter{deadline: f.now.Add(d), callback: fn}
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()
	return &fakeTimer{clock: f, waiter: w}
}

// NewTicker registers a periodic waiter. Ticks are dropped when the
// consumer falls behind, as with time.Ticker.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	w := &fakeWaiter{
		deadline: f.now.Add(d),
		channel:  make(chan time.Time, 1),
		interval: d,
	}
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()
	return &fakeTicker{clock: f, waiter: w}
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline is reached.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		w := f.nextDueLocked(target)
		if w == nil {
			f.now = target
			f.compactLocked()
			f.mu.Unlock()
			return
		}
		f.now = w.deadline
		fireAt := f.now
		var cb func()
		if w.interval > 0 {
			w.deadline = w.deadline.Add(w.interval)
			select {
			case w.channel <- fireAt:
			default:
			}
		} else {
			w.fired = true
			cb = w.callback
		}
		f.mu.Unlock()

		if cb != nil {
			cb()
		}
	}
}

// nextDueLocked returns the earliest active waiter due at or before
// target, or nil.
func (f *Fake) nextDueLocked(target time.Time) *fakeWaiter {
	var due []*fakeWaiter
	for _, w := range f.waiters {
		if w.stopped || w.fired {
			continue
		}
		if !w.deadline.After(target) {
			due = append(due, w)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0]
}

func (f *Fake) compactLocked() {
	kept := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.stopped && !w.fired {
			kept = append(kept, w)
		}
	}
	f.waiters = kept
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// Use it to wait for a goroutine to register its timer before calling
// Advance.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.pendingLocked() < n {
		f.changed.Wait()
	}
}

// PendingCount returns the number of active timers and tickers.
func (f *Fake) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingLocked()
}

func (f *Fake) pendingLocked() int {
	n := 0
	for _, w := range f.waiters {
		if !w.stopped && !w.fired {
			n++
		}
	}
	return n
}

type fakeTimer struct {
	clock  *Fake
	waiter *fakeWaiter
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.waiter.stopped || t.waiter.fired {
		return false
	}
	t.waiter.stopped = true
	t.clock.changed.Broadcast()
	return true
}

type fakeTicker struct {
	clock  *Fake
	waiter *fakeWaiter
}

func (t *fakeTicker) C() <-chan time.Time { return t.waiter.channel }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.waiter.stopped = true
	t.clock.changed.Broadcast()
}

// Verify interface compliance.
var (
	_ Clock = realClock{}
	_ Clock = (*Fake)(nil)
)
