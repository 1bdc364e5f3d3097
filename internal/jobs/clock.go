package jobs

import (
	"sort"
	"sync"
	"time"
)

// Stopper cancels a scheduled timer or ticker. Stop is idempotent.
type Stopper interface {
	Stop()
}

// Clock schedules callbacks for the controller. Callbacks must not block.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Stopper
	Every(d time.Duration, fn func()) Stopper
}

// SystemClock is the wall-clock implementation.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, fn func()) Stopper {
	return timerStopper{t: time.AfterFunc(d, fn)}
}

func (SystemClock) Every(d time.Duration, fn func()) Stopper {
	t := &ticker{ticker: time.NewTicker(d), done: make(chan struct{})}
	go t.run(fn)
	return t
}

type timerStopper struct{ t *time.Timer }

func (s timerStopper) Stop() { s.t.Stop() }

type ticker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *ticker) run(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *ticker) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

// FakeClock is a manually advanced Clock for tests.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*fakeTimer
}

type fakeTimer struct {
	id     int
	at     time.Time
	period time.Duration
	fn     func()
	clock  *FakeClock
}

// NewFakeClock starts a fake clock at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start, timers: map[int]*fakeTimer{}}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, fn func()) Stopper {
	return c.schedule(d, 0, fn)
}

func (c *FakeClock) Every(d time.Duration, fn func()) Stopper {
	return c.schedule(d, d, fn)
}

func (c *FakeClock) schedule(d, period time.Duration, fn func()) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := &fakeTimer{id: c.nextID, at: c.now.Add(d), period: period, fn: fn, clock: c}
	c.timers[t.id] = t
	return t
}

func (t *fakeTimer) Stop() {
	t.clock.mu.Lock()
	delete(t.clock.timers, t.id)
	t.clock.mu.Unlock()
}

// Advance moves time forward by d, firing due callbacks in time order.
// Callbacks run without the clock lock held.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
		} else {
			delete(c.timers, next.id)
		}
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

func (c *FakeClock) nextDueLocked(target time.Time) *fakeTimer {
	due := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	return due[0]
}

// Pending reports how many one-shot and repeating timers are scheduled.
func (c *FakeClock) Pending() (oneShot, repeating int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.timers {
		if t.period > 0 {
			repeating++
		} else {
			oneShot++
		}
	}
	return oneShot, repeating
}
