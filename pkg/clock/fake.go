package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Advance fires due tickers and
// timers synchronously, in this goroutine, before returning.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 64), period: d, next: f.now.Add(d)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clk: f, fn: fn, at: f.now.Add(d), active: true}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward, delivering ticker ticks and running due
// AfterFunc callbacks.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		var (
			nextAt time.Time
			fire   func()
		)
		for _, tk := range f.tickers {
			if !tk.stopped && !tk.next.After(target) && (fire == nil || tk.next.Before(nextAt)) {
				tk := tk
				nextAt = tk.next
				fire = func() {
					select {
					case tk.ch <- nextAt:
					default:
					}
					tk.next = tk.next.Add(tk.period)
				}
			}
		}
		for _, tm := range f.timers {
			if tm.active && !tm.at.After(target) && (fire == nil || tm.at.Before(nextAt)) {
				tm := tm
				nextAt = tm.at
				fire = func() {
					tm.active = false
					f.mu.Unlock()
					tm.fn()
					f.mu.Lock()
				}
			}
		}
		if fire == nil {
			break
		}
		f.now = nextAt
		fire()
	}
	f.now = target
	f.mu.Unlock()
}

type fakeTicker struct {
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped = true }

type fakeTimer struct {
	clk    *Fake
	fn     func()
	at     time.Time
	active bool
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := t.active
	t.at = t.clk.now.Add(d)
	t.active = true
	return was
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := t.active
	t.active = false
	return was
}
