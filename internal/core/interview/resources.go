package interview

import "sync"

// resourceBag consolidates every cleanup handle a session accumulates
// (streaming client, playback sources, proctoring timers, media tracks) so
// every exit path runs the same idempotent teardown and nothing leaks.
type resourceBag struct {
	mu       sync.Mutex
	closers  []func()
	disposed bool
}

func (b *resourceBag) add(fn func()) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		fn()
		return
	}
	b.closers = append(b.closers, fn)
	b.mu.Unlock()
}

// disposeAll runs every registered closer in registration order, once.
func (b *resourceBag) disposeAll() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	closers := b.closers
	b.closers = nil
	b.mu.Unlock()
	for _, fn := range closers {
		fn()
	}
}
