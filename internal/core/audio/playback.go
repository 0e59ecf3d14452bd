package audio

import (
	"sync"
	"time"

	"github.com/ftsurya/ai-recruitment-agent/pkg/clock"
)

// Scheduler assigns gapless start times to decoded agent-speech buffers:
// each buffer starts at the later of "now" and the previous buffer's end, so
// back-to-back speech plays without gaps or overlaps. It also tracks the
// active sources so they can all be stopped when the session closes.
type Scheduler struct {
	clk clock.Clock

	mu        sync.Mutex
	epoch     time.Time
	nextStart float64
	sources   map[*Source]struct{}
	stopped   bool
}

// Source is one scheduled playback buffer.
type Source struct {
	Samples []float32
	StartAt float64 // seconds since the scheduler epoch
}

func NewScheduler(clk clock.Clock) *Scheduler {
	return &Scheduler{
		clk:     clk,
		epoch:   clk.Now(),
		sources: map[*Source]struct{}{},
	}
}

// now returns seconds since the epoch.
func (s *Scheduler) now() float64 {
	return s.clk.Now().Sub(s.epoch).Seconds()
}

// Schedule registers a buffer and returns it with its computed start time.
// Returns nil once the scheduler has been stopped.
func (s *Scheduler) Schedule(samples []float32) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	start := s.nextStart
	if n := s.now(); n > start {
		start = n
	}
	src := &Source{Samples: samples, StartAt: start}
	s.nextStart = start + Duration(samples, OutputSampleRate)
	s.sources[src] = struct{}{}
	return src
}

// Until returns the wall duration from now until the given epoch-relative
// playback time; zero if it is already in the past.
func (s *Scheduler) Until(t float64) time.Duration {
	d := t - s.now()
	if d < 0 {
		return 0
	}
	return time.Duration(d * float64(time.Second))
}

// Release drops a source once its playback has ended.
func (s *Scheduler) Release(src *Source) {
	s.mu.Lock()
	delete(s.sources, src)
	s.mu.Unlock()
}

// Active reports how many scheduled sources have not yet been released.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// StopAll stops every queued or playing source and refuses further
// scheduling. Idempotent.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	s.stopped = true
	for src := range s.sources {
		delete(s.sources, src)
	}
	s.mu.Unlock()
}
