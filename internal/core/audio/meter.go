package audio

import (
	"math"
	"sync"
)

// Meter tracks the average energy of recent microphone frames on a 0-255
// scale, matching the analyser the proctoring audio check reads. It taps the
// raw input, so a transport-muted track still registers.
type Meter struct {
	mu    sync.Mutex
	level float64
}

func NewMeter() *Meter { return &Meter{} }

// Observe folds one capture frame into the current level.
func (m *Meter) Observe(samples []float32) {
	if len(samples) == 0 {
		return
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	m.mu.Lock()
	m.level = rms * 255
	m.mu.Unlock()
}

// Level returns the most recent average energy.
func (m *Meter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}
