package media

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/ftsurya/ai-recruitment-agent/pkg/clock"
)

// Recorder accumulates container chunks of the camera+microphone stream and,
// on stop, serializes them into a data URL suitable for the host's
// persistence layer. Recording is best-effort: an empty or failed recording
// resolves to "" and never blocks session end.
type Recorder struct {
	mimeType string
	clk      clock.Clock

	mu        sync.Mutex
	chunks    [][]byte
	startedAt time.Time
	recording bool
	final     chan struct{}
	finalOnce sync.Once
}

func NewRecorder(mimeType string, clk clock.Clock) *Recorder {
	return &Recorder{
		mimeType: mimeType,
		clk:      clk,
		final:    make(chan struct{}),
	}
}

// Start marks the beginning of the recording; transcript timestamps are
// measured from this instant.
func (r *Recorder) Start() {
	r.mu.Lock()
	r.recording = true
	r.startedAt = r.clk.Now()
	r.mu.Unlock()
}

// Recording reports whether Start has been called and Stop has not.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Elapsed is seconds since recording started, the playback clock transcript
// entries are stamped with. Zero before Start.
func (r *Recorder) Elapsed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startedAt.IsZero() {
		return 0
	}
	return r.clk.Now().Sub(r.startedAt).Seconds()
}

// Append adds one emitted chunk. Chunks arriving after Stop are dropped.
func (r *Recorder) Append(chunk []byte, final bool) {
	if len(chunk) > 0 {
		r.mu.Lock()
		if r.recording {
			r.chunks = append(r.chunks, chunk)
		}
		r.mu.Unlock()
	}
	if final {
		r.MarkFinal()
	}
}

// MarkFinal signals that the last chunk has been delivered.
func (r *Recorder) MarkFinal() {
	r.finalOnce.Do(func() { close(r.final) })
}

// Stop waits for the final chunk (bounded by ctx), then seals the recording
// and returns the encoded artifact. Chunks keep landing during the drain;
// the client typically flushes its buffered data only in response to the
// stop request. Zero recorded bytes yield "" rather than an error.
func (r *Recorder) Stop(ctx context.Context) string {
	r.mu.Lock()
	wasRecording := r.recording
	r.mu.Unlock()

	if wasRecording {
		select {
		case <-r.final:
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	total := 0
	for _, c := range r.chunks {
		total += len(c)
	}
	if total == 0 {
		return ""
	}
	blob := make([]byte, 0, total)
	for _, c := range r.chunks {
		blob = append(blob, c...)
	}
	return "data:" + r.mimeType + ";base64," + base64.StdEncoding.EncodeToString(blob)
}
