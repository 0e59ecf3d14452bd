// Package proctor samples the candidate's webcam and microphone on
// independent timers and raises integrity signals. The vision oracle is
// fail-open: a failed call is treated as "no violation detected this tick".
package proctor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ftsurya/ai-recruitment-agent/internal/core/tts"
	"github.com/ftsurya/ai-recruitment-agent/pkg/clock"
	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
)

const absenceWarningText = "Please sit before the camera and continue the interview."

// FrameSource captures the current webcam frame as a compressed JPEG.
type FrameSource interface {
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// FrameAnalyzer is the vision oracle.
type FrameAnalyzer interface {
	AnalyzeFrame(ctx context.Context, jpeg []byte) (types.VisionResult, error)
}

// LevelSource reads the average energy of the raw microphone input,
// independent of transport mute.
type LevelSource interface {
	Level() float64
}

// Sink consumes proctoring output. Cheating is reported on every detecting
// tick; the state machine owns deduplication into a warning count.
type Sink interface {
	CheatingViolation(reason string)
	Signal(sig types.ProctoringSignal)
}

type Config struct {
	VisualInterval time.Duration // default 15s
	AudioInterval  time.Duration // default 2s
	NoiseThreshold float64       // default 35 on the 0-255 meter scale
}

func (c *Config) fill() {
	if c.VisualInterval <= 0 {
		c.VisualInterval = 15 * time.Second
	}
	if c.AudioInterval <= 0 {
		c.AudioInterval = 2 * time.Second
	}
	if c.NoiseThreshold <= 0 {
		c.NoiseThreshold = 35
	}
}

// Monitor runs the visual and audio checks for the session's duration. The
// two timers are fully independent; both no-op while the page is hidden but
// keep firing on schedule.
type Monitor struct {
	cfg     Config
	clk     clock.Clock
	frames  FrameSource
	vision  FrameAnalyzer
	level   LevelSource
	visible func() bool
	speak   tts.Provider
	sink    Sink

	// ensureMicOn un-mutes before a spoken warning so the candidate's reply
	// reaches the transcription stream.
	ensureMicOn func()

	mu         sync.Mutex
	prevAbsent bool
	speaking   bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, clk clock.Clock, frames FrameSource, vision FrameAnalyzer, level LevelSource, visible func() bool, speak tts.Provider, sink Sink, ensureMicOn func()) *Monitor {
	cfg.fill()
	if visible == nil {
		visible = func() bool { return true }
	}
	if speak == nil {
		speak = tts.Noop{}
	}
	if ensureMicOn == nil {
		ensureMicOn = func() {}
	}
	return &Monitor{
		cfg:         cfg,
		clk:         clk,
		frames:      frames,
		vision:      vision,
		level:       level,
		visible:     visible,
		speak:       speak,
		sink:        sink,
		ensureMicOn: ensureMicOn,
		stopCh:      make(chan struct{}),
	}
}

// Start launches both periodic checks. Tickers are created here, not in the
// goroutines, so the schedule is fixed before Start returns.
func (m *Monitor) Start(ctx context.Context) {
	vt := m.clk.NewTicker(m.cfg.VisualInterval)
	at := m.clk.NewTicker(m.cfg.AudioInterval)
	go m.run(ctx, vt, m.VisualTick)
	go m.run(ctx, at, func(context.Context) { m.AudioTick() })
}

func (m *Monitor) run(ctx context.Context, t clock.Ticker, tick func(context.Context)) {
	defer t.Stop()
	for {
		select {
		case <-t.C():
			tick(ctx)
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals both loops to exit without waiting for an in-flight tick: a
// tick's own sink call may be what triggers teardown, so waiting here would
// deadlock. A straggler tick finishes against a state machine that already
// ignores it. Idempotent.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// VisualTick performs one webcam sampling pass. Exported so tests can drive
// ticks directly.
func (m *Monitor) VisualTick(ctx context.Context) {
	if !m.visible() {
		return
	}
	jpeg, err := m.frames.CaptureFrame(ctx)
	if err != nil || len(jpeg) == 0 {
		return
	}
	res, err := m.vision.AnalyzeFrame(ctx, jpeg)
	if err != nil {
		log.Println("proctoring frame analysis failed:", err)
		return
	}

	if res.CheatingDetected {
		m.sink.CheatingViolation(res.CheatingReason)
	}

	m.handleAbsence(res.CandidateAbsent)

	m.sink.Signal(types.ProctoringSignal{Kind: types.SignalGaze, Active: res.EyeContactDeviation})
	m.sink.Signal(types.ProctoringSignal{
		Kind:   types.SignalVideoQuality,
		Active: res.VideoQualityIssue,
		Detail: qualityDetail(res),
	})
}

// handleAbsence is edge-triggered: one spoken warning per false->true
// transition, never repeated while the candidate stays absent.
func (m *Monitor) handleAbsence(absent bool) {
	m.mu.Lock()
	newlyAbsent := absent && !m.prevAbsent
	m.prevAbsent = absent
	warn := newlyAbsent && !m.speaking
	if warn {
		m.speaking = true
	}
	m.mu.Unlock()

	m.sink.Signal(types.ProctoringSignal{Kind: types.SignalAbsent, Active: absent})

	if warn {
		m.ensureMicOn()
		m.speak.Speak(absenceWarningText, func() {
			m.mu.Lock()
			m.speaking = false
			m.mu.Unlock()
		})
	}
}

// AudioTick performs one microphone energy pass. Level-triggered: the noise
// flag clears on its own once energy drops below the threshold.
func (m *Monitor) AudioTick() {
	if !m.visible() {
		return
	}
	lvl := m.level.Level()
	m.sink.Signal(types.ProctoringSignal{
		Kind:   types.SignalAudioNoise,
		Active: lvl > m.cfg.NoiseThreshold,
	})
}

func qualityDetail(res types.VisionResult) string {
	if !res.VideoQualityIssue {
		return ""
	}
	return res.VideoQualityReason
}
