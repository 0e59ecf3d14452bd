package proctor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ftsurya/ai-recruitment-agent/pkg/clock"
	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
)

type fakeFrames struct {
	mu       sync.Mutex
	captures int
	err      error
}

func (f *fakeFrames) CaptureFrame(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0xff, 0xd8}, nil
}

func (f *fakeFrames) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

type fakeVision struct {
	mu      sync.Mutex
	calls   int
	results []types.VisionResult
	err     error
}

func (f *fakeVision) AnalyzeFrame(context.Context, []byte) (types.VisionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.VisionResult{}, f.err
	}
	res := f.results[f.calls%len(f.results)]
	f.calls++
	return res, nil
}

func (f *fakeVision) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLevel struct{ v float64 }

func (f *fakeLevel) Level() float64 { return f.v }

type fakeSink struct {
	mu         sync.Mutex
	violations []string
	signals    []types.ProctoringSignal
}

func (s *fakeSink) CheatingViolation(reason string) {
	s.mu.Lock()
	s.violations = append(s.violations, reason)
	s.mu.Unlock()
}

func (s *fakeSink) Signal(sig types.ProctoringSignal) {
	s.mu.Lock()
	s.signals = append(s.signals, sig)
	s.mu.Unlock()
}

func (s *fakeSink) signalsOf(kind types.SignalKind) []types.ProctoringSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.ProctoringSignal
	for _, sig := range s.signals {
		if sig.Kind == kind {
			out = append(out, sig)
		}
	}
	return out
}

func (s *fakeSink) violationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.violations)
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	dones  []func()
}

func (f *fakeSpeaker) Speak(text string, done func()) {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.dones = append(f.dones, done)
	f.mu.Unlock()
}

func (f *fakeSpeaker) finishAll() {
	f.mu.Lock()
	dones := f.dones
	f.dones = nil
	f.mu.Unlock()
	for _, d := range dones {
		if d != nil {
			d()
		}
	}
}

func (f *fakeSpeaker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken)
}

func absentResults(absences ...bool) []types.VisionResult {
	out := make([]types.VisionResult, len(absences))
	for i, a := range absences {
		out[i] = types.VisionResult{CandidateAbsent: a}
	}
	return out
}

func newTestMonitor(vision *fakeVision, level float64, visible func() bool) (*Monitor, *fakeFrames, *fakeSink, *fakeSpeaker, *int) {
	frames := &fakeFrames{}
	sink := &fakeSink{}
	speaker := &fakeSpeaker{}
	micCalls := 0
	m := New(Config{}, clock.NewFake(time.Now()), frames, vision, &fakeLevel{v: level}, visible, speaker,
		sink, func() { micCalls++ })
	return m, frames, sink, speaker, &micCalls
}

func TestAbsenceWarningEdgeTriggered(t *testing.T) {
	vision := &fakeVision{results: absentResults(false, true, true, false, true)}
	m, _, sink, speaker, micCalls := newTestMonitor(vision, 0, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m.VisualTick(ctx)
		speaker.finishAll()
	}

	require.Equal(t, 2, speaker.count(), "one warning per absent transition")
	require.Equal(t, absenceWarningText, speaker.spoken[0])
	require.Equal(t, 2, *micCalls, "mic re-enabled before each spoken warning")

	absSignals := sink.signalsOf(types.SignalAbsent)
	require.Len(t, absSignals, 5)
	require.False(t, absSignals[0].Active)
	require.True(t, absSignals[1].Active)
	require.True(t, absSignals[2].Active)
	require.False(t, absSignals[3].Active)
	require.True(t, absSignals[4].Active)
}

func TestAbsenceWarningSuppressedWhileSpeaking(t *testing.T) {
	vision := &fakeVision{results: absentResults(true, false, true)}
	m, _, _, speaker, _ := newTestMonitor(vision, 0, nil)

	ctx := context.Background()
	m.VisualTick(ctx) // warning starts, never finishes
	m.VisualTick(ctx)
	m.VisualTick(ctx) // new transition, but still speaking

	require.Equal(t, 1, speaker.count())

	speaker.finishAll()
	vision.results = absentResults(false, true)
	vision.calls = 0
	m.VisualTick(ctx)
	m.VisualTick(ctx)
	require.Equal(t, 2, speaker.count(), "warnings resume once speech completes")
}

func TestCheatingReportedEveryDetectingTick(t *testing.T) {
	vision := &fakeVision{results: []types.VisionResult{
		{CheatingDetected: true, CheatingReason: "Mobile phone usage"},
	}}
	m, _, sink, _, _ := newTestMonitor(vision, 0, nil)

	ctx := context.Background()
	m.VisualTick(ctx)
	m.VisualTick(ctx)
	m.VisualTick(ctx)

	require.Equal(t, 3, sink.violationCount(), "aggregation belongs to the sink, not the monitor")
	require.Equal(t, "Mobile phone usage", sink.violations[0])
}

func TestVisionFailureIsFailOpen(t *testing.T) {
	vision := &fakeVision{err: errors.New("model overloaded")}
	m, _, sink, speaker, _ := newTestMonitor(vision, 0, nil)

	m.VisualTick(context.Background())

	require.Zero(t, sink.violationCount())
	require.Empty(t, sink.signals, "no signals on a failed analysis pass")
	require.Zero(t, speaker.count())
}

func TestHiddenPageSkipsSampling(t *testing.T) {
	visible := true
	vision := &fakeVision{results: absentResults(true)}
	m, frames, sink, _, _ := newTestMonitor(vision, 100, func() bool { return visible })

	ctx := context.Background()
	visible = false
	m.VisualTick(ctx)
	m.AudioTick()

	require.Zero(t, frames.count(), "no frame capture while hidden")
	require.Zero(t, vision.count())
	require.Empty(t, sink.signals)

	visible = true
	m.VisualTick(ctx)
	m.AudioTick()
	require.Equal(t, 1, frames.count(), "sampling resumes when visible again")
	require.NotEmpty(t, sink.signalsOf(types.SignalAudioNoise))
}

func TestNoiseSignalLevelTriggered(t *testing.T) {
	level := &fakeLevel{v: 50}
	sink := &fakeSink{}
	m := New(Config{NoiseThreshold: 35}, clock.NewFake(time.Now()), &fakeFrames{}, &fakeVision{results: absentResults(false)}, level, nil, nil, sink, nil)

	m.AudioTick()
	level.v = 10
	m.AudioTick()

	sigs := sink.signalsOf(types.SignalAudioNoise)
	require.Len(t, sigs, 2)
	require.True(t, sigs[0].Active)
	require.False(t, sigs[1].Active, "flag clears once energy drops")
}

func TestGazeAndQualitySignals(t *testing.T) {
	vision := &fakeVision{results: []types.VisionResult{
		{EyeContactDeviation: true, VideoQualityIssue: true, VideoQualityReason: "poor lighting"},
	}}
	m, _, sink, _, _ := newTestMonitor(vision, 0, nil)

	m.VisualTick(context.Background())

	gaze := sink.signalsOf(types.SignalGaze)
	require.Len(t, gaze, 1)
	require.True(t, gaze[0].Active)

	quality := sink.signalsOf(types.SignalVideoQuality)
	require.Len(t, quality, 1)
	require.True(t, quality[0].Active)
	require.Equal(t, "poor lighting", quality[0].Detail)
}

func TestTickersFireOnSchedule(t *testing.T) {
	clk := clock.NewFake(time.Now())
	frames := &fakeFrames{}
	vision := &fakeVision{results: absentResults(false)}
	sink := &fakeSink{}
	m := New(Config{VisualInterval: 15 * time.Second, AudioInterval: 2 * time.Second, NoiseThreshold: 35},
		clk, frames, vision, &fakeLevel{v: 50}, nil, nil, sink, nil)

	m.Start(context.Background())
	clk.Advance(16 * time.Second)

	require.Eventually(t, func() bool { return frames.count() >= 1 }, time.Second, 2*time.Millisecond,
		"visual tick after its interval")
	require.Eventually(t, func() bool { return len(sink.signalsOf(types.SignalAudioNoise)) >= 8 }, time.Second, 2*time.Millisecond,
		"audio ticks every two seconds")

	m.Stop()
	m.Stop() // idempotent
}
