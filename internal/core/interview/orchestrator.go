// Package interview hosts the live session state machine: it coordinates
// the streaming session client, the proctoring monitor, the recorder, and
// the media pair, and exposes a single start/end contract to the host.
package interview

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ftsurya/ai-recruitment-agent/internal/core/audio"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/gemini"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/media"
	"github.com/ftsurya/ai-recruitment-agent/pkg/clock"
	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
)

// ErrTerminated is returned by End after the session was terminated for
// policy violations; termination tears resources down on its own and never
// produces an artifact.
var ErrTerminated = errors.New("interview: session terminated")

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
	StatusEnded      Status = "ended"
)

// AIStatus is derived from the streaming event flow, not authoritative.
type AIStatus string

const (
	AIIdle      AIStatus = "Idle"
	AIListening AIStatus = "Listening"
	AIThinking  AIStatus = "Thinking"
	AISpeaking  AIStatus = "Speaking"
)

// Streamer is the streaming session client surface the orchestrator drives.
type Streamer interface {
	Start(systemInstruction string) error
	Events() <-chan gemini.Event
	SendAudio(frame string) error
	Close()
}

// ProctorRunner is the proctoring monitor lifecycle.
type ProctorRunner interface {
	Start(ctx context.Context)
	Stop()
}

// Notifier pushes session updates to the host UI.
type Notifier interface {
	Status(ai AIStatus, questionCount int)
	TranscriptUpdated(entries []types.TranscriptEntry)
	AgentAudio(data string, startAt float64)
	Signal(sig types.ProctoringSignal)
	CheatingWarning(visible bool)
	Terminated()
}

type Config struct {
	SystemInstruction string
	WarningLimit      int           // violations before termination, default 2
	WarningDisplay    time.Duration // transient warning auto-dismiss, default 5s
	IdleTimeout       time.Duration // silence before Listening->Thinking, default 1.5s
	RecorderDrain     time.Duration // bound on waiting for the final chunk, default 3s
}

func (c *Config) fill() {
	if c.WarningLimit <= 0 {
		c.WarningLimit = 2
	}
	if c.WarningDisplay <= 0 {
		c.WarningDisplay = 5 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 1500 * time.Millisecond
	}
	if c.RecorderDrain <= 0 {
		c.RecorderDrain = 3 * time.Second
	}
}

// Deps are the session-scoped resources the orchestrator owns. It is the
// sole owner and mutator of all of them.
type Deps struct {
	Clock    clock.Clock
	Pair     *media.Pair
	Stream   Streamer
	Recorder *media.Recorder
	Playback *audio.Scheduler
	Meter    *audio.Meter
	Notifier Notifier
	OnEnd    func(types.SessionArtifact)
}

type Orchestrator struct {
	cfg        Config
	clk        clock.Clock
	pair       *media.Pair
	stream     Streamer
	rec        *media.Recorder
	playback   *audio.Scheduler
	meter      *audio.Meter
	notifier   Notifier
	onEnd      func(types.SessionArtifact)
	transcript *Transcript
	bag        resourceBag

	mu        sync.Mutex
	status    Status
	ai        AIStatus
	question  int
	warnings  int
	code      string
	artifact  *types.SessionArtifact
	idleTimer clock.Timer
	warnTimer clock.Timer
}

func New(cfg Config, d Deps) *Orchestrator {
	cfg.fill()
	return &Orchestrator{
		cfg:        cfg,
		clk:        d.Clock,
		pair:       d.Pair,
		stream:     d.Stream,
		rec:        d.Recorder,
		playback:   d.Playback,
		meter:      d.Meter,
		notifier:   d.Notifier,
		onEnd:      d.OnEnd,
		transcript: NewTranscript(),
		status:     StatusConnecting,
		ai:         AIThinking,
		question:   1,
	}
}

// Start records immediately (early agent speech must be captured), launches
// the proctoring monitor, and opens the streaming session. A streaming open
// failure is logged and leaves the session in degraded mode; it does not
// abort the interview.
func (o *Orchestrator) Start(ctx context.Context, mon ProctorRunner) {
	o.rec.Start()
	if mon != nil {
		mon.Start(ctx)
	}

	o.bag.add(o.stream.Close)
	o.bag.add(o.playback.StopAll)
	if mon != nil {
		o.bag.add(mon.Stop)
	}
	o.bag.add(func() {
		o.mu.Lock()
		if o.idleTimer != nil {
			o.idleTimer.Stop()
		}
		if o.warnTimer != nil {
			o.warnTimer.Stop()
		}
		o.mu.Unlock()
	})
	o.bag.add(o.pair.Release)

	if err := o.stream.Start(o.cfg.SystemInstruction); err != nil {
		log.Println("streaming session failed to open, continuing degraded:", err)
	} else {
		go o.consumeEvents()
	}

	o.mu.Lock()
	o.status = StatusActive
	ai, q := o.ai, o.question
	o.mu.Unlock()
	o.notifier.Status(ai, q)
}

func (o *Orchestrator) consumeEvents() {
	for ev := range o.stream.Events() {
		switch ev.Kind {
		case gemini.EventInputTranscription:
			o.onFragment(types.SpeakerCandidate, ev.Text)
		case gemini.EventOutputTranscription:
			o.onFragment(types.SpeakerAgent, ev.Text)
		case gemini.EventTurnComplete:
			o.onTurnComplete()
		case gemini.EventAudio:
			o.onAgentAudio(ev.AudioData)
		}
	}
	if o.Status() == StatusActive {
		log.Println("streaming session closed; interview continues without transcription")
	}
}

func (o *Orchestrator) onFragment(speaker types.Speaker, text string) {
	o.mu.Lock()
	if o.status != StatusActive {
		o.mu.Unlock()
		return
	}
	if speaker == types.SpeakerCandidate {
		o.ai = AIListening
		if o.idleTimer == nil {
			o.idleTimer = o.clk.AfterFunc(o.cfg.IdleTimeout, o.idleToThinking)
		} else {
			o.idleTimer.Reset(o.cfg.IdleTimeout)
		}
	} else {
		if o.idleTimer != nil {
			o.idleTimer.Stop()
		}
		o.ai = AISpeaking
	}
	ai, q := o.ai, o.question
	o.mu.Unlock()

	o.transcript.Apply(speaker, text, o.rec.Elapsed())
	o.notifier.Status(ai, q)
	o.notifier.TranscriptUpdated(o.transcript.Entries())
}

func (o *Orchestrator) idleToThinking() {
	o.mu.Lock()
	if o.status != StatusActive || o.ai != AIListening {
		o.mu.Unlock()
		return
	}
	o.ai = AIThinking
	ai, q := o.ai, o.question
	o.mu.Unlock()
	o.notifier.Status(ai, q)
}

func (o *Orchestrator) onTurnComplete() {
	o.mu.Lock()
	if o.status != StatusActive {
		o.mu.Unlock()
		return
	}
	o.ai = AIIdle
	o.question++
	ai, q := o.ai, o.question
	o.mu.Unlock()
	o.notifier.Status(ai, q)
}

// onAgentAudio schedules a decoded buffer gaplessly and forwards it with its
// computed start time so the client plays back-to-back speech seamlessly.
// Audio counts as agent speech, so audio-only bursts still surface Speaking.
func (o *Orchestrator) onAgentAudio(data string) {
	samples, err := audio.DecodeFrame(data)
	if err != nil {
		log.Println("agent audio decode failed:", err)
		return
	}
	src := o.playback.Schedule(samples)
	if src == nil {
		return
	}

	o.mu.Lock()
	speaking := o.status == StatusActive && o.ai != AISpeaking
	if speaking {
		if o.idleTimer != nil {
			o.idleTimer.Stop()
		}
		o.ai = AISpeaking
	}
	ai, q := o.ai, o.question
	o.mu.Unlock()
	if speaking {
		o.notifier.Status(ai, q)
	}

	o.notifier.AgentAudio(data, src.StartAt)
	dur := audio.Duration(samples, audio.OutputSampleRate)
	o.clk.AfterFunc(o.playback.Until(src.StartAt+dur), func() {
		o.playback.Release(src)
	})
}

// PushAudio feeds one captured microphone frame through the meter and, when
// unmuted, into the streaming session. A muted mic keeps the session warm
// with silence frames of the same length.
func (o *Orchestrator) PushAudio(samples []float32) {
	o.meter.Observe(samples)
	o.mu.Lock()
	active := o.status == StatusActive || o.status == StatusConnecting
	o.mu.Unlock()
	if !active {
		return
	}
	frame := samples
	if !o.pair.MicEnabled() {
		frame = make([]float32, len(samples))
	}
	if err := o.stream.SendAudio(audio.EncodeFrame(frame)); err != nil {
		// Session not open yet, or closed: frames are fire-and-forget.
		return
	}
}

// CheatingViolation implements the proctoring sink. The monitor reports on
// every detecting tick; aggregation into the warning count happens here.
func (o *Orchestrator) CheatingViolation(reason string) {
	o.mu.Lock()
	if o.status != StatusActive {
		o.mu.Unlock()
		return
	}
	o.warnings++
	w := o.warnings
	o.mu.Unlock()

	if w >= o.cfg.WarningLimit {
		o.terminate()
		return
	}
	o.notifier.CheatingWarning(true)
	o.mu.Lock()
	if o.warnTimer != nil {
		o.warnTimer.Stop()
	}
	o.warnTimer = o.clk.AfterFunc(o.cfg.WarningDisplay, func() {
		o.notifier.CheatingWarning(false)
	})
	o.mu.Unlock()
}

// Signal forwards per-tick quality/absence/noise signals to the UI.
func (o *Orchestrator) Signal(sig types.ProctoringSignal) {
	o.mu.Lock()
	active := o.status == StatusActive
	o.mu.Unlock()
	if active {
		o.notifier.Signal(sig)
	}
}

// terminate enters the absorbing Terminated state: all resources are torn
// down immediately and no artifact reaches the normal completion path.
func (o *Orchestrator) terminate() {
	o.mu.Lock()
	if o.status == StatusTerminated || o.status == StatusEnded {
		o.mu.Unlock()
		return
	}
	o.status = StatusTerminated
	o.mu.Unlock()

	o.rec.MarkFinal()
	o.bag.disposeAll()
	o.notifier.Terminated()
}

// End gracefully finishes the session: stop and drain the recorder first,
// then tear everything else down, then hand the artifact to the host. The
// recorder must complete before media tracks are released or the final
// chunk is lost.
func (o *Orchestrator) End(ctx context.Context) (types.SessionArtifact, error) {
	o.mu.Lock()
	switch o.status {
	case StatusTerminated:
		o.mu.Unlock()
		return types.SessionArtifact{}, ErrTerminated
	case StatusEnded:
		art := *o.artifact
		o.mu.Unlock()
		return art, nil
	}
	o.status = StatusEnded
	code := o.code
	o.mu.Unlock()

	drainCtx, cancel := context.WithTimeout(ctx, o.cfg.RecorderDrain)
	recData := o.rec.Stop(drainCtx)
	cancel()

	o.bag.disposeAll()

	art := types.SessionArtifact{
		Transcript:     o.transcript.Entries(),
		CodeSubmission: code,
		RecordingData:  recData,
	}
	o.mu.Lock()
	o.artifact = &art
	o.mu.Unlock()

	if o.onEnd != nil {
		o.onEnd(art)
	}
	return art, nil
}

// Dispose releases everything without producing an artifact; used when the
// bridge connection drops mid-session.
func (o *Orchestrator) Dispose() {
	o.rec.MarkFinal()
	o.bag.disposeAll()
}

func (o *Orchestrator) SetCode(text string) {
	o.mu.Lock()
	o.code = text
	o.mu.Unlock()
}

func (o *Orchestrator) SetMuted(muted bool) {
	o.pair.SetMicEnabled(!muted)
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) AIStatus() AIStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ai
}

func (o *Orchestrator) QuestionCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.question
}

func (o *Orchestrator) WarningCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.warnings
}

func (o *Orchestrator) Transcript() []types.TranscriptEntry {
	return o.transcript.Entries()
}

func (o *Orchestrator) Code() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.code
}

// Artifact returns the end-of-session artifact, if the session has ended.
func (o *Orchestrator) Artifact() (types.SessionArtifact, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.artifact == nil {
		return types.SessionArtifact{}, false
	}
	return *o.artifact, true
}
