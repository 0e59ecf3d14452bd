package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ftsurya/ai-recruitment-agent/internal/core/interview"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/media"
	"github.com/ftsurya/ai-recruitment-agent/internal/repo/memory"
	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
	"github.com/ftsurya/ai-recruitment-agent/pkg/ws"
)

const (
	frameTimeout = 5 * time.Second
	speakTimeout = 15 * time.Second
)

// liveBridge is the server-side half of the client bridge: it requests
// webcam stills, relays speech synthesis, and tracks page visibility so the
// proctoring timers can no-op while the tab is backgrounded.
type liveBridge struct {
	conn     *ws.Conn
	speechOK bool

	mu        sync.Mutex
	hidden    bool
	frameCh   chan []byte
	speakDone func()
}

func newLiveBridge(conn *ws.Conn, speechOK bool) *liveBridge {
	return &liveBridge{conn: conn, speechOK: speechOK}
}

func (b *liveBridge) setHidden(hidden bool) {
	b.mu.Lock()
	b.hidden = hidden
	b.mu.Unlock()
}

func (b *liveBridge) visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.hidden
}

// CaptureFrame asks the client for the current webcam frame as JPEG.
func (b *liveBridge) CaptureFrame(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	if b.frameCh != nil {
		b.mu.Unlock()
		return nil, errors.New("frame capture already in flight")
	}
	ch := make(chan []byte, 1)
	b.frameCh = ch
	b.mu.Unlock()

	if err := b.conn.WriteJSON(gin.H{"type": "capture_frame"}); err != nil {
		b.clearFrame()
		return nil, err
	}

	select {
	case jpeg := <-ch:
		return jpeg, nil
	case <-ctx.Done():
		b.clearFrame()
		return nil, ctx.Err()
	case <-time.After(frameTimeout):
		b.clearFrame()
		return nil, errors.New("frame capture timed out")
	}
}

func (b *liveBridge) deliverFrame(data string) {
	jpeg, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return
	}
	b.mu.Lock()
	ch := b.frameCh
	b.frameCh = nil
	b.mu.Unlock()
	if ch != nil {
		ch <- jpeg
	}
}

func (b *liveBridge) clearFrame() {
	b.mu.Lock()
	b.frameCh = nil
	b.mu.Unlock()
}

// Speak relays an absence warning to the client's speech synthesis; done
// fires on the client's completion message, or on a fallback timeout so a
// lost reply never wedges the absence latch.
func (b *liveBridge) Speak(text string, done func()) {
	if !b.speechOK {
		if done != nil {
			done()
		}
		return
	}
	b.mu.Lock()
	prev := b.speakDone
	b.speakDone = done
	b.mu.Unlock()
	if prev != nil {
		prev()
	}

	if err := b.conn.WriteJSON(gin.H{"type": "speak", "text": text}); err != nil {
		b.completeSpeak()
		return
	}
	time.AfterFunc(speakTimeout, b.completeSpeak)
}

func (b *liveBridge) completeSpeak() {
	b.mu.Lock()
	done := b.speakDone
	b.speakDone = nil
	b.mu.Unlock()
	if done != nil {
		done()
	}
}

// bridgeProvider acquires logical track groups according to what the client
// reported granting. Stopping a track tells the client to stop the real one.
type bridgeProvider struct {
	conn   *ws.Conn
	camera bool
	screen bool
}

func (p *bridgeProvider) OpenCamera(context.Context) (*media.Stream, error) {
	if !p.camera {
		return nil, media.ErrPermissionDenied
	}
	stop := p.releaseFn("camera")
	return &media.Stream{Tracks: []*media.Track{
		media.NewTrack(media.TrackAudio, stop),
		media.NewTrack(media.TrackVideo, stop),
	}}, nil
}

func (p *bridgeProvider) OpenScreen(context.Context) (*media.Stream, error) {
	if !p.screen {
		return nil, media.ErrPermissionDenied
	}
	return &media.Stream{Tracks: []*media.Track{
		media.NewTrack(media.TrackVideo, p.releaseFn("screen")),
	}}, nil
}

func (p *bridgeProvider) releaseFn(target string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			_ = p.conn.WriteJSON(gin.H{"type": "release", "target": target})
		})
	}
}

// wsNotifier pushes orchestrator updates to the client and mirrors terminal
// state into the repo. progress is wired once the orchestrator exists.
type wsNotifier struct {
	conn     *ws.Conn
	repo     *memory.InterviewRepo
	id       string
	progress func() (questions, warnings int)
}

func (n *wsNotifier) Status(ai interview.AIStatus, questionCount int) {
	_ = n.conn.WriteJSON(gin.H{"type": "status", "ai": string(ai), "question": questionCount})
}

func (n *wsNotifier) TranscriptUpdated(entries []types.TranscriptEntry) {
	_ = n.conn.WriteJSON(gin.H{"type": "transcript", "entries": entries})
}

func (n *wsNotifier) AgentAudio(data string, startAt float64) {
	_ = n.conn.WriteJSON(gin.H{"type": "audio", "data": data, "start": startAt})
}

func (n *wsNotifier) Signal(sig types.ProctoringSignal) {
	_ = n.conn.WriteJSON(gin.H{"type": "signal", "kind": string(sig.Kind), "active": sig.Active, "detail": sig.Detail})
}

func (n *wsNotifier) CheatingWarning(visible bool) {
	_ = n.conn.WriteJSON(gin.H{"type": "cheating_warning", "visible": visible})
}

func (n *wsNotifier) Terminated() {
	if n.progress != nil {
		q, w := n.progress()
		n.repo.SetProgress(n.id, q, w)
	}
	n.repo.SetStatus(n.id, string(interview.StatusTerminated))
	_ = n.conn.WriteJSON(gin.H{"type": "terminated"})
}

func decodeChunk(data string) []byte {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil
	}
	return raw
}
