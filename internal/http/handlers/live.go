package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ftsurya/ai-recruitment-agent/internal/core/audio"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/interview"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/media"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/proctor"
	"github.com/ftsurya/ai-recruitment-agent/internal/repo/memory"
	"github.com/ftsurya/ai-recruitment-agent/pkg/clock"
	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
	"github.com/ftsurya/ai-recruitment-agent/pkg/ws"
)

// clientMsg is every message shape the browser bridge sends.
type clientMsg struct {
	Type   string `json:"type"`
	Data   string `json:"data,omitempty"`
	Final  bool   `json:"final,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	Muted  bool   `json:"muted,omitempty"`
	Text   string `json:"text,omitempty"`
	Camera bool   `json:"camera,omitempty"`
	Screen bool   `json:"screen,omitempty"`
	Speech bool   `json:"speech,omitempty"`
}

// LiveHandler bridges one browser connection to a live interview session:
// microphone frames and webcam stills flow in, transcript, agent speech and
// proctoring state flow out.
type LiveHandler struct {
	Hub      *ws.Hub
	Repo     *memory.InterviewRepo
	Vision   proctor.FrameAnalyzer
	Proctor  proctor.Config
	Session  interview.Config
	Streamer func() interview.Streamer
	Upgrader websocket.Upgrader
}

func NewLiveHandler(h *ws.Hub, r *memory.InterviewRepo, vision proctor.FrameAnalyzer, pcfg proctor.Config, scfg interview.Config, streamer func() interview.Streamer) *LiveHandler {
	return &LiveHandler{
		Hub:      h,
		Repo:     r,
		Vision:   vision,
		Proctor:  pcfg,
		Session:  scfg,
		Streamer: streamer,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *LiveHandler) WS(c *gin.Context) {
	id := c.Query("sess")
	iv, ok := h.Repo.Get(id)
	if id == "" || !ok {
		c.Status(http.StatusNotFound)
		return
	}
	raw, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := ws.Wrap(raw)
	h.Hub.Add(id, conn)
	defer func() {
		h.Hub.Remove(id)
		conn.Close()
	}()

	raw.SetReadLimit(16 << 20)

	// The first message declares what the candidate granted.
	raw.SetReadDeadline(time.Now().Add(30 * time.Second))
	var hello clientMsg
	if err := raw.ReadJSON(&hello); err != nil || hello.Type != "hello" {
		return
	}
	raw.SetReadDeadline(time.Time{})

	bridge := newLiveBridge(conn, hello.Speech)
	bridge.setHidden(hello.Hidden)

	pair, err := media.Acquire(c.Request.Context(), &bridgeProvider{
		conn:   conn,
		camera: hello.Camera,
		screen: hello.Screen,
	})
	if err != nil {
		_ = conn.WriteJSON(gin.H{"type": "error", "error": "permission_denied"})
		h.Repo.SetStatus(id, "failed")
		return
	}

	clk := clock.New()
	rec := media.NewRecorder("video/webm", clk)
	meter := audio.NewMeter()
	scheduler := audio.NewScheduler(clk)
	notifier := &wsNotifier{conn: conn, repo: h.Repo, id: id}

	scfg := h.Session
	scfg.SystemInstruction = interview.SystemInstruction(iv.JobDescription, iv.ResumeText)
	orch := interview.New(scfg, interview.Deps{
		Clock:    clk,
		Pair:     pair,
		Stream:   h.Streamer(),
		Recorder: rec,
		Playback: scheduler,
		Meter:    meter,
		Notifier: notifier,
		OnEnd: func(art types.SessionArtifact) {
			h.Repo.SetArtifact(id, art)
		},
	})

	notifier.progress = func() (int, int) {
		return orch.QuestionCount(), orch.WarningCount()
	}

	mon := proctor.New(h.Proctor, clk, bridge, h.Vision, meter, bridge.visible, bridge, orch, func() {
		orch.SetMuted(false)
		_ = conn.WriteJSON(gin.H{"type": "unmute"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch.Start(ctx, mon)
	h.Repo.SetStatus(id, string(interview.StatusActive))

	var endWG sync.WaitGroup
	defer endWG.Wait()

	for {
		var msg clientMsg
		if err := raw.ReadJSON(&msg); err != nil {
			// The read loop keeps draining recorder chunks during a graceful
			// end; a drop before then aborts the session without an artifact.
			if orch.Status() == interview.StatusActive {
				log.Println("bridge connection lost:", err)
				orch.Dispose()
				h.Repo.SetStatus(id, "aborted")
			}
			return
		}

		switch msg.Type {
		case "audio":
			samples, err := audio.DecodeFrame(msg.Data)
			if err != nil {
				continue
			}
			orch.PushAudio(samples)
		case "frame":
			bridge.deliverFrame(msg.Data)
		case "chunk":
			rec.Append(decodeChunk(msg.Data), msg.Final)
		case "visibility":
			bridge.setHidden(msg.Hidden)
		case "mute":
			orch.SetMuted(msg.Muted)
		case "code":
			orch.SetCode(msg.Text)
		case "speak_done":
			bridge.completeSpeak()
		case "end":
			// Ask the client to flush its recorder, then finish in the
			// background while this loop keeps feeding the final chunk.
			_ = conn.WriteJSON(gin.H{"type": "stop_recording"})
			endWG.Add(1)
			go func() {
				defer endWG.Done()
				art, err := orch.End(context.Background())
				if errors.Is(err, interview.ErrTerminated) {
					return
				}
				h.Repo.SetProgress(id, orch.QuestionCount(), orch.WarningCount())
				h.Repo.SetStatus(id, string(interview.StatusEnded))
				_ = conn.WriteJSON(gin.H{
					"type":      "ended",
					"has_video": art.RecordingData != "",
				})
				conn.Close()
			}()
		}
	}
}
