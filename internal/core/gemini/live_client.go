package gemini

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// JSON structures for the bidirectional streaming protocol.

type sendTextPart struct {
	Text string `json:"text"`
}

type sendSystemInstruction struct {
	Parts []sendTextPart `json:"parts"`
}

type sendGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type sendSetup struct {
	Model                    string                `json:"model"`
	GenerationConfig         sendGenerationConfig  `json:"generationConfig"`
	SystemInstruction        sendSystemInstruction `json:"systemInstruction"`
	InputAudioTranscription  struct{}              `json:"inputAudioTranscription"`
	OutputAudioTranscription struct{}              `json:"outputAudioTranscription"`
}

type sendSetupEnvelope struct {
	Setup sendSetup `json:"setup"`
}

type sendMediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type sendRealtimeInput struct {
	MediaChunks []sendMediaChunk `json:"mediaChunks"`
}

type sendRealtimeEnvelope struct {
	RealtimeInput sendRealtimeInput `json:"realtimeInput"`
}

type receivedTranscription struct {
	Text string `json:"text"`
}

type receivedInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type receivedPart struct {
	InlineData *receivedInlineData `json:"inlineData"`
}

type receivedModelTurn struct {
	Parts []receivedPart `json:"parts"`
}

type receivedServerContent struct {
	ModelTurn           *receivedModelTurn     `json:"modelTurn"`
	InputTranscription  *receivedTranscription `json:"inputTranscription"`
	OutputTranscription *receivedTranscription `json:"outputTranscription"`
	TurnComplete        bool                   `json:"turnComplete"`
}

type receivedMessage struct {
	SetupComplete *struct{}              `json:"setupComplete"`
	ServerContent *receivedServerContent `json:"serverContent"`
}

// State is the streaming session lifecycle. A closed or errored session
// cannot be reopened; a new session requires a fresh media acquisition.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// EventKind discriminates inbound session events.
type EventKind int

const (
	EventInputTranscription  EventKind = iota // candidate speech fragment
	EventOutputTranscription                  // agent reply fragment, text form
	EventTurnComplete
	EventAudio // synthesized agent speech, base64 PCM @24kHz
)

// Event is one inbound streaming event.
type Event struct {
	Kind      EventKind
	Text      string
	AudioData string
}

// LiveClient manages the persistent bidirectional session with the
// interview agent service: it pumps encoded microphone audio upstream and
// surfaces transcription and synthesized-audio events.
type LiveClient struct {
	url       string
	modelName string
	dialer    *websocket.Dialer

	mu    sync.Mutex
	state State
	err   error

	conn     *websocket.Conn
	sendChan chan string
	events   chan Event
	doneChan chan struct{}
	closeOne sync.Once
}

// NewLiveClient creates a new, unconnected client for the given model.
func NewLiveClient(apiKey, model string) *LiveClient {
	url := "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=" + apiKey
	return &LiveClient{url: url, dialer: websocket.DefaultDialer, modelName: model}
}

// NewLiveClientURL connects to an explicit endpoint. Used by tests to point
// at a local server.
func NewLiveClientURL(url, model string) *LiveClient {
	return &LiveClient{url: url, dialer: websocket.DefaultDialer, modelName: model}
}

// Start dials the service, sends the setup envelope (persona + job/resume
// context, audio responses, both-direction transcription), and launches the
// read/write handlers.
func (c *LiveClient) Start(systemInstruction string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("live client in state %s, cannot start", c.state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	headers := http.Header{}
	conn, _, err := c.dialer.Dial(c.url, headers)
	if err != nil {
		c.fail(err)
		return err
	}

	setup := sendSetupEnvelope{
		Setup: sendSetup{
			Model: "models/" + c.modelName,
			GenerationConfig: sendGenerationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
			SystemInstruction: sendSystemInstruction{
				Parts: []sendTextPart{{Text: systemInstruction}},
			},
		},
	}
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.sendChan = make(chan string, 64)
	c.events = make(chan Event, 64)
	c.doneChan = make(chan struct{})
	c.state = StateOpen
	c.mu.Unlock()

	go c.readMessages()
	go c.writeMessages()
	return nil
}

// State returns the current lifecycle state.
func (c *LiveClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal error, if the session errored.
func (c *LiveClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *LiveClient) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	if c.state != StateClosed {
		c.state = StateErrored
	}
	c.mu.Unlock()
}

// SendAudio pushes one encoded microphone frame into the open session.
// Fire-and-forget: frames are delivered in capture order with no
// acknowledgment expected.
func (c *LiveClient) SendAudio(frame string) error {
	c.mu.Lock()
	ch, st := c.sendChan, c.state
	c.mu.Unlock()
	if st != StateOpen || ch == nil {
		return errors.New("live session is not open")
	}
	select {
	case ch <- frame:
		return nil
	case <-c.doneChan:
		return errors.New("live session is closed")
	}
}

// Events returns the inbound event stream. Closed when the session ends.
func (c *LiveClient) Events() <-chan Event {
	return c.events
}

func (c *LiveClient) readMessages() {
	defer close(c.events)
	for {
		var received receivedMessage
		if err := c.conn.ReadJSON(&received); err != nil {
			select {
			case <-c.doneChan:
				// Explicit close; not an error.
			default:
				log.Println("live session read error:", err)
				c.fail(err)
			}
			return
		}

		sc := received.ServerContent
		if sc == nil {
			continue
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			c.emit(Event{Kind: EventInputTranscription, Text: sc.InputTranscription.Text})
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			c.emit(Event{Kind: EventOutputTranscription, Text: sc.OutputTranscription.Text})
		}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData != nil && p.InlineData.Data != "" {
					c.emit(Event{Kind: EventAudio, AudioData: p.InlineData.Data})
				}
			}
		}
		if sc.TurnComplete {
			c.emit(Event{Kind: EventTurnComplete})
		}
	}
}

func (c *LiveClient) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.doneChan:
	}
}

func (c *LiveClient) writeMessages() {
	for {
		select {
		case frame := <-c.sendChan:
			envelope := sendRealtimeEnvelope{
				RealtimeInput: sendRealtimeInput{
					MediaChunks: []sendMediaChunk{{
						MIMEType: "audio/pcm;rate=16000",
						Data:     frame,
					}},
				},
			}
			if err := c.conn.WriteJSON(envelope); err != nil {
				log.Println("live session write error:", err)
				c.fail(err)
			}
		case <-c.doneChan:
			err := c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(2*time.Second))
			if err != nil {
				log.Println("live session write close:", err)
			}
			return
		}
	}
}

// Close shuts the session down. The connection cannot be reopened.
func (c *LiveClient) Close() {
	c.closeOne.Do(func() {
		c.mu.Lock()
		if c.state == StateOpen || c.state == StateConnecting {
			c.state = StateClosed
		}
		conn, done := c.conn, c.doneChan
		c.mu.Unlock()
		if done != nil {
			close(done)
		}
		if conn != nil {
			conn.Close()
		}
	})
}
