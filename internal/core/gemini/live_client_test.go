package gemini

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// liveServer is a minimal in-process stand-in for the streaming endpoint. It
// records everything the client writes and lets tests inject server frames.
type liveServer struct {
	*httptest.Server

	mu       sync.Mutex
	upgrader websocket.Upgrader
	conn     *websocket.Conn
	received []map[string]json.RawMessage
	connCh   chan struct{}
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	s := &liveServer{connCh: make(chan struct{}, 1)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.connCh <- struct{}{}
		for {
			var msg map[string]json.RawMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, msg)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *liveServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *liveServer) waitConn(t *testing.T) {
	t.Helper()
	select {
	case <-s.connCh:
	case <-time.After(time.Second):
		t.Fatal("client never connected")
	}
}

func (s *liveServer) send(t *testing.T, v any) {
	t.Helper()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NoError(t, conn.WriteJSON(v))
}

func (s *liveServer) messages() []map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]json.RawMessage, len(s.received))
	copy(out, s.received)
	return out
}

func (s *liveServer) waitMessages(t *testing.T, n int) []map[string]json.RawMessage {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.messages()) >= n }, time.Second, 2*time.Millisecond)
	return s.messages()
}

func TestLiveClientSetupEnvelope(t *testing.T) {
	srv := newLiveServer(t)
	c := NewLiveClientURL(srv.wsURL(), "test-model")
	require.NoError(t, c.Start("You are Alex."))
	defer c.Close()
	srv.waitConn(t)

	msgs := srv.waitMessages(t, 1)
	var setup sendSetupEnvelope
	require.NoError(t, json.Unmarshal(mustField(t, msgs[0], "setup"), &setup.Setup))
	require.Equal(t, "models/test-model", setup.Setup.Model)
	require.Equal(t, []string{"AUDIO"}, setup.Setup.GenerationConfig.ResponseModalities)
	require.Len(t, setup.Setup.SystemInstruction.Parts, 1)
	require.Equal(t, "You are Alex.", setup.Setup.SystemInstruction.Parts[0].Text)

	require.Equal(t, StateOpen, c.State())
}

func mustField(t *testing.T, msg map[string]json.RawMessage, key string) json.RawMessage {
	t.Helper()
	raw, ok := msg[key]
	require.True(t, ok, "message missing %q", key)
	return raw
}

func TestLiveClientSendAudioWrapsRealtimeInput(t *testing.T) {
	srv := newLiveServer(t)
	c := NewLiveClientURL(srv.wsURL(), "test-model")
	require.NoError(t, c.Start("persona"))
	defer c.Close()
	srv.waitConn(t)

	require.NoError(t, c.SendAudio("AAAA"))

	msgs := srv.waitMessages(t, 2) // setup, then the frame
	var input sendRealtimeInput
	require.NoError(t, json.Unmarshal(mustField(t, msgs[1], "realtimeInput"), &input))
	require.Len(t, input.MediaChunks, 1)
	require.Equal(t, "audio/pcm;rate=16000", input.MediaChunks[0].MIMEType)
	require.Equal(t, "AAAA", input.MediaChunks[0].Data)
}

func TestLiveClientEmitsEvents(t *testing.T) {
	srv := newLiveServer(t)
	c := NewLiveClientURL(srv.wsURL(), "test-model")
	require.NoError(t, c.Start("persona"))
	defer c.Close()
	srv.waitConn(t)

	srv.send(t, map[string]any{"setupComplete": map[string]any{}})
	srv.send(t, map[string]any{"serverContent": map[string]any{
		"inputTranscription": map[string]any{"text": "I have"},
	}})
	srv.send(t, map[string]any{"serverContent": map[string]any{
		"outputTranscription": map[string]any{"text": "Great,"},
		"modelTurn": map[string]any{"parts": []map[string]any{
			{"inlineData": map[string]any{"mimeType": "audio/pcm;rate=24000", "data": "UENN"}},
		}},
	}})
	srv.send(t, map[string]any{"serverContent": map[string]any{"turnComplete": true}})

	var got []Event
	for len(got) < 4 {
		select {
		case ev := <-c.Events():
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d events", len(got))
		}
	}

	require.Equal(t, Event{Kind: EventInputTranscription, Text: "I have"}, got[0])
	require.Equal(t, Event{Kind: EventOutputTranscription, Text: "Great,"}, got[1])
	require.Equal(t, Event{Kind: EventAudio, AudioData: "UENN"}, got[2])
	require.Equal(t, Event{Kind: EventTurnComplete}, got[3])
}

func TestLiveClientCloseIsTerminal(t *testing.T) {
	srv := newLiveServer(t)
	c := NewLiveClientURL(srv.wsURL(), "test-model")
	require.NoError(t, c.Start("persona"))
	srv.waitConn(t)

	c.Close()
	c.Close() // idempotent
	require.Equal(t, StateClosed, c.State())
	require.NoError(t, c.Err(), "explicit close is not an error")

	require.Error(t, c.SendAudio("AAAA"))
	require.Error(t, c.Start("persona"), "a closed session cannot be reopened")

	// The event channel drains and closes.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-c.Events():
			return !ok
		default:
			return false
		}
	}, time.Second, 2*time.Millisecond)
}

func TestLiveClientServerDropErrors(t *testing.T) {
	srv := newLiveServer(t)
	c := NewLiveClientURL(srv.wsURL(), "test-model")
	require.NoError(t, c.Start("persona"))
	defer c.Close()
	srv.waitConn(t)

	srv.mu.Lock()
	conn := srv.conn
	srv.mu.Unlock()
	conn.Close()

	require.Eventually(t, func() bool { return c.State() == StateErrored }, time.Second, 2*time.Millisecond)
	require.Error(t, c.Err())
}

func TestLiveClientDialFailure(t *testing.T) {
	c := NewLiveClientURL("ws://127.0.0.1:1/nope", "test-model")
	err := c.Start("persona")
	require.Error(t, err)
	require.Equal(t, StateErrored, c.State())
}
