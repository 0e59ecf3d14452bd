// Package media owns the lifetime of one session's capture streams and the
// best-effort recording of the camera feed. Devices live on the far side of
// the client bridge; a Provider hands out logical track groups whose stop
// hooks tear down the real capture.
package media

import (
	"context"
	"errors"
	"sync"
)

// ErrPermissionDenied is returned when the candidate refuses camera,
// microphone, or screen-share access. Fatal to session start.
var ErrPermissionDenied = errors.New("media: permission denied")

type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// Track is one logical capture track. Disabling an audio track stops sound
// capture only; it never touches the streaming session.
type Track struct {
	Kind TrackKind

	mu      sync.Mutex
	enabled bool
	stopped bool
	onStop  func()
}

func NewTrack(kind TrackKind, onStop func()) *Track {
	return &Track{Kind: kind, enabled: true, onStop: onStop}
}

func (t *Track) SetEnabled(on bool) {
	t.mu.Lock()
	t.enabled = on
	t.mu.Unlock()
}

func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Stop ends capture for this track. Safe to call more than once.
func (t *Track) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	fn := t.onStop
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *Track) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Stream is a group of tracks from one device (camera+mic, or screen).
type Stream struct {
	Tracks []*Track
}

func (s *Stream) AudioTracks() []*Track { return s.tracksOf(TrackAudio) }
func (s *Stream) VideoTracks() []*Track { return s.tracksOf(TrackVideo) }

func (s *Stream) tracksOf(kind TrackKind) []*Track {
	var out []*Track
	for _, t := range s.Tracks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

func (s *Stream) stopAll() {
	for _, t := range s.Tracks {
		t.Stop()
	}
}

// Provider acquires the underlying devices.
type Provider interface {
	OpenCamera(ctx context.Context) (*Stream, error)
	OpenScreen(ctx context.Context) (*Stream, error)
}

// Pair is the camera+screen stream pair owned for the lifetime of one
// session. Exactly one Pair exists per session.
type Pair struct {
	Camera *Stream
	Screen *Stream

	mu       sync.Mutex
	released bool
}

// Acquire requests camera+microphone and screen share. Either failure fails
// the whole acquisition with no partial stream retained.
func Acquire(ctx context.Context, p Provider) (*Pair, error) {
	camera, err := p.OpenCamera(ctx)
	if err != nil {
		return nil, err
	}
	screen, err := p.OpenScreen(ctx)
	if err != nil {
		camera.stopAll()
		return nil, err
	}
	return &Pair{Camera: camera, Screen: screen}, nil
}

// Release stops every track. Idempotent; the second call is a no-op.
func (p *Pair) Release() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	p.mu.Unlock()
	p.Camera.stopAll()
	p.Screen.stopAll()
}

func (p *Pair) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// SetMicEnabled toggles the camera stream's audio tracks. The streaming
// session stays open; a muted candidate just produces silence upstream.
func (p *Pair) SetMicEnabled(on bool) {
	for _, t := range p.Camera.AudioTracks() {
		t.SetEnabled(on)
	}
}

func (p *Pair) MicEnabled() bool {
	for _, t := range p.Camera.AudioTracks() {
		if !t.Enabled() {
			return false
		}
	}
	return true
}
