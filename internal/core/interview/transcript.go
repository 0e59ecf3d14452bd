package interview

import (
	"sync"

	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
)

// Reduce applies one incoming fragment to the transcript: consecutive
// fragments for the same speaker merge into the last entry, a speaker change
// starts a new entry stamped with the current playback-clock time. Entries
// are never reordered or merged non-adjacently.
func Reduce(entries []types.TranscriptEntry, speaker types.Speaker, fragment string, now float64) []types.TranscriptEntry {
	if n := len(entries); n > 0 && entries[n-1].Speaker == speaker {
		entries[n-1].Text += fragment
		return entries
	}
	ts := now
	return append(entries, types.TranscriptEntry{
		Speaker:   speaker,
		Text:      fragment,
		Timestamp: &ts,
	})
}

// Transcript is the session's ordered utterance list, safe for concurrent
// use by the streaming event handler and the summary endpoint.
type Transcript struct {
	mu      sync.Mutex
	entries []types.TranscriptEntry
}

func NewTranscript() *Transcript { return &Transcript{} }

func (t *Transcript) Apply(speaker types.Speaker, fragment string, now float64) {
	t.mu.Lock()
	t.entries = Reduce(t.entries, speaker, fragment, now)
	t.mu.Unlock()
}

// Entries returns a snapshot copy.
func (t *Transcript) Entries() []types.TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
