package interview

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
)

func TestReduceMergesSameSpeaker(t *testing.T) {
	var entries []types.TranscriptEntry
	entries = Reduce(entries, types.SpeakerAgent, "He", 1.0)
	entries = Reduce(entries, types.SpeakerAgent, "llo", 1.4)
	entries = Reduce(entries, types.SpeakerCandidate, "Hi", 2.0)

	require.Len(t, entries, 2)
	require.Equal(t, types.SpeakerAgent, entries[0].Speaker)
	require.Equal(t, "Hello", entries[0].Text)
	require.Equal(t, types.SpeakerCandidate, entries[1].Speaker)
	require.Equal(t, "Hi", entries[1].Text)
}

func TestReduceTimestampFrozenAtFirstFragment(t *testing.T) {
	var entries []types.TranscriptEntry
	entries = Reduce(entries, types.SpeakerCandidate, "I have", 3.0)
	entries = Reduce(entries, types.SpeakerCandidate, " 5 years", 4.5)

	require.Len(t, entries, 1)
	require.Equal(t, "I have 5 years", entries[0].Text)
	require.NotNil(t, entries[0].Timestamp)
	require.Equal(t, 3.0, *entries[0].Timestamp, "timestamp set when the entry became active")
}

func TestReduceAlternatingTurns(t *testing.T) {
	var entries []types.TranscriptEntry
	entries = Reduce(entries, types.SpeakerAgent, "Tell me about yourself.", 0)
	entries = Reduce(entries, types.SpeakerCandidate, "Sure, ", 5)
	entries = Reduce(entries, types.SpeakerCandidate, "I started in 2019.", 6)
	entries = Reduce(entries, types.SpeakerAgent, "Great.", 12)

	require.Len(t, entries, 3)
	require.Equal(t, "Sure, I started in 2019.", entries[1].Text)
	require.Equal(t, "Great.", entries[2].Text)
}

func TestTranscriptSnapshotIsolated(t *testing.T) {
	tr := NewTranscript()
	tr.Apply(types.SpeakerCandidate, "hello", 0)

	snap := tr.Entries()
	snap[0].Text = "mutated"

	require.Equal(t, "hello", tr.Entries()[0].Text)
}
