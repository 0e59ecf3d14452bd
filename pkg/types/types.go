package types

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerAgent     Speaker = "ai"
	SpeakerCandidate Speaker = "user"
)

// TranscriptEntry is one spoken turn. Text is append-only while the turn is
// in progress; Timestamp is seconds into the recording at which the entry
// became active.
type TranscriptEntry struct {
	Speaker   Speaker  `json:"speaker"`
	Text      string   `json:"text"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

// VisionResult is the fixed-shape judgment returned by the proctoring oracle
// for a single webcam frame.
type VisionResult struct {
	CheatingDetected    bool   `json:"cheating_detected"`
	CheatingReason      string `json:"cheating_reason"`
	CandidateAbsent     bool   `json:"candidate_absent"`
	EyeContactDeviation bool   `json:"eye_contact_deviation"`
	VideoQualityIssue   bool   `json:"video_quality_issue"`
	VideoQualityReason  string `json:"video_quality_reason"`
}

// SignalKind enumerates proctoring signals raised per sampling tick.
type SignalKind string

const (
	SignalCheating     SignalKind = "cheating_detected"
	SignalAbsent       SignalKind = "candidate_absent"
	SignalGaze         SignalKind = "gaze_deviation"
	SignalVideoQuality SignalKind = "video_quality_issue"
	SignalAudioNoise   SignalKind = "audio_noise"
)

// ProctoringSignal is ephemeral: produced per tick, consumed immediately by
// the session state machine, never persisted.
type ProctoringSignal struct {
	Kind   SignalKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
	Active bool       `json:"active"`
}

// SessionArtifact is produced exactly once, at session end, and handed to
// the host. RecordingData is a data URL, or "" if recording was unavailable.
type SessionArtifact struct {
	Transcript     []TranscriptEntry `json:"transcript"`
	CodeSubmission string            `json:"code_submission"`
	RecordingData  string            `json:"recording_data"`
}

type CreateInterviewReq struct {
	CandidateName  string `json:"candidate_name"`
	JobDescription string `json:"job_description" binding:"required"`
	ResumeText     string `json:"resume_text" binding:"required"`
}

type CreateInterviewResp struct {
	InterviewID string `json:"interview_id"`
	WSURL       string `json:"ws_url"`
}

type SummaryResp struct {
	InterviewID    string            `json:"interview_id"`
	Status         string            `json:"status"`
	QuestionCount  int               `json:"question_count"`
	WarningCount   int               `json:"warning_count"`
	Transcript     []TranscriptEntry `json:"transcript"`
	CodeSubmission string            `json:"code_submission,omitempty"`
	RecordingData  string            `json:"recording_data,omitempty"`
}
