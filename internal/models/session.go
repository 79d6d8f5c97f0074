package models

import (
	"time"

	"github.com/google/uuid"
)

// Session kinds. An "ai" session is the guided writing flow with AI feedback;
// a "critical" session is free writing with periodic autosave.
const (
	SessionKindAI       = "ai"
	SessionKindCritical = "critical"
)

// Interaction actors.
const (
	ActorStudent   = "student"
	ActorAssistant = "assistant"
)

// Interaction is one exchange within a session. The interaction log is
// append-only while the session is active.
type Interaction struct {
	Actor       string    `json:"actor"`
	Message     string    `json:"message"`
	Questions   []string  `json:"questions,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Version is a named snapshot of the draft taken on demand.
type Version struct {
	Text       string    `json:"text"`
	QuickNotes string    `json:"quick_notes"`
	Reflection string    `json:"reflection"`
	CharCount  int       `json:"char_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// WritingSession is one writing attempt by a student. A session has exactly
// one owner for its lifetime and is never deleted by the application.
type WritingSession struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	Kind           string        `json:"kind"`
	DraftText      string        `json:"draft_text"`
	QuickNotes     string        `json:"quick_notes"`
	Reflection     string        `json:"reflection"`
	Interactions   []Interaction `json:"interactions"`
	Versions       []Version     `json:"versions"`
	FeedbackText   string        `json:"feedback_text"`
	Questions      []string      `json:"questions"`
	Shared         bool          `json:"shared"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	CreatedAt      time.Time     `json:"created_at"`
}

type StartSessionRequest struct {
	Kind string `json:"kind"`
}

type SaveVersionRequest struct {
	Text       string `json:"text"`
	QuickNotes string `json:"quick_notes"`
	Reflection string `json:"reflection"`
}

type SaveReflectionRequest struct {
	Reflection string `json:"reflection"`
}

type FeedbackRequest struct {
	DraftText  string `json:"draft_text"`
	QuickNotes string `json:"quick_notes"`
	Reflection string `json:"reflection"`
}

type FeedbackResponse struct {
	FeedbackText string      `json:"feedback_text"`
	Questions    []string    `json:"questions"`
	Suggestions  []string    `json:"suggestions"`
	Interaction  Interaction `json:"interaction"`
}

type SaveSessionRequest struct {
	DraftText  string `json:"draft_text"`
	QuickNotes string `json:"quick_notes"`
	Reflection string `json:"reflection"`
}

type AutosaveRequest struct {
	DraftText string `json:"draft_text"`
}

// SessionListItem is the compact row shown on history and advisor views.
type SessionListItem struct {
	ID               uuid.UUID  `json:"id"`
	Kind             string     `json:"kind"`
	InteractionCount int        `json:"interaction_count"`
	VersionCount     int        `json:"version_count"`
	ElapsedSeconds   int        `json:"elapsed_seconds"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
