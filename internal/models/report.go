package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is created on demand by an explicit generate action and immutable
// once written.
type Report struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	GeneratedBy uuid.UUID       `json:"generated_by"`
	ContentJSON json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ReportContent is the aggregated snapshot serialized into ContentJSON.
type ReportContent struct {
	Period             string  `json:"period"`
	TotalStudents      int     `json:"total_students"`
	SessionsCreated    int     `json:"sessions_created"`
	NotesCreated       int     `json:"notes_created"`
	UploadsCreated     int     `json:"uploads_created"`
	SessionsPerStudent float64 `json:"sessions_per_student"`
	Engagement         float64 `json:"engagement"`
}
