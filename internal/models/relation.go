package models

import (
	"time"

	"github.com/google/uuid"
)

// Relation statuses.
const (
	RelationActive   = "active"
	RelationInactive = "inactive"
)

// AdvisorStudent links an advisor to a student. Student display fields are
// denormalized onto the row so advisor dashboards render without joins.
type AdvisorStudent struct {
	ID           uuid.UUID `json:"id"`
	AdvisorID    uuid.UUID `json:"advisor_id"`
	StudentID    uuid.UUID `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	StudentCycle string    `json:"student_cycle"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
