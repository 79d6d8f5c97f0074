package models

import (
	"time"

	"github.com/google/uuid"
)

// Peer review statuses.
const (
	ReviewPending  = "pending"
	ReviewInReview = "in_review"
	ReviewDone     = "done"
)

func ValidReviewStatus(status string) bool {
	switch status {
	case ReviewPending, ReviewInReview, ReviewDone:
		return true
	}
	return false
}

// PeerReview is a student submission assigned to an advisor for review.
type PeerReview struct {
	ID           uuid.UUID `json:"id"`
	AdvisorID    uuid.UUID `json:"advisor_id"`
	StudentID    uuid.UUID `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
