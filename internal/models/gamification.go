package models

import (
	"time"

	"github.com/google/uuid"
)

// PointsRecord holds one row per user. Mutated by every point-awarding
// action, never deleted.
type PointsRecord struct {
	UserID      uuid.UUID `json:"user_id"`
	TotalPoints int       `json:"total_points"`
	Level       int       `json:"level"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Badge rows are written by the badge-evaluation worker and read-only from
// the API.
type Badge struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	AwardedAt time.Time `json:"awarded_at"`
}

// WebSocket message envelope and payloads pushed over the gamification
// channel.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type PointsUpdate struct {
	TotalPoints int    `json:"total_points"`
	Level       int    `json:"level"`
	Awarded     int    `json:"awarded"`
	Reason      string `json:"reason"`
}

type BadgeEarned struct {
	Name string `json:"name"`
}

type ReportReady struct {
	ReportID uuid.UUID `json:"report_id"`
	Title    string    `json:"title"`
}
