package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityLog records notable user actions and write failures. Inserts are
// best-effort and never block the action they describe.
type ActivityLog struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      string          `json:"kind"`
	DataJSON  json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}
