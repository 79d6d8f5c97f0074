package models

import (
	"time"

	"github.com/google/uuid"
)

type MapNode struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type MapEdge struct {
	From  int64  `json:"from"`
	To    int64  `json:"to"`
	Label string `json:"label,omitempty"`
}

type ConceptMap struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Nodes     []MapNode `json:"nodes"`
	Edges     []MapEdge `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AddNodeRequest struct {
	Label string `json:"label"`
}

type AddEdgeRequest struct {
	From  int64  `json:"from"`
	To    int64  `json:"to"`
	Label string `json:"label"`
}
