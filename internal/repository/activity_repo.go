package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

// Log records an action. Failures are returned but callers treat them as
// best-effort; a failed log entry never blocks the action it describes.
func (r *ActivityRepo) Log(ctx context.Context, userID uuid.UUID, kind string, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}
	_, err = r.pool.Exec(ctx,
		"INSERT INTO activity_logs (id, user_id, kind, data_json) VALUES ($1, $2, $3, $4)",
		uuid.New(), userID, kind, payload,
	)
	return err
}
