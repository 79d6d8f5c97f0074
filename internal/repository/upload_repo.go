package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
)

type UploadRepo struct {
	pool *pgxpool.Pool
}

func NewUploadRepo(pool *pgxpool.Pool) *UploadRepo {
	return &UploadRepo{pool: pool}
}

func (r *UploadRepo) Create(ctx context.Context, u *models.Upload) error {
	if len(u.MetadataJSON) == 0 {
		u.MetadataJSON = []byte("{}")
	}

	query := `
		INSERT INTO uploads (id, user_id, file_name, mime_type, url, size_bytes, metadata_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	u.ID = uuid.New()
	return r.pool.QueryRow(ctx, query,
		u.ID, u.UserID, u.FileName, u.MimeType, u.URL, u.SizeBytes, u.MetadataJSON,
	).Scan(&u.CreatedAt)
}

func (r *UploadRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Upload, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, file_name, mime_type, url, size_bytes, metadata_json, created_at
		FROM uploads
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := make([]*models.Upload, 0)
	for rows.Next() {
		u := &models.Upload{}
		if err := rows.Scan(&u.ID, &u.UserID, &u.FileName, &u.MimeType, &u.URL, &u.SizeBytes, &u.MetadataJSON, &u.CreatedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

func (r *UploadRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM uploads WHERE created_at >= $1", since).Scan(&count)
	return count, err
}
