package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

func (r *NoteRepo) Create(ctx context.Context, n *models.Note) error {
	query := `
		INSERT INTO notes (id, user_id, title, content, shared)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	n.ID = uuid.New()
	return r.pool.QueryRow(ctx, query, n.ID, n.UserID, n.Title, n.Content, n.Shared).
		Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *NoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	n := &models.Note{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, content, shared, created_at, updated_at
		FROM notes WHERE id = $1`, id).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Content, &n.Shared, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NoteRepo) Update(ctx context.Context, n *models.Note) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notes SET title = $1, content = $2, shared = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5`,
		n.Title, n.Content, n.Shared, n.ID, n.UserID,
	)
	return err
}

func (r *NoteRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM notes WHERE id = $1 AND user_id = $2", id, userID)
	return err
}

func (r *NoteRepo) listQuery(ctx context.Context, query string, args ...any) ([]*models.Note, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]*models.Note, 0)
	for rows.Next() {
		n := &models.Note{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Shared, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *NoteRepo) ListByUser(ctx context.Context, userID uuid.UUID, search string) ([]*models.Note, error) {
	return r.listQuery(ctx, `
		SELECT id, user_id, title, content, shared, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR content ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC`, userID, search)
}

func (r *NoteRepo) ListSharedByUser(ctx context.Context, userID uuid.UUID) ([]*models.Note, error) {
	return r.listQuery(ctx, `
		SELECT id, user_id, title, content, shared, created_at, updated_at
		FROM notes
		WHERE user_id = $1 AND shared = TRUE
		ORDER BY created_at DESC`, userID)
}

func (r *NoteRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notes WHERE user_id = $1", userID).Scan(&count)
	return count, err
}

func (r *NoteRepo) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM notes WHERE user_id = $1 AND created_at >= $2",
		userID, since).Scan(&count)
	return count, err
}
