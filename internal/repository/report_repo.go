package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
)

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// Create inserts a report row. Reports are immutable once written.
func (r *ReportRepo) Create(ctx context.Context, rep *models.Report) error {
	query := `
		INSERT INTO reports (id, title, period_start, period_end, generated_by, content_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	rep.ID = uuid.New()
	return r.pool.QueryRow(ctx, query,
		rep.ID, rep.Title, rep.PeriodStart, rep.PeriodEnd, rep.GeneratedBy, rep.ContentJSON,
	).Scan(&rep.CreatedAt)
}

func (r *ReportRepo) List(ctx context.Context) ([]*models.Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, period_start, period_end, generated_by, content_json, created_at
		FROM reports
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		rep := &models.Report{}
		if err := rows.Scan(&rep.ID, &rep.Title, &rep.PeriodStart, &rep.PeriodEnd, &rep.GeneratedBy, &rep.ContentJSON, &rep.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
