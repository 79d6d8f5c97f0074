package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
)

type PeerReviewRepo struct {
	pool *pgxpool.Pool
}

func NewPeerReviewRepo(pool *pgxpool.Pool) *PeerReviewRepo {
	return &PeerReviewRepo{pool: pool}
}

// ListByAdvisor returns submissions assigned to the advisor, newest first,
// with student display fields joined in.
func (r *PeerReviewRepo) ListByAdvisor(ctx context.Context, advisorID uuid.UUID) ([]models.PeerReview, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pr.id, pr.advisor_id, pr.student_id, u.full_name, u.email, pr.title, pr.status, pr.created_at
		FROM peer_reviews pr
		JOIN users u ON u.id = pr.student_id
		WHERE pr.advisor_id = $1
		ORDER BY pr.created_at DESC`, advisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.PeerReview, 0)
	for rows.Next() {
		var pr models.PeerReview
		if err := rows.Scan(&pr.ID, &pr.AdvisorID, &pr.StudentID, &pr.StudentName,
			&pr.StudentEmail, &pr.Title, &pr.Status, &pr.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, pr)
	}
	return reviews, rows.Err()
}

func (r *PeerReviewRepo) UpdateStatus(ctx context.Context, id, advisorID uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE peer_reviews SET status = $1 WHERE id = $2 AND advisor_id = $3",
		status, id, advisorID,
	)
	return err
}
