package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
)

type RelationRepo struct {
	pool *pgxpool.Pool
}

func NewRelationRepo(pool *pgxpool.Pool) *RelationRepo {
	return &RelationRepo{pool: pool}
}

// ListActiveByAdvisor returns the advisor's active advisees with the
// denormalized student display fields.
func (r *RelationRepo) ListActiveByAdvisor(ctx context.Context, advisorID uuid.UUID) ([]models.AdvisorStudent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, advisor_id, student_id, student_name, student_email, student_cycle, status, created_at
		FROM advisor_students
		WHERE advisor_id = $1 AND status = $2
		ORDER BY student_name`, advisorID, models.RelationActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relations := make([]models.AdvisorStudent, 0)
	for rows.Next() {
		var rel models.AdvisorStudent
		if err := rows.Scan(&rel.ID, &rel.AdvisorID, &rel.StudentID, &rel.StudentName,
			&rel.StudentEmail, &rel.StudentCycle, &rel.Status, &rel.CreatedAt); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// HasActiveRelation reports whether the advisor currently supervises the
// student. Advisor detail views are scoped through this check.
func (r *RelationRepo) HasActiveRelation(ctx context.Context, advisorID, studentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM advisor_students
			WHERE advisor_id = $1 AND student_id = $2 AND status = $3
		)`, advisorID, studentID, models.RelationActive).Scan(&exists)
	return exists, err
}
