package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
)

type GamificationRepo struct {
	pool *pgxpool.Pool
}

func NewGamificationRepo(pool *pgxpool.Pool) *GamificationRepo {
	return &GamificationRepo{pool: pool}
}

// AddPoints increments the user's total and recomputes the level in a single
// upsert, so concurrent awards cannot lose increments. Level follows the
// 100-points-per-level rule.
func (r *GamificationRepo) AddPoints(ctx context.Context, userID uuid.UUID, points int) (*models.PointsRecord, error) {
	rec := &models.PointsRecord{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO gamification_points (user_id, total_points, level)
		VALUES ($1, $2, $2 / 100 + 1)
		ON CONFLICT (user_id) DO UPDATE
		SET total_points = gamification_points.total_points + EXCLUDED.total_points,
		    level = (gamification_points.total_points + EXCLUDED.total_points) / 100 + 1,
		    updated_at = NOW()
		RETURNING total_points, level, updated_at`,
		userID, points,
	).Scan(&rec.TotalPoints, &rec.Level, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the user's points record, or a zero record at level 1 when
// they have not earned anything yet.
func (r *GamificationRepo) Get(ctx context.Context, userID uuid.UUID) (*models.PointsRecord, error) {
	rec := &models.PointsRecord{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT total_points, level, updated_at
		FROM gamification_points WHERE user_id = $1`, userID).
		Scan(&rec.TotalPoints, &rec.Level, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		rec.Level = 1
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *GamificationRepo) AveragePoints(ctx context.Context) (float64, error) {
	var avg float64
	err := r.pool.QueryRow(ctx,
		"SELECT COALESCE(AVG(total_points), 0) FROM gamification_points").Scan(&avg)
	return avg, err
}

// AwardBadge inserts a badge once per (user, name). Returns true when the
// badge was newly awarded.
func (r *GamificationRepo) AwardBadge(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO gamification_badges (id, user_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, name) DO NOTHING`,
		uuid.New(), userID, name,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GamificationRepo) ListBadges(ctx context.Context, userID uuid.UUID) ([]models.Badge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, awarded_at
		FROM gamification_badges
		WHERE user_id = $1
		ORDER BY awarded_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	badges := make([]models.Badge, 0)
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.AwardedAt); err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}
