package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
	"maflab-backend/internal/repository"
)

// ReportPeriodDays is the trailing window an engagement report covers.
const ReportPeriodDays = 14

type ReportService struct {
	pool       *pgxpool.Pool
	reportRepo *repository.ReportRepo
}

func NewReportService(pool *pgxpool.Pool, reportRepo *repository.ReportRepo) *ReportService {
	return &ReportService{pool: pool, reportRepo: reportRepo}
}

// Generate builds an engagement report over the trailing window and
// persists it. The content is a frozen snapshot; later activity never
// changes an existing report.
func (s *ReportService) Generate(ctx context.Context, generatedBy uuid.UUID, title string) (*models.Report, error) {
	now := time.Now().UTC()
	periodStart := now.AddDate(0, 0, -ReportPeriodDays)

	content := models.ReportContent{
		Period: fmt.Sprintf("%s to %s", periodStart.Format("2006-01-02"), now.Format("2006-01-02")),
	}

	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM users WHERE role = $1 AND is_active = TRUE",
		models.RoleStudent).Scan(&content.TotalStudents)
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM writing_sessions WHERE created_at >= $1",
		periodStart).Scan(&content.SessionsCreated)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM notes WHERE created_at >= $1",
		periodStart).Scan(&content.NotesCreated)
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM uploads WHERE created_at >= $1",
		periodStart).Scan(&content.UploadsCreated)
	if err != nil {
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}

	if content.TotalStudents > 0 {
		content.SessionsPerStudent = float64(content.SessionsCreated) / float64(content.TotalStudents)

		var activeStudents int
		err = s.pool.QueryRow(ctx, `
			SELECT COUNT(DISTINCT user_id) FROM writing_sessions WHERE created_at >= $1`,
			periodStart).Scan(&activeStudents)
		if err != nil {
			return nil, fmt.Errorf("failed to count active students: %w", err)
		}
		content.Engagement = float64(activeStudents) / float64(content.TotalStudents)
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report content: %w", err)
	}

	if title == "" {
		title = fmt.Sprintf("Engagement report %s", now.Format("2006-01-02"))
	}

	report := &models.Report{
		Title:       title,
		PeriodStart: periodStart,
		PeriodEnd:   now,
		GeneratedBy: generatedBy,
		ContentJSON: contentJSON,
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	return report, nil
}
