package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"maflab-backend/internal/middleware"
	"maflab-backend/internal/models"
	"maflab-backend/internal/repository"
	"maflab-backend/internal/services"
)

type ReportHandler struct {
	pool       *pgxpool.Pool
	reportRepo *repository.ReportRepo
	jobRepo    *repository.JobRepo
	redis      *redis.Client
}

func NewReportHandler(pool *pgxpool.Pool, reportRepo *repository.ReportRepo, jobRepo *repository.JobRepo, redisClient *redis.Client) *ReportHandler {
	return &ReportHandler{
		pool:       pool,
		reportRepo: reportRepo,
		jobRepo:    jobRepo,
		redis:      redisClient,
	}
}

// StudentStats returns the caller's own writing statistics.
func (h *ReportHandler) StudentStats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	var sessionCount, totalSeconds, versionCount, interactionCount int
	h.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(elapsed_seconds), 0),
		       COALESCE(SUM(COALESCE(jsonb_array_length(versions), 0)), 0),
		       COALESCE(SUM(COALESCE(jsonb_array_length(interactions), 0)), 0)
		FROM writing_sessions WHERE user_id = $1`, userID).
		Scan(&sessionCount, &totalSeconds, &versionCount, &interactionCount)

	var noteCount int
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notes WHERE user_id = $1", userID).Scan(&noteCount)

	var totalPoints, level int
	level = 1
	h.pool.QueryRow(ctx,
		"SELECT total_points, level FROM gamification_points WHERE user_id = $1",
		userID).Scan(&totalPoints, &level)

	var avgChars float64
	h.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(LENGTH(draft_text)), 0)
		FROM writing_sessions
		WHERE user_id = $1 AND ended_at IS NOT NULL`, userID).Scan(&avgChars)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":         sessionCount,
		"writing_seconds":  totalSeconds,
		"versions":         versionCount,
		"ai_interactions":  interactionCount,
		"notes":            noteCount,
		"total_points":     totalPoints,
		"level":            level,
		"avg_draft_length": avgChars,
	})
}

// Generate queues report generation and answers immediately. The worker
// notifies the requester over WebSocket when the report is ready.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Title string `json:"title"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	config, _ := json.Marshal(map[string]string{"title": req.Title})
	job := &models.Job{
		UserID:      userID,
		Type:        models.JobReportGeneration,
		ReferenceID: userID,
		ConfigJSON:  config,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create report job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	if err := h.redis.LPush(r.Context(), "queue:"+models.JobReportGeneration, string(jobBytes)).Err(); err != nil {
		h.jobRepo.UpdateStatus(r.Context(), job.ID, "failed")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue report job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Report generation queued",
	})
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reportRepo.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list reports", r))
		return
	}

	// Reports older than the retention window stay listed; trimming is a
	// manual operation, so just annotate the window for the client.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports":     reports,
		"period_days": services.ReportPeriodDays,
		"listed_at":   time.Now().UTC(),
	})
}
