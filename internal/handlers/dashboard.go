package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/middleware"
	"maflab-backend/internal/models"
	"maflab-backend/internal/repository"
)

// DashboardHandler serves the role-specific landing views. Aggregations run
// straight against the pool; the shapes here exist only for display.
type DashboardHandler struct {
	pool         *pgxpool.Pool
	userRepo     *repository.UserRepo
	sessionRepo  *repository.SessionRepo
	noteRepo     *repository.NoteRepo
	gamRepo      *repository.GamificationRepo
	relationRepo *repository.RelationRepo
}

func NewDashboardHandler(
	pool *pgxpool.Pool,
	userRepo *repository.UserRepo,
	sessionRepo *repository.SessionRepo,
	noteRepo *repository.NoteRepo,
	gamRepo *repository.GamificationRepo,
	relationRepo *repository.RelationRepo,
) *DashboardHandler {
	return &DashboardHandler{
		pool:         pool,
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		noteRepo:     noteRepo,
		gamRepo:      gamRepo,
		relationRepo: relationRepo,
	}
}

func (h *DashboardHandler) Student(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()
	weekAgo := time.Now().AddDate(0, 0, -7)

	sessionCount, _ := h.sessionRepo.CountByUser(ctx, userID)
	weeklySessions, _ := h.sessionRepo.CountByUserSince(ctx, userID, weekAgo)
	noteCount, _ := h.noteRepo.CountByUser(ctx, userID)
	lastActivity, _ := h.sessionRepo.LastActivityAt(ctx, userID)

	var totalSeconds int
	h.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(elapsed_seconds), 0) FROM writing_sessions WHERE user_id = $1",
		userID).Scan(&totalSeconds)

	var uploadCount int
	h.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM uploads WHERE user_id = $1", userID).Scan(&uploadCount)

	rec, err := h.gamRepo.Get(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load points", r))
		return
	}
	badges, _ := h.gamRepo.ListBadges(ctx, userID)

	recent, _ := h.sessionRepo.ListByUser(ctx, userID, 5)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":        sessionCount,
		"weekly_sessions": weeklySessions,
		"notes":           noteCount,
		"uploads":         uploadCount,
		"writing_seconds": totalSeconds,
		"total_points":    rec.TotalPoints,
		"level":           rec.Level,
		"badges":          badges,
		"last_activity":   lastActivity,
		"recent_sessions": recent,
	})
}

func (h *DashboardHandler) Advisor(w http.ResponseWriter, r *http.Request) {
	advisorID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	relations, err := h.relationRepo.ListActiveByAdvisor(ctx, advisorID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load advisees", r))
		return
	}

	type adviseeRow struct {
		models.AdvisorStudent
		SessionCount int        `json:"session_count"`
		TotalPoints  int        `json:"total_points"`
		Level        int        `json:"level"`
		LastActivity *time.Time `json:"last_activity,omitempty"`
	}

	advisees := make([]adviseeRow, 0, len(relations))
	for _, rel := range relations {
		row := adviseeRow{AdvisorStudent: rel}
		row.SessionCount, _ = h.sessionRepo.CountByUser(ctx, rel.StudentID)
		row.LastActivity, _ = h.sessionRepo.LastActivityAt(ctx, rel.StudentID)
		if rec, err := h.gamRepo.Get(ctx, rel.StudentID); err == nil {
			row.TotalPoints = rec.TotalPoints
			row.Level = rec.Level
		}
		advisees = append(advisees, row)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"advisees": advisees})
}

// AdvisorStudentDetail shows one advisee's profile, progress, and shared
// work. Only the supervising advisor may open it.
func (h *DashboardHandler) AdvisorStudentDetail(w http.ResponseWriter, r *http.Request) {
	advisorID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	studentID, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid student ID", r))
		return
	}

	supervises, err := h.relationRepo.HasActiveRelation(ctx, advisorID, studentID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to check relation", r))
		return
	}
	if !supervises {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You do not supervise this student", r))
		return
	}

	student, err := h.userRepo.GetByID(ctx, studentID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Student not found", r))
		return
	}

	sharedSessions, _ := h.sessionRepo.ListSharedByUser(ctx, studentID)
	sharedNotes, _ := h.noteRepo.ListSharedByUser(ctx, studentID)
	rec, _ := h.gamRepo.Get(ctx, studentID)
	badges, _ := h.gamRepo.ListBadges(ctx, studentID)
	sessionCount, _ := h.sessionRepo.CountByUser(ctx, studentID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"student":         student,
		"session_count":   sessionCount,
		"shared_sessions": sharedSessions,
		"shared_notes":    sharedNotes,
		"total_points":    rec.TotalPoints,
		"level":           rec.Level,
		"badges":          badges,
	})
}

// Lecturer aggregates cohort activity by study cycle.
func (h *DashboardHandler) Lecturer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	type cycleRow struct {
		StudyCycle string  `json:"study_cycle"`
		Students   int     `json:"students"`
		Sessions   int     `json:"sessions"`
		AvgPoints  float64 `json:"avg_points"`
	}

	cycles := make([]cycleRow, 0)
	rows, err := h.pool.Query(ctx, `
		SELECT COALESCE(u.study_cycle, 'unspecified'),
		       COUNT(DISTINCT u.id),
		       COUNT(ws.id),
		       COALESCE(AVG(gp.total_points), 0)
		FROM users u
		LEFT JOIN writing_sessions ws ON ws.user_id = u.id
		LEFT JOIN gamification_points gp ON gp.user_id = u.id
		WHERE u.role = $1 AND u.is_active = TRUE
		GROUP BY u.study_cycle
		ORDER BY u.study_cycle`, models.RoleStudent)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load cohort stats", r))
		return
	}
	for rows.Next() {
		var c cycleRow
		if err := rows.Scan(&c.StudyCycle, &c.Students, &c.Sessions, &c.AvgPoints); err != nil {
			rows.Close()
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load cohort stats", r))
			return
		}
		cycles = append(cycles, c)
	}
	rows.Close()

	var activeThisWeek int
	h.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT user_id) FROM writing_sessions
		WHERE created_at >= NOW() - INTERVAL '7 days'`).Scan(&activeThisWeek)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cycles":              cycles,
		"active_students_week": activeThisWeek,
	})
}

// Admin shows platform-wide totals.
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	byRole := make(map[string]int)
	for _, role := range []string{models.RoleStudent, models.RoleAdvisor, models.RoleLecturer, models.RoleAdmin} {
		count, _ := h.userRepo.CountByRole(ctx, role)
		byRole[role] = count
	}

	var sessionCount, noteCount, uploadCount, reportCount int
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM writing_sessions").Scan(&sessionCount)
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notes").Scan(&noteCount)
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM uploads").Scan(&uploadCount)
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reports").Scan(&reportCount)

	avgPoints, _ := h.gamRepo.AveragePoints(ctx)

	var weeklySessions int
	h.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM writing_sessions WHERE created_at >= NOW() - INTERVAL '7 days'").Scan(&weeklySessions)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users_by_role":   byRole,
		"sessions":        sessionCount,
		"weekly_sessions": weeklySessions,
		"notes":           noteCount,
		"uploads":         uploadCount,
		"reports":         reportCount,
		"avg_points":      avgPoints,
	})
}
