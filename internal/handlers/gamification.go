package handlers

import (
	"net/http"

	"maflab-backend/internal/middleware"
	"maflab-backend/internal/repository"
	"maflab-backend/internal/services"
)

type GamificationHandler struct {
	gamRepo *repository.GamificationRepo
}

func NewGamificationHandler(gamRepo *repository.GamificationRepo) *GamificationHandler {
	return &GamificationHandler{gamRepo: gamRepo}
}

// Progress returns the caller's points, level, distance to the next level,
// and earned badges.
func (h *GamificationHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	rec, err := h.gamRepo.Get(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load points", r))
		return
	}

	badges, err := h.gamRepo.ListBadges(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load badges", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_points":         rec.TotalPoints,
		"level":                rec.Level,
		"points_to_next_level": services.PointsToNextLevel(rec.TotalPoints),
		"badges":               badges,
	})
}
