package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"maflab-backend/internal/middleware"
	"maflab-backend/internal/models"
	"maflab-backend/internal/repository"
)

type PeerReviewHandler struct {
	reviewRepo *repository.PeerReviewRepo
}

func NewPeerReviewHandler(reviewRepo *repository.PeerReviewRepo) *PeerReviewHandler {
	return &PeerReviewHandler{reviewRepo: reviewRepo}
}

func (h *PeerReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	advisorID := middleware.GetUserID(r.Context())

	reviews, err := h.reviewRepo.ListByAdvisor(r.Context(), advisorID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list reviews", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}

func (h *PeerReviewHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	advisorID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid review ID", r))
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !models.ValidReviewStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Status must be pending, in_review, or done", r))
		return
	}

	if err := h.reviewRepo.UpdateStatus(r.Context(), id, advisorID, req.Status); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update review", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Review status updated"})
}
