package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"maflab-backend/internal/middleware"
	"maflab-backend/internal/models"
	"maflab-backend/internal/repository"
)

type ConceptMapHandler struct {
	mapRepo *repository.ConceptMapRepo
}

func NewConceptMapHandler(mapRepo *repository.ConceptMapRepo) *ConceptMapHandler {
	return &ConceptMapHandler{mapRepo: mapRepo}
}

func (h *ConceptMapHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Title is required", r))
		return
	}

	m := &models.ConceptMap{UserID: userID, Title: req.Title}
	if err := h.mapRepo.Create(r.Context(), m); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create concept map", r))
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (h *ConceptMapHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	maps, err := h.mapRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list concept maps", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"maps": maps})
}

func (h *ConceptMapHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// AddNode appends a node with the next sequential ID.
func (h *ConceptMapHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req models.AddNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Label) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Label is required", r))
		return
	}

	var maxID int64
	for _, n := range m.Nodes {
		if n.ID > maxID {
			maxID = n.ID
		}
	}
	node := models.MapNode{ID: maxID + 1, Label: req.Label}
	nodes := append(m.Nodes, node)

	if err := h.mapRepo.UpdateNodes(r.Context(), m.ID, m.UserID, nodes); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to add node", r))
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

// AddEdge links two existing nodes. Both endpoints must exist on the map.
func (h *ConceptMapHandler) AddEdge(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req models.AddEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	known := make(map[int64]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		known[n.ID] = true
	}
	if !known[req.From] || !known[req.To] {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Edge endpoints must reference existing nodes", r))
		return
	}

	edge := models.MapEdge{From: req.From, To: req.To, Label: req.Label}
	edges := append(m.Edges, edge)

	if err := h.mapRepo.UpdateEdges(r.Context(), m.ID, m.UserID, edges); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to add edge", r))
		return
	}

	writeJSON(w, http.StatusCreated, edge)
}

func (h *ConceptMapHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.ConceptMap, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid concept map ID", r))
		return nil, false
	}

	m, err := h.mapRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Concept map not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load concept map", r))
		}
		return nil, false
	}

	if m.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return m, true
}
