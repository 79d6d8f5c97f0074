package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"maflab-backend/internal/middleware"
	"maflab-backend/internal/models"
	"maflab-backend/internal/services"
)

// Narrow interfaces so tests can stub the stores without a database.

type sessionStore interface {
	Create(ctx context.Context, s *models.WritingSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WritingSession, error)
	UpdateVersions(ctx context.Context, id, userID uuid.UUID, versions []models.Version) error
	UpdateReflection(ctx context.Context, id, userID uuid.UUID, reflection string) error
	UpdateFeedback(ctx context.Context, id, userID uuid.UUID, interactions []models.Interaction, feedback string, questions []string) error
	Finalize(ctx context.Context, s *models.WritingSession) error
	Autosave(ctx context.Context, id, userID uuid.UUID, draft string, elapsedSeconds int) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SessionListItem, error)
	ListByUserKind(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]models.SessionListItem, error)
}

type userGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type feedbackGenerator interface {
	Generate(ctx context.Context, user *models.User, req models.FeedbackRequest, history []models.Interaction) (*models.FeedbackResponse, error)
}

type pointsAwarder interface {
	Award(ctx context.Context, userID uuid.UUID, points int, reason string) (*models.PointsRecord, error)
}

type activityLogger interface {
	Log(ctx context.Context, userID uuid.UUID, kind string, data map[string]interface{}) error
}

type SessionHandler struct {
	sessions sessionStore
	users    userGetter
	feedback feedbackGenerator
	points   pointsAwarder
	activity activityLogger
}

func NewSessionHandler(sessions sessionStore, users userGetter, feedback feedbackGenerator, points pointsAwarder, activity activityLogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		users:    users,
		feedback: feedback,
		points:   points,
		activity: activity,
	}
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Kind == "" {
		req.Kind = models.SessionKindAI
	}
	if req.Kind != models.SessionKindAI && req.Kind != models.SessionKindCritical {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Kind must be ai or critical", r))
		return
	}

	session := &models.WritingSession{
		UserID:    userID,
		Kind:      req.Kind,
		StartedAt: time.Now().UTC(),
	}
	if err := h.sessions.Create(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	h.award(r.Context(), userID, services.PointsStartSession, "session_start")
	h.logActivity(r.Context(), userID, "session_start", map[string]interface{}{
		"session_id": session.ID.String(),
		"kind":       session.Kind,
	})

	writeJSON(w, http.StatusCreated, session)
}

func (h *SessionHandler) SaveVersion(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if session.EndedAt != nil {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is already finished", r))
		return
	}

	var req models.SaveVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	version := models.Version{
		Text:       req.Text,
		QuickNotes: req.QuickNotes,
		Reflection: req.Reflection,
		CharCount:  utf8.RuneCountInString(req.Text),
		Timestamp:  time.Now().UTC(),
	}
	versions := append(session.Versions, version)

	if err := h.sessions.UpdateVersions(r.Context(), session.ID, session.UserID, versions); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save version", r))
		return
	}

	h.award(r.Context(), session.UserID, services.PointsSaveVersion, "version_save")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"version":       version,
		"version_count": len(versions),
	})
}

func (h *SessionHandler) SaveReflection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if session.EndedAt != nil {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is already finished", r))
		return
	}

	var req models.SaveReflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.sessions.UpdateReflection(r.Context(), session.ID, session.UserID, req.Reflection); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save reflection", r))
		return
	}

	// An empty reflection clears the field but earns nothing.
	if req.Reflection != "" {
		h.award(r.Context(), session.UserID, services.PointsReflection, "reflection")
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Reflection saved"})
}

func (h *SessionHandler) RequestFeedback(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if session.EndedAt != nil {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is already finished", r))
		return
	}

	var req models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, err := h.users.GetByID(r.Context(), session.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load user", r))
		return
	}

	resp, err := h.feedback.Generate(r.Context(), user, req, session.Interactions)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// Record the exchange: the reviewed draft first, then the assistant's
	// response. The log and the feedback fields move in one statement.
	interactions := append(session.Interactions,
		models.Interaction{
			Actor:     models.ActorStudent,
			Message:   req.DraftText,
			Timestamp: time.Now().UTC(),
		},
		resp.Interaction,
	)

	if err := h.sessions.UpdateFeedback(r.Context(), session.ID, session.UserID,
		interactions, resp.FeedbackText, resp.Questions); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save feedback", r))
		return
	}

	h.award(r.Context(), session.UserID, services.PointsAIFeedback, "ai_feedback")
	h.logActivity(r.Context(), session.UserID, "ai_feedback", map[string]interface{}{
		"session_id": session.ID.String(),
	})

	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if session.EndedAt != nil {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is already finished", r))
		return
	}

	var req models.SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	now := time.Now().UTC()
	session.DraftText = req.DraftText
	session.QuickNotes = req.QuickNotes
	session.Reflection = req.Reflection
	session.EndedAt = &now
	session.ElapsedSeconds = int(now.Sub(session.StartedAt).Seconds())

	if err := h.sessions.Finalize(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save session", r))
		return
	}

	h.award(r.Context(), session.UserID, services.PointsSaveSession, "session_save")
	h.logActivity(r.Context(), session.UserID, "session_save", map[string]interface{}{
		"session_id":      session.ID.String(),
		"elapsed_seconds": session.ElapsedSeconds,
	})

	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Autosave(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if session.EndedAt != nil {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is already finished", r))
		return
	}

	var req models.AutosaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	elapsed := int(time.Now().UTC().Sub(session.StartedAt).Seconds())
	if err := h.sessions.Autosave(r.Context(), session.ID, session.UserID, req.DraftText, elapsed); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to autosave", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Draft autosaved",
		"elapsed_seconds": elapsed,
	})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var items []models.SessionListItem
	var err error
	if kind := r.URL.Query().Get("kind"); kind != "" {
		items, err = h.sessions.ListByUserKind(r.Context(), userID, kind, limit)
	} else {
		items, err = h.sessions.ListByUser(r.Context(), userID, limit)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list sessions", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": items})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// loadOwned fetches the session in the URL and enforces ownership.
// It writes the error response itself when the lookup fails.
func (h *SessionHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.WritingSession, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return nil, false
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load session", r))
		}
		return nil, false
	}

	if session.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return session, true
}

func (h *SessionHandler) award(ctx context.Context, userID uuid.UUID, points int, reason string) {
	if h.points == nil {
		return
	}
	if _, err := h.points.Award(ctx, userID, points, reason); err != nil {
		log.Printf("failed to award %d points to %s for %s: %v", points, userID, reason, err)
	}
}

func (h *SessionHandler) logActivity(ctx context.Context, userID uuid.UUID, kind string, data map[string]interface{}) {
	if h.activity == nil {
		return
	}
	if err := h.activity.Log(ctx, userID, kind, data); err != nil {
		log.Printf("failed to log activity %s for %s: %v", kind, userID, err)
	}
}
