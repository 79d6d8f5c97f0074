package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"maflab-backend/internal/middleware"
	"maflab-backend/internal/models"
	"maflab-backend/internal/services"
)

type stubSessionStore struct {
	sessions map[uuid.UUID]*models.WritingSession

	createdSession  *models.WritingSession
	savedVersions   []models.Version
	updateVersions  int
	updateFeedback  int
	savedFeedback   string
	savedReflection string
	finalized       *models.WritingSession
	autosavedDraft  string
	autosavedSecs   int
}

func newStubSessionStore(sessions ...*models.WritingSession) *stubSessionStore {
	m := make(map[uuid.UUID]*models.WritingSession)
	for _, s := range sessions {
		m[s.ID] = s
	}
	return &stubSessionStore{sessions: m}
}

func (s *stubSessionStore) Create(_ context.Context, sess *models.WritingSession) error {
	sess.ID = uuid.New()
	sess.CreatedAt = time.Now().UTC()
	s.createdSession = sess
	s.sessions[sess.ID] = sess
	return nil
}

func (s *stubSessionStore) GetByID(_ context.Context, id uuid.UUID) (*models.WritingSession, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *sess
	return &copied, nil
}

func (s *stubSessionStore) UpdateVersions(_ context.Context, id, userID uuid.UUID, versions []models.Version) error {
	s.updateVersions++
	s.savedVersions = versions
	s.sessions[id].Versions = versions
	return nil
}

func (s *stubSessionStore) UpdateReflection(_ context.Context, id, userID uuid.UUID, reflection string) error {
	s.savedReflection = reflection
	s.sessions[id].Reflection = reflection
	return nil
}

func (s *stubSessionStore) UpdateFeedback(_ context.Context, id, userID uuid.UUID, interactions []models.Interaction, feedback string, questions []string) error {
	s.updateFeedback++
	s.savedFeedback = feedback
	s.sessions[id].Interactions = interactions
	s.sessions[id].FeedbackText = feedback
	s.sessions[id].Questions = questions
	return nil
}

func (s *stubSessionStore) Finalize(_ context.Context, sess *models.WritingSession) error {
	s.finalized = sess
	s.sessions[sess.ID] = sess
	return nil
}

func (s *stubSessionStore) Autosave(_ context.Context, id, userID uuid.UUID, draft string, elapsedSeconds int) error {
	s.autosavedDraft = draft
	s.autosavedSecs = elapsedSeconds
	return nil
}

func (s *stubSessionStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.SessionListItem, error) {
	return []models.SessionListItem{}, nil
}

func (s *stubSessionStore) ListByUserKind(_ context.Context, userID uuid.UUID, kind string, limit int) ([]models.SessionListItem, error) {
	return []models.SessionListItem{}, nil
}

type stubUserGetter struct{ user *models.User }

func (s *stubUserGetter) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.user, nil
}

// stubFeedback validates the draft like the real service but skips the model.
type stubFeedback struct {
	resp        *models.FeedbackResponse
	calls       int
	seenHistory []models.Interaction
}

func (s *stubFeedback) Generate(_ context.Context, user *models.User, req models.FeedbackRequest, history []models.Interaction) (*models.FeedbackResponse, error) {
	if err := services.ValidateDraft(req.DraftText); err != nil {
		return nil, err
	}
	s.calls++
	s.seenHistory = history
	return s.resp, nil
}

type stubAwarder struct {
	awards []struct {
		userID uuid.UUID
		points int
		reason string
	}
}

func (s *stubAwarder) Award(_ context.Context, userID uuid.UUID, points int, reason string) (*models.PointsRecord, error) {
	s.awards = append(s.awards, struct {
		userID uuid.UUID
		points int
		reason string
	}{userID, points, reason})
	return &models.PointsRecord{UserID: userID, TotalPoints: points, Level: 1}, nil
}

func (s *stubAwarder) totalPoints() int {
	total := 0
	for _, a := range s.awards {
		total += a.points
	}
	return total
}

func sessionRouter(h *SessionHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.Start)
	r.Get("/sessions/{id}", h.Get)
	r.Post("/sessions/{id}/versions", h.SaveVersion)
	r.Put("/sessions/{id}/reflection", h.SaveReflection)
	r.Post("/sessions/{id}/feedback", h.RequestFeedback)
	r.Post("/sessions/{id}/save", h.Save)
	r.Put("/sessions/{id}/autosave", h.Autosave)
	return r
}

func authedRequest(method, target string, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func decodeErrorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp.Error.Code
}

func TestStartSession(t *testing.T) {
	store := newStubSessionStore()
	awarder := &stubAwarder{}
	h := NewSessionHandler(store, nil, nil, awarder, nil)
	userID := uuid.New()

	req := authedRequest("POST", "/sessions", `{"kind":"ai"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var session models.WritingSession
	if err := json.NewDecoder(w.Body).Decode(&session); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	if session.Kind != models.SessionKindAI {
		t.Errorf("Expected kind ai, got %q", session.Kind)
	}
	if session.UserID != userID {
		t.Error("Session not owned by the requesting user")
	}
	if session.StartedAt.IsZero() {
		t.Error("StartedAt not set")
	}

	if len(awarder.awards) != 1 || awarder.awards[0].points != services.PointsStartSession {
		t.Errorf("Expected one award of %d points, got %+v", services.PointsStartSession, awarder.awards)
	}
}

func TestStartSession_DefaultsToAI(t *testing.T) {
	store := newStubSessionStore()
	h := NewSessionHandler(store, nil, nil, nil, nil)

	req := authedRequest("POST", "/sessions", `{}`, uuid.New())
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	if store.createdSession.Kind != models.SessionKindAI {
		t.Errorf("Expected default kind ai, got %q", store.createdSession.Kind)
	}
}

func TestStartSession_RejectsUnknownKind(t *testing.T) {
	h := NewSessionHandler(newStubSessionStore(), nil, nil, nil, nil)

	req := authedRequest("POST", "/sessions", `{"kind":"freestyle"}`, uuid.New())
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w.Body); code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", code)
	}
}

func TestStartSession_MalformedBody(t *testing.T) {
	store := newStubSessionStore()
	h := NewSessionHandler(store, nil, nil, nil, nil)

	req := authedRequest("POST", "/sessions", `{"kind":`, uuid.New())
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for malformed body, got %d", w.Code)
	}
	if store.createdSession != nil {
		t.Error("No session should be created from a malformed body")
	}
}

func TestSaveVersion(t *testing.T) {
	userID := uuid.New()
	session := &models.WritingSession{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      models.SessionKindAI,
		StartedAt: time.Now().UTC(),
	}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	h := NewSessionHandler(store, nil, nil, awarder, nil)

	body := `{"text":"Um parágrafo crítico.","quick_notes":"nota"}`
	req := authedRequest("POST", "/sessions/"+session.ID.String()+"/versions", body, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.savedVersions) != 1 {
		t.Fatalf("Expected exactly one version, got %d", len(store.savedVersions))
	}

	// Character count is in runes, not bytes.
	v := store.savedVersions[0]
	if v.CharCount != 21 {
		t.Errorf("Expected char count 21 for %q, got %d", "Um parágrafo crítico.", v.CharCount)
	}
	if v.QuickNotes != "nota" {
		t.Errorf("Quick notes not carried onto the version: %q", v.QuickNotes)
	}

	if awarder.totalPoints() != services.PointsSaveVersion {
		t.Errorf("Expected %d points, got %d", services.PointsSaveVersion, awarder.totalPoints())
	}

	var resp struct {
		VersionCount int `json:"version_count"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.VersionCount != 1 {
		t.Errorf("Expected version_count 1, got %d", resp.VersionCount)
	}
}

func TestSaveVersion_AppendsToExisting(t *testing.T) {
	userID := uuid.New()
	session := &models.WritingSession{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: time.Now().UTC(),
		Versions:  []models.Version{{Text: "first"}},
	}
	store := newStubSessionStore(session)
	h := NewSessionHandler(store, nil, nil, nil, nil)

	req := authedRequest("POST", "/sessions/"+session.ID.String()+"/versions", `{"text":"second"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	if len(store.savedVersions) != 2 {
		t.Fatalf("Expected 2 versions after append, got %d", len(store.savedVersions))
	}
	if store.savedVersions[0].Text != "first" || store.savedVersions[1].Text != "second" {
		t.Error("Versions out of order after append")
	}
}

func TestSaveVersion_FinishedSession(t *testing.T) {
	userID := uuid.New()
	ended := time.Now().UTC()
	session := &models.WritingSession{
		ID: uuid.New(), UserID: userID,
		StartedAt: ended.Add(-time.Hour), EndedAt: &ended,
	}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	h := NewSessionHandler(store, nil, nil, awarder, nil)

	req := authedRequest("POST", "/sessions/"+session.ID.String()+"/versions", `{"text":"late snapshot"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on finished session, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w.Body); code != "CONFLICT" {
		t.Errorf("Expected CONFLICT, got %q", code)
	}
	if store.updateVersions != 0 {
		t.Error("Finished session must not accept new versions")
	}
	if len(awarder.awards) != 0 {
		t.Errorf("Finished session must not earn version points, got %+v", awarder.awards)
	}
}

func TestSaveReflection_FinishedSession(t *testing.T) {
	userID := uuid.New()
	ended := time.Now().UTC()
	session := &models.WritingSession{
		ID: uuid.New(), UserID: userID,
		StartedAt: ended.Add(-time.Hour), EndedAt: &ended,
		Reflection: "final thoughts",
	}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	h := NewSessionHandler(store, nil, nil, awarder, nil)

	req := authedRequest("PUT", "/sessions/"+session.ID.String()+"/reflection",
		`{"reflection":"changed my mind"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on finished session, got %d", w.Code)
	}
	if store.sessions[session.ID].Reflection != "final thoughts" {
		t.Error("Finished session's reflection must not change")
	}
	if len(awarder.awards) != 0 {
		t.Errorf("Finished session must not earn reflection points, got %+v", awarder.awards)
	}
}

func TestSaveReflection_EmptyEarnsNothing(t *testing.T) {
	userID := uuid.New()
	session := &models.WritingSession{ID: uuid.New(), UserID: userID, StartedAt: time.Now().UTC()}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	h := NewSessionHandler(store, nil, nil, awarder, nil)

	req := authedRequest("PUT", "/sessions/"+session.ID.String()+"/reflection", `{"reflection":""}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(awarder.awards) != 0 {
		t.Errorf("Empty reflection must not earn points, got %+v", awarder.awards)
	}
}

func TestSaveReflection_Awards(t *testing.T) {
	userID := uuid.New()
	session := &models.WritingSession{ID: uuid.New(), UserID: userID, StartedAt: time.Now().UTC()}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	h := NewSessionHandler(store, nil, nil, awarder, nil)

	req := authedRequest("PUT", "/sessions/"+session.ID.String()+"/reflection",
		`{"reflection":"I noticed my argument drifted."}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if awarder.totalPoints() != services.PointsReflection {
		t.Errorf("Expected %d points, got %d", services.PointsReflection, awarder.totalPoints())
	}
}

func TestRequestFeedback(t *testing.T) {
	userID := uuid.New()
	session := &models.WritingSession{
		ID: uuid.New(), UserID: userID, StartedAt: time.Now().UTC(),
		Interactions: []models.Interaction{
			{Actor: models.ActorStudent, Message: "earlier draft"},
			{Actor: models.ActorAssistant, Message: "earlier advice"},
		},
	}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	fb := &stubFeedback{resp: &models.FeedbackResponse{
		FeedbackText: "Sharpen the thesis.",
		Questions:    []string{"What is the counterargument?"},
		Suggestions:  []string{"Define the key term early."},
		Interaction: models.Interaction{
			Actor:   models.ActorAssistant,
			Message: "Sharpen the thesis.",
		},
	}}
	h := NewSessionHandler(store, &stubUserGetter{user: &models.User{ID: userID}}, fb, awarder, nil)

	draft := strings.Repeat("A solid critical sentence. ", 5)
	body, _ := json.Marshal(models.FeedbackRequest{DraftText: draft})
	req := authedRequest("POST", "/sessions/"+session.ID.String()+"/feedback", string(body), userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fb.calls != 1 {
		t.Errorf("Expected one feedback call, got %d", fb.calls)
	}
	if store.updateFeedback != 1 {
		t.Errorf("Expected one feedback persist, got %d", store.updateFeedback)
	}

	// The generator sees the conversation so far.
	if len(fb.seenHistory) != 2 {
		t.Fatalf("Expected the 2 prior interactions passed to the generator, got %d", len(fb.seenHistory))
	}
	if fb.seenHistory[1].Message != "earlier advice" {
		t.Errorf("History out of order: %q", fb.seenHistory[1].Message)
	}

	// The log grows by the reviewed draft then the assistant response.
	saved := store.sessions[session.ID].Interactions
	if len(saved) != 4 {
		t.Fatalf("Expected 4 interactions, got %d", len(saved))
	}
	if saved[2].Actor != models.ActorStudent || saved[2].Message != draft {
		t.Error("Third interaction should be the student's new draft")
	}
	if saved[3].Actor != models.ActorAssistant {
		t.Error("Fourth interaction should be the assistant's response")
	}

	if awarder.totalPoints() != services.PointsAIFeedback {
		t.Errorf("Expected %d points, got %d", services.PointsAIFeedback, awarder.totalPoints())
	}
}

func TestRequestFeedback_ShortDraft(t *testing.T) {
	userID := uuid.New()
	session := &models.WritingSession{ID: uuid.New(), UserID: userID, StartedAt: time.Now().UTC()}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	fb := &stubFeedback{}
	h := NewSessionHandler(store, &stubUserGetter{user: &models.User{ID: userID}}, fb, awarder, nil)

	req := authedRequest("POST", "/sessions/"+session.ID.String()+"/feedback",
		`{"draft_text":"too short"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
	}
	if _, ok := resp.Error.Fields["draft_text"]; !ok {
		t.Error("Expected a draft_text field error")
	}

	if store.updateFeedback != 0 {
		t.Error("Short draft must not be persisted as feedback")
	}
	if len(awarder.awards) != 0 {
		t.Error("Short draft must not earn points")
	}
}

func TestRequestFeedback_FinishedSession(t *testing.T) {
	userID := uuid.New()
	ended := time.Now().UTC()
	session := &models.WritingSession{
		ID: uuid.New(), UserID: userID,
		StartedAt: ended.Add(-time.Hour), EndedAt: &ended,
	}
	store := newStubSessionStore(session)
	h := NewSessionHandler(store, nil, &stubFeedback{}, nil, nil)

	draft := strings.Repeat("x", 60)
	req := authedRequest("POST", "/sessions/"+session.ID.String()+"/feedback",
		`{"draft_text":"`+draft+`"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on finished session, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w.Body); code != "CONFLICT" {
		t.Errorf("Expected CONFLICT, got %q", code)
	}
}

func TestSaveSession(t *testing.T) {
	userID := uuid.New()
	started := time.Now().UTC().Add(-10 * time.Minute)
	session := &models.WritingSession{ID: uuid.New(), UserID: userID, StartedAt: started}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	h := NewSessionHandler(store, nil, nil, awarder, nil)

	req := authedRequest("POST", "/sessions/"+session.ID.String()+"/save",
		`{"draft_text":"final text","reflection":"done"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if store.finalized == nil {
		t.Fatal("Session was not finalized")
	}
	if store.finalized.EndedAt == nil {
		t.Fatal("EndedAt not set")
	}
	// Roughly ten minutes elapsed.
	if store.finalized.ElapsedSeconds < 595 || store.finalized.ElapsedSeconds > 605 {
		t.Errorf("Unexpected elapsed seconds: %d", store.finalized.ElapsedSeconds)
	}
	if store.finalized.DraftText != "final text" {
		t.Errorf("Draft not saved: %q", store.finalized.DraftText)
	}
	if awarder.totalPoints() != services.PointsSaveSession {
		t.Errorf("Expected %d points, got %d", services.PointsSaveSession, awarder.totalPoints())
	}
}

func TestSaveSession_AlreadyFinished(t *testing.T) {
	userID := uuid.New()
	ended := time.Now().UTC()
	session := &models.WritingSession{
		ID: uuid.New(), UserID: userID,
		StartedAt: ended.Add(-time.Hour), EndedAt: &ended,
	}
	store := newStubSessionStore(session)
	awarder := &stubAwarder{}
	h := NewSessionHandler(store, nil, nil, awarder, nil)

	req := authedRequest("POST", "/sessions/"+session.ID.String()+"/save", `{"draft_text":"x"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", w.Code)
	}
	if len(awarder.awards) != 0 {
		t.Error("Finished session must not earn save points again")
	}
}

func TestAutosave_FinishedSession(t *testing.T) {
	userID := uuid.New()
	ended := time.Now().UTC()
	session := &models.WritingSession{
		ID: uuid.New(), UserID: userID,
		StartedAt: ended.Add(-time.Hour), EndedAt: &ended,
	}
	store := newStubSessionStore(session)
	h := NewSessionHandler(store, nil, nil, nil, nil)

	req := authedRequest("PUT", "/sessions/"+session.ID.String()+"/autosave", `{"draft_text":"x"}`, userID)
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", w.Code)
	}
	if store.autosavedDraft != "" {
		t.Error("Finished session must not be autosaved")
	}
}

func TestGetSession_NotOwner(t *testing.T) {
	owner := uuid.New()
	session := &models.WritingSession{ID: uuid.New(), UserID: owner, StartedAt: time.Now().UTC()}
	store := newStubSessionStore(session)
	h := NewSessionHandler(store, nil, nil, nil, nil)

	req := authedRequest("GET", "/sessions/"+session.ID.String(), "", uuid.New())
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-owner, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w.Body); code != "FORBIDDEN" {
		t.Errorf("Expected FORBIDDEN, got %q", code)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	h := NewSessionHandler(newStubSessionStore(), nil, nil, nil, nil)

	req := authedRequest("GET", "/sessions/"+uuid.New().String(), "", uuid.New())
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}

func TestGetSession_InvalidID(t *testing.T) {
	h := NewSessionHandler(newStubSessionStore(), nil, nil, nil, nil)

	req := authedRequest("GET", "/sessions/not-a-uuid", "", uuid.New())
	w := httptest.NewRecorder()
	sessionRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}
