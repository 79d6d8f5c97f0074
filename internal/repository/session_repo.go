package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
)

// SessionRepo persists writing sessions. The interaction log and version list
// are stored as JSONB documents on the row; the store is the sole arbiter of
// write ordering (last write wins).
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s *models.WritingSession) error {
	query := `
		INSERT INTO writing_sessions (id, user_id, kind, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	s.ID = uuid.New()
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	if s.Interactions == nil {
		s.Interactions = []models.Interaction{}
	}
	if s.Versions == nil {
		s.Versions = []models.Version{}
	}
	if s.Questions == nil {
		s.Questions = []string{}
	}

	return r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.Kind, s.StartedAt).Scan(&s.CreatedAt)
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WritingSession, error) {
	s := &models.WritingSession{}
	var interactions, versions, questions []byte
	var endedAt pgtype.Timestamptz

	query := `
		SELECT id, user_id, kind, draft_text, quick_notes, reflection,
		       interactions, versions, feedback_text, questions, shared,
		       started_at, ended_at, elapsed_seconds, created_at
		FROM writing_sessions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.Kind, &s.DraftText, &s.QuickNotes, &s.Reflection,
		&interactions, &versions, &s.FeedbackText, &questions, &s.Shared,
		&s.StartedAt, &endedAt, &s.ElapsedSeconds, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	json.Unmarshal(interactions, &s.Interactions)
	json.Unmarshal(versions, &s.Versions)
	json.Unmarshal(questions, &s.Questions)
	if s.Interactions == nil {
		s.Interactions = []models.Interaction{}
	}
	if s.Versions == nil {
		s.Versions = []models.Version{}
	}
	if s.Questions == nil {
		s.Questions = []string{}
	}
	return s, nil
}

// UpdateVersions replaces the whole version list. The caller appends to the
// list it loaded; versions only grow while a session is active, so the
// statement refuses finished sessions.
func (r *SessionRepo) UpdateVersions(ctx context.Context, id, userID uuid.UUID, versions []models.Version) error {
	data, err := json.Marshal(versions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		"UPDATE writing_sessions SET versions = $1 WHERE id = $2 AND user_id = $3 AND ended_at IS NULL",
		data, id, userID,
	)
	return err
}

// UpdateReflection persists only the reflection field.
func (r *SessionRepo) UpdateReflection(ctx context.Context, id, userID uuid.UUID, reflection string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE writing_sessions SET reflection = $1 WHERE id = $2 AND user_id = $3 AND ended_at IS NULL",
		reflection, id, userID,
	)
	return err
}

// UpdateFeedback persists the grown interaction log together with the latest
// AI feedback and questions, in one statement.
func (r *SessionRepo) UpdateFeedback(ctx context.Context, id, userID uuid.UUID, interactions []models.Interaction, feedback string, questions []string) error {
	interactionData, err := json.Marshal(interactions)
	if err != nil {
		return err
	}
	questionData, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE writing_sessions
		SET interactions = $1, feedback_text = $2, questions = $3
		WHERE id = $4 AND user_id = $5`,
		interactionData, feedback, questionData, id, userID,
	)
	return err
}

// Finalize persists every draft field and closes the session.
func (r *SessionRepo) Finalize(ctx context.Context, s *models.WritingSession) error {
	interactionData, err := json.Marshal(s.Interactions)
	if err != nil {
		return err
	}
	versionData, err := json.Marshal(s.Versions)
	if err != nil {
		return err
	}
	questionData, err := json.Marshal(s.Questions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE writing_sessions
		SET draft_text = $1, quick_notes = $2, reflection = $3,
		    interactions = $4, versions = $5, feedback_text = $6, questions = $7,
		    ended_at = $8, elapsed_seconds = $9
		WHERE id = $10 AND user_id = $11`,
		s.DraftText, s.QuickNotes, s.Reflection,
		interactionData, versionData, s.FeedbackText, questionData,
		s.EndedAt, s.ElapsedSeconds, s.ID, s.UserID,
	)
	return err
}

// Autosave updates the draft and running elapsed time without finalizing.
func (r *SessionRepo) Autosave(ctx context.Context, id, userID uuid.UUID, draft string, elapsedSeconds int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE writing_sessions
		SET draft_text = $1, elapsed_seconds = $2
		WHERE id = $3 AND user_id = $4 AND ended_at IS NULL`,
		draft, elapsedSeconds, id, userID,
	)
	return err
}

func (r *SessionRepo) listQuery(ctx context.Context, query string, args ...any) ([]models.SessionListItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.SessionListItem, 0)
	for rows.Next() {
		var item models.SessionListItem
		var endedAt pgtype.Timestamptz
		if err := rows.Scan(
			&item.ID, &item.Kind, &item.InteractionCount, &item.VersionCount,
			&item.ElapsedSeconds, &item.StartedAt, &endedAt, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			t := endedAt.Time
			item.EndedAt = &t
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const sessionListColumns = `
	id, kind,
	COALESCE(jsonb_array_length(interactions), 0),
	COALESCE(jsonb_array_length(versions), 0),
	elapsed_seconds, started_at, ended_at, created_at`

func (r *SessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SessionListItem, error) {
	return r.listQuery(ctx, `
		SELECT `+sessionListColumns+`
		FROM writing_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
}

func (r *SessionRepo) ListByUserKind(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]models.SessionListItem, error) {
	return r.listQuery(ctx, `
		SELECT `+sessionListColumns+`
		FROM writing_sessions
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3`, userID, kind, limit)
}

func (r *SessionRepo) ListSharedByUser(ctx context.Context, userID uuid.UUID) ([]models.SessionListItem, error) {
	return r.listQuery(ctx, `
		SELECT `+sessionListColumns+`
		FROM writing_sessions
		WHERE user_id = $1 AND shared = TRUE
		ORDER BY created_at DESC`, userID)
}

func (r *SessionRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM writing_sessions WHERE user_id = $1", userID).Scan(&count)
	return count, err
}

func (r *SessionRepo) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM writing_sessions WHERE user_id = $1 AND created_at >= $2",
		userID, since).Scan(&count)
	return count, err
}

// LastActivityAt returns the most recent session creation time for a user,
// or nil when they have none.
func (r *SessionRepo) LastActivityAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var ts pgtype.Timestamptz
	err := r.pool.QueryRow(ctx,
		"SELECT MAX(created_at) FROM writing_sessions WHERE user_id = $1", userID).Scan(&ts)
	if err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time
	return &t, nil
}
