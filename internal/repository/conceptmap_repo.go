package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"maflab-backend/internal/models"
)

type ConceptMapRepo struct {
	pool *pgxpool.Pool
}

func NewConceptMapRepo(pool *pgxpool.Pool) *ConceptMapRepo {
	return &ConceptMapRepo{pool: pool}
}

func (r *ConceptMapRepo) Create(ctx context.Context, m *models.ConceptMap) error {
	if m.Nodes == nil {
		m.Nodes = []models.MapNode{}
	}
	if m.Edges == nil {
		m.Edges = []models.MapEdge{}
	}
	nodes, err := json.Marshal(m.Nodes)
	if err != nil {
		return err
	}
	edges, err := json.Marshal(m.Edges)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO concept_maps (id, user_id, title, nodes, edges)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	m.ID = uuid.New()
	return r.pool.QueryRow(ctx, query, m.ID, m.UserID, m.Title, nodes, edges).
		Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *ConceptMapRepo) scanMap(row interface{ Scan(...any) error }) (*models.ConceptMap, error) {
	m := &models.ConceptMap{}
	var nodes, edges []byte
	err := row.Scan(&m.ID, &m.UserID, &m.Title, &nodes, &edges, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal(nodes, &m.Nodes)
	json.Unmarshal(edges, &m.Edges)
	if m.Nodes == nil {
		m.Nodes = []models.MapNode{}
	}
	if m.Edges == nil {
		m.Edges = []models.MapEdge{}
	}
	return m, nil
}

func (r *ConceptMapRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ConceptMap, error) {
	return r.scanMap(r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, nodes, edges, created_at, updated_at
		FROM concept_maps WHERE id = $1`, id))
}

func (r *ConceptMapRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ConceptMap, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, nodes, edges, created_at, updated_at
		FROM concept_maps
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	maps := make([]*models.ConceptMap, 0)
	for rows.Next() {
		m, err := r.scanMap(rows)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

func (r *ConceptMapRepo) UpdateNodes(ctx context.Context, id, userID uuid.UUID, nodes []models.MapNode) error {
	data, err := json.Marshal(nodes)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		"UPDATE concept_maps SET nodes = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3",
		data, id, userID,
	)
	return err
}

func (r *ConceptMapRepo) UpdateEdges(ctx context.Context, id, userID uuid.UUID, edges []models.MapEdge) error {
	data, err := json.Marshal(edges)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		"UPDATE concept_maps SET edges = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3",
		data, id, userID,
	)
	return err
}
