package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swipehq/interview-backend/internal/model"
)

// CandidateRepository handles candidate data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// Upsert creates or refreshes a candidate record. Non-empty incoming
// fields win over the stored ones.
func (r *CandidateRepository) Upsert(ctx context.Context, c *model.Candidate) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO candidates (id, name, email, phone, topic, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE candidates.name END,
		   email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE candidates.email END,
		   phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE candidates.phone END,
		   topic = CASE WHEN EXCLUDED.topic <> '' THEN EXCLUDED.topic ELSE candidates.topic END,
		   updated_at = NOW()`,
		c.ID, c.Name, c.Email, c.Phone, c.Topic, createdAt,
	)
	return err
}

// GetByID retrieves a candidate by ID.
func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, topic, created_at
		 FROM candidates WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Topic, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List retrieves all candidates ordered by creation time.
func (r *CandidateRepository) List(ctx context.Context) ([]model.Candidate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, topic, created_at
		 FROM candidates ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Topic, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
