package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swipehq/interview-backend/internal/model"
)

// SnapshotRepository persists archived session snapshots.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Upsert creates or updates an archived snapshot. The archive is
// append-only in spirit; the update path only exists so duplicate
// queue deliveries stay harmless.
func (r *SnapshotRepository) Upsert(ctx context.Context, snap *model.SessionSnapshot) error {
	questions, err := json.Marshal(snap.Questions)
	if err != nil {
		return err
	}
	var summary []byte
	if snap.Summary != nil {
		if summary, err = json.Marshal(snap.Summary); err != nil {
			return err
		}
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_snapshots (id, candidate_id, status, started_at, completed_at, questions, summary, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   completed_at = EXCLUDED.completed_at,
		   questions = EXCLUDED.questions,
		   summary = EXCLUDED.summary,
		   saved_at = EXCLUDED.saved_at,
		   updated_at = NOW()`,
		snap.ID, snap.CandidateID, string(snap.Status), snap.StartedAt, snap.CompletedAt,
		questions, summary, snap.SavedAt,
	)
	return err
}

// GetByID retrieves one archived snapshot.
func (r *SnapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SessionSnapshot, error) {
	var (
		snap      model.SessionSnapshot
		status    string
		questions []byte
		summary   []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, candidate_id, status, started_at, completed_at, questions, summary, saved_at
		 FROM session_snapshots WHERE id = $1`, id,
	).Scan(&snap.ID, &snap.CandidateID, &status, &snap.StartedAt, &snap.CompletedAt, &questions, &summary, &snap.SavedAt)
	if err != nil {
		return nil, err
	}
	if err := hydrate(&snap, status, questions, summary); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListByCandidate retrieves a candidate's archived sessions, newest
// first.
func (r *SnapshotRepository) ListByCandidate(ctx context.Context, candidateID string) ([]model.SessionSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, candidate_id, status, started_at, completed_at, questions, summary, saved_at
		 FROM session_snapshots WHERE candidate_id = $1 ORDER BY saved_at DESC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SessionSnapshot
	for rows.Next() {
		var (
			snap      model.SessionSnapshot
			status    string
			questions []byte
			summary   []byte
		)
		if err := rows.Scan(&snap.ID, &snap.CandidateID, &status, &snap.StartedAt, &snap.CompletedAt, &questions, &summary, &snap.SavedAt); err != nil {
			return nil, err
		}
		if err := hydrate(&snap, status, questions, summary); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func hydrate(snap *model.SessionSnapshot, status string, questions, summary []byte) error {
	snap.Version = model.SnapshotVersion
	snap.Status = model.SessionStatus(status)
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &snap.Questions); err != nil {
			return err
		}
	}
	if len(summary) > 0 {
		snap.Summary = &model.Evaluation{}
		if err := json.Unmarshal(summary, snap.Summary); err != nil {
			return err
		}
	}
	return nil
}
