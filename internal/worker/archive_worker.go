package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/swipehq/interview-backend/internal/config"
	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/repository"
)

// ArchiveWorker drains the archive queues and persists completed
// sessions and candidate records to PostgreSQL.
type ArchiveWorker struct {
	snapshots  *repository.SnapshotRepository
	candidates *repository.CandidateRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewArchiveWorker creates a new ArchiveWorker.
func NewArchiveWorker(snapshots *repository.SnapshotRepository, candidates *repository.CandidateRepository, rdb *redis.Client, log zerolog.Logger) *ArchiveWorker {
	return &ArchiveWorker{
		snapshots:  snapshots,
		candidates: candidates,
		rdb:        rdb,
		log:        log.With().Str("component", "archive_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ArchiveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ArchiveWorker) processNext(ctx context.Context) {
	// BLPop blocks on both queues until an item is available or timeout
	// (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second,
		config.WorkerKey.ArchiveSessionsQueue,
		config.WorkerKey.UpsertCandidatesQueue,
	).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	queue, raw := result[0], result[1]
	if err := w.persist(ctx, queue, raw); err != nil {
		w.log.Error().Err(err).Str("queue", queue).Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, queue, raw)
		time.Sleep(5 * time.Second)
	}
}

func (w *ArchiveWorker) persist(ctx context.Context, queue, raw string) error {
	switch queue {
	case config.WorkerKey.ArchiveSessionsQueue:
		var snap model.SessionSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			w.log.Error().Err(err).Msg("Unmarshal error, dropping item")
			return nil
		}
		// The denormalized candidate rides along; persist it first so
		// the snapshot row always has its owner.
		if snap.Candidate != nil && snap.Candidate.ID != "" {
			cand := model.Candidate{
				ID:    snap.Candidate.ID,
				Name:  snap.Candidate.Name,
				Email: snap.Candidate.Email,
				Phone: snap.Candidate.Phone,
			}
			if err := w.candidates.Upsert(ctx, &cand); err != nil {
				return err
			}
		}
		return w.snapshots.Upsert(ctx, &snap)

	case config.WorkerKey.UpsertCandidatesQueue:
		var cand model.Candidate
		if err := json.Unmarshal([]byte(raw), &cand); err != nil {
			w.log.Error().Err(err).Msg("Unmarshal error, dropping item")
			return nil
		}
		if cand.ID == "" {
			return nil
		}
		return w.candidates.Upsert(ctx, &cand)
	}
	return nil
}

// drain processes all remaining items in both queues before shutdown.
func (w *ArchiveWorker) drain(ctx context.Context) {
	drained := 0
	for _, queue := range []string{config.WorkerKey.ArchiveSessionsQueue, config.WorkerKey.UpsertCandidatesQueue} {
		for {
			raw, err := w.rdb.LPop(ctx, queue).Result()
			if err != nil {
				break
			}
			if err := w.persist(ctx, queue, raw); err != nil {
				w.log.Error().Err(err).Msg("Drain persist error")
				w.rdb.RPush(ctx, queue, raw)
				break
			}
			drained++
		}
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
