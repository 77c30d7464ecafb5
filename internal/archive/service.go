package archive

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/swipehq/interview-backend/internal/bus"
	"github.com/swipehq/interview-backend/internal/config"
	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/session"
)

// Queue hands completed snapshots to the persistence worker.
type Queue interface {
	Enqueue(ctx context.Context, queue string, payload []byte) error
}

// RedisQueue pushes onto the Redis list the archive worker drains.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Enqueue(ctx context.Context, queue string, payload []byte) error {
	return q.rdb.RPush(ctx, queue, payload).Err()
}

// Service consumes lifecycle broadcasts and folds them into the local
// machine. Consumption is idempotent: duplicate or out-of-order
// messages never corrupt the archive, and a completed record is never
// overwritten by stale in-progress data.
type Service struct {
	machine *session.Machine
	queue   Queue
	log     zerolog.Logger
}

func NewService(machine *session.Machine, queue Queue, log zerolog.Logger) *Service {
	return &Service{
		machine: machine,
		queue:   queue,
		log:     log.With().Str("component", "archive").Logger(),
	}
}

// Run subscribes to the bus until ctx is cancelled.
func (s *Service) Run(ctx context.Context, b bus.Bus) error {
	unsubscribe, err := b.Subscribe(func(msg bus.Message) {
		s.Handle(ctx, msg)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	unsubscribe()
	return nil
}

// Handle folds one broadcast message into local state.
func (s *Service) Handle(ctx context.Context, msg bus.Message) {
	switch msg.Type {
	case string(session.EventSessionCompleted):
		var snap model.SessionSnapshot
		if err := json.Unmarshal(msg.Payload, &snap); err != nil {
			s.log.Warn().Err(err).Msg("Malformed session:completed payload")
			return
		}
		s.machine.ImportArchivedSession(&snap)
		s.enqueue(ctx, &snap)

	case string(session.EventSessionUpdated):
		var snap model.SessionSnapshot
		if err := json.Unmarshal(msg.Payload, &snap); err != nil {
			s.log.Warn().Err(err).Msg("Malformed session:updated payload")
			return
		}
		// In-progress updates never touch the archive; only a snapshot
		// that already completed elsewhere is worth importing.
		if snap.Status == model.SessionStatusCompleted {
			s.machine.ImportArchivedSession(&snap)
		}

	case string(session.EventCandidateAdded):
		var cand model.Candidate
		if err := json.Unmarshal(msg.Payload, &cand); err != nil {
			s.log.Warn().Err(err).Msg("Malformed candidate:added payload")
			return
		}
		if cand.Email == "" && cand.ID == "" {
			return
		}
		// Import, never AddCandidate: re-emitting a consumed
		// candidate:added would loop it through the bus forever.
		s.machine.ImportCandidate(&cand)
	}
}

// enqueue hands a completed snapshot to the persistence worker. The
// worker upserts by session ID, so duplicate deliveries are harmless.
func (s *Service) enqueue(ctx context.Context, snap *model.SessionSnapshot) {
	if s.queue == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal archive payload failed")
		return
	}
	if err := s.queue.Enqueue(ctx, config.WorkerKey.ArchiveSessionsQueue, raw); err != nil {
		s.log.Error().Err(err).Str("session_id", snap.ID.String()).Msg("Archive enqueue failed")
	}
	if snap.Candidate != nil {
		if raw, err := json.Marshal(snap.Candidate); err == nil {
			if err := s.queue.Enqueue(ctx, config.WorkerKey.UpsertCandidatesQueue, raw); err != nil {
				s.log.Error().Err(err).Msg("Candidate enqueue failed")
			}
		}
	}
}
