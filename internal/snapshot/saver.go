// Package snapshot bridges the in-memory session machine and the
// durable store so a crash, reload, or disconnect does not lose
// interview progress.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/swipehq/interview-backend/internal/config"
	"github.com/swipehq/interview-backend/internal/metrics"
	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/session"
	"github.com/swipehq/interview-backend/internal/store"
)

// ErrUnsupportedVersion is returned when the persisted snapshot carries
// an unknown schema version. The slot is then treated as absent rather
// than silently defaulting fields.
var ErrUnsupportedVersion = errors.New("snapshot: unsupported schema version")

// Saver periodically serializes the current session into the durable
// store's incomplete-session slot and restores it on startup.
type Saver struct {
	kv       store.KV
	machine  *session.Machine
	interval time.Duration
	log      zerolog.Logger
	nowFn    func() time.Time
}

// NewSaver creates a Saver writing every interval.
func NewSaver(kv store.KV, machine *session.Machine, interval time.Duration, log zerolog.Logger) *Saver {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Saver{
		kv:       kv,
		machine:  machine,
		interval: interval,
		log:      log.With().Str("component", "snapshot_saver").Logger(),
		nowFn:    time.Now,
	}
}

// Run saves on a fixed interval until ctx is cancelled, then performs a
// final flush. Call in a goroutine.
func (s *Saver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("Snapshot saver started")
	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(context.Background()); err != nil {
				s.log.Error().Err(err).Msg("Final snapshot flush failed")
			}
			s.log.Info().Msg("Snapshot saver stopped")
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				// Non-fatal: in-memory state stays authoritative for this
				// process at the cost of losing the write on reload.
				s.log.Error().Err(err).Msg("Snapshot save failed")
			}
		}
	}
}

// Flush writes the current session snapshot immediately. A completed or
// absent session leaves the slot untouched; repeated flushes with
// unchanged state rewrite the same snapshot.
func (s *Saver) Flush(ctx context.Context) error {
	snap := s.Build()
	if snap == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, config.CacheKey.IncompleteSnapshotKey(), string(raw)); err != nil {
		return err
	}
	metrics.SnapshotSaves.Inc()
	return nil
}

// Build assembles a snapshot of the current session, or nil when there
// is nothing worth persisting. The machine's Tick already advances
// RemainingTime second by second, so the ticked value is written as-is;
// wall clock is consulted only when a started question has no counter
// yet. StartedAt is cleared so the next load cannot subtract the same
// elapsed time again. Drafted answer text rides along in the question's
// Draft field.
func (s *Saver) Build() *model.SessionSnapshot {
	st := s.machine.State()
	cur := st.Current
	if cur == nil || cur.Status == model.SessionStatusCompleted {
		return nil
	}

	now := s.nowFn()
	for i := range cur.Questions {
		q := &cur.Questions[i]
		if q.StartedAt == nil {
			continue
		}
		rem := q.TimeLimit
		if q.RemainingTime != nil {
			rem = *q.RemainingTime
		} else if elapsed := int(now.Sub(*q.StartedAt).Seconds()); elapsed > 0 {
			rem -= elapsed
		}
		if rem < 0 {
			rem = 0
		}
		q.RemainingTime = &rem
		q.StartedAt = nil
	}

	snap := &model.SessionSnapshot{
		Version: model.SnapshotVersion,
		Session: *cur,
		SavedAt: now,
	}
	for i := range st.Candidates {
		if st.Candidates[i].ID == cur.CandidateID {
			snap.Candidate = st.Candidates[i].Summary()
			break
		}
	}
	return snap
}

// Load reads the persisted incomplete snapshot. It returns (nil, nil)
// when the slot is empty or holds a completed session, and
// ErrUnsupportedVersion for unknown schema versions.
func (s *Saver) Load(ctx context.Context) (*model.SessionSnapshot, error) {
	raw, err := s.kv.Get(ctx, config.CacheKey.IncompleteSnapshotKey())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot slot: %w", err)
	}

	var snap model.SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != model.SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	if snap.Status == model.SessionStatusCompleted {
		return nil, nil
	}
	return &snap, nil
}

// Discard clears the incomplete-session slot. Discarding an absent
// snapshot is a no-op.
func (s *Saver) Discard(ctx context.Context) error {
	return s.kv.Delete(ctx, config.CacheKey.IncompleteSnapshotKey())
}
