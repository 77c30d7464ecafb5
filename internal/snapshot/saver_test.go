package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/swipehq/interview-backend/internal/config"
	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/session"
	"github.com/swipehq/interview-backend/internal/store"
)

func newFixture(t *testing.T) (*Saver, *session.Machine, *store.MemoryKV) {
	t.Helper()
	kv := store.NewMemoryKV()
	m := session.New(zerolog.Nop())
	s := NewSaver(kv, m, time.Second, zerolog.Nop())
	return s, m, kv
}

func seedSession(t *testing.T, m *session.Machine) {
	t.Helper()
	if _, err := m.StartSession("cand-1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	err := m.SetQuestions([]model.Question{
		{Text: "q1", Difficulty: model.DifficultyEasy},
		{Text: "q2", Difficulty: model.DifficultyMedium},
		{Text: "q3", Difficulty: model.DifficultyHard},
	})
	if err != nil {
		t.Fatalf("SetQuestions: %v", err)
	}
}

func TestFlushAndLoadRoundTrip(t *testing.T) {
	s, m, _ := newFixture(t)
	seedSession(t, m)
	if err := m.StartQuestion(0, time.Now(), 20); err != nil {
		t.Fatalf("StartQuestion: %v", err)
	}
	if err := m.UpdateDraft(0, "typing away"); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}

	ctx := context.Background()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if snap.Version != model.SnapshotVersion {
		t.Fatalf("version = %d, want %d", snap.Version, model.SnapshotVersion)
	}
	if snap.Questions[0].StartedAt != nil {
		t.Fatal("snapshot must clear StartedAt on the active question")
	}
	if snap.Questions[0].Draft != "typing away" {
		t.Fatal("draft text not folded into snapshot")
	}
}

func TestBuildUsesTickedRemainingTime(t *testing.T) {
	s, m, _ := newFixture(t)
	seedSession(t, m)
	startedAt := time.Now().Add(-10 * time.Second)
	if err := m.StartQuestion(1, startedAt, 60); err != nil {
		t.Fatalf("StartQuestion: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := m.Tick(1); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	snap := s.Build()
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	rem := snap.Questions[1].RemainingTime
	if rem == nil {
		t.Fatal("remaining time missing")
	}
	// Tick already subtracted the 10 elapsed seconds; Build must not
	// subtract them from StartedAt a second time.
	if *rem != 50 {
		t.Fatalf("remaining = %d, want 50", *rem)
	}
	if snap.Questions[1].StartedAt != nil {
		t.Fatal("snapshot must clear StartedAt on the active question")
	}
}

func TestFlushSkipsWhenNoSession(t *testing.T) {
	s, _, kv := newFixture(t)
	ctx := context.Background()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := kv.Get(ctx, config.CacheKey.IncompleteSnapshotKey()); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("slot must stay empty when no session exists")
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	s, _, kv := newFixture(t)
	ctx := context.Background()

	raw, _ := json.Marshal(map[string]any{"version": 7, "status": "in-progress"})
	if err := kv.Set(ctx, config.CacheKey.IncompleteSnapshotKey(), string(raw)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := s.Load(ctx); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestLoadTreatsCompletedAsAbsent(t *testing.T) {
	s, m, _ := newFixture(t)
	seedSession(t, m)
	ctx := context.Background()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Rewrite the slot as completed; startup must not offer resume.
	snap, err := s.Load(ctx)
	if err != nil || snap == nil {
		t.Fatalf("Load: (%v, %v)", snap, err)
	}
	snap.Status = model.SessionStatusCompleted
	raw, _ := json.Marshal(snap)
	if err := s.kv.Set(ctx, config.CacheKey.IncompleteSnapshotKey(), string(raw)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatal("completed snapshot must be treated as absent")
	}
}

func TestDiscardIdempotent(t *testing.T) {
	s, m, _ := newFixture(t)
	seedSession(t, m)
	ctx := context.Background()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if err := s.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := s.Discard(ctx); err != nil {
		t.Fatalf("repeated Discard: %v", err)
	}
	snap, err := s.Load(ctx)
	if err != nil || snap != nil {
		t.Fatalf("slot not empty after discard: (%v, %v)", snap, err)
	}
}

func TestRestoreFromSavedSnapshot(t *testing.T) {
	s, m, _ := newFixture(t)
	seedSession(t, m)
	// Answer question 0 and leave question 1 mid-flight with a draft.
	if err := m.BeginSubmission(0); err != nil {
		t.Fatalf("BeginSubmission: %v", err)
	}
	if _, err := m.FinishSubmission(0, "done"); err != nil {
		t.Fatalf("FinishSubmission: %v", err)
	}
	if err := m.StartQuestion(1, time.Now(), 45); err != nil {
		t.Fatalf("StartQuestion: %v", err)
	}
	if err := m.UpdateDraft(1, "in progress"); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}

	ctx := context.Background()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Simulate a reload: fresh machine, restore, resume.
	m2 := session.New(zerolog.Nop())
	s2 := NewSaver(s.kv, m2, time.Second, zerolog.Nop())
	snap, err := s2.Load(ctx)
	if err != nil || snap == nil {
		t.Fatalf("Load: (%v, %v)", snap, err)
	}
	if err := m2.RestoreSession(snap); err != nil {
		t.Fatalf("RestoreSession: %v", err)
	}
	if err := m2.ResumeSession(); err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}

	cur := m2.Current()
	if cur.Status != model.SessionStatusInProgress {
		t.Fatalf("status = %s, want in-progress", cur.Status)
	}
	if cur.QuestionIndex != 1 {
		t.Fatalf("question index = %d, want 1 (first unanswered)", cur.QuestionIndex)
	}
	if cur.Questions[1].Draft != "in progress" {
		t.Fatal("typed-but-unsubmitted text lost across reload")
	}
	if rem := cur.Questions[1].RemainingTime; rem == nil || *rem > 45 {
		t.Fatalf("remaining = %v, want <= 45", rem)
	}
}
